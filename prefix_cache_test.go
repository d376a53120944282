package chat

import (
	"errors"
	"testing"
	"time"
)

func TestPrefixCacheTTL(t *testing.T) {
	clock := newFakeClock()
	perms := &countingPerms{prefix: "&c[Admin]", suffix: "&7*"}
	pc := NewPrefixCache(perms, 30*time.Second)
	pc.now = clock.Now

	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))

	if got := pc.Get(alice); got != "&c[Admin] &7*" {
		t.Fatalf("got %q", got)
	}

	clock.Advance(10 * time.Second)
	pc.Get(alice)
	if n := perms.count(); n != 1 {
		t.Fatalf("provider queried %d times within ttl, want 1", n)
	}

	clock.Advance(20 * time.Second)
	pc.Get(alice)
	if n := perms.count(); n != 2 {
		t.Errorf("provider queried %d times after ttl, want 2", n)
	}

	pc.Invalidate(alice.ID())
	pc.Get(alice)
	if n := perms.count(); n != 3 {
		t.Errorf("provider queried %d times after invalidate, want 3", n)
	}
}

func TestPrefixCacheJoin(t *testing.T) {
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))

	for _, tt := range []struct {
		prefix, suffix, want string
	}{
		{"", "", ""},
		{"&a[VIP]", "", "&a[VIP]"},
		{"", "&7*", "&7*"},
	} {
		pc := NewPrefixCache(&countingPerms{prefix: tt.prefix, suffix: tt.suffix}, time.Minute)
		if got := pc.Get(alice); got != tt.want {
			t.Errorf("%q + %q: got %q, want %q", tt.prefix, tt.suffix, got, tt.want)
		}
	}
}

func TestPrefixCacheDegrades(t *testing.T) {
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))

	failing := NewPrefixCache(&countingPerms{prefix: "x", err: errors.New("down")}, time.Minute)
	if got := failing.Get(alice); got != "" {
		t.Errorf("failing provider: got %q", got)
	}

	absent := NewPrefixCache(nil, time.Minute)
	if got := absent.Get(alice); got != "" {
		t.Errorf("nil provider: got %q", got)
	}
}

func TestPrefixCacheSweep(t *testing.T) {
	perms := &countingPerms{prefix: "p"}
	pc := NewPrefixCache(perms, time.Minute)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))

	pc.Get(alice)
	pc.Get(bob)
	pc.Sweep(func(id Identity) bool { return id == alice.ID() })

	if n := pc.entries.len(); n != 1 {
		t.Errorf("%d entries after sweep, want 1", n)
	}
}
