package chat

import (
	"reflect"
	"testing"
	"time"
)

func testMentionParser(caps CapabilityChecker) (*MentionParser, *fakeClock) {
	clock := newFakeClock()
	mp := NewMentionParser(DefaultConfig().Mention, caps, syncScheduler{})
	mp.now = clock.Now

	return mp, clock
}

func TestMentionRewrite(t *testing.T) {
	mp, _ := testMentionParser(nil)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))

	got, mentioned := mp.Rewrite(alice, "hi @bob and @Alice and @nobody", []Participant{alice, bob})
	mp.Wait()

	want := "hi &e@bob&r and @Alice and @nobody"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if len(mentioned) != 1 || mentioned[0] != Participant(bob) {
		t.Fatalf("mentioned = %v, want [Bob]", mentioned)
	}

	if s := bob.soundsPlayed(); !reflect.DeepEqual(s, []string{"chat_mention"}) {
		t.Errorf("bob heard %v", s)
	}

	if s := alice.soundsPlayed(); len(s) != 0 {
		t.Errorf("self-mention notified alice: %v", s)
	}

	bob.mu.Lock()
	bar := bob.bars[0].Plain()
	bob.mu.Unlock()
	if bar != "You were mentioned by Alice" {
		t.Errorf("action bar = %q", bar)
	}
}

func TestMentionDeduplicates(t *testing.T) {
	mp, _ := testMentionParser(nil)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))

	got, mentioned := mp.Rewrite(alice, "@Bob @BOB", []Participant{alice, bob})
	mp.Wait()

	if got != "&e@Bob&r &e@BOB&r" {
		t.Errorf("got %q", got)
	}

	if len(mentioned) != 1 {
		t.Errorf("mentioned %d times", len(mentioned))
	}

	if n := len(bob.soundsPlayed()); n != 1 {
		t.Errorf("bob notified %d times", n)
	}
}

func TestMentionCooldown(t *testing.T) {
	mp, clock := testMentionParser(nil)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))
	carol := newFakeParticipant("Carol", "world", mtPos(0, 0, 0))
	audience := []Participant{alice, bob, carol}

	mp.Rewrite(alice, "@bob", audience)
	mp.Wait()
	clock.Advance(time.Second)
	mp.Rewrite(alice, "@bob", audience)
	mp.Wait()
	mp.Rewrite(carol, "@bob", audience)
	mp.Wait()

	if n := len(bob.soundsPlayed()); n != 2 {
		t.Fatalf("bob notified %d times, want 2", n)
	}

	clock.Advance(5 * time.Second)
	mp.Rewrite(alice, "@bob", audience)
	mp.Wait()

	if n := len(bob.soundsPlayed()); n != 3 {
		t.Errorf("bob notified %d times after cooldown, want 3", n)
	}

	mp.Sweep(clock.Now().Add(time.Minute))
	if _, ok := mp.cooldowns.Load(mentionKey{mentioned: bob.ID(), sender: alice.ID()}); ok {
		t.Error("sweep kept stale cooldown")
	}
}

func TestMentionDisabled(t *testing.T) {
	caps := &fakeCaps{}
	mp, _ := testMentionParser(caps)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))
	caps.deny(alice, PermMention)

	got, mentioned := mp.Rewrite(alice, "@bob", []Participant{alice, bob})
	if got != "@bob" || mentioned != nil {
		t.Errorf("got %q, %v without capability", got, mentioned)
	}

	got, _ = mp.Rewrite(bob, "no trigger here", []Participant{alice, bob})
	if got != "no trigger here" {
		t.Errorf("got %q", got)
	}
}

func TestMentionForget(t *testing.T) {
	mp, _ := testMentionParser(nil)
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))

	mp.Rewrite(alice, "@bob", []Participant{alice, bob})
	mp.Wait()
	mp.Forget(alice.ID())

	mp.Rewrite(alice, "@bob", []Participant{alice, bob})
	mp.Wait()

	if n := len(bob.soundsPlayed()); n != 2 {
		t.Errorf("bob notified %d times, want 2", n)
	}
}
