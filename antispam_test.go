package chat

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testAntiSpamConfig() AntiSpamConfig {
	conf := DefaultConfig().AntiSpam
	conf.KickAfterWarnings = 0
	return conf
}

func wantReason(t *testing.T, err error, want RejectReason) *PolicyRejection {
	t.Helper()

	var rej *PolicyRejection
	if !errors.As(err, &rej) {
		t.Fatalf("got %v, want rejection %v", err, want)
	}

	if rej.Reason != want {
		t.Fatalf("got reason %v, want %v", rej.Reason, want)
	}

	return rej
}

func TestAdmitCooldown(t *testing.T) {
	rl := NewRateLimiter(testAntiSpamConfig())
	id := IdentityFor("alice")
	now := time.Unix(1000, 0)

	if err := rl.Admit(id, "hello there", now); err != nil {
		t.Fatal(err)
	}

	rej := wantReason(t, rl.Admit(id, "something else", now.Add(time.Second)), RejectCooldown)
	if rej.Wait != 2*time.Second {
		t.Errorf("wait = %v, want 2s", rej.Wait)
	}

	if got := rej.Notice().Plain(); got != "Please wait 2 more second(s) before sending another message!" {
		t.Errorf("notice = %q", got)
	}

	if err := rl.Admit(id, "something else", now.Add(3*time.Second)); err != nil {
		t.Errorf("after cooldown: %v", err)
	}
}

func TestAdmitDuplicateWindow(t *testing.T) {
	rl := NewRateLimiter(testAntiSpamConfig())
	id := IdentityFor("alice")
	now := time.Unix(1000, 0)

	if err := rl.Admit(id, "Hello there", now); err != nil {
		t.Fatal(err)
	}

	wantReason(t, rl.Admit(id, "hello   THERE", now.Add(10*time.Second)), RejectDuplicate)

	if err := rl.Admit(id, "hello there", now.Add(31*time.Second)); err != nil {
		t.Errorf("after duplicate window: %v", err)
	}
}

func TestAdmitRate(t *testing.T) {
	conf := testAntiSpamConfig()
	conf.MessageCooldown = 0
	conf.MaxMessagesPerMinute = 3
	rl := NewRateLimiter(conf)
	id := IdentityFor("alice")
	now := time.Unix(1000, 0)

	for i, text := range []string{"one", "two", "three"} {
		if err := rl.Admit(id, text, now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	rej := wantReason(t, rl.Admit(id, "four", now.Add(5*time.Second)), RejectRate)
	if rej.Limit != 3 {
		t.Errorf("limit = %d", rej.Limit)
	}

	if err := rl.Admit(id, "four", now.Add(61*time.Second)); err != nil {
		t.Errorf("after rate window: %v", err)
	}

	if n := len(rl.History(id).Recent); n > 3 {
		t.Errorf("history holds %d timestamps, want at most 3", n)
	}
}

func TestAdmitContentChecks(t *testing.T) {
	conf := testAntiSpamConfig()
	conf.MessageCooldown = 0
	conf.BlockDuplicates = false

	for _, tt := range []struct {
		text      string
		minLength int
		want      RejectReason
	}{
		{"HELLOWORld", 3, RejectCaps},
		{"aaaaaa", 3, RejectRepeat},
		{"hi!!!?#", 3, RejectSpecialChars},
		{"HI", 3, 0},
		{"aaaaa", 3, 0},
		{"Hello World", 3, 0},
		{"ok... sure", 3, 0},
		{"!?", 3, RejectSpecialChars},
		{"aaaaaa", 10, RejectRepeat},
		{"?!?!", 10, RejectSpecialChars},
		{"LOUD", 10, 0},
	} {
		conf.MinMessageLength = tt.minLength
		rl := NewRateLimiter(conf)
		err := rl.Admit(IdentityFor("bob"), tt.text, time.Unix(1000, 0))
		if tt.want == 0 {
			if err != nil {
				t.Errorf("%q: unexpected %v", tt.text, err)
			}

			continue
		}

		var rej *PolicyRejection
		if !errors.As(err, &rej) || rej.Reason != tt.want {
			t.Errorf("%q: got %v, want %v", tt.text, err, tt.want)
		}
	}
}

func TestAdmitDisabledChecks(t *testing.T) {
	rl := NewRateLimiter(AntiSpamConfig{Enabled: true})
	id := IdentityFor("carol")
	now := time.Unix(1000, 0)

	for i := 0; i < 20; i++ {
		if err := rl.Admit(id, "SAME!!!!!!!!", now); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	off := NewRateLimiter(AntiSpamConfig{})
	if err := off.Admit(id, "AAAAAAAAAA", now); err != nil {
		t.Errorf("disabled limiter rejected: %v", err)
	}
}

func TestAdmitKickThreshold(t *testing.T) {
	conf := testAntiSpamConfig()
	conf.KickAfterWarnings = 3
	rl := NewRateLimiter(conf)
	id := IdentityFor("dave")
	now := time.Unix(1000, 0)

	if err := rl.Admit(id, "first message", now); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 2; i++ {
		rej := wantReason(t, rl.Admit(id, "again", now), RejectCooldown)
		if rej.Kick {
			t.Fatalf("kick after %d warnings", i)
		}

		if w := rl.History(id).Warnings; w != i {
			t.Fatalf("warnings = %d, want %d", w, i)
		}
	}

	rej := wantReason(t, rl.Admit(id, "again", now), RejectCooldown)
	if !rej.Kick {
		t.Fatal("threshold reached without kick")
	}

	h := rl.History(id)
	if !h.LastMessageAt.IsZero() || h.Warnings != 0 || len(h.Recent) != 0 {
		t.Errorf("history not cleared after kick: %+v", h)
	}
}

func TestAdmitConcurrent(t *testing.T) {
	conf := testAntiSpamConfig()
	conf.MessageCooldown = 0
	conf.BlockDuplicates = false
	conf.MaxMessagesPerMinute = 1000
	rl := NewRateLimiter(conf)
	id := IdentityFor("eve")
	now := time.Unix(1000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.Admit(id, "hello", now)
		}()
	}

	wg.Wait()

	if n := len(rl.History(id).Recent); n != 50 {
		t.Errorf("recorded %d messages, want 50", n)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	conf := testAntiSpamConfig()
	rl := NewRateLimiter(conf)
	online, offline := IdentityFor("on"), IdentityFor("off")
	now := time.Unix(1000, 0)

	rl.Admit(online, "hello there", now)
	rl.Admit(offline, "hello there", now)

	rl.Sweep(now.Add(10*time.Minute), func(id Identity) bool { return id == online })

	if h := rl.History(offline); !h.empty() {
		t.Errorf("offline history kept: %+v", h)
	}

	if h := rl.History(online); !h.empty() {
		t.Errorf("stale online history kept: %+v", h)
	}

	rl.Admit(online, "fresh", now.Add(10*time.Minute))
	rl.Sweep(now.Add(10*time.Minute+time.Second), func(Identity) bool { return true })
	if h := rl.History(online); h.LastMessage != "fresh" {
		t.Errorf("fresh history lost: %+v", h)
	}
}
