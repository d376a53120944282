package chat

import (
	"errors"
	"testing"
)

type fixedModes map[Identity]ChatMode

func (fm fixedModes) ChatMode(id Identity) ChatMode { return fm[id] }

func TestResolve(t *testing.T) {
	caps := &fakeCaps{}
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))
	r := NewChatModeRouter(fixedModes{bob.ID(): ModeGlobal}, caps, "!")

	for _, tt := range []struct {
		p          Participant
		raw, text  string
		wantGlobal bool
	}{
		{alice, "!hello", "hello", true},
		{alice, "!  hello  ", "hello", true},
		{alice, "hello", "hello", false},
		{bob, "hello", "hello", true},
		{alice, " !hello", " !hello", false},
	} {
		text, global, err := r.Resolve(tt.p, tt.raw)
		if err != nil {
			t.Errorf("%q: %v", tt.raw, err)
			continue
		}

		if text != tt.text || global != tt.wantGlobal {
			t.Errorf("%q: got %q/%v, want %q/%v", tt.raw, text, global, tt.text, tt.wantGlobal)
		}
	}

	if _, _, err := r.Resolve(alice, "!   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("prefix only: got %v", err)
	}
}

func TestResolveDenied(t *testing.T) {
	caps := &fakeCaps{}
	alice := newFakeParticipant("Alice", "world", mtPos(0, 0, 0))
	caps.deny(alice, PermGlobal)
	r := NewChatModeRouter(fixedModes{}, caps, "!")

	_, _, err := r.Resolve(alice, "!hi")

	var rej *PolicyRejection
	if !errors.As(err, &rej) || rej.Reason != RejectNoGlobalPerm {
		t.Fatalf("got %v", err)
	}

	if rej.Notice().Plain() != "You don't have permission to use global chat!" {
		t.Errorf("notice = %q", rej.Notice().Plain())
	}

	if _, _, err := r.Resolve(alice, "hi"); err != nil {
		t.Errorf("local: %v", err)
	}

	caps.deny(alice, PermLocal)
	if _, _, err := r.Resolve(alice, "hi"); !errors.As(err, &rej) || rej.Reason != RejectNoLocalPerm {
		t.Errorf("local denied: got %v", err)
	}
}

func TestParseChatMode(t *testing.T) {
	for _, m := range []ChatMode{ModeLocal, ModeGlobal} {
		got, err := ParseChatMode(m.String())
		if err != nil || got != m {
			t.Errorf("%v: got %v, %v", m, got, err)
		}
	}

	if _, err := ParseChatMode("TEAM"); err == nil {
		t.Error("parsed invalid mode")
	}
}
