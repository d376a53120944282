package chat

import (
	"time"

	"github.com/dustin/go-humanize"
)

// A Mute stops a participant from chatting.
type Mute struct {
	ID     Identity
	Until  time.Time // zero for permanent mutes
	Reason string
	Issuer string
}

// Permanent reports whether the mute never expires.
func (m Mute) Permanent() bool { return m.Until.IsZero() }

// Active reports whether the mute is in effect at now.
func (m Mute) Active(now time.Time) bool {
	return m.Permanent() || now.Before(m.Until)
}

// Remaining returns a human readable description of the time left.
func (m Mute) Remaining(now time.Time) string {
	if m.Permanent() {
		return "permanent"
	}

	return humanize.RelTime(now, m.Until, "left", "ago")
}

// A MuteProvider reports active mutes.
type MuteProvider interface {
	IsMuted(id Identity) (bool, error)
	ActiveMute(id Identity) (*Mute, error)
}

// muteNotice is shown to a muted participant who tries to chat.
func muteNotice(m *Mute, now time.Time) []Text {
	if m == nil {
		return []Text{Colored("You are muted and cannot chat!", ColorRed)}
	}

	notice := []Text{
		Colored("You are muted! Time remaining: ", ColorRed).Append(Colored(m.Remaining(now), ColorYellow)),
	}

	if m.Reason != "" {
		notice = append(notice, Colored("Reason: ", ColorRed).Append(Colored(m.Reason, ColorGray)))
	}

	return notice
}
