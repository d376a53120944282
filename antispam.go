package chat

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	rateWindow     = time.Minute
	historyHorizon = 5 * time.Minute
)

// RejectReason names the policy check that refused a message.
type RejectReason uint8

const (
	RejectCooldown RejectReason = iota + 1
	RejectRate
	RejectDuplicate
	RejectCaps
	RejectRepeat
	RejectSpecialChars
	RejectNoGlobalPerm
	RejectNoLocalPerm
	RejectMuted
)

var rejectReasonNames = map[RejectReason]string{
	RejectCooldown:     "cooldown",
	RejectRate:         "rate",
	RejectDuplicate:    "duplicate",
	RejectCaps:         "caps",
	RejectRepeat:       "repeat",
	RejectSpecialChars: "special chars",
	RejectNoGlobalPerm: "no global permission",
	RejectNoLocalPerm:  "no local permission",
	RejectMuted:        "muted",
}

func (r RejectReason) String() string {
	if s, ok := rejectReasonNames[r]; ok {
		return s
	}

	return fmt.Sprintf("RejectReason(%d)", r)
}

// A PolicyRejection is returned when a message is refused.
// It is expected and never logged as an error.
type PolicyRejection struct {
	Reason RejectReason
	// Wait is the remaining cooldown for RejectCooldown.
	Wait time.Duration
	// Limit is the per-minute limit for RejectRate.
	Limit int
	// Kick is set when the sender crossed the warning threshold.
	Kick bool
}

func (pr *PolicyRejection) Error() string {
	return "message rejected: " + pr.Reason.String()
}

// Notice returns the message shown to the sender.
func (pr *PolicyRejection) Notice() Text {
	switch pr.Reason {
	case RejectCooldown:
		secs := int(math.Ceil(pr.Wait.Seconds()))
		return Colored(fmt.Sprintf("Please wait %d more second(s) before sending another message!", secs), ColorRed)
	case RejectRate:
		return Colored(fmt.Sprintf("You are sending messages too quickly! Maximum %d messages per minute.", pr.Limit), ColorRed)
	case RejectDuplicate:
		return Colored("Please don't repeat the same message!", ColorRed)
	case RejectCaps:
		return Colored("Please don't use excessive capital letters!", ColorRed)
	case RejectRepeat:
		return Colored("Please don't spam repeating characters!", ColorRed)
	case RejectSpecialChars:
		return Colored("Please don't use excessive special characters!", ColorRed)
	case RejectNoGlobalPerm:
		return Colored("You don't have permission to use global chat!", ColorRed)
	case RejectNoLocalPerm:
		return Colored("You don't have permission to use local chat!", ColorRed)
	}

	return Colored("Your message was not sent.", ColorRed)
}

// SenderHistory is the anti-spam state of one sender.
// The zero value is the state of a sender that never chatted.
type SenderHistory struct {
	LastMessageAt time.Time
	// LastMessage is the normalized text of the last accepted message.
	LastMessage string
	// Recent holds the send times inside the rate window, oldest first.
	Recent   []time.Time
	Warnings int
}

func (h SenderHistory) clone() SenderHistory {
	h.Recent = append([]time.Time(nil), h.Recent...)
	return h
}

func (h SenderHistory) empty() bool {
	return h.LastMessageAt.IsZero() && len(h.Recent) == 0 && h.Warnings == 0
}

// recentSince returns the timestamps newer than cutoff.
func (h SenderHistory) recentSince(cutoff time.Time) []time.Time {
	i := 0
	for i < len(h.Recent) && !h.Recent[i].After(cutoff) {
		i++
	}

	return append([]time.Time(nil), h.Recent[i:]...)
}

// A RateLimiter is the anti-spam gate.
// Histories are replaced wholesale so concurrent admissions
// for the same sender never lose updates.
type RateLimiter struct {
	conf      AntiSpamConfig
	histories sync.Map // Identity -> *SenderHistory
}

func NewRateLimiter(conf AntiSpamConfig) *RateLimiter {
	return &RateLimiter{conf: conf}
}

// Admit checks a message against the policy. It returns nil and
// records the message if it is accepted, or a *PolicyRejection.
// When the rejection crosses the warning threshold
// the rejection has Kick set and the history is cleared.
func (rl *RateLimiter) Admit(id Identity, text string, now time.Time) error {
	if !rl.conf.Enabled {
		return nil
	}

	for {
		old, _ := rl.histories.Load(id)

		var h SenderHistory
		if old != nil {
			h = old.(*SenderHistory).clone()
		}

		h.Recent = h.recentSince(now.Add(-rateWindow))

		if rej := rl.check(&h, text, now); rej != nil {
			h.Warnings++
			if rl.conf.KickAfterWarnings > 0 && h.Warnings >= rl.conf.KickAfterWarnings {
				if !rl.swap(id, old, nil) {
					continue
				}

				rej.Kick = true
				return rej
			}

			if !rl.swap(id, old, &h) {
				continue
			}

			return rej
		}

		h.LastMessageAt = now
		h.LastMessage = normalizeMessage(text)
		if max := rl.conf.MaxMessagesPerMinute; max > 0 {
			h.Recent = append(h.Recent, now)
			if len(h.Recent) > max {
				h.Recent = h.Recent[len(h.Recent)-max:]
			}
		}

		if !rl.swap(id, old, &h) {
			continue
		}

		return nil
	}
}

func (rl *RateLimiter) swap(id Identity, old any, next *SenderHistory) bool {
	switch {
	case old == nil && next == nil:
		return true
	case old == nil:
		_, loaded := rl.histories.LoadOrStore(id, next)
		return !loaded
	case next == nil:
		return rl.histories.CompareAndDelete(id, old)
	default:
		return rl.histories.CompareAndSwap(id, old, next)
	}
}

func (rl *RateLimiter) check(h *SenderHistory, text string, now time.Time) *PolicyRejection {
	if cooldown := rl.conf.cooldown(); cooldown > 0 && !h.LastMessageAt.IsZero() {
		if elapsed := now.Sub(h.LastMessageAt); elapsed < cooldown {
			return &PolicyRejection{Reason: RejectCooldown, Wait: cooldown - elapsed}
		}
	}

	if max := rl.conf.MaxMessagesPerMinute; max > 0 && len(h.Recent) >= max {
		return &PolicyRejection{Reason: RejectRate, Limit: max}
	}

	if rl.conf.BlockDuplicates && h.LastMessage != "" {
		window := rl.conf.duplicateWindow()
		if now.Sub(h.LastMessageAt) < window && normalizeMessage(text) == h.LastMessage {
			return &PolicyRejection{Reason: RejectDuplicate}
		}
	}

	runes := []rune(text)

	// Short messages are exempt from the caps check only.
	if rl.conf.BlockExcessiveCaps && len(runes) >= rl.conf.MinMessageLength && excessiveCaps(runes, rl.conf.MaxCapsPercent) {
		return &PolicyRejection{Reason: RejectCaps}
	}

	if rl.conf.BlockRepeatingChars && longestRun(runes) > rl.conf.MaxRepeatingChars {
		return &PolicyRejection{Reason: RejectRepeat}
	}

	if rl.conf.BlockSpecialChars && specialChars(runes) > len(runes)/2 {
		return &PolicyRejection{Reason: RejectSpecialChars}
	}

	return nil
}

// History returns a copy of the sender's history.
func (rl *RateLimiter) History(id Identity) SenderHistory {
	v, ok := rl.histories.Load(id)
	if !ok {
		return SenderHistory{}
	}

	return v.(*SenderHistory).clone()
}

// Reset forgets everything about a sender.
func (rl *RateLimiter) Reset(id Identity) {
	rl.histories.Delete(id)
}

// Clear forgets every sender.
func (rl *RateLimiter) Clear() {
	rl.histories.Clear()
}

// Sweep drops histories of offline senders, forgets last messages
// older than the retention horizon and prunes rate timestamps.
// It only ever removes information.
func (rl *RateLimiter) Sweep(now time.Time, online func(Identity) bool) {
	rl.histories.Range(func(k, v any) bool {
		id := k.(Identity)
		if !online(id) {
			rl.histories.CompareAndDelete(k, v)
			return true
		}

		h := v.(*SenderHistory).clone()
		h.Recent = h.recentSince(now.Add(-rateWindow))
		if now.Sub(h.LastMessageAt) > historyHorizon {
			h.LastMessageAt = time.Time{}
			h.LastMessage = ""
		}

		if h.empty() {
			rl.histories.CompareAndDelete(k, v)
		} else {
			rl.histories.CompareAndSwap(k, v, &h)
		}

		return true
	})
}

func normalizeMessage(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func excessiveCaps(runes []rune, maxPercent int) bool {
	var letters, upper int
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	if letters == 0 {
		return false
	}

	return upper*100 > maxPercent*letters
}

// longestRun returns the length of the longest run of one repeated
// non-space character.
func longestRun(runes []rune) int {
	var longest, run int
	var last rune
	for _, r := range runes {
		if r == last && r != ' ' {
			run++
		} else {
			run = 1
			last = r
		}

		if r != ' ' && run > longest {
			longest = run
		}
	}

	return longest
}

func specialChars(runes []rune) int {
	var n int
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			n++
		}
	}

	return n
}
