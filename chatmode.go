package chat

import (
	"fmt"
	"strings"
)

// ChatMode is the default audience of a participant's messages.
type ChatMode uint8

const (
	ModeLocal ChatMode = iota
	ModeGlobal
)

func (m ChatMode) String() string {
	switch m {
	case ModeLocal:
		return "LOCAL"
	case ModeGlobal:
		return "GLOBAL"
	}

	return fmt.Sprintf("ChatMode(%d)", m)
}

// ParseChatMode parses the String form of a ChatMode.
func ParseChatMode(s string) (ChatMode, error) {
	switch strings.ToUpper(s) {
	case "LOCAL":
		return ModeLocal, nil
	case "GLOBAL":
		return ModeGlobal, nil
	}

	return ModeLocal, fmt.Errorf("invalid chat mode %q", s)
}

// A ModeSource supplies the persisted chat mode of participants.
type ModeSource interface {
	ChatMode(id Identity) ChatMode
}

// A ChatModeRouter decides whether a message is global or local.
type ChatModeRouter struct {
	modes  ModeSource
	caps   CapabilityChecker
	prefix string
}

func NewChatModeRouter(modes ModeSource, caps CapabilityChecker, globalPrefix string) *ChatModeRouter {
	if globalPrefix == "" {
		globalPrefix = defaultGlobalPrefix
	}

	return &ChatModeRouter{
		modes:  modes,
		caps:   caps,
		prefix: globalPrefix,
	}
}

// Resolve returns the text to send and whether it is global.
// A leading global prefix forces global chat and is stripped
// along with surrounding whitespace. It returns ErrEmptyMessage
// if nothing is left and a *PolicyRejection if p may not use
// the resolved mode.
func (r *ChatModeRouter) Resolve(p Participant, raw string) (string, bool, error) {
	text := raw
	global := r.modes.ChatMode(p.ID()) == ModeGlobal

	if strings.HasPrefix(raw, r.prefix) {
		text = strings.TrimSpace(raw[len(r.prefix):])
		global = true
	}

	if strings.TrimSpace(text) == "" {
		return "", global, ErrEmptyMessage
	}

	if global && !r.caps.Has(p, PermGlobal) {
		return "", true, &PolicyRejection{Reason: RejectNoGlobalPerm}
	}

	if !global && !r.caps.Has(p, PermLocal) {
		return "", false, &PolicyRejection{Reason: RejectNoLocalPerm}
	}

	return text, global, nil
}
