package chat

import "sync"

var (
	onJoin   []func(Participant) string
	onJoinMu sync.RWMutex
)

var (
	onLeave   []func(Participant)
	onLeaveMu sync.RWMutex
)

// RegisterOnJoin registers a handler that is called
// when a participant joins the chat.
// If any handler returns a non-empty string, the participant is kicked
// with that message.
// Handlers are run sequentially.
func RegisterOnJoin(handler func(Participant) string) {
	onJoinMu.Lock()
	defer onJoinMu.Unlock()

	onJoin = append(onJoin, handler)
}

// RegisterOnLeave registers a handler that is called
// when a participant leaves the chat for any reason.
// Handlers are run sequentially.
func RegisterOnLeave(handler func(Participant)) {
	onLeaveMu.Lock()
	defer onLeaveMu.Unlock()

	onLeave = append(onLeave, handler)
}

// handleJoin reports false if a handler refused the participant.
func handleJoin(p Participant) bool {
	onJoinMu.RLock()
	defer onJoinMu.RUnlock()

	for _, handler := range onJoin {
		if msg := handler(p); msg != "" {
			p.Kick(msg)
			return false
		}
	}

	return true
}

func handleLeave(p Participant) {
	onLeaveMu.RLock()
	defer onLeaveMu.RUnlock()

	for _, handler := range onLeave {
		handler(p)
	}
}
