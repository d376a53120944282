package chat

import (
	"strings"
	"sync"
)

var (
	onChatMsgs  []func(Participant, string) string
	onChatMsgMu sync.RWMutex
)

var (
	pluginPlaceholders     = make(map[string]PlaceholderFunc)
	pluginRichPlaceholders = make(map[string]RichPlaceholderFunc)
	pluginPlaceholdersMu   sync.RWMutex
)

// RegisterOnChatMsg registers a handler that is called
// when a participant sends a chat message, before any policy check.
// The returned string overrides the original message.
// Later handlers will receive the modified message.
// Handlers are called in registration order.
// If the final message is empty, it is dropped.
func RegisterOnChatMsg(handler func(Participant, string) string) {
	onChatMsgMu.Lock()
	defer onChatMsgMu.Unlock()

	onChatMsgs = append(onChatMsgs, handler)
}

func onChatMsg(p Participant, msg string) string {
	onChatMsgMu.RLock()
	defer onChatMsgMu.RUnlock()

	for _, handler := range onChatMsgs {
		msg = handler(p, msg)
		if msg == "" {
			break
		}
	}

	return msg
}

// RegisterPlaceholder registers a plain placeholder for every
// PlaceholderEngine created afterwards.
func RegisterPlaceholder(name string, fn PlaceholderFunc) {
	pluginPlaceholdersMu.Lock()
	defer pluginPlaceholdersMu.Unlock()

	pluginPlaceholders[strings.ToLower(name)] = fn
}

// RegisterRichPlaceholder registers a rich placeholder for every
// PlaceholderEngine created afterwards.
func RegisterRichPlaceholder(name string, fn RichPlaceholderFunc) {
	pluginPlaceholdersMu.Lock()
	defer pluginPlaceholdersMu.Unlock()

	pluginRichPlaceholders[strings.ToLower(name)] = fn
}
