/*
Package chat is the chat message pipeline of a multiplayer game server.
It gates messages through anti-spam policy, routes them to a global
or proximity-limited local audience, highlights @mentions, expands
:placeholder: tokens and relays global chat to other servers.
It also provides an API for plugins.
*/
package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatMsgTimeout is the time needed until a warning is logged
// about a chat message that's taking long to dispatch.
var ChatMsgTimeout = 10 * time.Second

const (
	maxPlayerNameLen = 20
	playerNameChars  = "^[a-zA-Z0-9-_]+$"
)

// Capabilities checked by the pipeline.
const (
	PermLocal          = "chat.local"
	PermGlobal         = "chat.global"
	PermMention        = "chat.mention"
	PermProxy          = "chat.proxy"
	PermBypassAntiSpam = "chat.bypass.antispam"
	PermMessage        = "chat.command.message"
	PermCmdLocal       = "chat.command.local"
	PermCmdGlobal      = "chat.command.global"
	PermMute           = "chat.command.mute"
	PermReload         = "chat.command.reload"
	PermRoll           = "chat.command.roll"
	PermCoin           = "chat.command.coin"
	PermIgnoreExempt   = "chat.ignore.exempt"
)

var (
	ErrAlreadyDispatched = errors.New("message already dispatched")
	ErrTransportClosed   = errors.New("transport closed")
	ErrTransportBusy     = errors.New("transport send queue full")
	ErrNoLocation        = errors.New("participant has no location")
	ErrNoItems           = errors.New("participant holds no items")
	ErrEmptyMessage      = errors.New("empty message")
	ErrNoRecipient       = errors.New("recipient not online")
	ErrDMRefused         = errors.New("direct message refused")
)

// An Identity uniquely identifies a participant.
type Identity = uuid.UUID

// identitySpace is the UUID namespace player names are hashed into.
var identitySpace = uuid.MustParse("4b1c3f6e-8d0a-5e7b-9c2d-6f3a1e0b7d54")

// IdentityFor returns the stable Identity of a player name.
// Names are case-insensitive.
func IdentityFor(name string) Identity {
	return uuid.NewSHA1(identitySpace, []byte(strings.ToLower(name)))
}

// Colorize returns the minetest-colorized version of the input.
func Colorize(text, color string) string {
	return string([]rune{0x1b}) + "(c@" + color + ")" + text + string([]rune{0x1b}) + "(c@#FFF)"
}
