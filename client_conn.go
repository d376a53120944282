package chat

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/HimbeerserverDE/mt"
)

// A CmdSender sends commands to a minetest client.
// mt.Peer implements it.
type CmdSender interface {
	SendCmd(cmd mt.Cmd) (ack <-chan struct{}, err error)
	Closed() <-chan struct{}
	Close() error
}

// A ClientConn is a minetest client taking part in the chat.
type ClientConn struct {
	CmdSender

	id     Identity
	name   string
	logger *log.Logger

	mu      sync.RWMutex
	zone    string
	pos     mt.Pos
	wielded mt.Stack
}

// NewClientConn returns a ClientConn for the named player
// connected through peer.
func NewClientConn(peer CmdSender, name, zone string) *ClientConn {
	logWriterMu.RLock()
	defer logWriterMu.RUnlock()

	return &ClientConn{
		CmdSender: peer,
		id:        IdentityFor(name),
		name:      name,
		zone:      zone,
		logger:    log.New(logWriter, fmt.Sprintf("[%s] ", name), log.LstdFlags|log.Lmsgprefix),
	}
}

func (cc *ClientConn) ID() Identity { return cc.id }

// Name returns the player name of the ClientConn.
func (cc *ClientConn) Name() string { return cc.name }

func (cc *ClientConn) Zone() string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return cc.zone
}

func (cc *ClientConn) Pos() mt.Pos {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return cc.pos
}

// SetZone sets the zone of the ClientConn, for example
// when it hops to another server.
func (cc *ClientConn) SetZone(zone string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.zone = zone
}

// SetPos updates the position of the ClientConn.
// Hosts call it whenever the player moves.
func (cc *ClientConn) SetPos(pos mt.Pos) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.pos = pos
}

// SetWieldedItem updates the item the player holds.
// Hosts call it when the wield index or the inventory changes.
func (cc *ClientConn) SetWieldedItem(stack mt.Stack) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.wielded = stack
}

// WieldedItem returns the item the player holds.
func (cc *ClientConn) WieldedItem() (mt.Stack, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return cc.wielded, cc.wielded.Count > 0
}

// Log logs an interaction with the ClientConn.
// dir indicates the direction of the interaction.
func (cc *ClientConn) Log(dir string, v ...any) {
	cc.logger.Println(append([]any{dir}, v...)...)
}

func (cc *ClientConn) SendText(t Text) {
	cc.sendChatMsg(mt.NormalMsg, t)
}

func (cc *ClientConn) SendNotice(t Text) {
	cc.sendChatMsg(mt.SysMsg, t)
}

// ActionBar shows t as a system message.
// Minetest has no dedicated action bar.
func (cc *ClientConn) ActionBar(t Text) {
	cc.sendChatMsg(mt.SysMsg, t)
}

// SendChatMsg sends a plain system message to the ClientConn.
func (cc *ClientConn) SendChatMsg(msg ...any) {
	cc.SendNotice(Literal(strings.TrimSpace(fmt.Sprintln(msg...))))
}

func (cc *ClientConn) sendChatMsg(typ mt.ChatMsgType, t Text) {
	if _, err := cc.SendCmd(&mt.ToCltChatMsg{
		Type:      typ,
		Text:      t.Minetest(),
		Timestamp: time.Now().Unix(),
	}); err != nil {
		cc.Log("<-", "chat message:", err)
	}
}

func (cc *ClientConn) PlaySound(name string) {
	if _, err := cc.SendCmd(&mt.ToCltPlaySound{
		Name: name,
		Gain: 1,
	}); err != nil {
		cc.Log("<-", "sound:", err)
	}
}

// Kick sends mt.ToCltKick with the specified custom reason
// and closes the ClientConn.
func (cc *ClientConn) Kick(reason string) {
	if reason == "" {
		reason = "Kicked by chat."
	}

	cc.Log("<-", "kick", reason)

	ack, _ := cc.SendCmd(&mt.ToCltKick{
		Reason: mt.Custom,
		Custom: reason,
	})

	select {
	case <-cc.Closed():
	case <-ack:
		cc.Close()
	}
}
