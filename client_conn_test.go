package chat

import (
	"strings"
	"sync"
	"testing"

	"github.com/HimbeerserverDE/mt"
)

type recordingPeer struct {
	mu     sync.Mutex
	cmds   []mt.Cmd
	closed chan struct{}
	once   sync.Once
}

func newRecordingPeer() *recordingPeer {
	return &recordingPeer{closed: make(chan struct{})}
}

func (rp *recordingPeer) SendCmd(cmd mt.Cmd) (<-chan struct{}, error) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.cmds = append(rp.cmds, cmd)

	ack := make(chan struct{})
	close(ack)
	return ack, nil
}

func (rp *recordingPeer) Closed() <-chan struct{} { return rp.closed }

func (rp *recordingPeer) Close() error {
	rp.once.Do(func() { close(rp.closed) })
	return nil
}

func TestClientConn(t *testing.T) {
	peer := newRecordingPeer()
	cc := NewClientConn(peer, "Alice", "lobby")
	cc.SetPos(mt.Pos{1, 2, 3})

	if cc.ID() != IdentityFor("alice") {
		t.Error("identity depends on name case")
	}

	if cc.Pos() != (mt.Pos{1, 2, 3}) || cc.Zone() != "lobby" {
		t.Errorf("pos %v zone %q", cc.Pos(), cc.Zone())
	}

	cc.SendText(Colored("hi", ColorRed))
	cc.SendNotice(Literal("notice"))
	cc.PlaySound("chat_mention")
	cc.Kick("Kicked for spamming!")

	peer.mu.Lock()
	defer peer.mu.Unlock()

	if len(peer.cmds) != 4 {
		t.Fatalf("sent %d commands, want 4", len(peer.cmds))
	}

	msg, ok := peer.cmds[0].(*mt.ToCltChatMsg)
	if !ok || msg.Type != mt.NormalMsg || msg.Text != Colorize("hi", ColorRed) {
		t.Errorf("chat message = %#v", peer.cmds[0])
	}

	if notice, ok := peer.cmds[1].(*mt.ToCltChatMsg); !ok || notice.Type != mt.SysMsg || !strings.Contains(notice.Text, "notice") {
		t.Errorf("notice = %#v", peer.cmds[1])
	}

	if sound, ok := peer.cmds[2].(*mt.ToCltPlaySound); !ok || sound.Name != "chat_mention" {
		t.Errorf("sound = %#v", peer.cmds[2])
	}

	if kick, ok := peer.cmds[3].(*mt.ToCltKick); !ok || kick.Custom != "Kicked for spamming!" {
		t.Errorf("kick = %#v", peer.cmds[3])
	}

	select {
	case <-peer.closed:
	default:
		t.Error("kick did not close the connection")
	}
}

func TestClientConnWieldedItem(t *testing.T) {
	cc := NewClientConn(newRecordingPeer(), "Alice", "lobby")

	if _, ok := cc.WieldedItem(); ok {
		t.Error("new connection wields an item")
	}

	cc.SetWieldedItem(mt.Stack{Item: mt.Item{Name: "default:torch"}, Count: 12})

	pe := testPlaceholderEngine()
	if got := pe.ExpandPlain(cc, ":item:"); got != "[Torch x12]" {
		t.Errorf("got %q", got)
	}
}
