package chat

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestRelayForwards(t *testing.T) {
	relay := NewRelay()
	srv := httptest.NewServer(relay)
	defer srv.Close()
	defer relay.Close()

	received := make(chan RemoteMessage, 4)
	a := NewWSTransport(wsURL(srv), "global")
	b := NewWSTransport(wsURL(srv), "global")
	other := NewWSTransport(wsURL(srv), "staff")
	defer a.Close()
	defer b.Close()
	defer other.Close()

	a.Listen(func(m RemoteMessage) { t.Errorf("sender received its own message: %+v", m) })
	b.Listen(func(m RemoteMessage) { received <- m })
	other.Listen(func(m RemoteMessage) { t.Errorf("other channel received %+v", m) })

	waitFor(t, "three peers", func() bool { return relay.Peers() == 3 })

	if err := a.Broadcast(RemoteMessage{Server: "lobby", Player: "Alice", Message: "hi", Format: "{PLAYER}: {MESSAGE}"}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-received:
		if m.Channel != "global" || m.Server != "lobby" || m.Player != "Alice" || m.Message != "hi" {
			t.Errorf("got %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not relayed")
	}
}

func TestTransportClosed(t *testing.T) {
	tr := NewWSTransport("ws://127.0.0.1:1", "global")
	tr.Close()

	if err := tr.Broadcast(RemoteMessage{Message: "hi"}); err != ErrTransportClosed {
		t.Errorf("got %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestRemoteMessageRender(t *testing.T) {
	m := RemoteMessage{Server: "lobby", Player: "Alice", Message: "hi", Format: "&7[{SERVER}] {PLAYER}: {MESSAGE}"}
	if got := m.Render().Plain(); got != "[lobby] Alice: hi" {
		t.Errorf("got %q", got)
	}

	m.Format = "{PLAYER} says"
	if got := m.Render().Plain(); got != "[lobby] Alice: hi" {
		t.Errorf("invalid format: got %q", got)
	}
}
