package chat

import (
	"bufio"
	"context"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type telnetClient struct {
	conn net.Conn

	mu    sync.Mutex
	lines []string
}

func dialTelnet(t *testing.T, addr string) *telnetClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	tc := &telnetClient{conn: conn}
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			tc.mu.Lock()
			tc.lines = append(tc.lines, sc.Text())
			tc.mu.Unlock()
		}
	}()

	return tc
}

func (tc *telnetClient) send(line string) {
	io.WriteString(tc.conn, line+"\r\n")
}

func (tc *telnetClient) saw(s string) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for _, line := range tc.lines {
		if strings.Contains(line, s) {
			return true
		}
	}

	return false
}

func TestTelnetConsole(t *testing.T) {
	f := newDispatchFixture(t, Options{})
	bob := newFakeParticipant("Bob", "world", mtPos(0, 0, 0))
	f.join(bob)
	f.d.Start()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- f.d.serveTelnet(ctx, ln) }()

	op := dialTelnet(t, ln.Addr().String())
	op.send("Op")

	waitFor(t, "operator to join", func() bool { return f.d.Roster().Find("op") != nil })

	op.send("!hi there")
	waitFor(t, "bob to receive", func() bool { return len(bob.received()) == 1 })

	if got := bob.received(); !reflect.DeepEqual(got, []string{"G | Op › hi there"}) {
		t.Errorf("bob received %q", got)
	}

	f.clock.Advance(5 * time.Second)
	if err := f.send(bob, "!hello op"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "operator to receive", func() bool { return op.saw("hello op") })

	op.send("/quit")
	waitFor(t, "operator to leave", func() bool { return f.d.Roster().Find("op") == nil })

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("telnet server did not stop")
	}
}

func TestTelnetRejectsInvalidName(t *testing.T) {
	f := newDispatchFixture(t, Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.d.serveTelnet(ctx, ln)

	op := dialTelnet(t, ln.Addr().String())
	op.send("not a name!")

	waitFor(t, "rejection", func() bool { return op.saw("Invalid name.") })

	if f.d.Roster().Len() != 0 {
		t.Error("invalid name joined")
	}
}
