package chat

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"

	"github.com/HimbeerserverDE/mt"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var validPlayerName = regexp.MustCompile(playerNameChars)

// ServeTelnet lets operators chat through a telnet console
// listening on addr. It returns when ctx is done.
func (d *Dispatcher) ServeTelnet(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	d.logger.Println("telnet console listening on", ln.Addr())
	return d.serveTelnet(ctx, ln)
}

func (d *Dispatcher) serveTelnet(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			d.logger.Println("telnet:", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.handleTelnet(ctx, conn)
		}()
	}
}

func (d *Dispatcher) handleTelnet(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)

	io.WriteString(conn, "mt-multiserver-chat console\r\nname: ")
	name, err := r.ReadString('\n')
	if err != nil {
		return
	}
	name = strings.TrimSpace(name)

	if len(name) == 0 || len(name) > maxPlayerNameLen || !validPlayerName.MatchString(name) {
		io.WriteString(conn, "Invalid name.\r\n")
		return
	}

	if d.roster.Find(name) != nil {
		io.WriteString(conn, "Name already in use.\r\n")
		return
	}

	tp := newTelnetParticipant(conn, name, d.conf.ConsoleZone)
	if !d.Join(tp) {
		return
	}
	defer d.Leave(tp)

	d.logger.Println(name, "joined from", conn.RemoteAddr())

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				d.logger.Println("telnet:", err)
			}

			return
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case CmdPrefix + "quit":
			return
		}

		d.HandleChat(tp, line)
	}
}

// A telnetParticipant is an operator chatting through telnet.
type telnetParticipant struct {
	id   Identity
	name string
	zone string

	mu       sync.Mutex
	conn     net.Conn
	renderer *lipgloss.Renderer
}

func newTelnetParticipant(conn net.Conn, name, zone string) *telnetParticipant {
	return &telnetParticipant{
		id:       IdentityFor(name),
		name:     name,
		zone:     zone,
		conn:     conn,
		renderer: NewRenderer(conn, termenv.ANSI256),
	}
}

func (tp *telnetParticipant) ID() Identity { return tp.id }
func (tp *telnetParticipant) Name() string { return tp.name }
func (tp *telnetParticipant) Zone() string { return tp.zone }

// Pos is always the origin of the console zone.
func (tp *telnetParticipant) Pos() mt.Pos { return mt.Pos{} }

func (tp *telnetParticipant) write(s string) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	io.WriteString(tp.conn, s+"\r\n")
}

func (tp *telnetParticipant) SendText(t Text)   { tp.write(t.ANSI(tp.renderer)) }
func (tp *telnetParticipant) SendNotice(t Text) { tp.write(t.ANSI(tp.renderer)) }
func (tp *telnetParticipant) ActionBar(t Text)  { tp.write("* " + t.ANSI(tp.renderer)) }

func (tp *telnetParticipant) PlaySound(string) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	io.WriteString(tp.conn, "\a")
}

func (tp *telnetParticipant) Kick(reason string) {
	tp.write(reason)
	tp.conn.Close()
}
