package chat

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// A RemoteMessage is a global chat message relayed between servers.
type RemoteMessage struct {
	Channel string `json:"channel"`
	Server  string `json:"server"`
	Player  string `json:"player"`
	Message string `json:"message"`
	Format  string `json:"format"`
}

// Render substitutes {PLAYER}, {MESSAGE} and {SERVER} in the format.
// An invalid format is replaced by the default one.
func (rm RemoteMessage) Render() Text {
	format := rm.Format
	if !validRelayFormat(format) {
		format = defaultRelayFormat
	}

	r := strings.NewReplacer(
		"{PLAYER}", rm.Player,
		"{MESSAGE}", rm.Message,
		"{SERVER}", rm.Server,
	)

	return ParseStyled(r.Replace(format))
}

func validRelayFormat(format string) bool {
	return strings.Contains(format, "{MESSAGE}")
}

// A Transport relays global chat to other servers.
type Transport interface {
	// Broadcast queues a message for all other servers.
	Broadcast(m RemoteMessage) error
	// Listen starts delivering messages from other servers to handler.
	Listen(handler func(RemoteMessage))
	Close() error
}

// WSTransport is a Transport connected to a relay over a websocket.
// It reconnects with exponential backoff.
type WSTransport struct {
	url     string
	channel string
	dialer  *websocket.Dialer
	send    chan RemoteMessage
	logger  *log.Logger

	handlerMu sync.RWMutex
	handler   func(RemoteMessage)

	mu     sync.RWMutex
	closed bool
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWSTransport returns a transport for the relay at url.
// Only messages on channel are exchanged.
// It does not connect until Listen is called.
func NewWSTransport(url, channel string) *WSTransport {
	return &WSTransport{
		url:     url,
		channel: channel,
		dialer:  websocket.DefaultDialer,
		send:    make(chan RemoteMessage, 256),
		logger:  newLogger("relay"),
		stopCh:  make(chan struct{}),
	}
}

// Broadcast queues m. It never blocks.
func (wt *WSTransport) Broadcast(m RemoteMessage) error {
	wt.mu.RLock()
	defer wt.mu.RUnlock()

	if wt.closed {
		return ErrTransportClosed
	}

	m.Channel = wt.channel

	select {
	case wt.send <- m:
		return nil
	default:
		return ErrTransportBusy
	}
}

func (wt *WSTransport) Listen(handler func(RemoteMessage)) {
	wt.handlerMu.Lock()
	wt.handler = handler
	wt.handlerMu.Unlock()

	wt.once.Do(func() {
		wt.wg.Add(1)
		go wt.run()
	})
}

func (wt *WSTransport) deliver(m RemoteMessage) {
	wt.handlerMu.RLock()
	handler := wt.handler
	wt.handlerMu.RUnlock()

	if handler != nil {
		handler(m)
	}
}

func (wt *WSTransport) run() {
	defer wt.wg.Done()

	delay := minReconnectDelay
	for {
		conn, _, err := wt.dialer.Dial(wt.url, nil)
		if err != nil {
			wt.logger.Println("dial:", err)

			select {
			case <-wt.stopCh:
				return
			case <-time.After(delay):
			}

			delay = min(delay*2, maxReconnectDelay)
			continue
		}

		wt.logger.Println("connected to", wt.url)
		delay = minReconnectDelay

		if stopped := wt.serve(conn); stopped {
			return
		}
	}
}

// serve pumps messages over conn until it fails or the transport stops.
func (wt *WSTransport) serve(conn *websocket.Conn) (stopped bool) {
	readErr := make(chan struct{})
	go func() {
		defer close(readErr)
		wt.readPump(conn)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		<-readErr
	}()

	for {
		select {
		case <-wt.stopCh:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return true
		case <-readErr:
			wt.logger.Println("connection lost")
			return false
		case m := <-wt.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				wt.logger.Println("write:", err)
				return false
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return false
			}
		}
	}
}

func (wt *WSTransport) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		var m RemoteMessage
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wt.logger.Println("read:", err)
			}

			return
		}

		if m.Channel != wt.channel {
			continue
		}

		wt.deliver(m)
	}
}

// Close stops the transport. Queued messages are discarded.
func (wt *WSTransport) Close() error {
	wt.mu.Lock()
	if wt.closed {
		wt.mu.Unlock()
		return nil
	}

	wt.closed = true
	close(wt.stopCh)
	wt.mu.Unlock()

	wt.wg.Wait()
	return nil
}
