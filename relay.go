package chat

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// A Relay forwards every frame it receives from one server
// to all other connected servers.
type Relay struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu    sync.RWMutex
	peers map[*relayPeer]struct{}
}

type relayPeer struct {
	relay *Relay
	conn  *websocket.Conn
	send  chan []byte
}

func NewRelay() *Relay {
	return &Relay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: newLogger("relay"),
		peers:  make(map[*relayPeer]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the server connection.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Println("upgrade:", err)
		return
	}

	peer := &relayPeer{
		relay: r,
		conn:  conn,
		send:  make(chan []byte, 256),
	}

	r.mu.Lock()
	r.peers[peer] = struct{}{}
	r.mu.Unlock()

	r.logger.Println("server connected from", conn.RemoteAddr())

	go peer.writePump()
	peer.readPump()
}

// Peers returns the number of connected servers.
func (r *Relay) Peers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.peers)
}

func (r *Relay) remove(p *relayPeer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[p]; ok {
		delete(r.peers, p)
		close(p.send)
	}
}

// broadcast queues a frame for every peer except from.
// Peers that can't keep up are disconnected.
func (r *Relay) broadcast(from *relayPeer, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p := range r.peers {
		if p == from {
			continue
		}

		select {
		case p.send <- frame:
		default:
			delete(r.peers, p)
			close(p.send)
		}
	}
}

// Close disconnects every server.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p := range r.peers {
		delete(r.peers, p)
		close(p.send)
	}
}

func (p *relayPeer) readPump() {
	defer func() {
		p.relay.remove(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error { p.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				p.relay.logger.Println("read:", err)
			}

			return
		}

		p.relay.broadcast(p, frame)
	}
}

func (p *relayPeer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
