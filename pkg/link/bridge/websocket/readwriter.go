// Package websocket carries bridge packets as websocket binary messages.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ReadWriter implements bridge.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a hub.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Hub relays every packet to all other connected bridges, acting as a
// shared medium. It doesn't look into packets.
type Hub struct {
	lock  sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

// Len returns the number of connected bridges.
func (h *Hub) Len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.conns)
}

func (h *Hub) serve(conn *websocket.Conn) {
	h.lock.Lock()
	h.conns[conn] = struct{}{}
	h.lock.Unlock()
	glog.V(1).Infof("hub: %s joined", conn.Request().RemoteAddr)
	defer func() {
		h.lock.Lock()
		delete(h.conns, conn)
		h.lock.Unlock()
		glog.V(1).Infof("hub: %s left", conn.Request().RemoteAddr)
	}()
	for {
		var pkt []byte
		if err := websocket.Message.Receive(conn, &pkt); err != nil {
			return
		}
		h.relay(conn, pkt)
	}
}

func (h *Hub) relay(from *websocket.Conn, pkt []byte) {
	h.lock.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		if conn != from {
			targets = append(targets, conn)
		}
	}
	h.lock.RUnlock()
	for _, conn := range targets {
		if err := websocket.Message.Send(conn, pkt); err != nil {
			glog.V(1).Infof("hub: relay to %s failed: %v", conn.Request().RemoteAddr, err)
		}
	}
}
