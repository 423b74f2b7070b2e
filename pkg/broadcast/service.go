// Package broadcast provides the identity-aware gateway between the
// broadcast link and the application.
package broadcast

import (
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/wire"
)

var (
	// ErrNotInitialized indicates Init hasn't succeeded yet.
	ErrNotInitialized = errors.New("broadcast service not initialized")
	// ErrAlreadyInitialized indicates Init is called more than once.
	ErrAlreadyInitialized = errors.New("broadcast service already initialized")
	// ErrNoHandler indicates Init is called without a handler.
	ErrNoHandler = errors.New("message handler required")
)

// Handler reacts to accepted inbound messages.
// It runs on the link's delivery goroutine and must not block.
type Handler interface {
	HandleMessage(msg *wire.Message, from link.HardwareAddr)
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(*wire.Message, link.HardwareAddr)

// HandleMessage implements Handler.
func (f HandlerFunc) HandleMessage(msg *wire.Message, from link.HardwareAddr) {
	f(msg, from)
}

const (
	stateNew int32 = iota
	stateInitializing
	stateReady
)

// Service is the broadcast messaging service.
type Service struct {
	adapter  *link.Adapter
	identity wire.DeviceID
	handler  Handler
	state    atomic.Int32
}

// New creates a Service on an Adapter. The Service becomes the Adapter's sink.
func New(adapter *link.Adapter) *Service {
	s := &Service{adapter: adapter}
	adapter.Sink = s
	return s
}

// NewWithDriver creates a Service with a new Adapter on the driver.
func NewWithDriver(drv link.Driver, channel uint8) *Service {
	adapter := link.NewAdapter(drv)
	adapter.Channel = channel
	return New(adapter)
}

// Adapter returns the underlying Adapter.
func (s *Service) Adapter() *link.Adapter {
	return s.adapter
}

// SetSendNotifier installs a notifier for send outcomes. It must be called before Init.
func (s *Service) SetSendNotifier(n link.SendNotifier) *Service {
	s.adapter.Notifier = n
	return s
}

// Init stores identity and handler, then brings up the link.
// It must be called exactly once before Broadcast.
func (s *Service) Init(identity wire.DeviceID, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	if !s.state.CompareAndSwap(stateNew, stateInitializing) {
		return ErrAlreadyInitialized
	}
	s.identity, s.handler = identity, handler
	if err := s.adapter.Init(); err != nil {
		s.state.Store(stateNew)
		return err
	}
	s.state.Store(stateReady)
	glog.Infof("broadcast initialized, device ID: %d", identity)
	return nil
}

// Identity returns the local device identity.
func (s *Service) Identity() wire.DeviceID {
	return s.identity
}

// Ready tells if Init succeeded.
func (s *Service) Ready() bool {
	return s.state.Load() == stateReady
}

// Broadcast sends a message of the type with the payload to every peer.
// It returns when the frame is queued; delivery is best effort.
func (s *Service) Broadcast(typ wire.MessageType, payload []byte) error {
	if !s.Ready() {
		return ErrNotInitialized
	}
	msg, err := wire.NewMessage(typ, s.identity, payload)
	if err != nil {
		glog.Warningf("broadcast %s rejected: %v", typ, err)
		return err
	}
	glog.V(1).Infof("SND type=%d device=%d", msg.Type, msg.Origin)
	return s.adapter.Transmit(msg.Bytes())
}

// HandleMessage implements link.MessageSink.
// Messages arriving before Init completes are dropped.
func (s *Service) HandleMessage(msg *wire.Message, from link.HardwareAddr) {
	if !s.Ready() {
		return
	}
	if msg.Origin == s.identity {
		return
	}
	glog.V(1).Infof("received message from %s, type: %d, device_id: %d", from, msg.Type, msg.Origin)
	s.handler.HandleMessage(msg, from)
}

// Close shuts down the link.
func (s *Service) Close() error {
	return s.adapter.Close()
}
