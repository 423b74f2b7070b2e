package board

import (
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/framework"
	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/wire"
)

// MessageArrived is posted into the loop when a button-pressed
// notification from a peer is received.
type MessageArrived struct {
	Origin wire.DeviceID
	From   link.HardwareAddr
	At     time.Time
}

// EventSink reacts to broadcast messages. It implements broadcast.Handler
// and runs on the link's receive goroutine, so it never blocks.
type EventSink struct {
	Relay *Relay
	Loop  framework.LoopControl
	Now   func() time.Time

	arrived   atomic.Bool
	arrivedAt atomic.Int64
	received  atomic.Uint64
}

// NewEventSink creates an EventSink.
func NewEventSink(relay *Relay, loop framework.LoopControl) *EventSink {
	return &EventSink{Relay: relay, Loop: loop, Now: time.Now}
}

// HandleMessage implements broadcast.Handler.
func (s *EventSink) HandleMessage(msg *wire.Message, from link.HardwareAddr) {
	glog.Infof("Received message from device %d (MAC: %s)", msg.Origin, from)
	switch msg.Type {
	case wire.MessageTypeButtonPressed:
		now := s.Now()
		s.arrivedAt.Store(now.UnixNano())
		s.arrived.Store(true)
		s.received.Add(1)
		if s.Relay != nil {
			s.Relay.Toggle()
		}
		glog.Infof("Button pressed on device %d", msg.Origin)
		if s.Loop != nil {
			s.Loop.PostMessage(&MessageArrived{Origin: msg.Origin, From: from, At: now})
			s.Loop.TriggerNext()
		}
	default:
		glog.Warningf("Unknown message type %d from device %d", uint8(msg.Type), msg.Origin)
	}
}

// LastArrived returns the time of the last button-pressed notification.
func (s *EventSink) LastArrived() (time.Time, bool) {
	if !s.arrived.Load() {
		return time.Time{}, false
	}
	return time.Unix(0, s.arrivedAt.Load()), true
}

// Received returns the number of button-pressed notifications handled.
func (s *EventSink) Received() uint64 {
	return s.received.Load()
}
