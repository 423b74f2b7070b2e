package board

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/broadcast"
	"github.com/robotalks/nowlink/pkg/framework"
	"github.com/robotalks/nowlink/pkg/wire"
)

// Pulse timing of the relay pulse menu action.
const (
	PulseRelayDelay = 10 * time.Millisecond
	PulseDuration   = 50 * time.Millisecond
)

// Board wires the peripherals to the broadcast service.
type Board struct {
	Service *broadcast.Service
	Loop    *framework.Loop
	Relay   *Relay
	Button  Pin
	Monitor *ButtonMonitor
	Strip   *LEDStrip
	Events  *EventSink
}

// Status is a snapshot of the board state.
type Status struct {
	Identity    wire.DeviceID
	Ready       bool
	Relay       bool
	ButtonHeld  bool
	Flashing    bool
	Hue         uint8
	Received    uint64
	LastArrived time.Time
}

// New creates a Board on the specified pins and strip.
func New(svc *broadcast.Service, relayPin, buttonPin Pin, strip StripDriver, ledCount int) *Board {
	b := &Board{
		Service: svc,
		Loop:    framework.NewLoop(),
		Relay:   NewRelay(relayPin),
		Button:  buttonPin,
		Strip:   NewLEDStrip(strip, ledCount),
	}
	b.Monitor = NewButtonMonitor(buttonPin, b.Relay, svc)
	b.Events = NewEventSink(b.Relay, b.Loop)
	b.Loop.Add(b.Monitor, b.Strip)
	return b
}

// NewSim creates a Board with simulated peripherals.
func NewSim(svc *broadcast.Service) *Board {
	return New(svc, NewSimPin(false), NewSimPin(true), &LogStrip{}, DefaultLEDCount)
}

// Start initializes the broadcast service with the identity.
func (b *Board) Start(identity wire.DeviceID) error {
	glog.Infof("Device initialized with ID: %d", identity)
	return b.Service.Init(identity, b.Events)
}

// Pulse turns the relay on with a bright flash, then off.
func (b *Board) Pulse() {
	b.Relay.Set(true)
	time.Sleep(PulseRelayDelay)
	b.Strip.Boost(time.Now().Add(PulseDuration))
	b.Loop.TriggerNext()
	time.Sleep(PulseDuration)
	b.Relay.Set(false)
	b.Loop.TriggerNext()
}

// Press simulates holding the button for the duration.
// It only works on a SimPin button.
func (b *Board) Press(d time.Duration) bool {
	pin, ok := b.Button.(*SimPin)
	if !ok {
		return false
	}
	pin.Write(false)
	go func() {
		time.Sleep(d)
		pin.Write(true)
	}()
	return true
}

// Send broadcasts a message of any type.
func (b *Board) Send(typ wire.MessageType, payload []byte) error {
	return b.Service.Broadcast(typ, payload)
}

// Status returns the current state.
func (b *Board) Status() Status {
	s := Status{
		Ready:      b.Service.Ready(),
		Relay:      b.Relay.On(),
		ButtonHeld: b.Monitor.Held(),
		Flashing:   b.Strip.Flashing(),
		Hue:        b.Strip.Hue(),
		Received:   b.Events.Received(),
	}
	if s.Ready {
		s.Identity = b.Service.Identity()
	}
	s.LastArrived, _ = b.Events.LastArrived()
	return s
}

// Close shuts down the broadcast service.
func (b *Board) Close() error {
	return b.Service.Close()
}
