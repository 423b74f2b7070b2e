package board

import (
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/framework"
	"github.com/robotalks/nowlink/pkg/wire"
)

// Button timing defaults.
const (
	DefaultDebounce       = 50 * time.Millisecond
	DefaultReleaseTimeout = 1000 * time.Second
)

// Broadcaster sends a notification to all peers.
type Broadcaster interface {
	Broadcast(typ wire.MessageType, payload []byte) error
}

type buttonState int

const (
	buttonReleased buttonState = iota
	buttonDebouncing
	buttonHeld
)

// ButtonMonitor polls a pull-up button pin (pressed reads low).
// A press confirmed after Debounce turns the relay on and broadcasts
// button-pressed; the relay turns off on release or after ReleaseTimeout.
type ButtonMonitor struct {
	Pin            Pin
	Relay          *Relay
	Broadcaster    Broadcaster
	Debounce       time.Duration
	ReleaseTimeout time.Duration

	state buttonState
	since time.Time
	held  atomic.Bool
}

// NewButtonMonitor creates a ButtonMonitor.
func NewButtonMonitor(pin Pin, relay *Relay, b Broadcaster) *ButtonMonitor {
	return &ButtonMonitor{
		Pin:            pin,
		Relay:          relay,
		Broadcaster:    b,
		Debounce:       DefaultDebounce,
		ReleaseTimeout: DefaultReleaseTimeout,
	}
}

// AddToLoop implements framework.LoopAdder.
func (m *ButtonMonitor) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvSense, m)
}

// Control implements framework.Controller.
func (m *ButtonMonitor) Control(cc framework.ControlContext) error {
	return m.step(cc.Time())
}

// Held returns true while a confirmed press is held.
func (m *ButtonMonitor) Held() bool {
	return m.held.Load()
}

func (m *ButtonMonitor) step(now time.Time) error {
	pressed := !m.Pin.Read()
	switch m.state {
	case buttonReleased:
		if pressed {
			m.state, m.since = buttonDebouncing, now
		}
	case buttonDebouncing:
		if !pressed {
			m.state = buttonReleased
			break
		}
		if now.Sub(m.since) < m.Debounce {
			break
		}
		m.state, m.since = buttonHeld, now
		m.held.Store(true)
		m.Relay.Set(true)
		glog.Info("Button pressed!")
		if m.Broadcaster != nil {
			if err := m.Broadcaster.Broadcast(wire.MessageTypeButtonPressed, nil); err != nil {
				return err
			}
		}
	case buttonHeld:
		if !pressed || now.Sub(m.since) >= m.ReleaseTimeout {
			if pressed {
				glog.Warning("Button release timeout")
			}
			m.state = buttonReleased
			m.held.Store(false)
			m.Relay.Set(false)
		}
	}
	return nil
}
