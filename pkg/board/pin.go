package board

import (
	"sync"
	"sync/atomic"
)

// Pin is a digital I/O pin.
type Pin interface {
	Read() bool
	Write(level bool)
}

// SimPin is a simulated pin.
type SimPin struct {
	level atomic.Bool
}

// NewSimPin creates a SimPin with an initial level.
func NewSimPin(level bool) *SimPin {
	p := &SimPin{}
	p.level.Store(level)
	return p
}

// Read implements Pin.
func (p *SimPin) Read() bool {
	return p.level.Load()
}

// Write implements Pin.
func (p *SimPin) Write(level bool) {
	p.level.Store(level)
}

// Relay drives an output pin. Active high.
type Relay struct {
	pin  Pin
	lock sync.Mutex
	on   bool
}

// NewRelay creates a Relay, initially off.
func NewRelay(pin Pin) *Relay {
	pin.Write(false)
	return &Relay{pin: pin}
}

// Set turns the relay on or off.
func (r *Relay) Set(on bool) {
	r.lock.Lock()
	r.on = on
	r.pin.Write(on)
	r.lock.Unlock()
}

// Toggle flips the relay and returns the new state.
func (r *Relay) Toggle() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.on = !r.on
	r.pin.Write(r.on)
	return r.on
}

// On returns the current state.
func (r *Relay) On() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.on
}
