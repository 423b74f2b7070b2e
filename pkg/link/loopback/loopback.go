// Package loopback provides an in-memory radio medium.
//
// Every Radio attached to an Air hears what the others transmit, subject to
// the same addressing and channel rules as a real broadcast link. Each Radio
// delivers received frames and send completions on its own goroutine.
package loopback

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/link"
)

// DefaultQueueSize is the default event queue size of a Radio.
const DefaultQueueSize = 64

// Air is the shared medium.
type Air struct {
	lock   sync.RWMutex
	radios []*Radio
}

// NewAir creates an empty medium.
func NewAir() *Air {
	return &Air{}
}

// NewRadio attaches a new Radio with the given address.
func (a *Air) NewRadio(addr link.HardwareAddr) *Radio {
	r := &Radio{
		air:    a,
		addr:   addr,
		events: make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
	}
	a.lock.Lock()
	a.radios = append(a.radios, r)
	a.lock.Unlock()
	return r
}

// Radios returns the attached radios.
func (a *Air) Radios() []*Radio {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return append([]*Radio(nil), a.radios...)
}

func (a *Air) detach(r *Radio) {
	a.lock.Lock()
	defer a.lock.Unlock()
	for n, radio := range a.radios {
		if radio == r {
			a.radios = append(a.radios[:n], a.radios[n+1:]...)
			return
		}
	}
}

func (a *Air) transmit(from *Radio, d *link.Datagram) {
	for _, r := range a.Radios() {
		if r == from && !from.Echo {
			continue
		}
		r.receive(d)
	}
}

// Radio implements link.Driver on an Air.
type Radio struct {
	link.Callbacks

	// Echo makes the radio hear its own transmissions.
	Echo bool

	air    *Air
	addr   link.HardwareAddr
	events chan func()
	done   chan struct{}

	lock     sync.Mutex
	started  bool
	closed   bool
	settings link.Settings
}

// Start implements link.Driver. Starting a started radio is a no-op.
func (r *Radio) Start(s link.Settings) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return link.ErrClosed
	}
	if r.started {
		return nil
	}
	r.started, r.settings = true, s
	go r.run()
	return nil
}

// Settings returns the settings the radio was started with.
func (r *Radio) Settings() link.Settings {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.settings
}

// LocalAddr implements link.Driver.
func (r *Radio) LocalAddr() link.HardwareAddr {
	return r.addr
}

// Send implements link.Driver.
func (r *Radio) Send(dst link.HardwareAddr, frame []byte) error {
	if len(frame) > link.MaxFrameSize {
		return link.ErrFrameTooLarge
	}
	peer, ok := r.LookupPeer(dst)
	if !ok {
		return link.ErrPeerNotFound
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.started || r.closed {
		return link.ErrNotStarted
	}
	// the completion takes its queue slot before an echo can
	if !r.post(func() { r.Complete(dst, link.SendSuccess) }) {
		return link.ErrQueueFull
	}
	r.air.transmit(r, &link.Datagram{
		Dst:     dst,
		Src:     r.addr,
		Channel: peer.Channel,
		Frame:   append([]byte(nil), frame...),
	})
	return nil
}

// Inject delivers a raw frame as a broadcast from src.
func (r *Radio) Inject(src link.HardwareAddr, frame []byte) {
	ch := link.DefaultChannel
	if p, ok := r.LookupPeer(link.BroadcastAddr); ok {
		ch = p.Channel
	}
	r.receive(&link.Datagram{
		Dst:     link.BroadcastAddr,
		Src:     src,
		Channel: ch,
		Frame:   append([]byte(nil), frame...),
	})
}

// Flush waits until all queued events are processed.
func (r *Radio) Flush() {
	r.lock.Lock()
	started := r.started
	r.lock.Unlock()
	if !started {
		return
	}
	flushed := make(chan struct{})
	if r.post(func() { close(flushed) }) {
		select {
		case <-flushed:
		case <-r.done:
		}
	}
}

// Close implements link.Driver.
func (r *Radio) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
		r.air.detach(r)
	}
	return nil
}

func (r *Radio) receive(d *link.Datagram) {
	if !r.post(func() {
		if r.Listens(r.addr, d.Dst, d.Channel) {
			r.Deliver(d.RecvInfo(), d.Frame)
		}
	}) {
		glog.V(2).Infof("radio %s: drop %s", r.addr, d)
	}
}

func (r *Radio) post(ev func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	default:
		return false
	}
}

func (r *Radio) run() {
	for {
		select {
		case <-r.done:
			return
		case ev := <-r.events:
			ev()
		}
	}
}
