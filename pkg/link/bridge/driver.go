// Package bridge drives the link through a packet bridge, such as a radio
// dongle on a serial port or a websocket relay hub. Every packet on the
// bridge is one link.Datagram.
package bridge

import (
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/link"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// OpenFunc opens the bridge.
type OpenFunc func() (PacketReadWriter, error)

// DefaultQueueSize is the default size of the outgoing queue.
const DefaultQueueSize = 16

type outgoing struct {
	dst    link.HardwareAddr
	packet []byte
}

// Driver implements link.Driver on a PacketReadWriter.
type Driver struct {
	link.Callbacks

	open OpenFunc
	addr link.HardwareAddr

	lock   sync.Mutex
	rw     PacketReadWriter
	sendCh chan outgoing
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewDriver creates a Driver which opens the bridge on Start.
func NewDriver(open OpenFunc, addr link.HardwareAddr) *Driver {
	return &Driver{open: open, addr: addr}
}

// Start implements link.Driver.
func (d *Driver) Start(link.Settings) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.rw != nil {
		return nil
	}
	rw, err := d.open()
	if err != nil {
		return err
	}
	d.rw = rw
	d.sendCh = make(chan outgoing, DefaultQueueSize)
	d.done = make(chan struct{})
	d.wg.Add(2)
	go d.readLoop(rw, d.done)
	go d.writeLoop(rw, d.sendCh, d.done)
	return nil
}

// LocalAddr implements link.Driver.
func (d *Driver) LocalAddr() link.HardwareAddr {
	return d.addr
}

// Send implements link.Driver.
func (d *Driver) Send(dst link.HardwareAddr, frame []byte) error {
	peer, ok := d.LookupPeer(dst)
	if !ok {
		return link.ErrPeerNotFound
	}
	dg := link.Datagram{Dst: dst, Src: d.addr, Channel: peer.Channel, Frame: frame}
	packet, err := dg.Bytes()
	if err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.rw == nil {
		return link.ErrNotStarted
	}
	select {
	case d.sendCh <- outgoing{dst: dst, packet: packet}:
		return nil
	default:
		return link.ErrQueueFull
	}
}

// Close implements link.Driver.
func (d *Driver) Close() error {
	d.lock.Lock()
	rw := d.rw
	if rw != nil {
		close(d.done)
		d.rw = nil
	}
	d.lock.Unlock()
	if rw == nil {
		return nil
	}
	var err error
	if closer, ok := rw.(io.Closer); ok {
		err = closer.Close()
	}
	d.wg.Wait()
	return err
}

func (d *Driver) writeLoop(w PacketWriter, sendCh chan outgoing, done chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-done:
			return
		case out := <-sendCh:
			status := link.SendSuccess
			if err := w.WritePacket(out.packet); err != nil {
				glog.V(1).Infof("bridge write error: %v", err)
				status = link.SendFail
			}
			d.Complete(out.dst, status)
		}
	}
}

func (d *Driver) readLoop(r PacketReader, done chan struct{}) {
	defer d.wg.Done()
	for {
		packet, err := r.ReadPacket()
		if err != nil {
			select {
			case <-done:
			default:
				glog.Errorf("bridge read error: %v", err)
			}
			return
		}
		dg, err := link.DecodeDatagram(packet)
		if err != nil {
			glog.V(1).Infof("bridge: drop packet: %v", err)
			continue
		}
		if d.Listens(d.addr, dg.Dst, dg.Channel) {
			d.Deliver(dg.RecvInfo(), dg.Frame)
		}
	}
}
