package link

import (
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/wire"
)

// Adapter owns the connectionless broadcast transport.
// Sink and Notifier must be set before Init.
type Adapter struct {
	Driver   Driver
	Channel  uint8
	Sink     MessageSink
	Notifier SendNotifier

	started atomic.Bool
}

// NewAdapter creates an Adapter on the default channel.
func NewAdapter(drv Driver) *Adapter {
	return &Adapter{Driver: drv, Channel: DefaultChannel}
}

// Init brings up the driver and registers the broadcast peer.
// Any failure is fatal: the Adapter is left unusable and a started driver is closed.
func (a *Adapter) Init() error {
	if err := a.Driver.Start(DefaultSettings); err != nil {
		return &InitError{Step: StepStart, Err: err}
	}
	if err := a.Driver.RegisterSendCallback(a.sendCompleted); err != nil {
		return a.abort(StepSendCallback, err)
	}
	if err := a.Driver.RegisterRecvCallback(a.received); err != nil {
		return a.abort(StepRecvCallback, err)
	}
	peer := Peer{Addr: BroadcastAddr, Channel: a.Channel}
	if err := a.Driver.AddPeer(peer); err != nil && !errors.Is(err, ErrPeerExists) {
		return a.abort(StepAddPeer, err)
	}
	a.started.Store(true)
	glog.Infof("link initialized, address %s, channel %d", a.Driver.LocalAddr(), a.Channel)
	return nil
}

func (a *Adapter) abort(step string, err error) error {
	if cerr := a.Driver.Close(); cerr != nil {
		glog.Warningf("close driver after %s failure: %v", step, cerr)
	}
	return &InitError{Step: step, Err: err}
}

// Started tells if Init succeeded.
func (a *Adapter) Started() bool {
	return a.started.Load()
}

// LocalAddr returns the hardware address of the driver.
func (a *Adapter) LocalAddr() HardwareAddr {
	return a.Driver.LocalAddr()
}

// Transmit sends a serialized frame to the broadcast peer.
// It returns once the frame is queued; the outcome is reported to Notifier.
func (a *Adapter) Transmit(frame []byte) error {
	if !a.started.Load() {
		return ErrNotStarted
	}
	if err := a.Driver.Send(BroadcastAddr, frame); err != nil {
		glog.Warningf("broadcast send failed: %v", err)
		return err
	}
	return nil
}

// Close closes the driver.
func (a *Adapter) Close() error {
	a.started.Store(false)
	return a.Driver.Close()
}

func (a *Adapter) sendCompleted(dst HardwareAddr, status SendStatus) {
	if status == SendSuccess {
		glog.V(1).Infof("broadcast to %s status: %s", dst, status)
	} else {
		glog.Warningf("broadcast to %s status: %s", dst, status)
	}
	if n := a.Notifier; n != nil {
		n.SendCompleted(SendResult{Dst: dst, Status: status})
	}
}

func (a *Adapter) received(info RecvInfo, frame []byte) {
	msg, err := wire.Decode(frame)
	if err != nil {
		glog.Warningf("drop frame from %s: %v", info.Src, err)
		return
	}
	glog.V(2).Infof("RCV %s type=%d origin=%d", info.Src, msg.Type, msg.Origin)
	if s := a.Sink; s != nil {
		s.HandleMessage(msg, info.Src)
	}
}
