package broadcast

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nowlink/pkg/link"
	"github.com/robotalks/nowlink/pkg/link/loopback"
	"github.com/robotalks/nowlink/pkg/wire"
)

type delivery struct {
	msg  *wire.Message
	from link.HardwareAddr
}

type testNode struct {
	t        *testing.T
	radio    *loopback.Radio
	svc      *Service
	received chan delivery
	sent     chan link.SendResult
}

func newTestNode(t *testing.T, air *loopback.Air, id wire.DeviceID) *testNode {
	n := &testNode{
		t:        t,
		radio:    air.NewRadio(link.HardwareAddr{2, 0, 0, 0, 0, byte(id)}),
		received: make(chan delivery, 8),
		sent:     make(chan link.SendResult, 8),
	}
	n.svc = NewWithDriver(n.radio, link.DefaultChannel)
	n.svc.SetSendNotifier(link.SendCompletedFunc(func(r link.SendResult) {
		n.sent <- r
	}))
	require.NoError(t, n.svc.Init(id, HandlerFunc(func(msg *wire.Message, from link.HardwareAddr) {
		n.received <- delivery{msg: msg, from: from}
	})))
	return n
}

func (n *testNode) expectMessage() delivery {
	select {
	case d := <-n.received:
		return d
	case <-time.After(500 * time.Millisecond):
		n.t.Fatal("message timeout")
	}
	return delivery{}
}

func (n *testNode) expectNoMessage() {
	n.radio.Flush()
	select {
	case d := <-n.received:
		n.t.Fatalf("unexpected message %s", d.msg)
	default:
	}
}

func TestBroadcastBetweenDevices(t *testing.T) {
	air := loopback.NewAir()
	a := newTestNode(t, air, 5)
	defer a.svc.Close()
	b := newTestNode(t, air, 9)
	defer b.svc.Close()

	require.NoError(t, a.svc.Broadcast(wire.MessageTypeButtonPressed, []byte("hi")))
	d := b.expectMessage()
	require.Equal(t, wire.MessageTypeButtonPressed, d.msg.Type)
	require.Equal(t, wire.DeviceID(5), d.msg.Origin)
	require.Equal(t, []byte("hi"), bytes.TrimRight(d.msg.Payload[:], "\x00"))
	require.Equal(t, a.radio.LocalAddr(), d.from)

	select {
	case r := <-a.sent:
		require.Equal(t, link.SendResult{Dst: link.BroadcastAddr, Status: link.SendSuccess}, r)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("send result timeout")
	}
	a.expectNoMessage()
}

// local identity 5 receives [1, 7, 0...]
func TestReceiveFromPeer(t *testing.T) {
	air := loopback.NewAir()
	n := newTestNode(t, air, 5)
	defer n.svc.Close()
	src := link.HardwareAddr{2, 0, 0, 0, 0, 7}
	frame := make([]byte, wire.FrameSize)
	frame[0], frame[1] = 1, 7
	n.radio.Inject(src, frame)
	d := n.expectMessage()
	require.Equal(t, wire.MessageTypeButtonPressed, d.msg.Type)
	require.Equal(t, wire.DeviceID(7), d.msg.Origin)
	require.Equal(t, src, d.from)
	n.expectNoMessage()
}

func TestSelfFilter(t *testing.T) {
	air := loopback.NewAir()
	n := newTestNode(t, air, 5)
	defer n.svc.Close()
	for _, typ := range []byte{1, 2, 0xff} {
		frame := make([]byte, wire.FrameSize)
		frame[0], frame[1] = typ, 5
		n.radio.Inject(link.RandomAddr(), frame)
	}
	n.expectNoMessage()

	n.radio.Echo = true
	require.NoError(t, n.svc.Broadcast(wire.MessageTypeButtonPressed, nil))
	n.expectNoMessage()
}

func TestShortFrameDropped(t *testing.T) {
	air := loopback.NewAir()
	n := newTestNode(t, air, 5)
	defer n.svc.Close()
	for l := 0; l < wire.FrameSize; l++ {
		frame := make([]byte, l)
		if l > 1 {
			frame[0], frame[1] = 1, 7
		}
		n.radio.Inject(link.RandomAddr(), frame)
		n.radio.Flush()
	}
	n.expectNoMessage()
}

func TestUnknownTypeForwarded(t *testing.T) {
	air := loopback.NewAir()
	n := newTestNode(t, air, 5)
	defer n.svc.Close()
	frame := make([]byte, wire.FrameSize)
	frame[0], frame[1] = 0x7e, 8
	n.radio.Inject(link.RandomAddr(), frame)
	d := n.expectMessage()
	require.Equal(t, wire.MessageType(0x7e), d.msg.Type)
	require.False(t, d.msg.Type.IsKnown())
}

type countingDriver struct {
	link.Driver
	lock  sync.Mutex
	sends int
}

func (d *countingDriver) Send(dst link.HardwareAddr, frame []byte) error {
	d.lock.Lock()
	d.sends++
	d.lock.Unlock()
	return d.Driver.Send(dst, frame)
}

func TestPayloadTooLarge(t *testing.T) {
	air := loopback.NewAir()
	drv := &countingDriver{Driver: air.NewRadio(link.RandomAddr())}
	svc := NewWithDriver(drv, link.DefaultChannel)
	defer svc.Close()
	require.NoError(t, svc.Init(5, HandlerFunc(func(*wire.Message, link.HardwareAddr) {})))

	err := svc.Broadcast(wire.MessageTypeButtonPressed, make([]byte, 20))
	require.True(t, errors.Is(err, wire.ErrInvalidArgument))
	require.Equal(t, 0, drv.sends)

	require.NoError(t, svc.Broadcast(wire.MessageTypeButtonPressed, make([]byte, wire.PayloadSize)))
	require.Equal(t, 1, drv.sends)
}

func TestInitOnce(t *testing.T) {
	air := loopback.NewAir()
	radio := air.NewRadio(link.RandomAddr())
	defer radio.Close()
	h := HandlerFunc(func(*wire.Message, link.HardwareAddr) {})

	svc := NewWithDriver(radio, link.DefaultChannel)
	require.Equal(t, ErrNotInitialized, svc.Broadcast(wire.MessageTypeButtonPressed, nil))
	require.Equal(t, ErrNoHandler, svc.Init(1, nil))
	require.NoError(t, svc.Init(1, h))
	require.True(t, svc.Ready())
	require.Equal(t, wire.DeviceID(1), svc.Identity())
	require.Equal(t, ErrAlreadyInitialized, svc.Init(2, h))
	require.Equal(t, wire.DeviceID(1), svc.Identity())

	// a second service on the same radio finds the broadcast peer present
	other := NewWithDriver(radio, link.DefaultChannel)
	require.NoError(t, other.Init(3, h))
	require.Equal(t, 1, radio.PeerCount())
}

func TestInitFailure(t *testing.T) {
	air := loopback.NewAir()
	radio := air.NewRadio(link.RandomAddr())
	require.NoError(t, radio.Close())
	svc := NewWithDriver(radio, link.DefaultChannel)
	err := svc.Init(1, HandlerFunc(func(*wire.Message, link.HardwareAddr) {}))
	var initErr *link.InitError
	require.True(t, errors.As(err, &initErr))
	require.Equal(t, link.StepStart, initErr.Step)
	require.False(t, svc.Ready())
	require.Equal(t, ErrNotInitialized, svc.Broadcast(wire.MessageTypeButtonPressed, nil))
}

type peerlessDriver struct {
	*loopback.Radio
}

func (d *peerlessDriver) AddPeer(link.Peer) error {
	return errors.New("peer table full")
}

func TestInitFailureAfterStart(t *testing.T) {
	air := loopback.NewAir()
	radio := air.NewRadio(link.HardwareAddr{2, 0, 0, 0, 0, 1})
	called := make(chan struct{}, 1)
	svc := NewWithDriver(&peerlessDriver{Radio: radio}, link.DefaultChannel)
	err := svc.Init(1, HandlerFunc(func(*wire.Message, link.HardwareAddr) {
		called <- struct{}{}
	}))
	var initErr *link.InitError
	require.True(t, errors.As(err, &initErr))
	require.Equal(t, link.StepAddPeer, initErr.Step)
	require.False(t, svc.Ready())

	// the radio was closed, so it can't be restarted
	require.Equal(t, link.ErrClosed, radio.Start(link.DefaultSettings))
	require.Empty(t, air.Radios())

	svc.HandleMessage(&wire.Message{Type: wire.MessageTypeButtonPressed, Origin: 9}, link.HardwareAddr{2, 0, 0, 0, 0, 9})
	require.Empty(t, called)
}
