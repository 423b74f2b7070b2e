package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nowlink/pkg/wire"
)

type sentFrame struct {
	dst   HardwareAddr
	frame []byte
}

type fakeDriver struct {
	Callbacks

	addr     HardwareAddr
	settings []Settings
	sent     []sentFrame
	steps    []string

	startErr   error
	addPeerErr error
	sendErr    error
	closed     int
}

func (d *fakeDriver) Start(s Settings) error {
	d.steps = append(d.steps, StepStart)
	d.settings = append(d.settings, s)
	return d.startErr
}

func (d *fakeDriver) RegisterSendCallback(cb SendCallback) error {
	d.steps = append(d.steps, StepSendCallback)
	return d.Callbacks.RegisterSendCallback(cb)
}

func (d *fakeDriver) RegisterRecvCallback(cb RecvCallback) error {
	d.steps = append(d.steps, StepRecvCallback)
	return d.Callbacks.RegisterRecvCallback(cb)
}

func (d *fakeDriver) AddPeer(p Peer) error {
	d.steps = append(d.steps, StepAddPeer)
	if d.addPeerErr != nil {
		return d.addPeerErr
	}
	return d.Callbacks.AddPeer(p)
}

func (d *fakeDriver) Send(dst HardwareAddr, frame []byte) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, sentFrame{dst: dst, frame: frame})
	return nil
}

func (d *fakeDriver) LocalAddr() HardwareAddr { return d.addr }
func (d *fakeDriver) Close() error            { d.closed++; return nil }

type recorded struct {
	msg  *wire.Message
	from HardwareAddr
}

func newTestAdapter() (*Adapter, *fakeDriver, *[]recorded) {
	drv := &fakeDriver{addr: HardwareAddr{2, 0, 0, 0, 0, 1}}
	var got []recorded
	a := NewAdapter(drv)
	a.Sink = HandleMessageFunc(func(msg *wire.Message, from HardwareAddr) {
		got = append(got, recorded{msg: msg, from: from})
	})
	return a, drv, &got
}

func TestAdapterInit(t *testing.T) {
	a, drv, _ := newTestAdapter()
	require.NoError(t, a.Init())
	require.True(t, a.Started())
	require.Equal(t, []string{StepStart, StepSendCallback, StepRecvCallback, StepAddPeer}, drv.steps)
	require.Equal(t, []Settings{{Mode: ModeStation, Protocols: ProtocolsLongRange}}, drv.settings)
	peer, ok := drv.LookupPeer(BroadcastAddr)
	require.True(t, ok)
	require.Equal(t, Peer{Addr: BroadcastAddr, Channel: DefaultChannel}, peer)
}

func TestAdapterInitPeerExists(t *testing.T) {
	a, drv, _ := newTestAdapter()
	require.NoError(t, a.Init())
	require.NoError(t, a.Init())
	require.Equal(t, 1, drv.PeerCount())

	b := NewAdapter(drv)
	require.NoError(t, b.Init())
}

func TestAdapterInitFailures(t *testing.T) {
	boom := errors.New("boom")
	testCases := []struct {
		name   string
		setup  func(*fakeDriver)
		step   string
		closed int
	}{
		{"start", func(d *fakeDriver) { d.startErr = boom }, StepStart, 0},
		{"add peer", func(d *fakeDriver) { d.addPeerErr = boom }, StepAddPeer, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, drv, _ := newTestAdapter()
			tc.setup(drv)
			err := a.Init()
			var initErr *InitError
			require.True(t, errors.As(err, &initErr))
			require.Equal(t, tc.step, initErr.Step)
			require.True(t, errors.Is(err, boom))
			require.False(t, a.Started())
			require.Equal(t, tc.closed, drv.closed)
			require.Equal(t, ErrNotStarted, a.Transmit(make([]byte, wire.FrameSize)))
			require.Empty(t, drv.sent)
		})
	}
}

func TestAdapterTransmit(t *testing.T) {
	a, drv, _ := newTestAdapter()
	require.Equal(t, ErrNotStarted, a.Transmit([]byte{1}))
	require.NoError(t, a.Init())
	frame, err := wire.Encode(wire.MessageTypeButtonPressed, 3, nil)
	require.NoError(t, err)
	require.NoError(t, a.Transmit(frame))
	require.Equal(t, []sentFrame{{dst: BroadcastAddr, frame: frame}}, drv.sent)

	drv.sendErr = ErrQueueFull
	require.Equal(t, ErrQueueFull, a.Transmit(frame))
}

func TestAdapterSendCompletion(t *testing.T) {
	a, drv, _ := newTestAdapter()
	var results []SendResult
	a.Notifier = SendCompletedFunc(func(r SendResult) {
		results = append(results, r)
	})
	require.NoError(t, a.Init())
	drv.Complete(BroadcastAddr, SendSuccess)
	drv.Complete(BroadcastAddr, SendFail)
	require.Equal(t, []SendResult{
		{Dst: BroadcastAddr, Status: SendSuccess},
		{Dst: BroadcastAddr, Status: SendFail},
	}, results)
}

func TestAdapterReceive(t *testing.T) {
	a, drv, got := newTestAdapter()
	require.NoError(t, a.Init())
	src := HardwareAddr{2, 0, 0, 0, 0, 7}

	drv.Deliver(RecvInfo{Src: src, Dst: BroadcastAddr}, make([]byte, 10))
	drv.Deliver(RecvInfo{Src: src, Dst: BroadcastAddr}, nil)
	require.Empty(t, *got)

	frame := make([]byte, wire.FrameSize)
	frame[0], frame[1] = 1, 7
	drv.Deliver(RecvInfo{Src: src, Dst: BroadcastAddr}, frame)
	require.Len(t, *got, 1)
	require.Equal(t, wire.MessageTypeButtonPressed, (*got)[0].msg.Type)
	require.Equal(t, wire.DeviceID(7), (*got)[0].msg.Origin)
	require.Equal(t, src, (*got)[0].from)
}
