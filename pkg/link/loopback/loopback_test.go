package loopback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nowlink/pkg/link"
)

type rx struct {
	info  link.RecvInfo
	frame []byte
}

func startRadio(t *testing.T, air *Air, last byte, channel uint8) (*Radio, chan rx, chan link.SendStatus) {
	r := air.NewRadio(link.HardwareAddr{2, 0, 0, 0, 0, last})
	rxCh, txCh := make(chan rx, 4), make(chan link.SendStatus, 4)
	require.NoError(t, r.Start(link.DefaultSettings))
	require.NoError(t, r.RegisterRecvCallback(func(info link.RecvInfo, frame []byte) {
		rxCh <- rx{info: info, frame: frame}
	}))
	require.NoError(t, r.RegisterSendCallback(func(dst link.HardwareAddr, status link.SendStatus) {
		txCh <- status
	}))
	require.NoError(t, r.AddPeer(link.Peer{Addr: link.BroadcastAddr, Channel: channel}))
	return r, rxCh, txCh
}

func expectRx(t *testing.T, ch chan rx) rx {
	select {
	case r := <-ch:
		return r
	case <-time.After(500 * time.Millisecond):
		t.Fatal("receive timeout")
	}
	return rx{}
}

func TestBroadcast(t *testing.T) {
	air := NewAir()
	a, aRx, aTx := startRadio(t, air, 1, 1)
	defer a.Close()
	b, bRx, _ := startRadio(t, air, 2, 1)
	defer b.Close()
	c, cRx, _ := startRadio(t, air, 3, 6)
	defer c.Close()

	require.NoError(t, a.Send(link.BroadcastAddr, []byte{1, 2, 3}))
	got := expectRx(t, bRx)
	require.Equal(t, a.LocalAddr(), got.info.Src)
	require.Equal(t, link.BroadcastAddr, got.info.Dst)
	require.Equal(t, uint8(1), got.info.Channel)
	require.Equal(t, []byte{1, 2, 3}, got.frame)

	select {
	case status := <-aTx:
		require.Equal(t, link.SendSuccess, status)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("send completion timeout")
	}

	a.Flush()
	c.Flush()
	require.Empty(t, aRx)
	require.Empty(t, cRx)
}

func TestEcho(t *testing.T) {
	air := NewAir()
	a, aRx, _ := startRadio(t, air, 1, 1)
	defer a.Close()
	a.Echo = true
	require.NoError(t, a.Send(link.BroadcastAddr, []byte{9}))
	got := expectRx(t, aRx)
	require.Equal(t, a.LocalAddr(), got.info.Src)
}

func TestSendErrors(t *testing.T) {
	air := NewAir()
	r := air.NewRadio(link.RandomAddr())
	defer r.Close()
	require.NoError(t, r.AddPeer(link.Peer{Addr: link.BroadcastAddr, Channel: 1}))
	require.Equal(t, link.ErrNotStarted, r.Send(link.BroadcastAddr, []byte{1}))
	require.NoError(t, r.Start(link.DefaultSettings))
	require.NoError(t, r.Start(link.DefaultSettings))
	require.Equal(t, link.ErrPeerNotFound, r.Send(link.RandomAddr(), []byte{1}))
	require.Equal(t, link.ErrFrameTooLarge, r.Send(link.BroadcastAddr, make([]byte, link.MaxFrameSize+1)))
	require.NoError(t, r.Close())
	require.Equal(t, link.ErrNotStarted, r.Send(link.BroadcastAddr, []byte{1}))
	require.Equal(t, link.ErrClosed, r.Start(link.DefaultSettings))
	require.Empty(t, air.Radios())
}

func TestInject(t *testing.T) {
	air := NewAir()
	r, rRx, _ := startRadio(t, air, 1, 4)
	defer r.Close()
	src := link.HardwareAddr{2, 9, 9, 9, 9, 9}
	r.Inject(src, []byte{7})
	got := expectRx(t, rRx)
	require.Equal(t, link.RecvInfo{Src: src, Dst: link.BroadcastAddr, Channel: 4}, got.info)
	require.Equal(t, []byte{7}, got.frame)
}

func TestEchoKeepsSendCompletion(t *testing.T) {
	air := NewAir()
	r := air.NewRadio(link.HardwareAddr{2, 0, 0, 0, 0, 1})
	defer r.Close()
	r.Echo = true
	entered, release := make(chan struct{}), make(chan struct{})
	var once sync.Once
	txCh := make(chan link.SendStatus, 1)
	require.NoError(t, r.Start(link.DefaultSettings))
	require.NoError(t, r.RegisterRecvCallback(func(link.RecvInfo, []byte) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}))
	require.NoError(t, r.RegisterSendCallback(func(dst link.HardwareAddr, status link.SendStatus) {
		txCh <- status
	}))
	require.NoError(t, r.AddPeer(link.Peer{Addr: link.BroadcastAddr, Channel: link.DefaultChannel}))

	src := link.HardwareAddr{2, 9, 9, 9, 9, 9}
	r.Inject(src, []byte{0})
	<-entered
	for i := 1; i < DefaultQueueSize; i++ {
		r.Inject(src, []byte{byte(i)})
	}

	require.NoError(t, r.Send(link.BroadcastAddr, []byte{1}))
	require.Equal(t, link.ErrQueueFull, r.Send(link.BroadcastAddr, []byte{2}))
	close(release)

	select {
	case status := <-txCh:
		require.Equal(t, link.SendSuccess, status)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("send completion lost")
	}
}
