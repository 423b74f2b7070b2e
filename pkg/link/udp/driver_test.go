package udp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nowlink/pkg/link"
)

func TestConfigFromURL(t *testing.T) {
	conf, err := ConfigFromURL("udp://")
	require.NoError(t, err)
	require.True(t, conf.Group.Equal(net.ParseIP(DefaultGroup)))
	require.Equal(t, DefaultPort, conf.Port)
	require.Nil(t, conf.Interface)

	conf, err = ConfigFromURL("udp://239.1.2.3:5000?mac=02:00:00:00:00:05")
	require.NoError(t, err)
	require.True(t, conf.Group.Equal(net.ParseIP("239.1.2.3")))
	require.Equal(t, 5000, conf.Port)
	require.Equal(t, link.HardwareAddr{2, 0, 0, 0, 0, 5}, conf.Addr)

	_, err = ConfigFromURL("udp://10.0.0.1:5000")
	require.Error(t, err)
	_, err = ConfigFromURL("udp://239.1.2.3:5000?mac=xyz")
	require.Error(t, err)
}

func TestSendBeforeStart(t *testing.T) {
	conf, err := ConfigFromURL("udp://")
	require.NoError(t, err)
	d := NewDriver(*conf)
	require.Equal(t, link.ErrPeerNotFound, d.Send(link.BroadcastAddr, []byte{1}))
	require.NoError(t, d.AddPeer(link.Peer{Addr: link.BroadcastAddr, Channel: 1}))
	require.Equal(t, link.ErrNotStarted, d.Send(link.BroadcastAddr, []byte{1}))
	require.NoError(t, d.Close())
}

func startDriver(t *testing.T, mac string) (*Driver, chan link.RecvInfo, chan link.SendStatus) {
	conf, err := ConfigFromURL("udp://239.78.79.99:4298?mac=" + mac)
	require.NoError(t, err)
	d := NewDriver(*conf)
	if err := d.Start(link.DefaultSettings); err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	rxCh, txCh := make(chan link.RecvInfo, 8), make(chan link.SendStatus, 8)
	require.NoError(t, d.RegisterRecvCallback(func(info link.RecvInfo, frame []byte) {
		if len(frame) == 3 && frame[0] == 0xa5 {
			rxCh <- info
		}
	}))
	require.NoError(t, d.RegisterSendCallback(func(dst link.HardwareAddr, status link.SendStatus) {
		txCh <- status
	}))
	require.NoError(t, d.AddPeer(link.Peer{Addr: link.BroadcastAddr, Channel: link.DefaultChannel}))
	return d, rxCh, txCh
}

func TestMulticastRoundTrip(t *testing.T) {
	a, _, aTx := startDriver(t, "02:00:00:00:02:01")
	defer a.Close()
	b, bRx, _ := startDriver(t, "02:00:00:00:02:02")
	defer b.Close()

	require.NoError(t, a.Send(link.BroadcastAddr, []byte{0xa5, 1, 2}))
	select {
	case status := <-aTx:
		if status != link.SendSuccess {
			t.Skip("multicast send failed, no route")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("send completion timeout")
	}

	select {
	case info := <-bRx:
		require.Equal(t, a.LocalAddr(), info.Src)
		require.Equal(t, link.BroadcastAddr, info.Dst)
		require.Equal(t, link.DefaultChannel, info.Channel)
	case <-time.After(time.Second):
		t.Fatal("multicast datagram not delivered")
	}
}
