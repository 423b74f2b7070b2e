// Package mqtt carries link datagrams over an MQTT broker.
//
// Each channel/destination pair maps to a topic:
//
//	<prefix>ch/<channel>/<destination address in hex>
//
// The payload is a link.Datagram. A driver subscribes to the broadcast
// topic and its own unicast topic on every channel and filters channels
// through its peer table. The broker echoes a driver's own broadcasts
// back to it, the same way a radio may hear itself.
package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nowlink/pkg/link"
)

// DefaultConnectTimeout bounds the broker connection in Start.
const DefaultConnectTimeout = 5 * time.Second

// Topic returns the topic (without prefix) for a channel and destination.
func Topic(channel uint8, dst link.HardwareAddr) string {
	return "ch/" + strconv.Itoa(int(channel)) + "/" + dst.Hex()
}

// ParseTopic extracts channel and destination from a topic.
func ParseTopic(topic string) (channel uint8, dst link.HardwareAddr, err error) {
	var ch int
	var hexAddr string
	if _, err = fmt.Sscanf(topic, "ch/%d/%s", &ch, &hexAddr); err != nil {
		return
	}
	if ch < 0 || ch > 255 {
		err = fmt.Errorf("invalid channel in topic %q", topic)
		return
	}
	channel = uint8(ch)
	dst, err = link.ParseHardwareAddr(hexAddr)
	return
}

// Driver implements link.Driver over MQTT.
type Driver struct {
	link.Callbacks

	Queue          *Queue
	ConnectTimeout time.Duration

	addr    link.HardwareAddr
	lock    sync.Mutex
	started bool
	subs    []*Subscription
}

// NewDriver creates a Driver from a broker URL.
// The query parameter mac sets the local address, otherwise a random one is used.
func NewDriver(brokerURL string) (*Driver, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	addr := link.RandomAddr()
	if mac := u.Query().Get("mac"); mac != "" {
		if addr, err = link.ParseHardwareAddr(mac); err != nil {
			return nil, err
		}
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("nowlink:" + addr.Hex())
	}
	return &Driver{
		Queue:          NewQueue(opts, prefix),
		ConnectTimeout: DefaultConnectTimeout,
		addr:           addr,
	}, nil
}

// Start implements link.Driver.
func (d *Driver) Start(link.Settings) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.started {
		return nil
	}
	d.subs = []*Subscription{
		d.Queue.Sub("ch/+/"+link.BroadcastAddr.Hex(), d.handle),
		d.Queue.Sub("ch/+/"+d.addr.Hex(), d.handle),
	}
	token := d.Queue.Connect()
	if !token.WaitTimeout(d.ConnectTimeout) {
		d.unsubscribe()
		return errors.New("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		d.unsubscribe()
		return err
	}
	d.started = true
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
	d.lock.Lock()
	started := d.started
	d.lock.Unlock()
	if !started {
		return link.ErrNotStarted
	}
	dg := link.Datagram{Dst: dst, Src: d.addr, Channel: peer.Channel, Frame: frame}
	payload, err := dg.Bytes()
	if err != nil {
		return err
	}
	token := d.Queue.Pub(Topic(peer.Channel, dst), payload)
	go func() {
		status := link.SendSuccess
		if token.Wait(); token.Error() != nil {
			glog.V(1).Infof("mqtt publish error: %v", token.Error())
			status = link.SendFail
		}
		d.Complete(dst, status)
	}()
	return nil
}

// Close implements link.Driver.
func (d *Driver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.unsubscribe()
	d.started = false
	return d.Queue.Close()
}

func (d *Driver) unsubscribe() {
	for _, sub := range d.subs {
		sub.Close()
	}
	d.subs = nil
}

func (d *Driver) handle(topic string, payload []byte) {
	dg, err := link.DecodeDatagram(payload)
	if err != nil {
		glog.Warningf("mqtt: bad datagram on %q: %v", topic, err)
		return
	}
	if !d.Listens(d.addr, dg.Dst, dg.Channel) {
		return
	}
	d.Deliver(dg.RecvInfo(), dg.Frame)
}
