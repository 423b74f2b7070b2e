// Package udp carries link datagrams over an IPv4 multicast group.
//
// All drivers joined to the same group and port share one medium, the
// same way radios share a channel. Multicast loopback is enabled so
// several drivers on one host hear each other, which also means a driver
// hears its own broadcasts.
package udp

import (
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/ipv4"

	"github.com/robotalks/nowlink/pkg/link"
)

// Defaults.
const (
	DefaultGroup = "239.78.79.87"
	DefaultPort  = 4210
)

// Config configures the Driver.
type Config struct {
	Group     net.IP
	Port      int
	Interface *net.Interface
	Addr      link.HardwareAddr
}

// ConfigFromURL parses udp://group:port?ifname=eth0&mac=aa:bb:cc:dd:ee:ff
func ConfigFromURL(rawURL string) (*Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	conf := &Config{
		Group: net.ParseIP(DefaultGroup),
		Port:  DefaultPort,
		Addr:  link.RandomAddr(),
	}
	if host := u.Hostname(); host != "" {
		if conf.Group = net.ParseIP(host); conf.Group == nil || !conf.Group.IsMulticast() {
			return nil, &net.AddrError{Err: "not a multicast group", Addr: host}
		}
	}
	if port := u.Port(); port != "" {
		if conf.Port, err = strconv.Atoi(port); err != nil {
			return nil, err
		}
	}
	q := u.Query()
	if name := q.Get("ifname"); name != "" {
		if conf.Interface, err = net.InterfaceByName(name); err != nil {
			return nil, err
		}
	}
	if mac := q.Get("mac"); mac != "" {
		if conf.Addr, err = link.ParseHardwareAddr(mac); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// Driver implements link.Driver on IP multicast.
type Driver struct {
	link.Callbacks

	config Config
	group  *net.UDPAddr

	lock sync.Mutex
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	done chan struct{}
}

// NewDriver creates a Driver.
func NewDriver(conf Config) *Driver {
	return &Driver{
		config: conf,
		group:  &net.UDPAddr{IP: conf.Group, Port: conf.Port},
	}
}

// Start implements link.Driver.
func (d *Driver) Start(link.Settings) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.conn != nil {
		return nil
	}
	conn, err := net.ListenMulticastUDP("udp4", d.config.Interface, d.group)
	if err != nil {
		return err
	}
	pc := ipv4.NewPacketConn(conn)
	if err = pc.SetMulticastLoopback(true); err == nil {
		err = pc.SetMulticastTTL(1)
	}
	if err == nil && d.config.Interface != nil {
		err = pc.SetMulticastInterface(d.config.Interface)
	}
	if err != nil {
		conn.Close()
		return err
	}
	d.conn, d.pc, d.done = conn, pc, make(chan struct{})
	go d.readLoop(conn, d.done)
	glog.Infof("udp link on %s", d.group)
	return nil
}

// LocalAddr implements link.Driver.
func (d *Driver) LocalAddr() link.HardwareAddr {
	return d.config.Addr
}

// Send implements link.Driver. The datagram is written synchronously and
// completion is reported from a separate goroutine.
func (d *Driver) Send(dst link.HardwareAddr, frame []byte) error {
	peer, ok := d.LookupPeer(dst)
	if !ok {
		return link.ErrPeerNotFound
	}
	d.lock.Lock()
	pc := d.pc
	d.lock.Unlock()
	if pc == nil {
		return link.ErrNotStarted
	}
	dg := link.Datagram{Dst: dst, Src: d.config.Addr, Channel: peer.Channel, Frame: frame}
	b, err := dg.Bytes()
	if err != nil {
		return err
	}
	status := link.SendSuccess
	if _, err = pc.WriteTo(b, nil, d.group); err != nil {
		glog.V(1).Infof("udp write error: %v", err)
		status = link.SendFail
	}
	go d.Complete(dst, status)
	return nil
}

// Close implements link.Driver.
func (d *Driver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.conn == nil {
		return nil
	}
	close(d.done)
	err := d.conn.Close()
	d.conn, d.pc = nil, nil
	return err
}

func (d *Driver) readLoop(conn *net.UDPConn, done chan struct{}) {
	buf := make([]byte, link.DatagramHeaderSize+link.MaxFrameSize+1)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
			default:
				glog.Errorf("udp read error: %v", err)
			}
			return
		}
		dg, err := link.DecodeDatagram(buf[:n])
		if err != nil {
			glog.V(1).Infof("udp: drop datagram: %v", err)
			continue
		}
		if d.Listens(d.config.Addr, dg.Dst, dg.Channel) {
			d.Deliver(dg.RecvInfo(), dg.Frame)
		}
	}
}
