package link

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/robotalks/nowlink/pkg/wire"
)

// HardwareAddrSize is the size of a wireless hardware address.
const HardwareAddrSize = 6

// DefaultChannel is the channel the broadcast peer is registered on.
const DefaultChannel uint8 = 1

// HardwareAddr is the wireless hardware address of a peer.
type HardwareAddr [HardwareAddrSize]byte

// BroadcastAddr delivers to every listening peer on the channel.
var BroadcastAddr = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseHardwareAddr parses "aa:bb:cc:dd:ee:ff" or "aabbccddeeff".
func ParseHardwareAddr(s string) (addr HardwareAddr, err error) {
	if len(s) == HardwareAddrSize*2 {
		var b []byte
		if b, err = hex.DecodeString(s); err != nil {
			return
		}
		copy(addr[:], b)
		return
	}
	mac, err := net.ParseMAC(s)
	if err != nil {
		return
	}
	if len(mac) != HardwareAddrSize {
		err = fmt.Errorf("invalid hardware address %q", s)
		return
	}
	copy(addr[:], mac)
	return
}

// RandomAddr generates a locally administered unicast address.
func RandomAddr() HardwareAddr {
	var addr HardwareAddr
	if _, err := rand.Read(addr[:]); err != nil {
		panic(err)
	}
	addr[0] = (addr[0] | 0x02) &^ 0x01
	return addr
}

// IsBroadcast tells if the address is the broadcast address.
func (a HardwareAddr) IsBroadcast() bool {
	return a == BroadcastAddr
}

// Hex returns the address as 12 lower case hex digits.
func (a HardwareAddr) Hex() string {
	return hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a HardwareAddr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// Mode is the operating mode of the wireless interface.
type Mode int

// Modes.
const (
	ModeStation Mode = iota + 1
	ModeAccessPoint
)

// Protocol is a bit set of physical layer modes.
type Protocol uint8

// Physical layer modes.
const (
	Protocol11B Protocol = 1 << iota
	Protocol11G
	Protocol11N
	ProtocolLR

	// ProtocolsLongRange enables every mode including long range.
	ProtocolsLongRange = Protocol11B | Protocol11G | Protocol11N | ProtocolLR
)

// Settings configures Driver.Start.
type Settings struct {
	Mode      Mode
	Protocols Protocol
	// Associate is false to keep the interface off any access point.
	Associate bool
}

// DefaultSettings are the settings used by the Adapter.
var DefaultSettings = Settings{
	Mode:      ModeStation,
	Protocols: ProtocolsLongRange,
}

// Peer is an entry in the driver peer table.
type Peer struct {
	Addr    HardwareAddr
	Channel uint8
	Encrypt bool
}

// SendStatus is the outcome of a transmission.
type SendStatus int

// Send statuses.
const (
	SendSuccess SendStatus = iota
	SendFail
)

// String implements fmt.Stringer.
func (s SendStatus) String() string {
	if s == SendSuccess {
		return "Success"
	}
	return "Fail"
}

// RecvInfo describes a received frame.
type RecvInfo struct {
	Src     HardwareAddr
	Dst     HardwareAddr
	Channel uint8
}

// SendCallback is invoked by the driver when a transmission completes.
type SendCallback func(dst HardwareAddr, status SendStatus)

// RecvCallback is invoked by the driver for every received frame.
type RecvCallback func(info RecvInfo, frame []byte)

// Driver is the radio the Adapter runs on.
// Callbacks are invoked on the driver's own goroutine and must return promptly.
type Driver interface {
	// Start initializes the wireless interface and starts the broadcast subsystem.
	Start(Settings) error
	RegisterSendCallback(SendCallback) error
	RegisterRecvCallback(RecvCallback) error
	// AddPeer returns ErrPeerExists if the address is already in the peer table.
	AddPeer(Peer) error
	// Send queues the frame and returns. Completion is reported by SendCallback.
	Send(dst HardwareAddr, frame []byte) error
	LocalAddr() HardwareAddr
	Close() error
}

// MessageSink receives validated inbound messages.
type MessageSink interface {
	HandleMessage(msg *wire.Message, from HardwareAddr)
}

// HandleMessageFunc is the func form of MessageSink.
type HandleMessageFunc func(*wire.Message, HardwareAddr)

// HandleMessage implements MessageSink.
func (f HandleMessageFunc) HandleMessage(msg *wire.Message, from HardwareAddr) {
	f(msg, from)
}

// SendResult is the asynchronous outcome of a Transmit.
type SendResult struct {
	Dst    HardwareAddr
	Status SendStatus
}

// SendNotifier is told about completed transmissions.
type SendNotifier interface {
	SendCompleted(SendResult)
}

// SendCompletedFunc is the func form of SendNotifier.
type SendCompletedFunc func(SendResult)

// SendCompleted implements SendNotifier.
func (f SendCompletedFunc) SendCompleted(r SendResult) {
	f(r)
}
