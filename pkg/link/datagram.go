package link

import (
	"errors"
	"fmt"
)

// Datagram sizes.
const (
	DatagramHeaderSize = HardwareAddrSize*2 + 1
	// MaxFrameSize is the largest frame a datagram carries.
	MaxFrameSize = 250
)

// ErrShortDatagram indicates a datagram shorter than its header.
var ErrShortDatagram = errors.New("datagram too short")

// Datagram wraps a frame with its link level addressing:
//
//	dst(6) | src(6) | channel(1) | frame(0-250)
type Datagram struct {
	Dst     HardwareAddr
	Src     HardwareAddr
	Channel uint8
	Frame   []byte
}

// Bytes encodes the datagram.
func (d *Datagram) Bytes() ([]byte, error) {
	if len(d.Frame) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	b := make([]byte, DatagramHeaderSize+len(d.Frame))
	copy(b, d.Dst[:])
	copy(b[HardwareAddrSize:], d.Src[:])
	b[HardwareAddrSize*2] = d.Channel
	copy(b[DatagramHeaderSize:], d.Frame)
	return b, nil
}

// RecvInfo returns the receive description of the datagram.
func (d *Datagram) RecvInfo() RecvInfo {
	return RecvInfo{Src: d.Src, Dst: d.Dst, Channel: d.Channel}
}

// String implements fmt.Stringer.
func (d *Datagram) String() string {
	return fmt.Sprintf("%s > %s ch%d len=%d", d.Src, d.Dst, d.Channel, len(d.Frame))
}

// DecodeDatagram decodes a datagram. The frame is copied.
func DecodeDatagram(b []byte) (*Datagram, error) {
	if len(b) < DatagramHeaderSize {
		return nil, ErrShortDatagram
	}
	if len(b)-DatagramHeaderSize > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	d := &Datagram{Channel: b[HardwareAddrSize*2]}
	copy(d.Dst[:], b)
	copy(d.Src[:], b[HardwareAddrSize:])
	d.Frame = append([]byte(nil), b[DatagramHeaderSize:]...)
	return d, nil
}
