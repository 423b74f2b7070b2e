package wire

import "fmt"

// Envelope sizes.
const (
	TypeSize    = 1
	OriginSize  = 1
	PayloadSize = 16
	FrameSize   = TypeSize + OriginSize + PayloadSize

	offsetType    = 0
	offsetOrigin  = offsetType + TypeSize
	offsetPayload = offsetOrigin + OriginSize
)

// DeviceID identifies the device a message originates from.
type DeviceID uint8

// MessageType tags the meaning of a message.
type MessageType uint8

// Known message types.
const (
	MessageTypeButtonPressed MessageType = 1
)

var typeNames = map[MessageType]string{
	MessageTypeButtonPressed: "button-pressed",
}

// IsKnown indicates whether the type is one of the known types.
func (t MessageType) IsKnown() bool {
	_, ok := typeNames[t]
	return ok
}

// String implements fmt.Stringer.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// Message is the unit of communication.
type Message struct {
	Type    MessageType
	Origin  DeviceID
	Payload [PayloadSize]byte
}

// NewMessage creates a Message, zero-padding the payload.
func NewMessage(typ MessageType, origin DeviceID, payload []byte) (*Message, error) {
	if len(payload) > PayloadSize {
		return nil, ErrPayloadTooLarge
	}
	msg := &Message{Type: typ, Origin: origin}
	copy(msg.Payload[:], payload)
	return msg, nil
}

// Bytes returns the encoded frame.
func (m *Message) Bytes() []byte {
	b := make([]byte, FrameSize)
	b[offsetType] = byte(m.Type)
	b[offsetOrigin] = byte(m.Origin)
	copy(b[offsetPayload:], m.Payload[:])
	return b
}

// String implements fmt.Stringer.
func (m *Message) String() string {
	return fmt.Sprintf("%s from %d", m.Type, m.Origin)
}

// Encode builds the frame for a message in one step.
func Encode(typ MessageType, origin DeviceID, payload []byte) ([]byte, error) {
	msg, err := NewMessage(typ, origin, payload)
	if err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

// Decode parses a frame. Bytes beyond FrameSize are ignored.
func Decode(frame []byte) (*Message, error) {
	if len(frame) < FrameSize {
		return nil, &FramingError{Len: len(frame)}
	}
	msg := &Message{
		Type:   MessageType(frame[offsetType]),
		Origin: DeviceID(frame[offsetOrigin]),
	}
	copy(msg.Payload[:], frame[offsetPayload:FrameSize])
	return msg, nil
}
