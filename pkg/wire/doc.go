// Package wire provides the fixed binary envelope of broadcast messages.
package wire

// Every frame on the air has the same size:
//
//	+------+--------+------------------+
//	| Type | Origin |     Payload      |
//	+------+--------+------------------+
//	|  1   |   1    |        16        |
//	+------+--------+------------------+
//
// There is no length prefix and no version field. A frame shorter than
// FrameSize is a framing error and is never partially parsed. Payload
// bytes not supplied by the sender are zero.
