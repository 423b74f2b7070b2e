// Package link provides the connectionless broadcast transport.
package link

// The Adapter brings up a Driver in station mode, registers exactly one
// send-completion callback and one receive callback, and adds the
// all-ones broadcast peer. Inbound frames are delivered by the driver on
// its own goroutine; the Adapter validates them with the wire codec and
// forwards decoded messages to a MessageSink. Nothing on the receive path
// returns an error to anyone: bad frames are logged and dropped.
//
// Drivers carrying frames over a shared medium (IP multicast, an MQTT
// broker, a serial or websocket bridge) wrap each frame in a Datagram so
// the source address and channel survive the trip.
