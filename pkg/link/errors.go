package link

import (
	"errors"
	"fmt"
)

var (
	// ErrPeerExists is returned by Driver.AddPeer when the peer is present.
	ErrPeerExists = errors.New("peer already exists")
	// ErrPeerNotFound indicates sending to an unregistered peer.
	ErrPeerNotFound = errors.New("peer not found")
	// ErrNotStarted indicates the driver or adapter is not started.
	ErrNotStarted = errors.New("not started")
	// ErrQueueFull indicates the driver can't accept more outgoing frames.
	ErrQueueFull = errors.New("send queue full")
	// ErrFrameTooLarge indicates the frame exceeds what the medium carries.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrClosed indicates the driver is closed.
	ErrClosed = errors.New("closed")
)

// Adapter initialization steps, reported in InitError.
const (
	StepStart        = "start"
	StepSendCallback = "register send callback"
	StepRecvCallback = "register recv callback"
	StepAddPeer      = "add broadcast peer"
)

// InitError is a fatal failure while bringing up the link.
type InitError struct {
	Step string
	Err  error
}

// Error implements error.
func (e *InitError) Error() string {
	return fmt.Sprintf("link init: %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}
