package link

import "sync"

// Callbacks holds the callback slots and the peer table of a driver.
// Drivers embed it to implement the registration half of Driver.
type Callbacks struct {
	lock   sync.RWMutex
	sendCb SendCallback
	recvCb RecvCallback
	peers  map[HardwareAddr]Peer
}

// RegisterSendCallback implements Driver. A later call replaces the callback.
func (c *Callbacks) RegisterSendCallback(cb SendCallback) error {
	c.lock.Lock()
	c.sendCb = cb
	c.lock.Unlock()
	return nil
}

// RegisterRecvCallback implements Driver. A later call replaces the callback.
func (c *Callbacks) RegisterRecvCallback(cb RecvCallback) error {
	c.lock.Lock()
	c.recvCb = cb
	c.lock.Unlock()
	return nil
}

// AddPeer implements Driver.
func (c *Callbacks) AddPeer(p Peer) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.peers == nil {
		c.peers = make(map[HardwareAddr]Peer)
	}
	if _, ok := c.peers[p.Addr]; ok {
		return ErrPeerExists
	}
	c.peers[p.Addr] = p
	return nil
}

// LookupPeer finds a peer by address.
func (c *Callbacks) LookupPeer(addr HardwareAddr) (Peer, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	p, ok := c.peers[addr]
	return p, ok
}

// PeerCount returns the size of the peer table.
func (c *Callbacks) PeerCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.peers)
}

// Listens tells whether a frame on the channel addressed to dst is for us.
// Broadcast frames are accepted on channels a broadcast peer is registered on.
func (c *Callbacks) Listens(local, dst HardwareAddr, channel uint8) bool {
	if dst == local {
		return true
	}
	if !dst.IsBroadcast() {
		return false
	}
	p, ok := c.LookupPeer(BroadcastAddr)
	return ok && p.Channel == channel
}

// Deliver invokes the receive callback if registered.
func (c *Callbacks) Deliver(info RecvInfo, frame []byte) {
	c.lock.RLock()
	cb := c.recvCb
	c.lock.RUnlock()
	if cb != nil {
		cb(info, frame)
	}
}

// Complete invokes the send callback if registered.
func (c *Callbacks) Complete(dst HardwareAddr, status SendStatus) {
	c.lock.RLock()
	cb := c.sendCb
	c.lock.RUnlock()
	if cb != nil {
		cb(dst, status)
	}
}
