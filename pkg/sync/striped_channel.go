package sync

import (
	"sync"
)

const hashEntriesPerChannel = 200

// StripedChannel fans values out over a fixed set of buffered channels. Values
// sent with the same key always land on the same channel, so a single reader
// per channel observes them in send order.
type StripedChannel struct {
	channels []chan interface{}
	ring     *stripeRing

	mu     sync.RWMutex
	closed bool
}

// NewStripedChannel returns a StripedChannel with count channels, each
// buffering up to queueSize values.
func NewStripedChannel(count, queueSize uint) *StripedChannel {
	channels := make([]chan interface{}, count)
	for i := range channels {
		channels[i] = make(chan interface{}, queueSize)
	}

	return &StripedChannel{
		channels: channels,
		ring:     newStripeRing(count, hashEntriesPerChannel),
	}
}

// GetChannels returns the receiving side of every stripe.
func (c *StripedChannel) GetChannels() []<-chan interface{} {
	receivers := make([]<-chan interface{}, 0, len(c.channels))
	for _, channel := range c.channels {
		receivers = append(receivers, channel)
	}
	return receivers
}

// Send queues value on the stripe owning key. It returns false instead of
// blocking when that stripe is full, or once the channel is closed.
func (c *StripedChannel) Send(key []byte, value interface{}) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.channels[c.ring.stripe(key)] <- value:
		return true
	default:
		return false
	}
}

// BlockingSend queues value on the stripe owning key, waiting for room. It
// returns false once the channel is closed. Close waits for blocked sends, so
// readers must keep draining until their stripe is closed.
func (c *StripedChannel) BlockingSend(key []byte, value interface{}) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	c.channels[c.ring.stripe(key)] <- value
	return true
}

// Close closes every stripe. It is safe to call more than once, and
// concurrently with sends.
func (c *StripedChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, channel := range c.channels {
		close(channel)
	}
}
