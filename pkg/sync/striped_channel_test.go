package sync

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripedChannel_KeyAffinity(t *testing.T) {
	c := NewStripedChannel(16, 512)

	channels := c.GetChannels()
	require.Len(t, channels, 16)

	type delivery struct {
		key string
		seq int
	}

	var mu sync.Mutex
	keyToStripe := make(map[string]int)
	lastSeq := make(map[string]int)

	var wg sync.WaitGroup
	for stripe, channel := range channels {
		wg.Add(1)
		go func(stripe int, channel <-chan interface{}) {
			defer wg.Done()

			for value := range channel {
				d := value.(delivery)

				mu.Lock()
				if owner, ok := keyToStripe[d.key]; ok {
					assert.Equal(t, owner, stripe, "key %s moved stripes", d.key)
				}
				keyToStripe[d.key] = stripe

				assert.Equal(t, lastSeq[d.key]+1, d.seq, "key %s out of order", d.key)
				lastSeq[d.key] = d.seq
				mu.Unlock()
			}
		}(stripe, channel)
	}

	for seq := 1; seq <= 20; seq++ {
		for i := 0; i < 100; i++ {
			key := fmt.Sprintf("auction-house-%d", i)
			c.BlockingSend([]byte(key), delivery{key: key, seq: seq})
		}
	}

	c.Close()
	c.Close()
	wg.Wait()

	assert.Len(t, lastSeq, 100)
	for key, seq := range lastSeq {
		assert.Equal(t, 20, seq, key)
	}
}

func TestStripedChannel_FullStripe(t *testing.T) {
	c := NewStripedChannel(8, 4)
	defer c.Close()

	hot := []byte("hot")
	for i := 0; i < 4; i++ {
		require.True(t, c.Send(hot, i))
	}
	assert.False(t, c.Send(hot, 4))

	// Keys on other stripes are unaffected
	for i := 0; i < 64; i++ {
		other := []byte(fmt.Sprintf("cold-%d", i))
		if c.ring.stripe(other) != c.ring.stripe(hot) {
			assert.True(t, c.Send(other, i))
			return
		}
	}
	t.Fatal("no key found on another stripe")
}

func TestStripedChannel_SendAfterClose(t *testing.T) {
	c := NewStripedChannel(4, 4)
	c.Close()

	key := []byte("closed")
	assert.NotPanics(t, func() {
		assert.False(t, c.Send(key, 1))
		assert.False(t, c.BlockingSend(key, 2))
	})
}

func TestStripedChannel_ConcurrentSendAndClose(t *testing.T) {
	c := NewStripedChannel(4, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Send([]byte(fmt.Sprintf("key-%d", i)), j)
			}
		}(i)
	}

	assert.NotPanics(t, c.Close)
	wg.Wait()
}
