package sync

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripeRing(t *testing.T) {
	r := newStripeRing(8, 200)

	counts := make(map[int]int)
	for i := 0; i < 10_000; i++ {
		key := []byte(fmt.Sprintf("account%d", i))

		stripe := r.stripe(key)
		assert.Equal(t, stripe, r.stripe(key))
		counts[stripe]++
	}

	// Every stripe gets a reasonable share of the key space
	assert.Len(t, counts, 8)
	for stripe, count := range counts {
		assert.Greater(t, count, 500, "stripe %d", stripe)
	}

	// Adding stripes only moves keys onto the new stripes
	grown := newStripeRing(9, 200)
	for i := 0; i < 1_000; i++ {
		key := []byte(fmt.Sprintf("account%d", i))
		if stripe := grown.stripe(key); stripe != 8 {
			assert.Equal(t, r.stripe(key), stripe)
		}
	}
}
