package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// stripeRing consistently maps keys onto stripe indexes. Each stripe owns
// replicas points of a murmur3 hash ring, and a key maps to the owner of the
// first point at or after its hash.
type stripeRing struct {
	points *treemap.Map
	first  int
}

func newStripeRing(stripes, replicas uint) *stripeRing {
	points := treemap.NewWith(utils.Int64Comparator)

	point := make([]byte, 8)
	for stripe := uint(0); stripe < stripes; stripe++ {
		for replica := uint(0); replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(point[:4], uint32(stripe))
			binary.LittleEndian.PutUint32(point[4:], uint32(replica))
			points.Put(hash(point), int(stripe))
		}
	}

	r := &stripeRing{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

func (r *stripeRing) stripe(key []byte) int {
	if _, stripe := r.points.Ceiling(hash(key)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hash(b []byte) int64 {
	h, _ := murmur3.Sum128(b)
	return int64(h)
}
