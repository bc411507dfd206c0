package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring mapping keys onto stripe indexes. Each stripe
// is placed on the ring replicas times to even out the distribution.
type ring struct {
	points *treemap.Map

	// first is the stripe at the lowest point, which keys hashing past the
	// highest point wrap around to
	first int
}

func newRing(stripes int, replicas int) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	seed := make([]byte, 12)
	for stripe := 0; stripe < stripes; stripe++ {
		binary.LittleEndian.PutUint64(seed, uint64(stripe))
		for replica := 0; replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(seed[8:], uint32(replica))
			points.Put(hashKey(seed), stripe)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// shard returns the stripe owning the first point at or after the key's hash
func (r *ring) shard(key []byte) int {
	if _, stripe := r.points.Ceiling(hashKey(key)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hashKey(key []byte) int64 {
	h, _ := murmur3.Sum128(key)
	return int64(h)
}
