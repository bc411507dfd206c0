package sync

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Consistency(t *testing.T) {
	r := newRing(64, hashPointsPerStripe)
	other := newRing(64, hashPointsPerStripe)

	for i := 0; i < 512; i++ {
		key := []byte(fmt.Sprintf("account%d", i))
		stripe := r.shard(key)

		assert.True(t, stripe >= 0 && stripe < 64)
		assert.Equal(t, stripe, r.shard(key))
		assert.Equal(t, stripe, other.shard(key))
	}
}

func TestRing_Distribution(t *testing.T) {
	stripes := 5
	iterations := 200000
	expected := float64(iterations / stripes)

	r := newRing(stripes, hashPointsPerStripe)

	hits := make(map[int]int)
	for i := 0; i < iterations; i++ {
		hits[r.shard([]byte(fmt.Sprintf("key%d", i)))]++
	}

	assert.Len(t, hits, stripes)
	for _, count := range hits {
		assert.InDelta(t, expected, float64(count), 0.15*expected)
	}
}

func TestRing_SingleStripe(t *testing.T) {
	r := newRing(1, 1)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, r.shard([]byte(fmt.Sprintf("key%d", i))))
	}
}
