package sync

import (
	"sort"
	base "sync"
)

const hashPointsPerStripe = 200

// StripedLock maps an unbounded key space onto a fixed set of read/write
// locks, so memory stays constant no matter how many keys are locked.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

// KeyLock is a key to lock, and whether it needs exclusive access
type KeyLock struct {
	Key       []byte
	Exclusive bool
}

// NewStripedLock returns a StripedLock with a fixed number of stripes
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(int(stripes), hashPointsPerStripe),
	}
}

// Get returns the lock guarding key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.shard(key)]
}

// LockAll acquires the stripes for every key and returns a function releasing
// them. Stripes are deduplicated and taken in ascending order, so overlapping
// callers cannot deadlock. A stripe is write locked when any of its keys is
// exclusive.
func (l *StripedLock) LockAll(keys ...KeyLock) (unlock func()) {
	exclusive := make(map[int]bool, len(keys))
	for _, k := range keys {
		stripe := l.ring.shard(k.Key)
		exclusive[stripe] = exclusive[stripe] || k.Exclusive
	}

	stripes := make([]int, 0, len(exclusive))
	for stripe := range exclusive {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if exclusive[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			if exclusive[stripes[i]] {
				l.locks[stripes[i]].Unlock()
			} else {
				l.locks[stripes[i]].RUnlock()
			}
		}
	}
}
