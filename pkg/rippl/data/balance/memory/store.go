package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
)

type store struct {
	mu      sync.Mutex
	last    uint64
	records map[string]*balance.Record
}

// New returns a new in memory balance.Store
func New() balance.Store {
	return &store{
		records: make(map[string]*balance.Record),
	}
}

// Save implements balance.Store.Save
func (s *store) Save(ctx context.Context, data *balance.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[data.Address]
	if !ok {
		if data.Version != 0 {
			return balance.ErrStaleVersion
		}

		s.last++
		data.Id = s.last
		data.Version = 1
		data.LastUpdatedAt = time.Now()

		cloned := data.Clone()
		s.records[data.Address] = &cloned

		memory.OnRollback(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.records, cloned.Address)
		})

		return nil
	}

	if item.Version != data.Version {
		return balance.ErrStaleVersion
	}

	previous := item.Clone()

	item.Lamports = data.Lamports
	item.Slot = data.Slot
	item.Version++
	item.LastUpdatedAt = time.Now()

	item.CopyTo(data)

	memory.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if item, ok := s.records[previous.Address]; ok {
			previous.CopyTo(item)
		}
	})

	return nil
}

// Get implements balance.Store.Get
func (s *store) Get(_ context.Context, address string) (*balance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, balance.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetTotalLamports implements balance.Store.GetTotalLamports
func (s *store) GetTotalLamports(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res uint64
	for _, item := range s.records {
		res += item.Lamports
	}
	return res, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
	s.records = make(map[string]*balance.Record)
}
