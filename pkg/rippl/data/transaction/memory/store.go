package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
)

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*transaction.Record
}

// New returns a new in memory transaction.Store
func New() transaction.Store {
	return &store{}
}

// Put implements transaction.Store.Put
func (s *store) Put(ctx context.Context, data *transaction.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data.Signature); item != nil {
		return transaction.ErrAlreadyExists
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)

	memory.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(cloned.Signature)
	})

	return nil
}

// Get implements transaction.Store.Get
func (s *store) Get(_ context.Context, signature string) (*transaction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(signature)
	if item == nil {
		return nil, transaction.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetLatestSlot implements transaction.Store.GetLatestSlot
func (s *store) GetLatestSlot(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res uint64
	for _, item := range s.records {
		if item.Slot > res {
			res = item.Slot
		}
	}
	return res, nil
}

// CountByState implements transaction.Store.CountByState
func (s *store) CountByState(_ context.Context, state transaction.ConfirmationState) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res uint64
	for _, item := range s.records {
		if item.ConfirmationState == state {
			res++
		}
	}
	return res, nil
}

func (s *store) find(signature string) *transaction.Record {
	for _, item := range s.records {
		if item.Signature == signature {
			return item
		}
	}
	return nil
}

func (s *store) remove(signature string) {
	for i, item := range s.records {
		if item.Signature == signature {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
	s.records = nil
}
