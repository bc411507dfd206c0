package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
)

type ById []*donation.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*donation.Record
}

// New returns a new in memory donation.Store
func New() donation.Store {
	return &store{}
}

// Put implements donation.Store.Put
func (s *store) Put(ctx context.Context, data *donation.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data); item != nil {
		return donation.ErrAlreadyExists
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
		for i, item := range s.records {
			if item.Address == cloned.Address {
				s.records = append(s.records[:i], s.records[i+1:]...)
				return
			}
		}
	})

	return nil
}

// GetByAddress implements donation.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*donation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Address == address {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, donation.ErrNotFound
}

// GetAllByCampaign implements donation.Store.GetAllByCampaign
func (s *store) GetAllByCampaign(_ context.Context, campaign string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*donation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.filter(s.findByCampaign(campaign), cursor, limit, direction)
	if len(res) == 0 {
		return nil, donation.ErrNotFound
	}
	return cloneSlice(res), nil
}

// GetAllByDonor implements donation.Store.GetAllByDonor
func (s *store) GetAllByDonor(_ context.Context, donor string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*donation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*donation.Record
	for _, item := range s.records {
		if item.Donor == donor {
			items = append(items, item)
		}
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, donation.ErrNotFound
	}
	return cloneSlice(res), nil
}

// CountByCampaign implements donation.Store.CountByCampaign
func (s *store) CountByCampaign(_ context.Context, campaign string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.findByCampaign(campaign))), nil
}

// GetTotalAmountByCampaign implements donation.Store.GetTotalAmountByCampaign
func (s *store) GetTotalAmountByCampaign(_ context.Context, campaign string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res uint64
	for _, item := range s.findByCampaign(campaign) {
		res += item.Amount
	}
	return res, nil
}

func (s *store) find(data *donation.Record) *donation.Record {
	for _, item := range s.records {
		if item.Address == data.Address {
			return item
		}

		if item.Campaign == data.Campaign && item.Sequence == data.Sequence {
			return item
		}
	}

	return nil
}

func (s *store) findByCampaign(campaign string) []*donation.Record {
	var res []*donation.Record
	for _, item := range s.records {
		if item.Campaign == campaign {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*donation.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*donation.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*donation.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
	s.records = nil
}

func cloneSlice(items []*donation.Record) []*donation.Record {
	var res []*donation.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}
