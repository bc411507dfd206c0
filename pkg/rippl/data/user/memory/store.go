package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
)

type ById []*user.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*user.Record
}

// New returns a new in memory user.Store
func New() user.Store {
	return &store{}
}

// Put implements user.Store.Put
func (s *store) Put(ctx context.Context, data *user.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data); item != nil {
		return user.ErrAlreadyExists
	}

	s.last++
	data.Id = s.last
	data.Version = 1
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	data.LastUpdatedAt = time.Now()

	cloned := data.Clone()
	s.records = append(s.records, &cloned)

	memory.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(cloned.Address)
	})

	return nil
}

// Update implements user.Store.Update
func (s *store) Update(ctx context.Context, data *user.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(data.Address)
	if item == nil {
		return user.ErrNotFound
	}
	if item.Version != data.Version {
		return user.ErrStaleVersion
	}

	previous := item.Clone()

	item.Name = data.Name
	item.Email = data.Email
	item.AvatarUrl = data.AvatarUrl
	item.TotalDonations = data.TotalDonations
	item.CampaignsSupported = data.CampaignsSupported
	item.ImpactMetrics = data.ImpactMetrics
	item.Badges = data.Clone().Badges
	item.Rank = data.Rank
	item.Slot = data.Slot
	item.Version++
	item.LastUpdatedAt = time.Now()

	item.CopyTo(data)

	memory.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if item := s.findByAddress(previous.Address); item != nil {
			previous.CopyTo(item)
		}
	})

	return nil
}

// GetByAddress implements user.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(address)
	if item == nil {
		return nil, user.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetByAuthority implements user.Store.GetByAuthority
func (s *store) GetByAuthority(_ context.Context, authority string) (*user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Authority == authority {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, user.ErrNotFound
}

// GetAll implements user.Store.GetAll
func (s *store) GetAll(_ context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.filter(s.records, cursor, limit, direction)
	if len(res) == 0 {
		return nil, user.ErrNotFound
	}
	return cloneSlice(res), nil
}

func (s *store) find(data *user.Record) *user.Record {
	for _, item := range s.records {
		if item.Address == data.Address {
			return item
		}

		if item.Authority == data.Authority {
			return item
		}
	}

	return nil
}

func (s *store) findByAddress(address string) *user.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}

	return nil
}

func (s *store) remove(address string) {
	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *store) filter(items []*user.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*user.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*user.Record
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

func cloneSlice(items []*user.Record) []*user.Record {
	var res []*user.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}
