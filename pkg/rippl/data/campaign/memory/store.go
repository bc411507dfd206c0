package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
)

type ById []*campaign.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*campaign.Record
}

// New returns a new in memory campaign.Store
func New() campaign.Store {
	return &store{}
}

// Put implements campaign.Store.Put
func (s *store) Put(ctx context.Context, data *campaign.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data); item != nil {
		return campaign.ErrAlreadyExists
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

// Update implements campaign.Store.Update
func (s *store) Update(ctx context.Context, data *campaign.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(data.Address)
	if item == nil {
		return campaign.ErrNotFound
	}
	if item.Version != data.Version {
		return campaign.ErrStaleVersion
	}

	previous := item.Clone()

	item.Description = data.Description
	item.ImageUrl = data.ImageUrl
	item.IsUrgent = data.IsUrgent
	item.RaisedAmount = data.RaisedAmount
	item.DonorsCount = data.DonorsCount
	item.EndDate = data.EndDate
	item.Status = data.Status
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

// GetByAddress implements campaign.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByAddress(address)
	if item == nil {
		return nil, campaign.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetByVault implements campaign.Store.GetByVault
func (s *store) GetByVault(_ context.Context, vault string) (*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Vault == vault {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, campaign.ErrNotFound
}

// GetAllByAuthority implements campaign.Store.GetAllByAuthority
func (s *store) GetAllByAuthority(_ context.Context, authority string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findBy(func(item *campaign.Record) bool {
		return item.Authority == authority
	})
	return s.page(items, cursor, limit, direction)
}

// GetAllByStatus implements campaign.Store.GetAllByStatus
func (s *store) GetAllByStatus(_ context.Context, status campaign.Status, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findBy(func(item *campaign.Record) bool {
		return item.Status == status
	})
	return s.page(items, cursor, limit, direction)
}

// GetAllByCategory implements campaign.Store.GetAllByCategory
func (s *store) GetAllByCategory(_ context.Context, category campaign.Category, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findBy(func(item *campaign.Record) bool {
		return item.Category == category
	})
	return s.page(items, cursor, limit, direction)
}

// GetAllActiveEndedBefore implements campaign.Store.GetAllActiveEndedBefore
func (s *store) GetAllActiveEndedBefore(_ context.Context, unixTs int64, limit uint64) ([]*campaign.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findBy(func(item *campaign.Record) bool {
		return item.Status == campaign.StatusActive && item.EndDate < unixTs
	})
	if len(items) == 0 {
		return nil, campaign.ErrNotFound
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EndDate < items[j].EndDate
	})

	if uint64(len(items)) > limit {
		items = items[:limit]
	}
	return cloneSlice(items), nil
}

// CountByStatus implements campaign.Store.CountByStatus
func (s *store) CountByStatus(_ context.Context, status campaign.Status) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findBy(func(item *campaign.Record) bool {
		return item.Status == status
	})
	return uint64(len(items)), nil
}

func (s *store) find(data *campaign.Record) *campaign.Record {
	for _, item := range s.records {
		if item.Address == data.Address {
			return item
		}

		if item.Vault == data.Vault {
			return item
		}
	}

	return nil
}

func (s *store) findByAddress(address string) *campaign.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}

	return nil
}

func (s *store) findBy(predicate func(*campaign.Record) bool) []*campaign.Record {
	var res []*campaign.Record
	for _, item := range s.records {
		if predicate(item) {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) remove(address string) {
	for i, item := range s.records {
		if item.Address == address {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *store) page(items []*campaign.Record, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*campaign.Record, error) {
	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, campaign.ErrNotFound
	}
	return cloneSlice(res), nil
}

func (s *store) filter(items []*campaign.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*campaign.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*campaign.Record
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

func cloneSlice(items []*campaign.Record) []*campaign.Record {
	var res []*campaign.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}
