package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rippl-labs/rippl-server/pkg/database/memory"
	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/pointer"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

type ById []*event.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*event.Record
}

// New returns a new in memory event.Store
func New() event.Store {
	return &store{}
}

// Put implements event.Store.Put
func (s *store) Put(ctx context.Context, data *event.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(data); item != nil {
		return event.ErrAlreadyExists
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
		s.remove(cloned.EventId)
	})

	return nil
}

// Update implements event.Store.Update
func (s *store) Update(ctx context.Context, data *event.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByEventId(data.EventId)
	if item == nil {
		return event.ErrNotFound
	}

	previous := item.Clone()

	item.Attempts = data.Attempts
	item.State = data.State
	item.NextAttemptAt = pointer.Copy(data.NextAttemptAt)

	item.CopyTo(data)

	memory.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if item := s.findByEventId(previous.EventId); item != nil {
			previous.CopyTo(item)
		}
	})

	return nil
}

// Get implements event.Store.Get
func (s *store) Get(_ context.Context, eventId string) (*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findByEventId(eventId)
	if item == nil {
		return nil, event.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAllBySignature implements event.Store.GetAllBySignature
func (s *store) GetAllBySignature(_ context.Context, signature string) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*event.Record
	for _, item := range s.records {
		if item.Signature == signature {
			res = append(res, item)
		}
	}

	if len(res) == 0 {
		return nil, event.ErrNotFound
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Index < res[j].Index
	})
	return cloneSlice(res), nil
}

// GetAll implements event.Store.GetAll
func (s *store) GetAll(_ context.Context, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.filter(s.records, cursor, limit, direction)
	if len(res) == 0 {
		return nil, event.ErrNotFound
	}
	return cloneSlice(res), nil
}

// CountByState implements event.Store.CountByState
func (s *store) CountByState(_ context.Context, state event.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByState(state)
	return uint64(len(items)), nil
}

// GetAllPendingReadyToSend implements event.Store.GetAllPendingReadyToSend
func (s *store) GetAllPendingReadyToSend(_ context.Context, limit uint64) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByState(event.StatePending)
	items = s.filterNextAttemptBeforeOrAt(items, time.Now())

	if len(items) == 0 {
		return nil, event.ErrNotFound
	} else if uint64(len(items)) > limit {
		items = items[:limit]
	}
	return cloneSlice(items), nil
}

func (s *store) find(data *event.Record) *event.Record {
	for _, item := range s.records {
		if item.EventId == data.EventId {
			return item
		}

		if item.Signature == data.Signature && item.Index == data.Index {
			return item
		}
	}

	return nil
}

func (s *store) findByEventId(eventId string) *event.Record {
	for _, item := range s.records {
		if item.EventId == eventId {
			return item
		}
	}

	return nil
}

func (s *store) findByState(state event.State) []*event.Record {
	var res []*event.Record

	for _, item := range s.records {
		if item.State == state {
			res = append(res, item)
		}
	}

	return res
}

func (s *store) filterNextAttemptBeforeOrAt(items []*event.Record, ts time.Time) []*event.Record {
	var res []*event.Record

	for _, item := range items {
		if item.NextAttemptAt != nil && item.NextAttemptAt.Compare(ts) <= 0 {
			res = append(res, item)
		}
	}

	return res
}

func (s *store) remove(eventId string) {
	for i, item := range s.records {
		if item.EventId == eventId {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *store) filter(items []*event.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*event.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*event.Record
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

func cloneSlice(items []*event.Record) []*event.Record {
	var res []*event.Record
	for _, item := range items {
		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res
}
