package query

import (
	"github.com/pkg/errors"
)

// Ordering is the direction records are returned in, by id
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

// ToOrdering parses "asc" or "desc"
func ToOrdering(val string) (Ordering, error) {
	switch val {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return 0, errors.Errorf("unexpected ordering: %q", val)
	}
}

func (o Ordering) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}
