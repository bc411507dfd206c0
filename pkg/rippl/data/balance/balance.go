package balance

import (
	"time"

	"github.com/pkg/errors"
)

// Record is the lamport balance held at an address. Wallets, vaults and data
// accounts all carry one.
type Record struct {
	Id uint64

	Address  string
	Lamports uint64

	Version uint64
	Slot    uint64

	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Address:  r.Address,
		Lamports: r.Lamports,

		Version: r.Version,
		Slot:    r.Slot,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Lamports = r.Lamports

	dst.Version = r.Version
	dst.Slot = r.Slot

	dst.LastUpdatedAt = r.LastUpdatedAt
}
