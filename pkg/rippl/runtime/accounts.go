package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
)

// errConflict is returned from a commit when another writer updated one of
// the accounts after it was loaded
var errConflict = errors.New("account was modified concurrently")

// loadedAccount tracks an account from load to commit
type loadedAccount struct {
	info *program.AccountInfo

	balanceVersion uint64
	loadedLamports uint64
	loadedData     []byte
}

func (a *loadedAccount) address() string {
	return a.info.Address()
}

func isProgram(key ed25519.PublicKey) bool {
	return bytes.Equal(key, program.PROGRAM_ID) || bytes.Equal(key, program.SYSTEM_PROGRAM_ID)
}

// loadAccount reads the lamports and typed data stored at key. Accounts
// that were never credited load as empty.
func loadAccount(ctx context.Context, db data.DatabaseData, key ed25519.PublicKey) (*loadedAccount, error) {
	loaded := &loadedAccount{
		info: &program.AccountInfo{Key: key},
	}

	if isProgram(key) {
		loaded.info.Executable = true
		return loaded, nil
	}

	address := base58.Encode(key)

	balanceRecord, err := db.GetBalance(ctx, address)
	switch err {
	case nil:
		loaded.balanceVersion = balanceRecord.Version
		loaded.info.Lamports = balanceRecord.Lamports
	case balance.ErrNotFound:
	default:
		return nil, errors.Wrapf(err, "error getting balance for %s", address)
	}
	loaded.loadedLamports = loaded.info.Lamports

	userRecord, err := db.GetUserByAddress(ctx, address)
	switch err {
	case nil:
		loaded.info.User = userRecord
	case user.ErrNotFound:
	default:
		return nil, errors.Wrapf(err, "error getting user for %s", address)
	}

	if !loaded.info.HasData() {
		campaignRecord, err := db.GetCampaignByAddress(ctx, address)
		switch err {
		case nil:
			loaded.info.Campaign = campaignRecord
		case campaign.ErrNotFound:
		default:
			return nil, errors.Wrapf(err, "error getting campaign for %s", address)
		}
	}

	if !loaded.info.HasData() {
		donationRecord, err := db.GetDonationByAddress(ctx, address)
		switch err {
		case nil:
			loaded.info.Donation = donationRecord
		case donation.ErrNotFound:
		default:
			return nil, errors.Wrapf(err, "error getting donation for %s", address)
		}
	}

	loaded.loadedData, err = accountData(loaded.info)
	if err != nil {
		return nil, err
	}

	return loaded, nil
}

// accountData is the on-chain encoding of the account's typed data, or nil
// when it holds none
func accountData(info *program.AccountInfo) ([]byte, error) {
	switch {
	case info.User != nil:
		return program.MarshalUserAccount(info.User)
	case info.Campaign != nil:
		return program.MarshalCampaignAccount(info.Campaign)
	case info.Donation != nil:
		return program.MarshalDonationAccount(info.Donation)
	}
	return nil, nil
}

// accountSnapshot captures the observable state of an account
type accountSnapshot struct {
	info     program.AccountInfo
	lamports uint64
	data     []byte
}

func takeSnapshot(info *program.AccountInfo) (*accountSnapshot, error) {
	encoded, err := accountData(info)
	if err != nil {
		return nil, err
	}

	cloned := *info
	if info.User != nil {
		record := info.User.Clone()
		cloned.User = &record
	}
	if info.Campaign != nil {
		record := info.Campaign.Clone()
		cloned.Campaign = &record
	}
	if info.Donation != nil {
		record := info.Donation.Clone()
		cloned.Donation = &record
	}

	return &accountSnapshot{
		info:     cloned,
		lamports: info.Lamports,
		data:     encoded,
	}, nil
}

// restore resets info to the snapshot without replacing the pointer shared
// by instructions
func (s *accountSnapshot) restore(info *program.AccountInfo) {
	restored := s.info
	restored.IsSigner = info.IsSigner
	restored.IsWritable = info.IsWritable
	*info = restored
}

// commitAccount persists every change made to the account since it was
// loaded. It must be called within a DB transaction.
func commitAccount(ctx context.Context, db data.DatabaseData, account *loadedAccount, slot uint64, now time.Time) error {
	info := account.info
	if info.Executable {
		return nil
	}

	if info.Lamports != account.loadedLamports {
		record := &balance.Record{
			Address:       account.address(),
			Lamports:      info.Lamports,
			Version:       account.balanceVersion,
			Slot:          slot,
			LastUpdatedAt: now,
		}
		err := db.SaveBalance(ctx, record)
		if err == balance.ErrStaleVersion {
			return errConflict
		} else if err != nil {
			return errors.Wrapf(err, "error saving balance for %s", account.address())
		}
	}

	encoded, err := accountData(info)
	if err != nil {
		return err
	}
	if bytes.Equal(encoded, account.loadedData) {
		return nil
	}
	created := len(account.loadedData) == 0

	switch {
	case info.User != nil:
		if created {
			err = db.CreateUser(ctx, info.User)
		} else {
			err = db.UpdateUser(ctx, info.User)
		}
		if err == user.ErrAlreadyExists || err == user.ErrStaleVersion {
			return errConflict
		}
	case info.Campaign != nil:
		if created {
			err = db.CreateCampaign(ctx, info.Campaign)
		} else {
			err = db.UpdateCampaign(ctx, info.Campaign)
		}
		if err == campaign.ErrAlreadyExists || err == campaign.ErrStaleVersion {
			return errConflict
		}
	case info.Donation != nil:
		if !created {
			return errors.Errorf("donation %s cannot be modified", account.address())
		}
		err = db.CreateDonation(ctx, info.Donation)
		if err == donation.ErrAlreadyExists {
			return errConflict
		}
	default:
		return errors.Errorf("data for %s cannot be removed", account.address())
	}

	if err != nil {
		return errors.Wrapf(err, "error saving data for %s", account.address())
	}
	return nil
}
