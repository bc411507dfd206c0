package runtime

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
	sync_util "github.com/rippl-labs/rippl-server/pkg/sync"
)

// ExpireCampaign moves an Active campaign whose end date has passed to
// Expired. The change is committed like a transaction, but isn't recorded as
// one. A campaign that isn't eligible returns a Result with an instruction
// error.
func (p *Processor) ExpireCampaign(ctx context.Context, address string) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ExpireCampaign")
	defer tracer.End()

	log := p.log.WithFields(logrus.Fields{
		"method":   "ExpireCampaign",
		"campaign": address,
	})

	key, err := base58.Decode(address)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid campaign address %s", address)
	}

	unlock := p.accountLocks.LockAll(sync_util.KeyLock{Key: key, Exclusive: true})
	defer unlock()

	loaded, err := loadAccount(ctx, p.data, key)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	if loaded.info.Campaign == nil {
		return nil, campaign.ErrNotFound
	}
	loaded.info.IsWritable = true

	slot, err := p.nextSlot(ctx, false)
	if err != nil {
		return nil, err
	}
	now := p.now()

	result := &Result{
		Signature: fmt.Sprintf("expire-%s-%d", address, slot),
		Slot:      slot,
	}

	pctx := &program.Context{
		Signature:     result.Signature,
		Slot:          slot,
		UnixTimestamp: now.Unix(),
	}
	if err := program.ExpireCampaign(pctx, loaded.info); err != nil {
		converted, ok := program.ToInstructionError(err)
		if !ok {
			tracer.OnError(err)
			return nil, err
		}
		result.Err = solana.NewInstructionError(0, converted)
		return result, nil
	}
	result.Events = pctx.Events()

	eventRecords, err := p.toEventRecords(ctx, result.Signature, slot, result.Events, now)
	if err != nil {
		return nil, err
	}

	err = p.data.ExecuteInTx(ctx, sql.LevelDefault, func(ctx context.Context) error {
		if err := commitAccount(ctx, p.data, loaded, slot, now); err != nil {
			return err
		}

		for _, eventRecord := range eventRecords {
			if err := p.data.CreateEvent(ctx, eventRecord); err != nil {
				return errors.Wrap(err, "error creating event")
			}
		}
		return nil
	})
	if err == errConflict {
		return failed(solana.TransactionErrorAccountInUse), nil
	} else if err != nil {
		log.WithError(err).Warn("failure committing campaign expiry")
		tracer.OnError(err)
		return nil, err
	}

	log.Debug("campaign expired")
	return result, nil
}

// Airdrop credits lamports to address from the faucet. It's only available
// when enabled by config, and is recorded as a system transfer paid by the
// faucet.
func (p *Processor) Airdrop(ctx context.Context, address string, lamports uint64) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Airdrop")
	defer tracer.End()

	if !p.conf.airdropEnabled.Get(ctx) {
		return nil, ErrAirdropDisabled
	}
	if lamports == 0 || lamports > p.conf.maxAirdropLamports.Get(ctx) {
		return nil, ErrAirdropLimitExceeded
	}

	key, err := base58.Decode(address)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, ErrInvalidAirdropAddress
	}

	faucet := p.faucet.Public().(ed25519.PublicKey)
	txn := solana.NewTransaction(faucet, system.Transfer(faucet, key, lamports))

	var blockhash solana.Blockhash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return nil, errors.Wrap(err, "error generating blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(p.faucet); err != nil {
		return nil, errors.Wrap(err, "error signing airdrop")
	}
	raw := txn.Marshal()

	unlock := p.accountLocks.LockAll(sync_util.KeyLock{Key: key, Exclusive: true})
	defer unlock()

	loaded, err := loadAccount(ctx, p.data, key)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	if loaded.info.Executable {
		return nil, ErrInvalidAirdropAddress
	}
	if loaded.info.Lamports+lamports < loaded.info.Lamports {
		return nil, ErrAirdropLimitExceeded
	}
	loaded.info.Lamports += lamports

	slot, err := p.nextSlot(ctx, false)
	if err != nil {
		return nil, err
	}
	now := p.now()

	result := &Result{
		Signature: base58.Encode(txn.Signature()),
		Slot:      slot,
	}

	err = p.data.ExecuteInTx(ctx, sql.LevelDefault, func(ctx context.Context) error {
		if err := commitAccount(ctx, p.data, loaded, slot, now); err != nil {
			return err
		}

		return p.data.SaveTransaction(ctx, &transaction.Record{
			Signature:         result.Signature,
			Slot:              slot,
			BlockTime:         now,
			FeePayer:          base58.Encode(faucet),
			Data:              raw,
			ConfirmationState: transaction.ConfirmationFinalized,
			CreatedAt:         now,
		})
	})
	if err == errConflict {
		return failed(solana.TransactionErrorAccountInUse), nil
	} else if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"method":   "Airdrop",
		"address":  address,
		"lamports": lamports,
	}).Debug("airdrop credited")
	return result, nil
}
