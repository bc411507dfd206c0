package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"database/sql"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
	sync_util "github.com/rippl-labs/rippl-server/pkg/sync"
)

const (
	metricsStructName = "runtime.processor"

	transactionProcessedEventName = "RipplTransactionProcessed"
)

var (
	ErrAirdropDisabled       = errors.New("airdrops are disabled")
	ErrAirdropLimitExceeded  = errors.New("airdrop exceeds the maximum amount")
	ErrInvalidAirdropAddress = errors.New("invalid airdrop address")
)

var (
	errUnbalancedInstruction    = program.BuiltinError("UnbalancedInstruction")
	errReadonlyLamportChange    = program.BuiltinError(solana.InstructionErrorReadonlyLamportChange)
	errReadonlyDataModified     = program.BuiltinError(solana.InstructionErrorReadonlyDataModified)
	errInvalidInstructionData   = program.BuiltinError(solana.InstructionErrorInvalidInstructionData)
	errInvalidArgument          = program.BuiltinError(solana.InstructionErrorInvalidArgument)
	errMissingRequiredSignature = program.BuiltinError(solana.InstructionErrorMissingRequiredSignature)
)

// Result is the outcome of a transaction that was accepted for processing.
// Err is set when the transaction failed, in which case only the fee, if any,
// was committed.
type Result struct {
	Signature string
	Slot      uint64
	Fee       uint64
	Err       *solana.TransactionError
	Events    []program.Event
}

// Processor executes rippl transactions against the account state in the
// database. Each transaction commits atomically, or not at all.
type Processor struct {
	log  *logrus.Entry
	conf *conf
	data data.DatabaseData

	accountLocks *sync_util.StripedLock

	slotMu     sync.Mutex
	slot       uint64
	slotLoaded bool
	faucet     ed25519.PrivateKey
	now        func() time.Time
}

func NewProcessor(data data.DatabaseData, configProvider ConfigProvider) (*Processor, error) {
	_, faucet, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating faucet key")
	}

	return &Processor{
		log:          logrus.StandardLogger().WithField("type", "rippl/runtime/processor"),
		conf:         configProvider(),
		data:         data,
		accountLocks: sync_util.NewStripedLock(1024),
		faucet:       faucet,
		now:          time.Now,
	}, nil
}

// Process executes a wire encoded transaction and commits its outcome
func (p *Processor) Process(ctx context.Context, raw []byte) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Process")
	defer tracer.End()

	result, err := p.execute(ctx, raw, false)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	p.recordResult(ctx, result)
	return result, nil
}

// Simulate executes a wire encoded transaction without committing anything.
// Signatures are not verified and replays are allowed.
func (p *Processor) Simulate(ctx context.Context, raw []byte) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Simulate")
	defer tracer.End()

	result, err := p.execute(ctx, raw, true)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return result, nil
}

func (p *Processor) execute(ctx context.Context, raw []byte, simulate bool) (*Result, error) {
	log := p.log.WithField("method", "execute")

	if len(raw) > solana.MaxTransactionSize {
		return failed(solana.TransactionErrorSanitizeFailure), nil
	}

	var txn solana.Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return failed(solana.TransactionErrorSanitizeFailure), nil
	}
	if hasDuplicateAccounts(txn.Message.Accounts) {
		return failed(solana.TransactionErrorAccountLoadedTwice), nil
	}
	if err := txn.Message.Sanitize(); err != nil {
		return failed(solana.TransactionErrorSanitizeFailure), nil
	}
	if len(txn.Signatures) == 0 {
		return failed(solana.TransactionErrorMissingSignatureForFee), nil
	}
	if !simulate {
		if err := txn.Verify(); err != nil {
			return failed(solana.TransactionErrorSignatureFailure), nil
		}
	}

	signature := base58.Encode(txn.Signature())
	log = log.WithField("signature", signature)

	for _, instruction := range txn.Message.Instructions {
		if !isProgram(txn.Message.Accounts[instruction.ProgramIndex]) {
			return failed(solana.TransactionErrorProgramAccountNotFound), nil
		}
	}

	keyLocks := make([]sync_util.KeyLock, len(txn.Message.Accounts))
	for i, account := range txn.Message.Accounts {
		keyLocks[i] = sync_util.KeyLock{
			Key:       account,
			Exclusive: txn.Message.IsWritable(i),
		}
	}
	unlock := p.accountLocks.LockAll(keyLocks...)
	defer unlock()

	if !simulate {
		_, err := p.data.GetTransaction(ctx, signature)
		if err == nil {
			return failed(solana.TransactionErrorDuplicateSignature), nil
		} else if err != transaction.ErrNotFound {
			log.WithError(err).Warn("failure checking for duplicate signature")
			return nil, err
		}
	}

	accounts := make([]*loadedAccount, len(txn.Message.Accounts))
	for i, key := range txn.Message.Accounts {
		loaded, err := loadAccount(ctx, p.data, key)
		if err != nil {
			log.WithError(err).Warn("failure loading account")
			return nil, err
		}
		loaded.info.IsSigner = txn.Message.IsSigner(i)
		loaded.info.IsWritable = txn.Message.IsWritable(i) && !loaded.info.Executable
		accounts[i] = loaded
	}

	payer := accounts[0].info
	fee := uint64(len(txn.Signatures)) * system.LamportsPerSignature
	if payer.Lamports == 0 && accounts[0].balanceVersion == 0 {
		return failed(solana.TransactionErrorAccountNotFound), nil
	}
	if payer.Lamports < fee {
		return failed(solana.TransactionErrorInsufficientFundsForFee), nil
	}
	payer.Lamports -= fee

	slot, err := p.nextSlot(ctx, simulate)
	if err != nil {
		return nil, err
	}
	now := p.now()

	result := &Result{
		Signature: signature,
		Slot:      slot,
		Fee:       fee,
	}

	// Failed transactions still pay the fee, so every account is reset to
	// its post fee state on failure
	postFee := make([]*accountSnapshot, len(accounts))
	for i, account := range accounts {
		if postFee[i], err = takeSnapshot(account.info); err != nil {
			return nil, err
		}
	}

	pctx := &program.Context{
		Signature:     signature,
		Slot:          slot,
		UnixTimestamp: now.Unix(),
	}
	for i, instruction := range txn.Message.Instructions {
		instructionErr, err := p.executeInstruction(pctx, &txn.Message, i, instruction, accounts)
		if err != nil {
			log.WithError(err).Warnf("failure executing instruction %d", i)
			return nil, err
		}
		if instructionErr != nil {
			result.Err = solana.NewInstructionError(i, instructionErr)
			break
		}
	}

	if result.Err != nil {
		for i, account := range accounts {
			postFee[i].restore(account.info)
		}
	} else {
		result.Events = pctx.Events()
	}

	if simulate {
		return result, nil
	}

	err = p.commit(ctx, &txn, raw, accounts, result, now)
	switch err {
	case nil:
	case errConflict:
		return failed(solana.TransactionErrorAccountInUse), nil
	case transaction.ErrAlreadyExists:
		return failed(solana.TransactionErrorDuplicateSignature), nil
	default:
		log.WithError(err).Warn("failure committing transaction")
		return nil, err
	}

	return result, nil
}

// executeInstruction runs a single instruction. A non-nil instruction error
// fails the transaction, while a non-nil error is an infrastructure failure.
func (p *Processor) executeInstruction(
	ctx *program.Context,
	message *solana.Message,
	index int,
	instruction solana.CompiledInstruction,
	accounts []*loadedAccount,
) (instructionErr error, err error) {
	infos := make([]*program.AccountInfo, len(instruction.Accounts))
	for i, accountIndex := range instruction.Accounts {
		infos[i] = accounts[accountIndex].info
	}

	before := make([]*accountSnapshot, len(accounts))
	for i, account := range accounts {
		if before[i], err = takeSnapshot(account.info); err != nil {
			return nil, err
		}
	}

	programKey := message.Accounts[instruction.ProgramIndex]
	if bytes.Equal(programKey, program.SYSTEM_PROGRAM_ID) {
		err = executeSystemInstruction(message, index, infos)
	} else {
		err = program.Process(ctx, instruction.Data, infos)
	}
	if err != nil {
		converted, ok := program.ToInstructionError(err)
		if !ok {
			return nil, errors.Wrapf(err, "error processing %s instruction", program.InstructionName(instruction.Data))
		}
		return converted, nil
	}

	var lamportsBefore, lamportsAfter uint64
	for i, account := range accounts {
		info := account.info
		lamportsBefore += before[i].lamports
		lamportsAfter += info.Lamports

		if info.IsWritable {
			continue
		}

		if info.Lamports != before[i].lamports {
			return errReadonlyLamportChange, nil
		}

		encoded, err := accountData(info)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(encoded, before[i].data) {
			return errReadonlyDataModified, nil
		}
	}
	if lamportsBefore != lamportsAfter {
		return errUnbalancedInstruction, nil
	}

	return nil, nil
}

// executeSystemInstruction supports the system program's Transfer, which
// moves lamports between wallets
func executeSystemInstruction(message *solana.Message, index int, infos []*program.AccountInfo) error {
	decompiled, err := system.DecompileTransfer(*message, index)
	if err != nil {
		return errInvalidInstructionData
	}
	if len(infos) != 2 {
		return errInvalidInstructionData
	}
	from, to := infos[0], infos[1]

	if !from.IsSigner {
		return errMissingRequiredSignature
	}
	if from.HasData() || from.Executable {
		return errInvalidArgument
	}
	if from.Lamports < decompiled.Lamports {
		return program.ErrSystemInsufficientFunds
	}
	if to.Lamports > math.MaxUint64-decompiled.Lamports {
		return program.ErrBuiltinArithmeticOverflow
	}

	from.Lamports -= decompiled.Lamports
	to.Lamports += decompiled.Lamports
	return nil
}

func (p *Processor) commit(
	ctx context.Context,
	txn *solana.Transaction,
	raw []byte,
	accounts []*loadedAccount,
	result *Result,
	now time.Time,
) error {
	record := &transaction.Record{
		Signature:         result.Signature,
		Slot:              result.Slot,
		BlockTime:         now,
		FeePayer:          base58.Encode(txn.Message.Accounts[0]),
		Fee:               result.Fee,
		Data:              raw,
		ConfirmationState: transaction.ConfirmationFinalized,
		CreatedAt:         now,
	}
	if result.Err != nil {
		encoded, err := result.Err.JSONString()
		if err != nil {
			return errors.Wrap(err, "error encoding transaction error")
		}
		record.ConfirmationState = transaction.ConfirmationFailed
		record.Error = []byte(encoded)
	}

	eventRecords, err := p.toEventRecords(ctx, result.Signature, result.Slot, result.Events, now)
	if err != nil {
		return err
	}

	return p.data.ExecuteInTx(ctx, sql.LevelDefault, func(ctx context.Context) error {
		for _, account := range accounts {
			if err := commitAccount(ctx, p.data, account, result.Slot, now); err != nil {
				return err
			}
		}

		for _, eventRecord := range eventRecords {
			if err := p.data.CreateEvent(ctx, eventRecord); err != nil {
				return errors.Wrap(err, "error creating event")
			}
		}

		return p.data.SaveTransaction(ctx, record)
	})
}

func (p *Processor) toEventRecords(ctx context.Context, signature string, slot uint64, events []program.Event, now time.Time) ([]*event.Record, error) {
	if len(events) > math.MaxUint8+1 {
		return nil, errors.Errorf("too many events: %d", len(events))
	}

	relayEnabled := p.conf.relayEnabled.Get(ctx)

	records := make([]*event.Record, len(events))
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Wrap(err, "error encoding event payload")
		}

		record := &event.Record{
			EventId:   uuid.New().String(),
			Type:      e.Type(),
			Signature: signature,
			Index:     uint8(i),
			Slot:      slot,
			Payload:   payload,
			State:     event.StateUnknown,
			CreatedAt: now,
		}
		if relayEnabled {
			nextAttemptAt := now
			record.State = event.StatePending
			record.NextAttemptAt = &nextAttemptAt
		}
		records[i] = record
	}
	return records, nil
}

// nextSlot advances the slot counter, seeding it from the latest recorded
// transaction on first use. Simulations observe the next slot without
// consuming it.
func (p *Processor) nextSlot(ctx context.Context, simulate bool) (uint64, error) {
	p.slotMu.Lock()
	defer p.slotMu.Unlock()

	if !p.slotLoaded {
		latest, err := p.data.GetLatestSlot(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "error getting latest slot")
		}
		p.slot = latest
		p.slotLoaded = true
	}

	if simulate {
		return p.slot + 1, nil
	}

	p.slot++
	return p.slot, nil
}

// CurrentSlot returns the last slot assigned to a transaction
// LockAccountsForRead waits for in-flight transactions writing to any of keys
// to finish, and keeps new writers out until unlock is called.
func (p *Processor) LockAccountsForRead(keys ...ed25519.PublicKey) (unlock func()) {
	keyLocks := make([]sync_util.KeyLock, len(keys))
	for i, key := range keys {
		keyLocks[i] = sync_util.KeyLock{Key: key}
	}
	return p.accountLocks.LockAll(keyLocks...)
}

func (p *Processor) CurrentSlot(ctx context.Context) (uint64, error) {
	p.slotMu.Lock()
	loaded, slot := p.slotLoaded, p.slot
	p.slotMu.Unlock()

	if loaded {
		return slot, nil
	}
	return p.data.GetLatestSlot(ctx)
}

func (p *Processor) recordResult(ctx context.Context, result *Result) {
	status := "success"
	if result.Err != nil {
		status = string(result.Err.ErrorKey())
	}

	metrics.RecordEvent(ctx, transactionProcessedEventName, map[string]interface{}{
		"status": status,
		"events": len(result.Events),
	})
}

func failed(key solana.TransactionErrorKey) *Result {
	return &Result{
		Err: solana.NewTransactionError(key),
	}
}

func hasDuplicateAccounts(accounts []ed25519.PublicKey) bool {
	seen := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[string(account)]; ok {
			return true
		}
		seen[string(account)] = struct{}{}
	}
	return false
}
