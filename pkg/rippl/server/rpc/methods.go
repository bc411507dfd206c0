package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/rippl-labs/rippl-server/pkg/database/query"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/balance"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
	"github.com/rippl-labs/rippl-server/pkg/rippl/runtime"
	"github.com/rippl-labs/rippl-server/pkg/solana"
	"github.com/rippl-labs/rippl-server/pkg/solana/system"
)

const (
	encodingBase58 = "base58"
	encodingBase64 = "base64"

	accountTypeUser     = "user"
	accountTypeCampaign = "campaign"
	accountTypeDonation = "donation"

	blockhashValidSlots = 150
)

type sendTransactionConfig struct {
	Encoding      string `json:"encoding"`
	SkipPreflight bool   `json:"skipPreflight"`
}

type encodingConfig struct {
	Encoding string `json:"encoding"`
}

// parseParam decodes the positional parameter at index into out. Missing
// optional parameters leave out untouched.
func parseParam(params []json.RawMessage, index int, out interface{}, required bool) *Error {
	if index >= len(params) || bytes.Equal(bytes.TrimSpace(params[index]), []byte("null")) {
		if required {
			return newError(InvalidParamsCode, fmt.Sprintf("missing parameter at index %d", index))
		}
		return nil
	}

	if err := json.Unmarshal(params[index], out); err != nil {
		return newError(InvalidParamsCode, fmt.Sprintf("invalid parameter at index %d: %s", index, err.Error()))
	}
	return nil
}

func parseAddress(params []json.RawMessage, index int) (string, ed25519.PublicKey, *Error) {
	var address string
	if err := parseParam(params, index, &address, true); err != nil {
		return "", nil, err
	}

	key, err := base58.Decode(address)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return "", nil, newError(InvalidParamsCode, "invalid address")
	}
	return address, key, nil
}

func internalError(err error) *Error {
	return &Error{
		Code:    InternalErrorCode,
		Message: err.Error(),
	}
}

func transactionFailed(prefix, signature string, txErr *solana.TransactionError) *Error {
	return &Error{
		Code:    TransactionFailedCode,
		Message: fmt.Sprintf("%s: %s", prefix, txErr.Error()),
		Data: &TransactionErrorData{
			Err:          txErr.Raw(),
			Signature:    signature,
			ProgramError: toProgramError(txErr),
		},
	}
}

func (s *Server) currentContext(ctx context.Context) (Context, *Error) {
	slot, err := s.processor.CurrentSlot(ctx)
	if err != nil {
		return Context{}, internalError(err)
	}
	return Context{Slot: slot}, nil
}

func decodeTransaction(params []json.RawMessage) ([]byte, *sendTransactionConfig, *Error) {
	var encoded string
	if err := parseParam(params, 0, &encoded, true); err != nil {
		return nil, nil, err
	}

	config := &sendTransactionConfig{Encoding: encodingBase58}
	if err := parseParam(params, 1, config, false); err != nil {
		return nil, nil, err
	}

	var raw []byte
	var err error
	switch config.Encoding {
	case encodingBase58, "":
		raw, err = base58.Decode(encoded)
	case encodingBase64:
		raw, err = base64.StdEncoding.DecodeString(encoded)
	default:
		return nil, nil, newError(InvalidParamsCode, "unsupported encoding")
	}
	if err != nil {
		return nil, nil, newError(InvalidParamsCode, "invalid transaction encoding")
	}
	return raw, config, nil
}

// feePayer returns the account paying for the transaction, or nothing when the
// transaction cannot be decoded, in which case the runtime rejects it.
func feePayer(raw []byte) string {
	var txn solana.Transaction
	if err := txn.Unmarshal(raw); err != nil || len(txn.Message.Accounts) == 0 {
		return ""
	}
	return base58.Encode(txn.Message.Accounts[0])
}

func (s *Server) sendTransaction(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	raw, config, rpcErr := decodeTransaction(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if payer := feePayer(raw); len(payer) > 0 {
		allowed, err := s.sendLimiter.Allow(payer)
		if err != nil {
			return nil, internalError(err)
		}
		if !allowed {
			return nil, newError(RateLimitedCode, "too many requests for fee payer")
		}
	}

	if !config.SkipPreflight {
		simulated, err := s.processor.Simulate(ctx, raw)
		if err != nil {
			return nil, internalError(err)
		}
		if simulated.Err != nil {
			return nil, transactionFailed("Transaction simulation failed", "", simulated.Err)
		}
	}

	result, err := s.processor.Process(ctx, raw)
	if err != nil {
		return nil, internalError(err)
	}
	if result.Err != nil {
		return nil, transactionFailed("Transaction failed", result.Signature, result.Err)
	}
	return result.Signature, nil
}

func (s *Server) simulateTransaction(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	raw, _, rpcErr := decodeTransaction(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	result, err := s.processor.Simulate(ctx, raw)
	if err != nil {
		return nil, internalError(err)
	}

	value := SimulationValue{
		Fee:    result.Fee,
		Events: toEventViews(result.Events),
	}
	if result.Err != nil {
		value.Err = result.Err.Raw()
	}
	return &SimulationResult{
		Context: Context{Slot: result.Slot},
		Value:   value,
	}, nil
}

// loadAccountView reads the current lamports and data stored at address. It
// returns nil when nothing is stored there.
func (s *Server) loadAccountView(ctx context.Context, address string, key ed25519.PublicKey) (*AccountView, *Error) {
	if bytes.Equal(key, program.PROGRAM_ID) || bytes.Equal(key, program.SYSTEM_PROGRAM_ID) {
		return &AccountView{
			LamportsSol: toSol(0),
			Owner:       base58.Encode(program.SYSTEM_PROGRAM_ID),
			Executable:  true,
			Data:        encodeBase64(nil),
		}, nil
	}

	unlock := s.processor.LockAccountsForRead(key)
	defer unlock()

	var lamports uint64
	balanceRecord, err := s.data.GetBalance(ctx, address)
	switch err {
	case nil:
		lamports = balanceRecord.Lamports
	case balance.ErrNotFound:
	default:
		return nil, internalError(err)
	}

	parsed, encoded, rpcErr := s.loadParsedRecord(ctx, address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if lamports == 0 && parsed == nil {
		return nil, nil
	}
	return newAccountView(lamports, parsed, encoded), nil
}

func newAccountView(lamports uint64, parsed *ParsedRecord, encoded []byte) *AccountView {
	owner := program.SYSTEM_PROGRAM_ID
	if parsed != nil {
		owner = program.PROGRAM_ID
	}

	return &AccountView{
		Lamports:    lamports,
		LamportsSol: toSol(lamports),
		Owner:       base58.Encode(owner),
		Space:       len(encoded),
		Data:        encodeBase64(encoded),
		Parsed:      parsed,
		RentEpoch:   defaultRentEpoch,
	}
}

func (s *Server) loadParsedRecord(ctx context.Context, address string) (*ParsedRecord, []byte, *Error) {
	userRecord, err := s.data.GetUserByAddress(ctx, address)
	switch err {
	case nil:
		return parseUser(userRecord)
	case user.ErrNotFound:
	default:
		return nil, nil, internalError(err)
	}

	campaignRecord, err := s.data.GetCampaignByAddress(ctx, address)
	switch err {
	case nil:
		return parseCampaign(campaignRecord)
	case campaign.ErrNotFound:
	default:
		return nil, nil, internalError(err)
	}

	donationRecord, err := s.data.GetDonationByAddress(ctx, address)
	switch err {
	case nil:
		return parseDonation(donationRecord)
	case donation.ErrNotFound:
	default:
		return nil, nil, internalError(err)
	}

	return nil, nil, nil
}

func parseUser(record *user.Record) (*ParsedRecord, []byte, *Error) {
	encoded, err := program.MarshalUserAccount(record)
	if err != nil {
		return nil, nil, internalError(err)
	}
	return &ParsedRecord{Type: accountTypeUser, Info: toUserView(record)}, encoded, nil
}

func parseCampaign(record *campaign.Record) (*ParsedRecord, []byte, *Error) {
	encoded, err := program.MarshalCampaignAccount(record)
	if err != nil {
		return nil, nil, internalError(err)
	}
	return &ParsedRecord{Type: accountTypeCampaign, Info: toCampaignView(record)}, encoded, nil
}

func parseDonation(record *donation.Record) (*ParsedRecord, []byte, *Error) {
	encoded, err := program.MarshalDonationAccount(record)
	if err != nil {
		return nil, nil, internalError(err)
	}
	return &ParsedRecord{Type: accountTypeDonation, Info: toDonationView(record)}, encoded, nil
}

func (s *Server) getAccountInfo(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	address, key, rpcErr := parseAddress(params, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}

	config := &encodingConfig{Encoding: encodingBase64}
	if rpcErr := parseParam(params, 1, config, false); rpcErr != nil {
		return nil, rpcErr
	}
	if config.Encoding != encodingBase64 && config.Encoding != "jsonParsed" {
		return nil, newError(InvalidParamsCode, "unsupported encoding")
	}

	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	view, rpcErr := s.loadAccountView(ctx, address, key)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &AccountInfoResult{Context: rpcCtx, Value: view}, nil
}

func (s *Server) getBalance(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	address, key, rpcErr := parseAddress(params, 0)
	if rpcErr != nil {
		return nil, rpcErr
	}

	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	unlock := s.processor.LockAccountsForRead(key)
	defer unlock()

	var lamports uint64
	record, err := s.data.GetBalance(ctx, address)
	switch err {
	case nil:
		lamports = record.Lamports
	case balance.ErrNotFound:
	default:
		return nil, internalError(err)
	}
	return &BalanceResult{Context: rpcCtx, Value: lamports}, nil
}

func (s *Server) lamportsOf(ctx context.Context, address string) (uint64, *Error) {
	record, err := s.data.GetBalance(ctx, address)
	switch err {
	case nil:
		return record.Lamports, nil
	case balance.ErrNotFound:
		return 0, nil
	default:
		return 0, internalError(err)
	}
}

func (s *Server) toQueryOptions(ctx context.Context, config *ProgramAccountsConfig) ([]query.Option, uint64, *Error) {
	maxPageSize := s.conf.maxPageSize.Get(ctx)

	limit := config.Limit
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	opts := []query.Option{query.WithLimit(limit)}

	if len(config.Order) > 0 {
		ordering, err := query.ToOrdering(config.Order)
		if err != nil {
			return nil, 0, newError(InvalidParamsCode, "invalid order")
		}
		opts = append(opts, query.WithDirection(ordering))
	}

	if len(config.Cursor) > 0 {
		cursor, err := query.ParseCursor(config.Cursor)
		if err != nil {
			return nil, 0, newError(InvalidParamsCode, "invalid cursor")
		}
		opts = append(opts, query.WithCursor(cursor))
	}

	return opts, limit, nil
}

// nextCursor is set only when the page is full
func nextCursor(count int, limit uint64, lastId uint64) *string {
	if uint64(count) < limit {
		return nil
	}
	cursor := query.ToCursor(lastId).ToBase58()
	return &cursor
}

func (s *Server) getProgramAccounts(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	var accountType string
	if rpcErr := parseParam(params, 0, &accountType, true); rpcErr != nil {
		return nil, rpcErr
	}

	config := &ProgramAccountsConfig{}
	if rpcErr := parseParam(params, 1, config, false); rpcErr != nil {
		return nil, rpcErr
	}

	opts, limit, rpcErr := s.toQueryOptions(ctx, config)
	if rpcErr != nil {
		return nil, rpcErr
	}

	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	result := &ProgramAccountsResult{
		Context:  rpcCtx,
		Accounts: []*KeyedAccount{},
	}

	switch accountType {
	case accountTypeUser:
		rpcErr = s.getUserAccounts(ctx, config.Filters, opts, limit, result)
	case accountTypeCampaign:
		rpcErr = s.getCampaignAccounts(ctx, config.Filters, opts, limit, result)
	case accountTypeDonation:
		rpcErr = s.getDonationAccounts(ctx, config.Filters, opts, limit, result)
	default:
		return nil, newError(InvalidParamsCode, "unsupported account type")
	}
	if rpcErr != nil {
		return nil, rpcErr
	}
	return result, nil
}

func (s *Server) appendAccount(ctx context.Context, result *ProgramAccountsResult, address string, parsed *ParsedRecord, encoded []byte) *Error {
	lamports, rpcErr := s.lamportsOf(ctx, address)
	if rpcErr != nil {
		return rpcErr
	}

	result.Accounts = append(result.Accounts, &KeyedAccount{
		Pubkey:  address,
		Account: newAccountView(lamports, parsed, encoded),
	})
	return nil
}

func (s *Server) getUserAccounts(ctx context.Context, filters ProgramAccountsFilters, opts []query.Option, limit uint64, result *ProgramAccountsResult) *Error {
	var records []*user.Record
	var err error
	if len(filters.Authority) > 0 {
		var record *user.Record
		record, err = s.data.GetUserByAuthority(ctx, filters.Authority)
		if err == nil {
			records = []*user.Record{record}
		}
	} else {
		records, err = s.data.GetAllUsers(ctx, opts...)
		if err == nil && len(records) > 0 {
			result.NextCursor = nextCursor(len(records), limit, records[len(records)-1].Id)
		}
	}
	if err == user.ErrNotFound {
		return nil
	} else if err != nil {
		return internalError(err)
	}

	for _, record := range records {
		parsed, encoded, rpcErr := parseUser(record)
		if rpcErr != nil {
			return rpcErr
		}
		if rpcErr := s.appendAccount(ctx, result, record.Address, parsed, encoded); rpcErr != nil {
			return rpcErr
		}
	}
	return nil
}

func (s *Server) getCampaignAccounts(ctx context.Context, filters ProgramAccountsFilters, opts []query.Option, limit uint64, result *ProgramAccountsResult) *Error {
	var records []*campaign.Record
	var err error
	switch {
	case len(filters.Authority) > 0:
		records, err = s.data.GetAllCampaignsByAuthority(ctx, filters.Authority, opts...)
	case len(filters.Status) > 0:
		status, parseErr := campaign.ToStatus(filters.Status)
		if parseErr != nil {
			return newError(InvalidParamsCode, "invalid status filter")
		}
		records, err = s.data.GetAllCampaignsByStatus(ctx, status, opts...)
	case len(filters.Category) > 0:
		category, parseErr := campaign.ToCategory(filters.Category)
		if parseErr != nil {
			return newError(InvalidParamsCode, "invalid category filter")
		}
		records, err = s.data.GetAllCampaignsByCategory(ctx, category, opts...)
	default:
		return newError(InvalidParamsCode, "campaign queries require an authority, status or category filter")
	}
	if err == campaign.ErrNotFound {
		return nil
	} else if err != nil {
		return internalError(err)
	}

	if len(records) > 0 {
		result.NextCursor = nextCursor(len(records), limit, records[len(records)-1].Id)
	}
	for _, record := range records {
		parsed, encoded, rpcErr := parseCampaign(record)
		if rpcErr != nil {
			return rpcErr
		}
		if rpcErr := s.appendAccount(ctx, result, record.Address, parsed, encoded); rpcErr != nil {
			return rpcErr
		}
	}
	return nil
}

func (s *Server) getDonationAccounts(ctx context.Context, filters ProgramAccountsFilters, opts []query.Option, limit uint64, result *ProgramAccountsResult) *Error {
	var records []*donation.Record
	var err error
	switch {
	case len(filters.Campaign) > 0:
		records, err = s.data.GetAllDonationsByCampaign(ctx, filters.Campaign, opts...)
	case len(filters.Donor) > 0:
		records, err = s.data.GetAllDonationsByDonor(ctx, filters.Donor, opts...)
	default:
		return newError(InvalidParamsCode, "donation queries require a campaign or donor filter")
	}
	if err == donation.ErrNotFound {
		return nil
	} else if err != nil {
		return internalError(err)
	}

	if len(records) > 0 {
		result.NextCursor = nextCursor(len(records), limit, records[len(records)-1].Id)
	}
	for _, record := range records {
		parsed, encoded, rpcErr := parseDonation(record)
		if rpcErr != nil {
			return rpcErr
		}
		if rpcErr := s.appendAccount(ctx, result, record.Address, parsed, encoded); rpcErr != nil {
			return rpcErr
		}
	}
	return nil
}

// getTransactionRecord looks up a processed transaction. Records never change
// once saved, so they're cached by signature.
func (s *Server) getTransactionRecord(ctx context.Context, signature string) (*transaction.Record, *Error) {
	if cached, ok := s.transactionCache.Retrieve(signature); ok {
		return cached, nil
	}

	record, err := s.data.GetTransaction(ctx, signature)
	if err == transaction.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, internalError(err)
	}

	// A concurrent lookup may have cached it first
	_ = s.transactionCache.Insert(signature, record, 1)
	return record, nil
}

func decodeStoredError(record *transaction.Record) (interface{}, *Error) {
	if len(record.Error) == 0 {
		return nil, nil
	}

	var raw interface{}
	if err := json.Unmarshal(record.Error, &raw); err != nil {
		return nil, internalError(err)
	}
	return raw, nil
}

func (s *Server) getSignatureStatuses(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	var signatures []string
	if rpcErr := parseParam(params, 0, &signatures, true); rpcErr != nil {
		return nil, rpcErr
	}
	if len(signatures) > int(s.conf.maxPageSize.Get(ctx)) {
		return nil, newError(InvalidParamsCode, "too many signatures")
	}

	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	statuses := make([]*SignatureStatus, len(signatures))
	for i, signature := range signatures {
		record, rpcErr := s.getTransactionRecord(ctx, signature)
		if rpcErr != nil {
			return nil, rpcErr
		}
		if record == nil {
			continue
		}

		txErr, rpcErr := decodeStoredError(record)
		if rpcErr != nil {
			return nil, rpcErr
		}

		statuses[i] = &SignatureStatus{
			Slot:               record.Slot,
			Err:                txErr,
			ConfirmationStatus: transaction.ConfirmationFinalized.String(),
		}
	}

	return &SignatureStatusesResult{Context: rpcCtx, Value: statuses}, nil
}

func (s *Server) getTransaction(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	var signature string
	if rpcErr := parseParam(params, 0, &signature, true); rpcErr != nil {
		return nil, rpcErr
	}

	config := &encodingConfig{Encoding: encodingBase64}
	if rpcErr := parseParam(params, 1, config, false); rpcErr != nil {
		return nil, rpcErr
	}

	record, rpcErr := s.getTransactionRecord(ctx, signature)
	if rpcErr != nil || record == nil {
		return nil, rpcErr
	}

	txErr, rpcErr := decodeStoredError(record)
	if rpcErr != nil {
		return nil, rpcErr
	}

	eventRecords, err := s.data.GetAllEventsBySignature(ctx, signature)
	if err != nil && err != event.ErrNotFound {
		return nil, internalError(err)
	}

	var encoded []string
	switch config.Encoding {
	case encodingBase64:
		encoded = encodeBase64(record.Data)
	case encodingBase58:
		encoded = []string{base58.Encode(record.Data), encodingBase58}
	default:
		return nil, newError(InvalidParamsCode, "unsupported encoding")
	}

	return &TransactionResult{
		Slot:        record.Slot,
		BlockTime:   record.BlockTime.Unix(),
		Transaction: encoded,
		Meta: &TransactionMeta{
			Fee:    record.Fee,
			Err:    txErr,
			Events: toStoredEventViews(eventRecords),
		},
	}, nil
}

func (s *Server) requestAirdrop(ctx context.Context, params []json.RawMessage) (interface{}, *Error) {
	var address string
	if rpcErr := parseParam(params, 0, &address, true); rpcErr != nil {
		return nil, rpcErr
	}

	var lamports uint64
	if rpcErr := parseParam(params, 1, &lamports, true); rpcErr != nil {
		return nil, rpcErr
	}

	result, err := s.processor.Airdrop(ctx, address, lamports)
	switch err {
	case nil:
	case runtime.ErrAirdropDisabled:
		return nil, newError(InvalidRequestCode, err.Error())
	case runtime.ErrAirdropLimitExceeded, runtime.ErrInvalidAirdropAddress:
		return nil, newError(InvalidParamsCode, err.Error())
	default:
		return nil, internalError(err)
	}

	if result.Err != nil {
		return nil, transactionFailed("Airdrop failed", result.Signature, result.Err)
	}
	return result.Signature, nil
}

func (s *Server) getHealth(_ context.Context, _ []json.RawMessage) (interface{}, *Error) {
	return "ok", nil
}

func (s *Server) getSlot(ctx context.Context, _ []json.RawMessage) (interface{}, *Error) {
	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return rpcCtx.Slot, nil
}

// getLatestBlockhash derives a blockhash from the current slot. The runtime
// orders transactions by slot and doesn't expire blockhashes.
func (s *Server) getLatestBlockhash(ctx context.Context, _ []json.RawMessage) (interface{}, *Error) {
	rpcCtx, rpcErr := s.currentContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var slot [8]byte
	binary.BigEndian.PutUint64(slot[:], rpcCtx.Slot)
	blockhash := sha256.Sum256(slot[:])

	return &LatestBlockhashResult{
		Context: rpcCtx,
		Value: LatestBlockhash{
			Blockhash:            base58.Encode(blockhash[:]),
			LastValidBlockHeight: rpcCtx.Slot + blockhashValidSlots,
		},
	}, nil
}

func (s *Server) getMinimumBalanceForRentExemption(_ context.Context, params []json.RawMessage) (interface{}, *Error) {
	var size uint64
	if rpcErr := parseParam(params, 0, &size, true); rpcErr != nil {
		return nil, rpcErr
	}
	return system.RentExemptMinimum(size), nil
}
