package client

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/rippl-labs/rippl-server/pkg/retry"
	"github.com/rippl-labs/rippl-server/pkg/retry/backoff"
	"github.com/rippl-labs/rippl-server/pkg/rippl/server/rpc"
	"github.com/rippl-labs/rippl-server/pkg/solana"
)

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
)

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

// TransactionError is returned when a submitted transaction fails
type TransactionError struct {
	// Signature is empty when the transaction was rejected before execution,
	// for example by preflight.
	Signature string
	Err       *solana.TransactionError

	// ProgramError is set for custom instruction errors
	ProgramError *rpc.ProgramError

	message string
}

func (e *TransactionError) Error() string {
	return e.message
}

// Client provides an interaction with the rippl JSON RPC API
type Client interface {
	SendTransaction(txn solana.Transaction, skipPreflight bool) (string, error)
	SimulateTransaction(txn solana.Transaction) (*rpc.SimulationResult, error)
	GetAccountInfo(address string) (*rpc.AccountView, error)
	GetBalance(address string) (uint64, error)
	GetProgramAccounts(accountType string, config rpc.ProgramAccountsConfig) (*rpc.ProgramAccountsResult, error)
	GetSignatureStatuses(signatures []string) ([]*rpc.SignatureStatus, error)
	GetTransaction(signature string) (*rpc.TransactionResult, error)
	GetSlot() (uint64, error)
	GetLatestBlockhash() (solana.Blockhash, error)
	GetMinimumBalanceForRentExemption(size uint64) (uint64, error)
	RequestAirdrop(address string, lamports uint64) (string, error)
	GetHealth() error
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client using the specified endpoint
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "rippl/rpc/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	})

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == rpc.RateLimitedCode {
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	}
	if rpcErr.Code == rpc.InternalErrorCode {
		return errServiceError
	}

	return err
}

type sendConfig struct {
	Encoding      string `json:"encoding"`
	SkipPreflight bool   `json:"skipPreflight"`
}

// SendTransaction submits a signed transaction. Failed transactions return a
// *TransactionError.
func (c *client) SendTransaction(txn solana.Transaction, skipPreflight bool) (string, error) {
	config := sendConfig{
		Encoding:      "base64",
		SkipPreflight: skipPreflight,
	}

	// Sent once, since a retry would be rejected as a duplicate
	var signature string
	err := c.client.CallFor(&signature, "sendTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config)
	if err == nil {
		return signature, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok || rpcErr.Code != rpc.TransactionFailedCode {
		return "", errors.Wrap(c.handleRpcError("sendTransaction", err), "sendTransaction() failed to send request")
	}

	return "", toTransactionError(rpcErr)
}

func toTransactionError(rpcErr *jsonrpc.RPCError) error {
	txErr, err := solana.ParseRPCError(rpcErr)
	if err != nil || txErr == nil {
		return rpcErr
	}

	result := &TransactionError{
		Err:     txErr,
		message: rpcErr.Message,
	}

	// The remaining fields are optional, so a decoding failure only loses them
	var data rpc.TransactionErrorData
	if encoded, err := json.Marshal(rpcErr.Data); err == nil {
		if err := json.Unmarshal(encoded, &data); err == nil {
			result.Signature = data.Signature
			result.ProgramError = data.ProgramError
		}
	}
	return result
}

func (c *client) SimulateTransaction(txn solana.Transaction) (*rpc.SimulationResult, error) {
	config := sendConfig{Encoding: "base64"}

	var result rpc.SimulationResult
	if err := c.call(&result, "simulateTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config); err != nil {
		return nil, errors.Wrap(err, "simulateTransaction() failed to send request")
	}
	return &result, nil
}

func (c *client) GetAccountInfo(address string) (*rpc.AccountView, error) {
	config := struct {
		Encoding string `json:"encoding"`
	}{
		Encoding: "base64",
	}

	var result rpc.AccountInfoResult
	if err := c.call(&result, "getAccountInfo", address, config); err != nil {
		return nil, errors.Wrap(err, "getAccountInfo() failed to send request")
	}
	if result.Value == nil {
		return nil, ErrNoAccountInfo
	}
	return result.Value, nil
}

func (c *client) GetBalance(address string) (uint64, error) {
	var result rpc.BalanceResult
	if err := c.call(&result, "getBalance", address); err != nil {
		return 0, errors.Wrap(err, "getBalance() failed to send request")
	}
	return result.Value, nil
}

func (c *client) GetProgramAccounts(accountType string, config rpc.ProgramAccountsConfig) (*rpc.ProgramAccountsResult, error) {
	var result rpc.ProgramAccountsResult
	if err := c.call(&result, "getProgramAccounts", accountType, config); err != nil {
		return nil, errors.Wrap(err, "getProgramAccounts() failed to send request")
	}
	return &result, nil
}

func (c *client) GetSignatureStatuses(signatures []string) ([]*rpc.SignatureStatus, error) {
	// A lone slice would be sent as the params array itself
	config := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	var result rpc.SignatureStatusesResult
	if err := c.call(&result, "getSignatureStatuses", signatures, config); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed to send request")
	}
	if len(result.Value) != len(signatures) {
		return nil, errors.Errorf("expected %d statuses, got %d", len(signatures), len(result.Value))
	}
	return result.Value, nil
}

func (c *client) GetTransaction(signature string) (*rpc.TransactionResult, error) {
	config := struct {
		Encoding string `json:"encoding"`
	}{
		Encoding: "base64",
	}

	var result *rpc.TransactionResult
	if err := c.call(&result, "getTransaction", signature, config); err != nil {
		return nil, errors.Wrap(err, "getTransaction() failed to send request")
	}
	if result == nil {
		return nil, ErrSignatureNotFound
	}
	return result, nil
}

func (c *client) GetSlot() (uint64, error) {
	var slot uint64
	if err := c.call(&slot, "getSlot"); err != nil {
		return 0, errors.Wrap(err, "getSlot() failed to send request")
	}
	return slot, nil
}

func (c *client) GetLatestBlockhash() (blockhash solana.Blockhash, err error) {
	var result rpc.LatestBlockhashResult
	if err := c.call(&result, "getLatestBlockhash"); err != nil {
		return blockhash, errors.Wrap(err, "getLatestBlockhash() failed to send request")
	}

	decoded, err := base58.Decode(result.Value.Blockhash)
	if err != nil {
		return blockhash, errors.Wrap(err, "invalid base58 encoded blockhash")
	}
	if len(decoded) != len(blockhash) {
		return blockhash, errors.Errorf("invalid blockhash length: %d", len(decoded))
	}
	copy(blockhash[:], decoded)
	return blockhash, nil
}

func (c *client) GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error) {
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", size); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption() failed to send request")
	}
	return lamports, nil
}

func (c *client) RequestAirdrop(address string, lamports uint64) (string, error) {
	var signature string
	err := c.client.CallFor(&signature, "requestAirdrop", address, lamports)
	if err == nil {
		return signature, nil
	}

	if rpcErr, ok := err.(*jsonrpc.RPCError); ok && rpcErr.Code == rpc.TransactionFailedCode {
		return "", toTransactionError(rpcErr)
	}
	return "", errors.Wrap(err, "requestAirdrop() failed to send request")
}

func (c *client) GetHealth() error {
	var health string
	if err := c.call(&health, "getHealth"); err != nil {
		return errors.Wrap(err, "getHealth() failed to send request")
	}
	if health != "ok" {
		return errors.Errorf("unhealthy: %s", health)
	}
	return nil
}
