package rpc

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rippl-labs/rippl-server/pkg/cache"
	"github.com/rippl-labs/rippl-server/pkg/metrics"
	rate_util "github.com/rippl-labs/rippl-server/pkg/rate"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/transaction"
	"github.com/rippl-labs/rippl-server/pkg/rippl/runtime"
)

const (
	metricsStructName = "rpc.server"

	methodLatencyMetricPrefix = "RpcMethodLatency/"

	RpcPath = "/"

	maxRequestBodySize = 1 << 20
	maxBatchSize       = 100

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
)

// Processor executes transactions submitted over RPC
type Processor interface {
	Process(ctx context.Context, raw []byte) (*runtime.Result, error)
	Simulate(ctx context.Context, raw []byte) (*runtime.Result, error)
	Airdrop(ctx context.Context, address string, lamports uint64) (*runtime.Result, error)
	CurrentSlot(ctx context.Context) (uint64, error)

	// LockAccountsForRead keeps transactions from writing to keys until
	// unlock is called, so a read never observes uncommitted state.
	LockAccountsForRead(keys ...ed25519.PublicKey) (unlock func())
}

type methodHandler func(ctx context.Context, params []json.RawMessage) (interface{}, *Error)

// Server serves a Solana-compatible JSON-RPC API over the rippl runtime.
// Errors are always returned in the response body with a 200 status.
type Server struct {
	log       *logrus.Entry
	conf      *conf
	data      data.DatabaseData
	processor Processor

	sendLimiter      rate_util.Limiter
	transactionCache cache.Cache[*transaction.Record]

	methods map[string]methodHandler
}

func NewServer(data data.DatabaseData, processor Processor, configProvider ConfigProvider) *Server {
	conf := configProvider()
	ctx := context.Background()

	s := &Server{
		log:              logrus.StandardLogger().WithField("type", "rippl/server/rpc"),
		conf:             conf,
		data:             data,
		processor:        processor,
		sendLimiter:      newSendLimiter(conf.sendTransactionRateLimit.Get(ctx)),
		transactionCache: cache.NewCache[*transaction.Record](int(conf.transactionCacheBudget.Get(ctx))),
	}

	s.methods = map[string]methodHandler{
		"sendTransaction":                   s.sendTransaction,
		"simulateTransaction":               s.simulateTransaction,
		"getAccountInfo":                    s.getAccountInfo,
		"getBalance":                        s.getBalance,
		"getProgramAccounts":                s.getProgramAccounts,
		"getSignatureStatuses":              s.getSignatureStatuses,
		"getTransaction":                    s.getTransaction,
		"requestAirdrop":                    s.requestAirdrop,
		"getHealth":                         s.getHealth,
		"getSlot":                           s.getSlot,
		"getLatestBlockhash":                s.getLatestBlockhash,
		"getMinimumBalanceForRentExemption": s.getMinimumBalanceForRentExemption,
	}
	return s
}

// newSendLimiter returns a per fee payer limiter. A non-positive limit disables
// rate limiting.
func newSendLimiter(limit float64) rate_util.Limiter {
	if limit <= 0 {
		return &rate_util.NoLimiter{}
	}
	return rate_util.NewLocalRateLimiter(rate.Limit(limit))
}

func (s *Server) rpcHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, interface{}) {
			if r.Method != http.MethodPost {
				return http.StatusMethodNotAllowed, &response{
					JsonRpc: jsonRpcVersion,
					Id:      json.RawMessage("null"),
					Error:   newError(InvalidRequestCode, "http post expected"),
				}
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
			if err != nil {
				return http.StatusOK, &response{
					JsonRpc: jsonRpcVersion,
					Id:      json.RawMessage("null"),
					Error:   newError(InvalidRequestCode, "request body too large"),
				}
			}

			return http.StatusOK, s.handleBody(r.Context(), raw)
		}()

		encoded, err := json.Marshal(body)
		if err != nil {
			log.WithError(err).Warn("failure marshalling response")
			statusCode = http.StatusInternalServerError
			encoded = []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
		}

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write(encoded); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

// handleBody dispatches a single request or a batch of requests
func (s *Server) handleBody(ctx context.Context, raw []byte) interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var req request
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return &response{
				JsonRpc: jsonRpcVersion,
				Id:      json.RawMessage("null"),
				Error:   newError(ParseErrorCode, "parse error"),
			}
		}
		return s.handleRequest(ctx, &req)
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return &response{
			JsonRpc: jsonRpcVersion,
			Id:      json.RawMessage("null"),
			Error:   newError(ParseErrorCode, "parse error"),
		}
	}
	if len(batch) == 0 || len(batch) > maxBatchSize {
		return &response{
			JsonRpc: jsonRpcVersion,
			Id:      json.RawMessage("null"),
			Error:   newError(InvalidRequestCode, "invalid batch size"),
		}
	}

	responses := make([]*response, len(batch))
	for i, item := range batch {
		var req request
		if err := json.Unmarshal(item, &req); err != nil {
			responses[i] = &response{
				JsonRpc: jsonRpcVersion,
				Id:      json.RawMessage("null"),
				Error:   newError(InvalidRequestCode, "invalid request"),
			}
			continue
		}
		responses[i] = s.handleRequest(ctx, &req)
	}
	return responses
}

func (s *Server) handleRequest(ctx context.Context, req *request) *response {
	resp := &response{
		JsonRpc: jsonRpcVersion,
		Id:      req.Id,
	}
	if len(resp.Id) == 0 {
		resp.Id = json.RawMessage("null")
	}

	if req.JsonRpc != jsonRpcVersion || len(req.Method) == 0 {
		resp.Error = newError(InvalidRequestCode, "invalid request")
		return resp
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		resp.Error = newError(MethodNotFoundCode, "method not found")
		return resp
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, req.Method)
	defer tracer.End()

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, methodLatencyMetricPrefix+req.Method, time.Since(start))
	}()

	result, rpcErr := handler(ctx, req.Params)
	if rpcErr != nil {
		if rpcErr.Code == InternalErrorCode {
			tracer.OnError(rpcErr)
			s.log.WithField("method", req.Method).WithError(rpcErr).Warn("failure handling request")
		}
		resp.Error = rpcErr
		return resp
	}

	// A nil result is a valid response, and must be encoded as null
	if result == nil {
		result = json.RawMessage("null")
	}
	resp.Result = result
	return resp
}

// GetHandlers returns the HTTP handlers served by the RPC server, keyed by path
func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		RpcPath: s.rpcHandler(RpcPath),
	}
}
