package async_relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/rippl-labs/rippl-server/pkg/metrics"
	"github.com/rippl-labs/rippl-server/pkg/rippl/common"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
)

const (
	contentTypeHeaderName  = "Content-Type"
	contentTypeHeaderValue = "application/jwt"
)

// getClaims builds the JWT claims delivered for an event
func getClaims(record *event.Record) (jwt.MapClaims, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, errors.Wrap(err, "error decoding event payload")
	}

	return jwt.MapClaims{
		"id":        record.EventId,
		"type":      record.Type.String(),
		"signature": record.Signature,
		"index":     record.Index,
		"slot":      record.Slot,
		"data":      payload,
		"iat":       record.CreatedAt.Unix(),
	}, nil
}

// execute delivers the event to the relay endpoint. It does not manage the
// DB record's state.
func execute(
	ctx context.Context,
	signer *common.Account,
	relayUrl string,
	record *event.Record,
	timeout time.Duration,
) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "execute")
	defer tracer.End()

	err := func() error {
		if record.State != event.StatePending {
			return errors.New("event is not in a pending state")
		}

		if record.NextAttemptAt == nil || record.NextAttemptAt.After(time.Now()) {
			return errors.New("event is not scheduled yet")
		}

		if len(relayUrl) == 0 {
			return errors.New("relay url is not configured")
		}

		claims, err := getClaims(record)
		if err != nil {
			return err
		}

		privateKey, err := signer.ToSigner()
		if err != nil {
			return errors.Wrap(err, "error getting relay signer")
		}

		token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		requestBody, err := token.SignedString(privateKey)
		if err != nil {
			return errors.Wrap(err, "error signing jwt")
		}

		req, err := http.NewRequest(http.MethodPost, relayUrl, strings.NewReader(requestBody))
		if err != nil {
			return errors.Wrap(err, "error creating http request")
		}
		req.Header.Set(contentTypeHeaderName, contentTypeHeaderValue)

		relayCtx, cancel := context.WithTimeout(context.Background(), timeout)
		req = req.WithContext(relayCtx)
		defer cancel()

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "error executing http post request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("%d status code returned", resp.StatusCode)
		}
		return nil
	}()

	if err != nil {
		tracer.OnError(err)
	}
	return err
}
