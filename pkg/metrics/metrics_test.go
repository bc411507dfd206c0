package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestApplicationFromContext(t *testing.T) {
	_, ok := ApplicationFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ApplicationFromContext(NewContextWithApplication(context.Background(), nil))
	assert.False(t, ok)

	// Recording without an application is a no-op
	ctx := NewContextWithApplication(context.Background(), nil)
	RecordEvent(ctx, "TestEvent", map[string]interface{}{"count": 1})
	RecordCount(ctx, "TestCount", 1)
	RecordDuration(ctx, "TestDuration", time.Second)
}

func TestTraceMethodCall_NoTransaction(t *testing.T) {
	tracer := TraceMethodCall(context.Background(), "metrics", "TestTraceMethodCall")
	assert.Nil(t, tracer)

	tracer.AddAttribute("key", "value")
	tracer.OnError(errors.New("failure"))
	tracer.End()

	var nilTxn *newrelic.Transaction
	assert.Nil(t, TraceMethodCall(newrelic.NewContext(context.Background(), nilTxn), "metrics", "TestTraceMethodCall"))
}

func TestFormatNewRelicMessage(t *testing.T) {
	logger := logrus.New()

	entry := logrus.NewEntry(logger)
	entry.Message = "plain"
	assert.Equal(t, "plain", formatNewRelicMessage(entry))

	entry = logger.WithError(errors.New("boom")).WithFields(logrus.Fields{
		"method": "sendTransaction",
		"cause":  errors.New("nested"),
	})
	entry.Message = "failure handling request"
	assert.Equal(
		t,
		`message="failure handling request", error="boom", data={"cause":"nested","method":"sendTransaction"}`,
		formatNewRelicMessage(entry),
	)

	entry = logger.WithField("callback", func() {})
	entry.Message = "unencodable"
	assert.Equal(t, `message="unencodable", error=<nil>`, formatNewRelicMessage(entry))
}
