package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall starts a segment named "<structOrPackageName> <methodName>"
// within the transaction on the context. It returns nil when there's no
// transaction, and all MethodTracer methods are safe to call on nil.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	return &MethodTracer{
		txn: txn,
		seg: txn.StartSegment(structOrPackageName + " " + methodName),
	}
}

// MethodTracer collects analytics for a method call within an existing trace
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute adds key-value metadata to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError notices a non-nil error on the enclosing transaction
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}
	t.txn.NoticeError(err)
}

// End completes the trace for the method call
func (t *MethodTracer) End() {
	if t == nil {
		return
	}
	t.seg.End()
}
