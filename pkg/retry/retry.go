// Package retry runs actions repeatedly under a composable set of strategies.
package retry

// Action is a unit of work that may fail and be attempted again.
type Action func() error

// Retrier runs actions under a fixed set of strategies.
type Retrier interface {
	// Retry returns the number of attempts made along with the last error
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier binds strategies to a Retrier. Without strategies the action is
// attempted until it succeeds.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{strategies: strategies}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry attempts action until it succeeds or a strategy vetoes another
// attempt. Strategies run in order, so delaying strategies belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil || !shouldRetry(strategies, attempts, err) {
			return attempts, err
		}
	}
}

// Loop runs action forever. A success resets the attempt counter, and the
// first error a strategy refuses to retry is returned.
func Loop(action Action, strategies ...Strategy) error {
	var attempts uint
	for {
		err := action()
		if err == nil {
			attempts = 0
			continue
		}

		attempts++
		if !shouldRetry(strategies, attempts, err) {
			return err
		}
	}
}

func shouldRetry(strategies []Strategy, attempts uint, err error) bool {
	for _, s := range strategies {
		if !s(attempts, err) {
			return false
		}
	}
	return true
}
