package query

import (
	"errors"
)

var ErrQueryNotSupported = errors.New("the requested query option is not supported")

// SupportedOptions is a bitmask of the options a query accepts
type SupportedOptions byte

const (
	CanLimitResults SupportedOptions = 1 << iota
	CanSortBy
	CanQueryByCursor
)

// QueryOptions is a resolved set of paging options
type QueryOptions struct {
	Supported SupportedOptions

	SortBy Ordering
	Limit  uint64
	Cursor Cursor
}

type Option func(*QueryOptions) error

func (qo *QueryOptions) Apply(opts ...Option) error {
	for _, o := range opts {
		if err := o(qo); err != nil {
			return err
		}
	}
	return nil
}

func (qo *QueryOptions) require(capability SupportedOptions) error {
	if qo.Supported&capability != capability {
		return ErrQueryNotSupported
	}
	return nil
}

func WithDirection(val Ordering) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanSortBy); err != nil {
			return err
		}
		qo.SortBy = val
		return nil
	}
}

func WithLimit(val uint64) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanLimitResults); err != nil {
			return err
		}
		qo.Limit = val
		return nil
	}
}

func WithCursor(val Cursor) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanQueryByCursor); err != nil {
			return err
		}
		qo.Cursor = val
		return nil
	}
}
