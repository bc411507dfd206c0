package query

import "strconv"

const defaultPagingLimit = 1000

// PaginateQuery appends id based keyset pagination to query, which must end in
// a parenthesized WHERE clause. For example, with a cursor and a limit of 10:
//
//	SELECT * FROM campaigns WHERE (status = $1)
//
// becomes
//
//	SELECT * FROM campaigns WHERE (status = $1) AND id > $2 ORDER BY id ASC LIMIT $3
func PaginateQuery(query string, args []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	comparison, order := " AND id > $", " ORDER BY id ASC"
	if direction == Descending {
		comparison, order = " AND id < $", " ORDER BY id DESC"
	}

	if len(cursor) > 0 {
		args = append(args, cursor.ToUint64())
		query += comparison + strconv.Itoa(len(args))
	}

	query += order

	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	return query, args
}

// DefaultPaginationHandler resolves paging options, defaulting to ascending
// pages of up to defaultPagingLimit records
func DefaultPaginationHandler(opts ...Option) (*QueryOptions, error) {
	req := QueryOptions{
		Limit:     defaultPagingLimit,
		SortBy:    Ascending,
		Supported: CanLimitResults | CanSortBy | CanQueryByCursor,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, err
	}

	if req.Limit > defaultPagingLimit {
		return nil, ErrQueryNotSupported
	}
	return &req, nil
}
