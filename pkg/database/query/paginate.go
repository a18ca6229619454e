package query

import "strconv"

// PaginateQuery appends id based paging to query, which must end in a
// bracketed WHERE clause:
//
//	SELECT ... WHERE (auction_house = $1)
//
// becomes
//
//	SELECT ... WHERE (auction_house = $1) AND id > $2 ORDER BY id ASC LIMIT $3
//
// The cursor and limit clauses are omitted when unset.
func PaginateQuery(query string, opts []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		v := strconv.Itoa(len(opts) + 1)

		if direction == Ascending {
			query += " AND id > $" + v
		} else {
			query += " AND id < $" + v
		}

		opts = append(opts, cursor.ToUint64())
	}

	if direction == Ascending {
		query += " ORDER BY id ASC"
	} else {
		query += " ORDER BY id DESC"
	}

	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, limit)
	}

	return query, opts
}
