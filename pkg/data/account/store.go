package account

import (
	"context"
)

type Store interface {
	// Get gets an account by its address.
	//
	// Returns ErrAccountNotFound if the account doesn't exist.
	Get(ctx context.Context, address string) (*Record, error)

	// GetBatch gets a set of accounts by address. Accounts that don't exist are
	// omitted from the result rather than failing the call.
	GetBatch(ctx context.Context, addresses ...string) (map[string]*Record, error)

	// SaveBatch atomically saves a set of accounts. Either every record is
	// applied, or none of them are.
	//
	// Each record must carry the version it was read at. Returns
	// ErrStaleAccountState if any stored version differs. On success, records
	// are updated in place with their new version.
	SaveBatch(ctx context.Context, records ...*Record) error

	// CountByOwner counts the accounts owned by a program or wallet
	CountByOwner(ctx context.Context, owner string) (uint64, error)
}
