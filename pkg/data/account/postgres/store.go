package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/auction-house-server/pkg/data/account"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed account.Store
func New(db *sql.DB) account.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements account.Store.Get
func (s *store) Get(ctx context.Context, address string) (*account.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetBatch implements account.Store.GetBatch
func (s *store) GetBatch(ctx context.Context, addresses ...string) (map[string]*account.Record, error) {
	models, err := dbGetBatch(ctx, s.db, addresses...)
	if err != nil {
		return nil, err
	}

	res := make(map[string]*account.Record, len(models))
	for _, model := range models {
		res[model.Address] = fromModel(model)
	}
	return res, nil
}

// SaveBatch implements account.Store.SaveBatch
func (s *store) SaveBatch(ctx context.Context, records ...*account.Record) error {
	seen := make(map[string]struct{})
	models := make([]*model, len(records))
	for i, record := range records {
		if _, ok := seen[record.Address]; ok {
			return account.ErrStaleAccountState
		}
		seen[record.Address] = struct{}{}

		model, err := toModel(record)
		if err != nil {
			return err
		}
		models[i] = model
	}

	if err := dbSaveBatch(ctx, s.db, models); err != nil {
		return err
	}

	for i, model := range models {
		fromModel(model).CopyTo(records[i])
	}
	return nil
}

// CountByOwner implements account.Store.CountByOwner
func (s *store) CountByOwner(ctx context.Context, owner string) (uint64, error) {
	return dbCountByOwner(ctx, s.db, owner)
}
