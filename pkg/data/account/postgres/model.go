package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/auction-house-server/pkg/data/account"
	pgutil "github.com/code-payments/auction-house-server/pkg/database/postgres"
)

const (
	tableName = "auctionhouse__core_account"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address  string `db:"address"`
	Owner    string `db:"owner"`
	Lamports int64  `db:"lamports"`
	Data     []byte `db:"data"`

	Version int64 `db:"version"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *account.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		Address:  obj.Address,
		Owner:    obj.Owner,
		Lamports: int64(obj.Lamports),
		Data:     obj.Data,

		Version: int64(obj.Version),

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *account.Record {
	return &account.Record{
		Id: uint64(obj.Id.Int64),

		Address:  obj.Address,
		Owner:    obj.Owner,
		Lamports: uint64(obj.Lamports),
		Data:     obj.Data,

		Version: uint64(obj.Version),

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

// dbSave applies one versioned write within tx. Version 0 inserts, any other
// version updates or deletes the exact version that was read.
func (m *model) dbSave(ctx context.Context, tx *sqlx.Tx) error {
	m.LastUpdatedAt = time.Now()

	if m.Lamports == 0 {
		if m.Version == 0 {
			// The account was never persisted, make sure that's still the case
			var count int
			err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+tableName+` WHERE address = $1`, m.Address)
			if err != nil {
				return err
			}
			if count > 0 {
				return account.ErrStaleAccountState
			}
			return nil
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE address = $1 AND version = $2`, m.Address, m.Version)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return account.ErrStaleAccountState
		}

		m.Id = sql.NullInt64{}
		m.Version = 0
		return nil
	}

	if m.Version == 0 {
		query := `INSERT INTO ` + tableName + `
			(address, owner, lamports, data, version, last_updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)

			ON CONFLICT (address) DO NOTHING

			RETURNING
				id, address, owner, lamports, data, version, last_updated_at`

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Owner,
			m.Lamports,
			m.Data,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckNoRows(err, account.ErrStaleAccountState)
	}

	query := `UPDATE ` + tableName + `
		SET owner = $2, lamports = $3, data = $4, version = version + 1, last_updated_at = $6
		WHERE address = $1 AND version = $5

		RETURNING
			id, address, owner, lamports, data, version, last_updated_at`

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.Version,
		m.LastUpdatedAt.UTC(),
	).StructScan(m)
	return pgutil.CheckNoRows(err, account.ErrStaleAccountState)
}

func dbSaveBatch(ctx context.Context, db *sqlx.DB, models []*model) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		for _, m := range models {
			if err := m.dbSave(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, owner, lamports, data, version, last_updated_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetBatch(ctx context.Context, db *sqlx.DB, addresses ...string) ([]*model, error) {
	res := []*model{}

	if len(addresses) == 0 {
		return res, nil
	}

	query, args, err := sqlx.In(`SELECT
		id, address, owner, lamports, data, version, last_updated_at
		FROM `+tableName+`
		WHERE address IN (?)`, addresses)
	if err != nil {
		return nil, err
	}

	err = db.SelectContext(ctx, &res, db.Rebind(query), args...)
	if err != nil && !pgutil.IsNoRows(err) {
		return nil, err
	}
	return res, nil
}

func dbCountByOwner(ctx context.Context, db *sqlx.DB, owner string) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE owner = $1`
	err := db.GetContext(ctx, &res, query, owner)
	if err != nil {
		return 0, err
	}
	return res, nil
}
