package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/data/account"
)

func RunTests(t *testing.T, s account.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s account.Store){
		testHappyPath,
		testStaleVersions,
		testAtomicBatch,
		testDeletion,
		testCountByOwner,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s account.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		start := time.Now()

		ctx := context.Background()

		expected := &account.Record{
			Address:  "address",
			Owner:    "owner",
			Lamports: 1_000_000,
			Data:     []byte{1, 2, 3},
		}
		cloned := expected.Clone()

		// Validate the record initially doesn't exist

		_, err := s.Get(ctx, expected.Address)
		assert.Equal(t, account.ErrAccountNotFound, err)

		batch, err := s.GetBatch(ctx, expected.Address)
		require.NoError(t, err)
		assert.Empty(t, batch)

		// Save the record

		require.NoError(t, s.SaveBatch(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.EqualValues(t, 1, expected.Version)
		assert.True(t, expected.LastUpdatedAt.After(start))

		actual, err := s.Get(ctx, expected.Address)
		require.NoError(t, err)
		assert.True(t, cloned.Equals(actual))
		assert.Equal(t, expected.Id, actual.Id)
		assert.EqualValues(t, 1, actual.Version)

		// Update the record at its current version

		actual.Lamports = 2_000_000
		actual.Data = []byte{4, 5, 6, 7}
		require.NoError(t, s.SaveBatch(ctx, actual))
		assert.EqualValues(t, 2, actual.Version)

		batch, err = s.GetBatch(ctx, expected.Address, "missing")
		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.True(t, actual.Equals(batch[expected.Address]))
		assert.EqualValues(t, 2, batch[expected.Address].Version)
	})
}

func testStaleVersions(t *testing.T, s account.Store) {
	t.Run("testStaleVersions", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  "address",
			Owner:    "owner",
			Lamports: 1,
		}
		require.NoError(t, s.SaveBatch(ctx, record))

		// Creating the same account twice is stale

		duplicate := &account.Record{
			Address:  "address",
			Owner:    "other",
			Lamports: 5,
		}
		assert.Equal(t, account.ErrStaleAccountState, s.SaveBatch(ctx, duplicate))

		// Updating from an outdated read is stale

		outdated := record.Clone()
		record.Lamports = 2
		require.NoError(t, s.SaveBatch(ctx, record))

		outdated.Lamports = 3
		assert.Equal(t, account.ErrStaleAccountState, s.SaveBatch(ctx, outdated))

		actual, err := s.Get(ctx, "address")
		require.NoError(t, err)
		assert.EqualValues(t, 2, actual.Lamports)
		assert.Equal(t, "owner", actual.Owner)
	})
}

func testAtomicBatch(t *testing.T, s account.Store) {
	t.Run("testAtomicBatch", func(t *testing.T) {
		ctx := context.Background()

		existing := &account.Record{
			Address:  "existing",
			Owner:    "owner",
			Lamports: 10,
		}
		require.NoError(t, s.SaveBatch(ctx, existing))

		// The stale record fails the whole batch

		fresh := &account.Record{
			Address:  "fresh",
			Owner:    "owner",
			Lamports: 10,
		}
		stale := &account.Record{
			Address:  "existing",
			Owner:    "owner",
			Lamports: 20,
		}
		assert.Equal(t, account.ErrStaleAccountState, s.SaveBatch(ctx, fresh, stale))

		_, err := s.Get(ctx, "fresh")
		assert.Equal(t, account.ErrAccountNotFound, err)

		actual, err := s.Get(ctx, "existing")
		require.NoError(t, err)
		assert.EqualValues(t, 10, actual.Lamports)

		// Duplicate addresses within a batch are rejected

		assert.Equal(t, account.ErrStaleAccountState, s.SaveBatch(ctx, fresh, fresh.Clone()))

		// Invalid records are rejected

		assert.Error(t, s.SaveBatch(ctx, &account.Record{Owner: "owner", Lamports: 1}))
		assert.Error(t, s.SaveBatch(ctx, &account.Record{Address: "address", Lamports: 1}))
	})
}

func testDeletion(t *testing.T, s account.Store) {
	t.Run("testDeletion", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  "address",
			Owner:    "owner",
			Lamports: 10,
			Data:     []byte{1},
		}
		require.NoError(t, s.SaveBatch(ctx, record))

		outdated := record.Clone()
		outdated.Version = 0
		outdated.Lamports = 0
		assert.Equal(t, account.ErrStaleAccountState, s.SaveBatch(ctx, outdated))

		record.Lamports = 0
		record.Data = nil
		require.NoError(t, s.SaveBatch(ctx, record))

		_, err := s.Get(ctx, "address")
		assert.Equal(t, account.ErrAccountNotFound, err)

		// The address can be reused after the account is deleted

		reopened := &account.Record{
			Address:  "address",
			Owner:    "other",
			Lamports: 5,
		}
		require.NoError(t, s.SaveBatch(ctx, reopened))
		assert.EqualValues(t, 1, reopened.Version)

		// Deleting an account that never existed is a no-op

		require.NoError(t, s.SaveBatch(ctx, &account.Record{Address: "never"}))
		_, err = s.Get(ctx, "never")
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testCountByOwner(t *testing.T, s account.Store) {
	t.Run("testCountByOwner", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByOwner(ctx, "owner1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		require.NoError(t, s.SaveBatch(
			ctx,
			&account.Record{Address: "a", Owner: "owner1", Lamports: 1},
			&account.Record{Address: "b", Owner: "owner1", Lamports: 1},
			&account.Record{Address: "c", Owner: "owner2", Lamports: 1},
		))

		count, err = s.CountByOwner(ctx, "owner1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		count, err = s.CountByOwner(ctx, "owner2")
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}
