package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/data/account"
)

// txn is the copy-on-write execution context of a single transaction.
// Account changes stay in memory until commit.
type txn struct {
	ctx context.Context
	rt  *Runtime

	feePayer ed25519.PublicKey
	rent     RentSchedule
	now      time.Time
	slot     uint64
	maxDepth int

	states map[string]*accountState
	loaded map[string]*account.Record

	stack  []ed25519.PublicKey
	events []Event
}

func (t *txn) load(keys []ed25519.PublicKey) error {
	addresses := make([]string, 0, len(keys))
	for _, key := range keys {
		address := encode(key)
		if _, ok := t.states[address]; ok {
			continue
		}
		addresses = append(addresses, address)
	}
	if len(addresses) == 0 {
		return nil
	}

	records, err := t.rt.accounts.GetBatch(t.ctx, addresses...)
	if err != nil {
		return errors.Wrap(err, "error loading accounts")
	}

	for _, key := range keys {
		address := encode(key)
		if _, ok := t.states[address]; ok {
			continue
		}

		record, ok := records[address]
		if !ok {
			t.states[address] = newEmptyAccountState(key)
			continue
		}

		owner, err := base58.Decode(record.Owner)
		if err != nil {
			return errors.Wrapf(err, "invalid owner for account %s", address)
		}

		t.states[address] = &accountState{
			address:  key,
			owner:    owner,
			lamports: record.Lamports,
			data:     record.Data,
		}
		t.loaded[address] = record.Clone()
	}

	return nil
}

// state returns the working copy of an account, loading it if needed
func (t *txn) state(key ed25519.PublicKey) (*accountState, error) {
	if state, ok := t.states[encode(key)]; ok {
		return state, nil
	}
	if err := t.load([]ed25519.PublicKey{key}); err != nil {
		return nil, err
	}
	return t.states[encode(key)], nil
}

func (t *txn) isOnStack(program ed25519.PublicKey) bool {
	for _, p := range t.stack {
		if bytes.Equal(p, program) {
			return true
		}
	}
	return false
}

func (t *txn) currentProgram() ed25519.PublicKey {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// changes builds the records to persist. Only accounts that differ from what
// was loaded are saved, each with the version it was loaded at.
func (t *txn) changes() []*account.Record {
	var res []*account.Record
	for address, state := range t.states {
		loaded, exists := t.loaded[address]

		record := &account.Record{
			Address:       address,
			Owner:         encode(state.owner),
			Lamports:      state.lamports,
			Data:          state.data,
			LastUpdatedAt: t.now,
		}

		if !exists {
			// Untouched accounts that never existed stay absent
			if state.lamports == 0 {
				continue
			}
		} else {
			if loaded.Equals(record) {
				continue
			}
			record.Id = loaded.Id
			record.Version = loaded.Version
		}

		if record.IsDeletion() {
			record.Owner = ""
			record.Data = nil
		}

		res = append(res, record)
	}
	return res
}

func encode(key ed25519.PublicKey) string {
	return base58.Encode(key)
}
