package account

import (
	"bytes"
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxDataSize is the largest account data payload that can be persisted
	MaxDataSize = 10 * 1024 * 1024
)

var (
	ErrAccountNotFound   = errors.New("no account could be found")
	ErrStaleAccountState = errors.New("account state is stale")
)

// Record is the persisted state of an account. Addresses and owners are base58
// encoded public keys.
//
// Version is incremented on every save, and must match the stored version for
// a save to be applied. New accounts are saved with version 0. Saving a record
// with zero lamports deletes the account.
type Record struct {
	Id uint64

	Address  string
	Owner    string
	Lamports uint64
	Data     []byte

	Version uint64

	LastUpdatedAt time.Time
}

// IsDeletion reports whether saving the record removes the account
func (r *Record) IsDeletion() bool {
	return r.Lamports == 0
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 && !r.IsDeletion() {
		return errors.New("owner is required")
	}

	// Lamports are persisted as a signed 64 bit integer
	if r.Lamports > math.MaxInt64 {
		return errors.New("lamports overflow")
	}

	if len(r.Data) > MaxDataSize {
		return errors.New("data exceeds max size")
	}

	return nil
}

func (r *Record) Clone() *Record {
	var data []byte
	if r.Data != nil {
		data = make([]byte, len(r.Data))
		copy(data, r.Data)
	}

	return &Record{
		Id: r.Id,

		Address:  r.Address,
		Owner:    r.Owner,
		Lamports: r.Lamports,
		Data:     data,

		Version: r.Version,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = nil
	if r.Data != nil {
		dst.Data = make([]byte, len(r.Data))
		copy(dst.Data, r.Data)
	}

	dst.Version = r.Version

	dst.LastUpdatedAt = r.LastUpdatedAt
}

// Equals compares account state, ignoring bookkeeping fields
func (r *Record) Equals(other *Record) bool {
	return r.Address == other.Address &&
		r.Owner == other.Owner &&
		r.Lamports == other.Lamports &&
		bytes.Equal(r.Data, other.Data)
}
