package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana/system"
)

// accountState is the working copy of an account within a transaction.
// Accounts that don't exist are system owned with no lamports and no data.
type accountState struct {
	address  ed25519.PublicKey
	owner    ed25519.PublicKey
	lamports uint64
	data     []byte
}

func newEmptyAccountState(address ed25519.PublicKey) *accountState {
	return &accountState{
		address: address,
		owner:   system.ProgramKey,
	}
}

func (s *accountState) snapshot() accountSnapshot {
	data := make([]byte, len(s.data))
	copy(data, s.data)

	return accountSnapshot{
		owner:    s.owner,
		lamports: s.lamports,
		data:     data,
	}
}

type accountSnapshot struct {
	owner    ed25519.PublicKey
	lamports uint64
	data     []byte
}

func (s *accountSnapshot) equals(state *accountState) bool {
	return bytes.Equal(s.owner, state.owner) &&
		s.lamports == state.lamports &&
		bytes.Equal(s.data, state.data)
}

// AccountInfo is an account as seen by an executing program. Two infos for
// the same key within an invocation share state.
type AccountInfo struct {
	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	state *accountState
}

func (a *AccountInfo) Owner() ed25519.PublicKey {
	return a.state.owner
}

func (a *AccountInfo) Lamports() uint64 {
	return a.state.lamports
}

// Data returns the account data. Callers must not modify the returned slice,
// and use SetData instead.
func (a *AccountInfo) Data() []byte {
	return a.state.data
}

func (a *AccountInfo) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.state.owner, program)
}

// IsEmpty reports whether the account holds no lamports and no data
func (a *AccountInfo) IsEmpty() bool {
	return a.state.lamports == 0 && len(a.state.data) == 0
}

func (a *AccountInfo) SetLamports(lamports uint64) error {
	if !a.IsWritable {
		return a.notWritable()
	}
	if lamports > math.MaxInt64 {
		return ErrArithmeticOverflow
	}

	a.state.lamports = lamports
	return nil
}

func (a *AccountInfo) Credit(amount uint64) error {
	balance := a.state.lamports + amount
	if balance < a.state.lamports {
		return ErrArithmeticOverflow
	}
	return a.SetLamports(balance)
}

func (a *AccountInfo) Debit(amount uint64) error {
	if amount > a.state.lamports {
		return errors.Wrapf(ErrInsufficientFunds, "account %s has %d lamports, need %d", a.String(), a.state.lamports, amount)
	}
	return a.SetLamports(a.state.lamports - amount)
}

func (a *AccountInfo) SetData(data []byte) error {
	if !a.IsWritable {
		return a.notWritable()
	}

	var copied []byte
	if len(data) > 0 {
		copied = make([]byte, len(data))
		copy(copied, data)
	}
	a.state.data = copied
	return nil
}

func (a *AccountInfo) SetOwner(owner ed25519.PublicKey) error {
	if !a.IsWritable {
		return a.notWritable()
	}

	a.state.owner = owner
	return nil
}

func (a *AccountInfo) String() string {
	return base58.Encode(a.Key)
}

func (a *AccountInfo) notWritable() error {
	return errors.Wrapf(ErrAccountNotWritable, "account %s", a.String())
}
