package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

// Invocation is the execution context handed to a program for a single
// instruction
type Invocation struct {
	txn *txn

	program  ed25519.PublicKey
	data     []byte
	accounts []*AccountInfo
	depth    int

	frame *frame
}

func (inv *Invocation) Context() context.Context {
	return inv.txn.ctx
}

func (inv *Invocation) ProgramId() ed25519.PublicKey {
	return inv.program
}

func (inv *Invocation) Data() []byte {
	return inv.data
}

// Depth is 1 for top level instructions, and increases by one for every
// nested cross program invocation. Nesting is limited to the configured max
// call depth.
func (inv *Invocation) Depth() int {
	return inv.depth
}

func (inv *Invocation) NumAccounts() int {
	return len(inv.accounts)
}

func (inv *Invocation) Accounts() []*AccountInfo {
	return inv.accounts
}

// Account returns the account at index, as ordered by the instruction
func (inv *Invocation) Account(index int) (*AccountInfo, error) {
	if index < 0 || index >= len(inv.accounts) {
		return nil, errors.Wrapf(ErrNotEnoughAccountKeys, "index %d of %d", index, len(inv.accounts))
	}
	return inv.accounts[index], nil
}

// FeePayer is the transaction's fee payer
func (inv *Invocation) FeePayer() ed25519.PublicKey {
	return inv.txn.feePayer
}

func (inv *Invocation) Rent() RentSchedule {
	return inv.txn.rent
}

func (inv *Invocation) Now() time.Time {
	return inv.txn.now
}

func (inv *Invocation) Slot() uint64 {
	return inv.txn.slot
}

// Emit records an event, delivered if the transaction commits
func (inv *Invocation) Emit(event Event) {
	inv.txn.events = append(inv.txn.events, event)
}

// Invoke calls another program with the caller's privileges
func (inv *Invocation) Invoke(ix solana.Instruction) error {
	return inv.InvokeSigned(ix)
}

// InvokeSigned calls another program. Each set of signer seeds grants signer
// privilege to the program address derived from the seeds under the calling
// program.
//
// Every account of ix must either be one of the caller's accounts, or a
// registered program or sysvar passed as readonly. An account may only be a
// signer or writable if it is for the caller, apart from the caller's own
// program addresses.
func (inv *Invocation) InvokeSigned(ix solana.Instruction, signerSeeds ...[][]byte) error {
	t := inv.txn

	if inv.depth > t.maxDepth {
		return ErrCallDepthExceeded
	}

	if t.isOnStack(ix.Program) && !bytes.Equal(ix.Program, inv.program) {
		return errors.Wrapf(ErrReentrancyNotAllowed, "program %s", encode(ix.Program))
	}

	program, ok := t.rt.programs[encode(ix.Program)]
	if !ok {
		return errors.Wrapf(ErrUnknownProgram, "program %s", encode(ix.Program))
	}

	pdaSigners := make(map[string]struct{})
	for _, seeds := range signerSeeds {
		signer, err := solana.CreateProgramAddress(inv.program, seeds...)
		if err != nil {
			return errors.Wrap(err, "invalid signer seeds")
		}
		pdaSigners[encode(signer)] = struct{}{}
	}

	accounts := make([]*AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		caller := inv.find(meta.PublicKey)

		if caller == nil {
			if !t.rt.isVirtualAccount(meta.PublicKey) || meta.IsSigner || meta.IsWritable {
				return errors.Wrapf(ErrMissingAccount, "account %s", encode(meta.PublicKey))
			}

			state, err := t.state(meta.PublicKey)
			if err != nil {
				return err
			}
			accounts[i] = &AccountInfo{Key: meta.PublicKey, state: state}
			continue
		}

		if meta.IsSigner && !caller.IsSigner {
			if _, ok := pdaSigners[encode(meta.PublicKey)]; !ok {
				return errors.Wrapf(ErrPrivilegeEscalation, "signer %s", encode(meta.PublicKey))
			}
		}
		if meta.IsWritable && !caller.IsWritable {
			return errors.Wrapf(ErrPrivilegeEscalation, "writable %s", encode(meta.PublicKey))
		}

		accounts[i] = &AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			state:      caller.state,
		}
	}

	// Changes the caller made so far are checked against the caller, so the
	// callee is only held to its own changes
	if err := inv.frame.verify(); err != nil {
		return err
	}

	callee := &Invocation{
		txn:      t,
		program:  ix.Program,
		data:     ix.Data,
		accounts: accounts,
		depth:    inv.depth + 1,
	}
	if err := t.execute(program, callee); err != nil {
		return err
	}

	inv.frame.reset()
	return nil
}

// find returns the caller's account for key, preferring the entry with the
// most privilege when the key repeats
func (inv *Invocation) find(key ed25519.PublicKey) *AccountInfo {
	var res *AccountInfo
	for _, account := range inv.accounts {
		if !bytes.Equal(account.Key, key) {
			continue
		}

		if res == nil {
			res = &AccountInfo{Key: account.Key, state: account.state}
		}
		res.IsSigner = res.IsSigner || account.IsSigner
		res.IsWritable = res.IsWritable || account.IsWritable
	}
	return res
}
