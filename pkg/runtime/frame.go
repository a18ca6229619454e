package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"
)

// frame tracks the accounts of a single program invocation, so the changes
// the program made can be checked once it returns
type frame struct {
	program ed25519.PublicKey

	states   []*accountState
	writable []bool
	pre      []accountSnapshot
}

func newFrame(program ed25519.PublicKey, accounts []*AccountInfo) *frame {
	f := &frame{
		program: program,
	}

	index := make(map[*accountState]int)
	for _, account := range accounts {
		i, ok := index[account.state]
		if !ok {
			i = len(f.states)
			index[account.state] = i

			f.states = append(f.states, account.state)
			f.writable = append(f.writable, false)
		}

		f.writable[i] = f.writable[i] || account.IsWritable
	}

	f.reset()
	return f
}

// reset takes the current account states as the baseline for the next verify
func (f *frame) reset() {
	f.pre = make([]accountSnapshot, len(f.states))
	for i, state := range f.states {
		f.pre[i] = state.snapshot()
	}
}

// verify checks that the program only made changes it's entitled to:
//   - readonly accounts are untouched
//   - only the owner debits lamports or edits data
//   - only the owner reassigns an account, and only with zeroed data
//   - lamports are neither created nor destroyed
func (f *frame) verify() error {
	var preSum, postSum uint128

	for i, state := range f.states {
		pre := &f.pre[i]

		preSum = preSum.add(pre.lamports)
		postSum = postSum.add(state.lamports)

		if pre.equals(state) {
			continue
		}

		if !f.writable[i] {
			return errors.Wrapf(ErrReadonlyAccountModified, "account %s", encode(state.address))
		}

		isOwner := bytes.Equal(pre.owner, f.program)

		if !bytes.Equal(pre.owner, state.owner) {
			if !isOwner || !isZeroed(state.data) {
				return errors.Wrapf(ErrModifiedProgramId, "account %s", encode(state.address))
			}
		}

		if state.lamports < pre.lamports && !isOwner {
			return errors.Wrapf(ErrExternalAccountLamportSpend, "account %s", encode(state.address))
		}

		if !bytes.Equal(pre.data, state.data) && !isOwner {
			return errors.Wrapf(ErrExternalAccountDataModified, "account %s", encode(state.address))
		}
	}

	if preSum != postSum {
		return ErrUnbalancedInstruction
	}
	return nil
}

// changed returns the accounts that differ from the baseline
func (f *frame) changed() []*accountState {
	var res []*accountState
	for i, state := range f.states {
		if !f.pre[i].equals(state) {
			res = append(res, state)
		}
	}
	return res
}

type uint128 struct {
	hi, lo uint64
}

func (v uint128) add(x uint64) uint128 {
	lo, carry := bits.Add64(v.lo, x, 0)
	return uint128{hi: v.hi + carry, lo: lo}
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
