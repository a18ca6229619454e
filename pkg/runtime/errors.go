package runtime

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownProgram       = errors.New("program is not registered")
	ErrNotEnoughAccountKeys = errors.New("instruction has fewer accounts than required")
	ErrMissingRequiredSig   = errors.New("missing required signature for instruction")
	ErrAccountNotWritable   = errors.New("account is not writable")
	ErrIncorrectProgramId   = errors.New("account is not owned by the program")
	ErrInvalidAccountData   = errors.New("invalid account data for instruction")
	ErrInvalidArgument      = errors.New("invalid program argument")
	ErrAccountInUse         = errors.New("account is already in use")
	ErrInsufficientFunds    = errors.New("insufficient lamports for instruction")
	ErrArithmeticOverflow   = errors.New("arithmetic overflow")

	ErrReadonlyAccountModified     = errors.New("instruction modified a readonly account")
	ErrExternalAccountLamportSpend = errors.New("instruction spent lamports from an account it doesn't own")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it doesn't own")
	ErrModifiedProgramId           = errors.New("instruction illegally modified the owner of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account lamports before and after instruction do not match")
	ErrInsufficientFundsForRent    = errors.New("account is not rent exempt")

	ErrPrivilegeEscalation  = errors.New("cross program invocation with unauthorized signer or writable account")
	ErrCallDepthExceeded    = errors.New("cross program invocation call depth too deep")
	ErrReentrancyNotAllowed = errors.New("cross program invocation reentrancy not allowed")
	ErrMissingAccount       = errors.New("cross program invocation references an account not passed to the caller")

	ErrEmptyTransaction = errors.New("transaction has no instructions")
	ErrRateLimited      = errors.New("fee payer is rate limited")
)

// InstructionError is the result of a failed transaction. Index is the
// position of the top level instruction that failed.
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d failed: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}

// GetInstructionError extracts the failed instruction from err, if any
func GetInstructionError(err error) (*InstructionError, bool) {
	var ixErr *InstructionError
	if errors.As(err, &ixErr) {
		return ixErr, true
	}
	return nil, false
}
