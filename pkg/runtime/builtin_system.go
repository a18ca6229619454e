package runtime

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana/system"
)

// systemProgram owns every new account and moves lamports between wallets
//
// Reference: https://github.com/solana-labs/solana/blob/v1.14.17/programs/system/src/system_processor.rs
type systemProgram struct{}

func (systemProgram) ProgramId() ed25519.PublicKey {
	return system.ProgramKey
}

func (p systemProgram) Process(inv *Invocation) error {
	cmd, err := system.GetCommand(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	switch cmd {
	case system.CommandCreateAccount:
		return p.createAccount(inv)
	case system.CommandAssign:
		return p.assign(inv)
	case system.CommandTransfer:
		return p.transfer(inv)
	case system.CommandAllocate:
		return p.allocate(inv)
	}
	return errors.Wrapf(ErrInvalidArgument, "unsupported system instruction %d", cmd)
}

func (p systemProgram) createAccount(inv *Invocation) error {
	args, err := system.DecodeCreateAccount(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	funder, created, err := twoAccounts(inv)
	if err != nil {
		return err
	}

	if err := requireSigner(funder, created); err != nil {
		return err
	}

	if !created.IsEmpty() || !created.IsOwnedBy(system.ProgramKey) {
		return errors.Wrapf(ErrAccountInUse, "account %s", created.String())
	}

	if err := p.doAllocate(created, args.Size); err != nil {
		return err
	}
	if err := created.SetOwner(args.Owner); err != nil {
		return err
	}
	return transferLamports(funder, created, args.Lamports)
}

func (p systemProgram) assign(inv *Invocation) error {
	owner, err := system.DecodeAssign(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	assigned, err := inv.Account(0)
	if err != nil {
		return err
	}

	if assigned.IsOwnedBy(owner) {
		return nil
	}
	if err := requireSigner(assigned); err != nil {
		return err
	}
	if !assigned.IsOwnedBy(system.ProgramKey) {
		return errors.Wrapf(ErrIncorrectProgramId, "account %s", assigned.String())
	}
	return assigned.SetOwner(owner)
}

func (p systemProgram) transfer(inv *Invocation) error {
	lamports, err := system.DecodeTransfer(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	from, to, err := twoAccounts(inv)
	if err != nil {
		return err
	}

	if err := requireSigner(from); err != nil {
		return err
	}
	if len(from.Data()) > 0 {
		return errors.Wrapf(ErrInvalidArgument, "transfer source %s must not carry data", from.String())
	}
	if !from.IsOwnedBy(system.ProgramKey) {
		return errors.Wrapf(ErrIncorrectProgramId, "transfer source %s", from.String())
	}
	return transferLamports(from, to, lamports)
}

func (p systemProgram) allocate(inv *Invocation) error {
	size, err := system.DecodeAllocate(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	allocated, err := inv.Account(0)
	if err != nil {
		return err
	}

	if err := requireSigner(allocated); err != nil {
		return err
	}
	if len(allocated.Data()) > 0 || !allocated.IsOwnedBy(system.ProgramKey) {
		return errors.Wrapf(ErrAccountInUse, "account %s", allocated.String())
	}
	return p.doAllocate(allocated, size)
}

func (p systemProgram) doAllocate(account *AccountInfo, size uint64) error {
	if size > system.MaxPermittedDataLength {
		return errors.Wrapf(ErrInvalidArgument, "size %d exceeds max", size)
	}
	if size == 0 {
		return nil
	}
	return account.SetData(make([]byte, size))
}

func transferLamports(from, to *AccountInfo, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	if err := from.Debit(lamports); err != nil {
		return err
	}
	return to.Credit(lamports)
}

func twoAccounts(inv *Invocation) (*AccountInfo, *AccountInfo, error) {
	first, err := inv.Account(0)
	if err != nil {
		return nil, nil, err
	}
	second, err := inv.Account(1)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func requireSigner(accounts ...*AccountInfo) error {
	for _, account := range accounts {
		if !account.IsSigner {
			return errors.Wrapf(ErrMissingRequiredSig, "account %s", account.String())
		}
	}
	return nil
}
