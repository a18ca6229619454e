package runtime

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana/system"
)

type CreateProgramAccountArgs struct {
	Funder  *AccountInfo
	Account *AccountInfo
	Owner   ed25519.PublicKey
	Size    uint64

	// Signer seeds of Funder and Account, when the calling program signs for
	// them
	FunderSeeds  [][]byte
	AccountSeeds [][]byte
}

// CreateProgramAccount creates a rent exempt account owned by Owner through
// the system program. Lamports already sent to the address are kept, and only
// the shortfall is paid by Funder, so prefunding an address can't block its
// creation.
func CreateProgramAccount(inv *Invocation, args *CreateProgramAccountArgs) error {
	funder := args.Funder.Key
	address := args.Account.Key

	if !args.Account.IsOwnedBy(system.ProgramKey) || len(args.Account.Data()) > 0 {
		return errors.Wrapf(ErrAccountInUse, "account %s", args.Account.String())
	}

	var signers [][][]byte
	if args.FunderSeeds != nil {
		signers = append(signers, args.FunderSeeds)
	}
	if args.AccountSeeds != nil {
		signers = append(signers, args.AccountSeeds)
	}

	required := inv.Rent().MinimumBalance(int(args.Size))

	if args.Account.Lamports() == 0 {
		return inv.InvokeSigned(
			system.CreateAccount(funder, address, args.Owner, required, args.Size),
			signers...,
		)
	}

	if args.Account.Lamports() < required {
		err := inv.InvokeSigned(
			system.Transfer(funder, address, required-args.Account.Lamports()),
			signers...,
		)
		if err != nil {
			return err
		}
	}

	if err := inv.InvokeSigned(system.Allocate(address, args.Size), signers...); err != nil {
		return err
	}
	return inv.InvokeSigned(system.Assign(address, args.Owner), signers...)
}

// TransferLamports moves lamports out of a system owned account through the
// system program
func TransferLamports(inv *Invocation, from, to *AccountInfo, lamports uint64, fromSeeds [][]byte) error {
	if lamports == 0 {
		return nil
	}

	var signers [][][]byte
	if fromSeeds != nil {
		signers = append(signers, fromSeeds)
	}
	return inv.InvokeSigned(system.Transfer(from.Key, to.Key, lamports), signers...)
}
