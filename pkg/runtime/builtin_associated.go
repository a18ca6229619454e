package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/token"
)

// associatedTokenProgram creates the canonical token account of a wallet for
// a mint
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/0639953c7dd0f5228c3ceda3ba68fece3b46ff1d/associated-token-account/program/src/processor.rs
type associatedTokenProgram struct{}

func (associatedTokenProgram) ProgramId() ed25519.PublicKey {
	return token.AssociatedTokenAccountProgramKey
}

func (p associatedTokenProgram) Process(inv *Invocation) error {
	if len(inv.Data()) > 1 || (len(inv.Data()) == 1 && inv.Data()[0] > 1) {
		return errors.Wrap(ErrInvalidArgument, "unsupported associated token account instruction")
	}

	funder, err := inv.Account(0)
	if err != nil {
		return err
	}
	associated, err := inv.Account(1)
	if err != nil {
		return err
	}
	wallet, err := inv.Account(2)
	if err != nil {
		return err
	}
	mint, err := inv.Account(3)
	if err != nil {
		return err
	}

	seeds := [][]byte{wallet.Key, token.ProgramKey, mint.Key}
	expected, bump, err := solana.FindProgramAddressAndBump(token.AssociatedTokenAccountProgramKey, seeds...)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, associated.Key) {
		return errors.Wrapf(ErrInvalidArgument, "associated address %s does not match wallet and mint", associated.String())
	}

	if token.IsIdempotentCreate(inv.Data()) && associated.IsOwnedBy(token.ProgramKey) {
		existing, err := loadTokenAccount(associated)
		if err != nil {
			return err
		}
		if !bytes.Equal(existing.Owner, wallet.Key) {
			return errors.Wrapf(ErrTokenOwnerMismatch, "associated account %s", associated.String())
		}
		if !bytes.Equal(existing.Mint, mint.Key) {
			return errors.Wrapf(ErrTokenMintMismatch, "associated account %s", associated.String())
		}
		return nil
	}

	err = CreateProgramAccount(inv, &CreateProgramAccountArgs{
		Funder:       funder,
		Account:      associated,
		Owner:        token.ProgramKey,
		Size:         token.AccountSize,
		AccountSeeds: append(seeds, []byte{bump}),
	})
	if err != nil {
		return err
	}

	return inv.Invoke(token.InitializeAccount(associated.Key, mint.Key, wallet.Key))
}
