package auctionhouse

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// AuthorizationContext records who authorized an instruction. Handler logic
// is identical for the direct and auctioneer forms of an instruction, and only
// differs by the context it runs with.
type AuthorizationContext struct {
	// Wallet is set when the wallet owning the funds or tokens signed
	Wallet bool

	// Authority is set when the auction house's root authority signed, either
	// directly or as a co-signer of a forwarded instruction
	Authority bool

	// Auctioneer is set when a delegated auctioneer signed and holds the
	// scope for the instruction
	Auctioneer bool
}

// HouseSigned reports whether the root authority approved the instruction.
// An auctioneer only forwards on behalf of its signer, so it never stands in
// for the authority on sign-off, re-pricing or cancels of other wallets.
func (c *AuthorizationContext) HouseSigned() bool {
	return c.Authority
}

// FeeAccountPays reports whether rent for accounts the instruction creates
// comes from the auction house fee account
func (c *AuthorizationContext) FeeAccountPays() bool {
	return c.Authority || c.Auctioneer
}

// AssertValidAuctioneerAndScope fails closed unless the auction house has an
// auctioneer, record is the canonical, program owned scope record of
// auctioneerAuthority for the auction house, and the record grants scope.
func AssertValidAuctioneerAndScope(
	auctionHouseKey []byte,
	auctionHouse *auctionhouse_program.AuctionHouseAccount,
	auctioneerAuthority *runtime.AccountInfo,
	record *runtime.AccountInfo,
	scope auctionhouse_program.AuthorityScope,
) error {
	if !auctionHouse.HasAuctioneer {
		return auctionhouse_program.ErrNoAuctioneerProgramSet
	}

	if !bytes.Equal(record.Key, auctionHouse.Auctioneer) {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "record %s is not the auction house's auctioneer", record.String())
	}

	if !record.IsOwnedBy(auctionhouse_program.PROGRAM_ID) {
		return errors.Wrapf(auctionhouse_program.ErrIncorrectOwner, "auctioneer record %s", record.String())
	}

	var state auctionhouse_program.AuctioneerAccount
	if err := state.Unmarshal(record.Data()); err != nil {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer record %s: %s", record.String(), err.Error())
	}

	seeds := auctionhouse_program.AuctioneerAddressSeeds(auctionHouseKey, auctioneerAuthority.Key)
	if err := auctionhouse_program.VerifyAddress(record.Key, state.Bump, seeds...); err != nil {
		return err
	}

	if !bytes.Equal(state.AuctioneerAuthority, auctioneerAuthority.Key) || !bytes.Equal(state.AuctionHouse, auctionHouseKey) {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer record %s", record.String())
	}

	if !state.Scopes.Has(scope) {
		return errors.Wrapf(auctionhouse_program.ErrMissingAuctioneerScope, "scope %s", scope)
	}

	return nil
}

// authorize builds the authorization context of an instruction.
//
// Auctioneer forms must carry a signing auctioneer authority with the scope of
// the instruction. Direct forms are rejected on auction houses with an
// auctioneer, except for wallet signed withdrawals and cancels so funds and
// tokens can always be recovered.
func authorize(inv *runtime.Invocation, ix auctionhouse_program.InstructionType, house *auctionHouse, wallet, authority *runtime.AccountInfo, numAccounts int) (*AuthorizationContext, error) {
	res := &AuthorizationContext{
		Wallet:    wallet != nil && wallet.IsSigner,
		Authority: authority.IsSigner,
	}

	if !ix.IsAuctioneerVariant() {
		if !house.state.HasAuctioneer {
			return res, nil
		}

		switch ix {
		case auctionhouse_program.InstructionTypeWithdraw, auctionhouse_program.InstructionTypeCancel:
			if res.Wallet {
				res.Authority = false
				return res, nil
			}
		}
		return nil, auctionhouse_program.ErrMustUseAuctioneerHandler
	}

	scope, ok := ix.Scope()
	if !ok {
		return nil, auctionhouse_program.ErrUnknownInstruction
	}

	auctioneerAuthority, err := inv.Account(numAccounts)
	if err != nil {
		return nil, errors.Wrap(auctionhouse_program.ErrMissingAccount, err.Error())
	}
	record, err := inv.Account(numAccounts + 1)
	if err != nil {
		return nil, errors.Wrap(auctionhouse_program.ErrMissingAccount, err.Error())
	}

	if !auctioneerAuthority.IsSigner {
		return nil, errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer authority %s did not sign", auctioneerAuthority.String())
	}

	if err := AssertValidAuctioneerAndScope(house.key, house.state, auctioneerAuthority, record, scope); err != nil {
		return nil, err
	}

	res.Auctioneer = true
	return res, nil
}
