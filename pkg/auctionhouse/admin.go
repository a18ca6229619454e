package auctionhouse

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func (p *Program) createAuctionHouse(inv *runtime.Invocation) error {
	var args auctionhouse_program.CreateAuctionHouseInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 9)
	if err != nil {
		return err
	}
	treasuryMint := accounts[0]
	payer := accounts[1]
	authority := accounts[2]
	feeWithdrawalDestination := accounts[3]
	treasuryWithdrawalDestination := accounts[4]
	treasuryWithdrawalDestinationOwner := accounts[5]
	auctionHouseInfo := accounts[6]
	feeAccount := accounts[7]
	treasury := accounts[8]

	if !authority.IsSigner {
		return errors.Wrapf(auctionhouse_program.ErrNoValidSignerPresent, "authority %s", authority.String())
	}

	if err := p.checkBasisPoints(inv, args.SellerFeeBasisPoints); err != nil {
		return err
	}

	// The authority creating the auction house is its permanent creator
	creator := authority.Key
	ahSeeds := auctionhouse_program.AuctionHouseAddressSeeds(creator, treasuryMint.Key)
	if err := auctionhouse_program.VerifyAddress(auctionHouseInfo.Key, args.Bump, ahSeeds...); err != nil {
		return err
	}
	if err := auctionhouse_program.VerifyAddress(feeAccount.Key, args.FeePayerBump, auctionhouse_program.FeeAccountAddressSeeds(auctionHouseInfo.Key)...); err != nil {
		return err
	}
	if err := auctionhouse_program.VerifyAddress(treasury.Key, args.TreasuryBump, auctionhouse_program.TreasuryAddressSeeds(auctionHouseInfo.Key)...); err != nil {
		return err
	}

	if auctionHouseInfo.IsOwnedBy(auctionhouse_program.PROGRAM_ID) || len(auctionHouseInfo.Data()) > 0 {
		return errors.Wrapf(auctionhouse_program.ErrAccountAlreadyInitialized, "auction house %s", auctionHouseInfo.String())
	}

	isNative := bytes.Equal(treasuryMint.Key, auctionhouse_program.NATIVE_MINT)
	if !isNative {
		if _, err := loadMint(treasuryMint); err != nil {
			return err
		}
	}
	if err := checkTreasuryWithdrawalDestination(isNative, treasuryMint, treasuryWithdrawalDestination, treasuryWithdrawalDestinationOwner); err != nil {
		return err
	}

	state := &auctionhouse_program.AuctionHouseAccount{
		AuctionHouseFeeAccount:        feeAccount.Key,
		AuctionHouseTreasury:          treasury.Key,
		TreasuryWithdrawalDestination: treasuryWithdrawalDestination.Key,
		FeeWithdrawalDestination:      feeWithdrawalDestination.Key,
		TreasuryMint:                  treasuryMint.Key,
		Authority:                     authority.Key,
		Creator:                       creator,
		Bump:                          args.Bump,
		TreasuryBump:                  args.TreasuryBump,
		FeePayerBump:                  args.FeePayerBump,
		SellerFeeBasisPoints:          args.SellerFeeBasisPoints,
		RequiresSignOff:               args.RequiresSignOff,
		CanChangeSalePrice:            args.CanChangeSalePrice,
	}

	err = runtime.CreateProgramAccount(inv, &runtime.CreateProgramAccountArgs{
		Funder:       payer,
		Account:      auctionHouseInfo,
		Owner:        auctionhouse_program.PROGRAM_ID,
		Size:         auctionhouse_program.AuctionHouseAccountSize,
		AccountSeeds: auctionhouse_program.WithBump(ahSeeds, args.Bump),
	})
	if err != nil {
		return err
	}
	if err := auctionHouseInfo.SetData(state.Marshal()); err != nil {
		return err
	}

	// The fee account pays rent on behalf of the house, and must itself
	// stay rent exempt
	rentMinimum := inv.Rent().MinimumBalance(0)
	if feeAccount.Lamports() < rentMinimum {
		if err := runtime.TransferLamports(inv, payer, feeAccount, rentMinimum-feeAccount.Lamports(), nil); err != nil {
			return err
		}
	}

	if isNative {
		if treasury.Lamports() < rentMinimum {
			if err := runtime.TransferLamports(inv, payer, treasury, rentMinimum-treasury.Lamports(), nil); err != nil {
				return err
			}
		}
	} else if !treasury.IsOwnedBy(token.ProgramKey) {
		err = runtime.CreateProgramAccount(inv, &runtime.CreateProgramAccountArgs{
			Funder:       payer,
			Account:      treasury,
			Owner:        token.ProgramKey,
			Size:         token.AccountSize,
			AccountSeeds: auctionhouse_program.WithBump(auctionhouse_program.TreasuryAddressSeeds(auctionHouseInfo.Key), args.TreasuryBump),
		})
		if err != nil {
			return err
		}
		if err := inv.Invoke(token.InitializeAccount(treasury.Key, treasuryMint.Key, auctionHouseInfo.Key)); err != nil {
			return err
		}
	}

	p.log.WithFields(logrus.Fields{
		"method":        "createAuctionHouse",
		"auction_house": base58.Encode(auctionHouseInfo.Key),
		"treasury_mint": base58.Encode(treasuryMint.Key),
		"authority":     base58.Encode(authority.Key),
	}).Debug("auction house created")

	return nil
}

func (p *Program) updateAuctionHouse(inv *runtime.Invocation) error {
	var args auctionhouse_program.UpdateAuctionHouseInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 8)
	if err != nil {
		return err
	}
	treasuryMint := accounts[0]
	authority := accounts[2]
	newAuthority := accounts[3]
	feeWithdrawalDestination := accounts[4]
	treasuryWithdrawalDestination := accounts[5]
	treasuryWithdrawalDestinationOwner := accounts[6]

	house, err := loadAuctionHouse(accounts[7])
	if err != nil {
		return err
	}
	if err := checkAuthoritySigned(house, authority); err != nil {
		return err
	}
	if err := house.checkTreasuryMint(treasuryMint); err != nil {
		return err
	}

	if args.SellerFeeBasisPoints != nil {
		if err := p.checkBasisPoints(inv, *args.SellerFeeBasisPoints); err != nil {
			return err
		}
		house.state.SellerFeeBasisPoints = *args.SellerFeeBasisPoints
	}
	if args.RequiresSignOff != nil {
		house.state.RequiresSignOff = *args.RequiresSignOff
	}
	if args.CanChangeSalePrice != nil {
		house.state.CanChangeSalePrice = *args.CanChangeSalePrice
	}

	err = checkTreasuryWithdrawalDestination(house.state.IsNative(), treasuryMint, treasuryWithdrawalDestination, treasuryWithdrawalDestinationOwner)
	if err != nil {
		return err
	}

	house.state.Authority = newAuthority.Key
	house.state.FeeWithdrawalDestination = feeWithdrawalDestination.Key
	house.state.TreasuryWithdrawalDestination = treasuryWithdrawalDestination.Key

	return house.save()
}

func (p *Program) withdrawFromFee(inv *runtime.Invocation) error {
	var args auctionhouse_program.WithdrawFromFeeInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 4)
	if err != nil {
		return err
	}
	authority := accounts[0]
	destination := accounts[1]
	feeAccount := accounts[2]

	house, err := loadAuctionHouse(accounts[3])
	if err != nil {
		return err
	}
	if err := checkAuthoritySigned(house, authority); err != nil {
		return err
	}
	if err := house.checkFeeAccount(feeAccount); err != nil {
		return err
	}
	if !bytes.Equal(destination.Key, house.state.FeeWithdrawalDestination) {
		return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "fee withdrawal destination %s", destination.String())
	}

	if feeAccount.Lamports() < args.Amount {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "fee account holds %d, need %d", feeAccount.Lamports(), args.Amount)
	}
	return runtime.TransferLamports(inv, feeAccount, destination, args.Amount, house.feeAccountSeeds())
}

func (p *Program) withdrawFromTreasury(inv *runtime.Invocation) error {
	var args auctionhouse_program.WithdrawFromTreasuryInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 5)
	if err != nil {
		return err
	}
	treasuryMint := accounts[0]
	authority := accounts[1]
	destination := accounts[2]
	treasury := accounts[3]

	house, err := loadAuctionHouse(accounts[4])
	if err != nil {
		return err
	}
	if err := checkAuthoritySigned(house, authority); err != nil {
		return err
	}
	if err := house.checkTreasuryMint(treasuryMint); err != nil {
		return err
	}
	if err := house.checkTreasury(treasury); err != nil {
		return err
	}
	if !bytes.Equal(destination.Key, house.state.TreasuryWithdrawalDestination) {
		return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "treasury withdrawal destination %s", destination.String())
	}

	if house.state.IsNative() {
		if treasury.Lamports() < args.Amount {
			return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "treasury holds %d, need %d", treasury.Lamports(), args.Amount)
		}
		return runtime.TransferLamports(inv, treasury, destination, args.Amount, house.treasurySeeds())
	}

	balance, err := loadTokenAccount(treasury)
	if err != nil {
		return err
	}
	if balance.Amount < args.Amount {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "treasury holds %d, need %d", balance.Amount, args.Amount)
	}
	return inv.InvokeSigned(
		token.Transfer(treasury.Key, destination.Key, house.key, args.Amount),
		house.state.SignerSeeds(),
	)
}

func (p *Program) delegateAuctioneer(inv *runtime.Invocation) error {
	var args auctionhouse_program.DelegateAuctioneerInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 4)
	if err != nil {
		return err
	}
	authority := accounts[1]
	auctioneerAuthority := accounts[2]
	record := accounts[3]

	house, err := loadAuctionHouse(accounts[0])
	if err != nil {
		return err
	}
	if err := checkAuthoritySigned(house, authority); err != nil {
		return err
	}

	if house.state.HasAuctioneer {
		return errors.Wrapf(auctionhouse_program.ErrAuctionHouseAlreadyDelegated, "auction house %s", base58.Encode(house.key))
	}

	seeds := auctionhouse_program.AuctioneerAddressSeeds(house.key, auctioneerAuthority.Key)
	expected, bump, err := auctionhouse_program.GetAuctioneerAddress(&auctionhouse_program.GetAuctioneerAddressArgs{
		AuctionHouse:        house.key,
		AuctioneerAuthority: auctioneerAuthority.Key,
	})
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, record.Key) {
		return errors.Wrapf(auctionhouse_program.ErrDerivedKeyInvalid, "auctioneer record %s", record.String())
	}

	err = runtime.CreateProgramAccount(inv, &runtime.CreateProgramAccountArgs{
		Funder:       authority,
		Account:      record,
		Owner:        auctionhouse_program.PROGRAM_ID,
		Size:         auctionhouse_program.AuctioneerAccountSize,
		AccountSeeds: auctionhouse_program.WithBump(seeds, bump),
	})
	if err != nil {
		return err
	}

	state := &auctionhouse_program.AuctioneerAccount{
		AuctioneerAuthority: auctioneerAuthority.Key,
		AuctionHouse:        house.key,
		Bump:                bump,
		Scopes:              args.Scopes,
	}
	if err := record.SetData(state.Marshal()); err != nil {
		return err
	}

	house.state.HasAuctioneer = true
	house.state.Auctioneer = record.Key
	house.state.AuctioneerPdaBump = bump

	p.log.WithFields(logrus.Fields{
		"method":               "delegateAuctioneer",
		"auction_house":        base58.Encode(house.key),
		"auctioneer_authority": base58.Encode(auctioneerAuthority.Key),
		"scopes":               args.Scopes.String(),
	}).Debug("auctioneer delegated")

	return house.save()
}

func (p *Program) updateAuctioneer(inv *runtime.Invocation) error {
	var args auctionhouse_program.DelegateAuctioneerInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	accounts, err := getAccounts(inv, 4)
	if err != nil {
		return err
	}
	authority := accounts[1]
	auctioneerAuthority := accounts[2]
	record := accounts[3]

	house, err := loadAuctionHouse(accounts[0])
	if err != nil {
		return err
	}
	if err := checkAuthoritySigned(house, authority); err != nil {
		return err
	}

	if !house.state.HasAuctioneer {
		return auctionhouse_program.ErrNoAuctioneerProgramSet
	}
	if !bytes.Equal(record.Key, house.state.Auctioneer) || !record.IsOwnedBy(auctionhouse_program.PROGRAM_ID) {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer record %s", record.String())
	}

	var state auctionhouse_program.AuctioneerAccount
	if err := state.Unmarshal(record.Data()); err != nil {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer record %s", record.String())
	}
	if !bytes.Equal(state.AuctioneerAuthority, auctioneerAuthority.Key) || !bytes.Equal(state.AuctionHouse, house.key) {
		return errors.Wrapf(auctionhouse_program.ErrInvalidAuctioneer, "auctioneer record %s", record.String())
	}

	state.Scopes = args.Scopes
	return record.SetData(state.Marshal())
}

func (p *Program) checkBasisPoints(inv *runtime.Invocation, basisPoints uint16) error {
	limit := p.conf.maxSellerFeeBasisPoints.Get(inv.Context())
	if basisPoints > auctionhouse_program.MaxBasisPoints || uint64(basisPoints) > limit {
		return errors.Wrapf(auctionhouse_program.ErrInvalidBasisPoints, "%d basis points", basisPoints)
	}
	return nil
}

func checkAuthoritySigned(house *auctionHouse, authority *runtime.AccountInfo) error {
	if err := house.checkAuthority(authority); err != nil {
		return err
	}
	if !authority.IsSigner {
		return errors.Wrapf(auctionhouse_program.ErrNoValidSignerPresent, "authority %s", authority.String())
	}
	return nil
}

// checkTreasuryWithdrawalDestination requires native destinations be the
// owner itself, and SPL destinations be a token account of the treasury mint
// held by the owner
func checkTreasuryWithdrawalDestination(isNative bool, treasuryMint, destination, owner *runtime.AccountInfo) error {
	if isNative {
		if !bytes.Equal(destination.Key, owner.Key) {
			return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "treasury withdrawal destination %s", destination.String())
		}
		return nil
	}

	_, err := loadOwnedTokenAccount(destination, owner.Key, treasuryMint.Key)
	return err
}
