package auctionhouse

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func (p *Program) executeSale(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	var args auctionhouse_program.ExecuteSaleInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 17
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	buyer := accounts[0]
	seller := accounts[1]
	tokenAccount := accounts[2]
	tokenMint := accounts[3]
	metadata := accounts[4]
	treasuryMint := accounts[5]
	escrow := accounts[6]
	sellerPaymentReceipt := accounts[7]
	buyerReceiptToken := accounts[8]
	authority := accounts[9]
	feeAccount := accounts[11]
	treasury := accounts[12]
	buyerTradeState := accounts[13]
	sellerTradeState := accounts[14]
	freeTradeState := accounts[15]
	programAsSigner := accounts[16]

	house, err := loadAuctionHouse(accounts[10])
	if err != nil {
		return err
	}
	auth, err := authorize(inv, ixType, house, seller, authority, numAccounts)
	if err != nil {
		return err
	}

	if err := house.checkAuthority(authority); err != nil {
		return err
	}
	if err := house.checkTreasuryMint(treasuryMint); err != nil {
		return err
	}
	if err := house.checkFeeAccount(feeAccount); err != nil {
		return err
	}
	if err := house.checkTreasury(treasury); err != nil {
		return err
	}
	if err := checkSignOff(house, auth); err != nil {
		return err
	}

	if bytes.Equal(buyer.Key, seller.Key) {
		return auctionhouse_program.ErrSelfTrade
	}
	if args.TokenSize == 0 {
		return auctionhouse_program.ErrInvalidTokenAmount
	}

	if _, err := loadMint(tokenMint); err != nil {
		return err
	}
	tokenState, err := loadOwnedTokenAccount(tokenAccount, seller.Key, tokenMint.Key)
	if err != nil {
		return err
	}
	if err := p.metadata.ValidateMetadata(tokenMint.Key, metadata); err != nil {
		return err
	}

	escrowSeeds, err := house.checkEscrow(escrow, buyer, args.EscrowPaymentBump)
	if err != nil {
		return err
	}

	pasSeeds := auctionhouse_program.ProgramAsSignerAddressSeeds()
	if err := auctionhouse_program.VerifyAddress(programAsSigner.Key, args.ProgramAsSignerBump, pasSeeds...); err != nil {
		return err
	}
	pasSeeds = auctionhouse_program.WithBump(pasSeeds, args.ProgramAsSignerBump)

	sellerKey := &auctionhouse_program.TradeStateKey{
		Role:         auctionhouse_program.TradeStateRoleSeller,
		Wallet:       seller.Key,
		AuctionHouse: house.key,
		TokenAccount: tokenAccount.Key,
		TreasuryMint: house.state.TreasuryMint,
		TokenMint:    tokenMint.Key,
		Price:        args.BuyerPrice,
		Size:         args.TokenSize,
	}
	sellerAddress, _, err := auctionhouse_program.GetTradeStateAddress(sellerKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(sellerAddress, sellerTradeState.Key) {
		return errors.Wrapf(auctionhouse_program.ErrDerivedKeyInvalid, "seller trade state %s", sellerTradeState.String())
	}

	freeKey := *sellerKey
	freeKey.Role = auctionhouse_program.TradeStateRoleFreeSeller
	if err := auctionhouse_program.VerifyTradeStateAddress(&freeKey, freeTradeState.Key, args.FreeTradeStateBump); err != nil {
		return err
	}

	fillSize, fillPrice := args.TokenSize, args.BuyerPrice
	if args.IsPartial() {
		if args.PartialOrderSize == nil || args.PartialOrderPrice == nil {
			return errors.Wrap(auctionhouse_program.ErrPartialPriceMismatch, "partial orders require both size and price")
		}
		fillSize, fillPrice = *args.PartialOrderSize, *args.PartialOrderPrice
	}

	if err := checkBuyerTradeState(buyer, buyerTradeState, &freeKey, fillPrice, fillSize); err != nil {
		return err
	}

	// A missing listing can still be filled from a free listing when the
	// house is allowed to set the sale price
	listing := sellerTradeState
	isFreeListing := false
	if !isTradeStateOpen(sellerTradeState) {
		if !isTradeStateOpen(freeTradeState) {
			return errors.Wrapf(auctionhouse_program.ErrTradeStateDoesNotExist, "seller trade state %s", sellerTradeState.String())
		}
		if !house.state.CanChangeSalePrice || !auth.HouseSigned() {
			return auctionhouse_program.ErrSaleRequiresSigner
		}
		listing = freeTradeState
		isFreeListing = true
	}
	listingState, err := loadTradeState(listing)
	if err != nil {
		return err
	}

	if args.IsPartial() {
		if fillSize == 0 || fillSize > listingState.Remaining {
			return errors.Wrapf(auctionhouse_program.ErrNotEnoughTokensAvailable, "listing has %d remaining, fill %d", listingState.Remaining, fillSize)
		}

		expected, err := checkedMul(args.BuyerPrice/args.TokenSize, fillSize)
		if err != nil {
			return err
		}
		if expected != fillPrice {
			return errors.Wrapf(auctionhouse_program.ErrPartialPriceMismatch, "expected %d, got %d", expected, fillPrice)
		}
	} else if listingState.Remaining != args.TokenSize {
		return errors.Wrapf(auctionhouse_program.ErrListingPartiallyFilled, "listing has %d remaining", listingState.Remaining)
	}

	if tokenState.Amount < fillSize {
		return errors.Wrapf(auctionhouse_program.ErrNotEnoughTokensAvailable, "token account holds %d, fill %d", tokenState.Amount, fillSize)
	}
	if !tokenState.IsDelegatedTo(programAsSigner.Key, fillSize) {
		return errors.Wrapf(auctionhouse_program.ErrSellerTokenAccountNotDelegated, "token account %s", tokenAccount.String())
	}

	payer, err := house.getFeePayer(auth, feeAccount, seller, buyer)
	if err != nil {
		return err
	}

	fee, err := computeFee(fillPrice, house.state.SellerFeeBasisPoints)
	if err != nil {
		return err
	}
	proceeds, err := checkedSub(fillPrice, fee)
	if err != nil {
		return err
	}

	if house.state.IsNative() {
		if !bytes.Equal(sellerPaymentReceipt.Key, seller.Key) {
			return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "seller payment receipt %s", sellerPaymentReceipt.String())
		}
		if err := checkEscrowDebit(inv, escrow, fillPrice); err != nil {
			return err
		}
		if err := runtime.TransferLamports(inv, escrow, seller, proceeds, escrowSeeds); err != nil {
			return err
		}
		if err := runtime.TransferLamports(inv, escrow, treasury, fee, escrowSeeds); err != nil {
			return err
		}
	} else {
		if err := createAssociatedTokenAccount(inv, payer, sellerPaymentReceipt, seller, treasuryMint); err != nil {
			return err
		}

		escrowState, err := loadOwnedTokenAccount(escrow, house.key, house.state.TreasuryMint)
		if err != nil {
			return err
		}
		if escrowState.Amount < fillPrice {
			return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "escrow holds %d, need %d", escrowState.Amount, fillPrice)
		}

		for _, payout := range []struct {
			dest   *runtime.AccountInfo
			amount uint64
		}{
			{sellerPaymentReceipt, proceeds},
			{treasury, fee},
		} {
			if payout.amount == 0 {
				continue
			}

			ix := token.Transfer(escrow.Key, payout.dest.Key, house.key, payout.amount)
			if err := inv.InvokeSigned(ix, house.state.SignerSeeds()); err != nil {
				return err
			}
		}
	}

	if err := createAssociatedTokenAccount(inv, payer, buyerReceiptToken, buyer, tokenMint); err != nil {
		return err
	}
	ix := token.Transfer(tokenAccount.Key, buyerReceiptToken.Key, programAsSigner.Key, fillSize)
	if err := inv.InvokeSigned(ix, pasSeeds); err != nil {
		return err
	}

	if err := p.closeTradeState(inv, house, buyerTradeState, payer, CloseReasonFilled); err != nil {
		return err
	}

	remaining := listingState.Remaining - fillSize
	if remaining > 0 {
		if err := updateRemaining(listing, listingState, remaining); err != nil {
			return err
		}
	} else {
		if err := p.closeTradeState(inv, house, listing, payer, CloseReasonFilled); err != nil {
			return err
		}

		// The free listing of a fully filled token account has nothing left
		// to sell
		if !isFreeListing && !bytes.Equal(freeTradeState.Key, listing.Key) && isTradeStateOpen(freeTradeState) {
			if err := p.closeTradeState(inv, house, freeTradeState, payer, CloseReasonFilled); err != nil {
				return err
			}
		}
	}

	inv.Emit(&SaleExecuted{
		AuctionHouse:     house.key,
		Buyer:            buyer.Key,
		Seller:           seller.Key,
		TokenMint:        tokenMint.Key,
		BuyerTradeState:  buyerTradeState.Key,
		SellerTradeState: listing.Key,
		Price:            fillPrice,
		TokenSize:        fillSize,
		Fee:              fee,
		SellerRemaining:  remaining,
		ExecutedAt:       inv.Now(),
	})

	metrics.RecordEvent(inv.Context(), saleExecutedEventName, map[string]interface{}{
		"auction_house": base58.Encode(house.key),
		"token_mint":    base58.Encode(tokenMint.Key),
		"price":         fillPrice,
		"fee":           fee,
		"token_size":    fillSize,
		"partial":       args.IsPartial(),
	})

	return nil
}

// checkBuyerTradeState requires the buyer trade state be an Open private bid
// on the listed token account, or an Open public bid on its mint, at the fill
// price and size
func checkBuyerTradeState(buyer, tradeState *runtime.AccountInfo, listingKey *auctionhouse_program.TradeStateKey, price, size uint64) error {
	key := *listingKey
	key.Wallet = buyer.Key
	key.Price = price
	key.Size = size

	for _, role := range []auctionhouse_program.TradeStateRole{
		auctionhouse_program.TradeStateRolePrivateBuyer,
		auctionhouse_program.TradeStateRolePublicBuyer,
	} {
		key.Role = role
		address, _, err := auctionhouse_program.GetTradeStateAddress(&key)
		if err != nil {
			return err
		}
		if !bytes.Equal(address, tradeState.Key) {
			continue
		}

		if !isTradeStateOpen(tradeState) {
			return errors.Wrapf(auctionhouse_program.ErrTradeStateDoesNotExist, "buyer trade state %s", tradeState.String())
		}
		return nil
	}

	return errors.Wrapf(auctionhouse_program.ErrDerivedKeyInvalid, "buyer trade state %s", tradeState.String())
}
