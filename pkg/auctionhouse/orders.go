package auctionhouse

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func (p *Program) sell(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	var args auctionhouse_program.SellInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 9
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	wallet := accounts[0]
	tokenAccount := accounts[1]
	metadata := accounts[2]
	authority := accounts[3]
	feeAccount := accounts[5]
	sellerTradeState := accounts[6]
	freeTradeState := accounts[7]
	programAsSigner := accounts[8]

	house, err := loadAuctionHouse(accounts[4])
	if err != nil {
		return err
	}
	auth, err := authorize(inv, ixType, house, wallet, authority, numAccounts)
	if err != nil {
		return err
	}

	if err := house.checkAuthority(authority); err != nil {
		return err
	}
	if err := house.checkFeeAccount(feeAccount); err != nil {
		return err
	}
	if err := checkSignOff(house, auth); err != nil {
		return err
	}

	tokenState, err := loadOwnedTokenAccount(tokenAccount, wallet.Key, nil)
	if err != nil {
		return err
	}
	if args.TokenSize == 0 || tokenState.Amount < args.TokenSize {
		return errors.Wrapf(auctionhouse_program.ErrInvalidTokenAmount, "token account holds %d, listing %d", tokenState.Amount, args.TokenSize)
	}
	if err := p.metadata.ValidateMetadata(tokenState.Mint, metadata); err != nil {
		return err
	}

	err = auctionhouse_program.VerifyAddress(programAsSigner.Key, args.ProgramAsSignerBump, auctionhouse_program.ProgramAsSignerAddressSeeds()...)
	if err != nil {
		return err
	}

	key := &auctionhouse_program.TradeStateKey{
		Role:         auctionhouse_program.TradeStateRoleSeller,
		Wallet:       wallet.Key,
		AuctionHouse: house.key,
		TokenAccount: tokenAccount.Key,
		TreasuryMint: house.state.TreasuryMint,
		TokenMint:    tokenState.Mint,
		Price:        args.BuyerPrice,
		Size:         args.TokenSize,
	}
	freeKey := *key
	freeKey.Role = auctionhouse_program.TradeStateRoleFreeSeller
	if err := auctionhouse_program.VerifyTradeStateAddress(&freeKey, freeTradeState.Key, args.FreeTradeStateBump); err != nil {
		return err
	}

	// Without the wallet, the house can only re-price an existing free
	// listing, whose delegate the wallet already approved
	if !auth.Wallet {
		if args.BuyerPrice == 0 || !isTradeStateOpen(freeTradeState) || !house.state.CanChangeSalePrice || !auth.HouseSigned() {
			return auctionhouse_program.ErrSaleRequiresSigner
		}
	}

	payer, err := house.getFeePayer(auth, feeAccount, wallet)
	if err != nil {
		return err
	}

	created, err := openTradeState(inv, payer, sellerTradeState, key, args.TradeStateBump, args.TokenSize)
	if err != nil {
		return err
	}

	if auth.Wallet {
		state, err := loadTradeState(sellerTradeState)
		if err != nil {
			return err
		}
		if err := inv.Invoke(token.Approve(tokenAccount.Key, programAsSigner.Key, wallet.Key, state.Remaining)); err != nil {
			return err
		}
	}

	if created {
		inv.Emit(&ListingOpened{
			AuctionHouse: house.key,
			TradeState:   sellerTradeState.Key,
			Seller:       wallet.Key,
			TokenAccount: tokenAccount.Key,
			TokenMint:    tokenState.Mint,
			Metadata:     metadata.Key,
			Bookkeeper:   payer.info.Key,
			Price:        args.BuyerPrice,
			TokenSize:    args.TokenSize,
			OpenedAt:     inv.Now(),
		})
	}
	return nil
}

func (p *Program) buy(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType, public bool) error {
	var args auctionhouse_program.BuyInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 11
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	wallet := accounts[0]
	paymentAccount := accounts[1]
	treasuryMint := accounts[3]
	tokenAccountOrMint := accounts[4]
	metadata := accounts[5]
	escrow := accounts[6]
	authority := accounts[7]
	feeAccount := accounts[9]
	buyerTradeState := accounts[10]

	house, err := loadAuctionHouse(accounts[8])
	if err != nil {
		return err
	}
	auth, err := authorize(inv, ixType, house, wallet, authority, numAccounts)
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
	if err := checkSignOff(house, auth); err != nil {
		return err
	}
	escrowSeeds, err := house.checkEscrow(escrow, wallet, args.EscrowPaymentBump)
	if err != nil {
		return err
	}

	if !auth.Wallet {
		return errors.Wrapf(auctionhouse_program.ErrNoValidSignerPresent, "wallet %s", wallet.String())
	}
	if args.TokenSize == 0 {
		return auctionhouse_program.ErrInvalidTokenAmount
	}

	var tokenMint, tokenAccount ed25519.PublicKey
	if public {
		if _, err := loadMint(tokenAccountOrMint); err != nil {
			return err
		}
		tokenMint = tokenAccountOrMint.Key
	} else {
		tokenState, err := loadTokenAccount(tokenAccountOrMint)
		if err != nil {
			return err
		}
		if bytes.Equal(tokenState.Owner, wallet.Key) {
			return auctionhouse_program.ErrSelfTrade
		}
		if tokenState.Amount < args.TokenSize {
			return errors.Wrapf(auctionhouse_program.ErrInvalidTokenAmount, "token account holds %d, bid %d", tokenState.Amount, args.TokenSize)
		}
		tokenMint = tokenState.Mint
		tokenAccount = tokenAccountOrMint.Key
	}
	if err := p.metadata.ValidateMetadata(tokenMint, metadata); err != nil {
		return err
	}

	payer, err := house.getFeePayer(auth, feeAccount, wallet)
	if err != nil {
		return err
	}

	if err := topUpEscrow(inv, house, payer, wallet, paymentAccount, escrow, treasuryMint, escrowSeeds, args.BuyerPrice); err != nil {
		return err
	}

	role := auctionhouse_program.TradeStateRolePrivateBuyer
	if public {
		role = auctionhouse_program.TradeStateRolePublicBuyer
	}
	key := &auctionhouse_program.TradeStateKey{
		Role:         role,
		Wallet:       wallet.Key,
		AuctionHouse: house.key,
		TokenAccount: tokenAccount,
		TreasuryMint: house.state.TreasuryMint,
		TokenMint:    tokenMint,
		Price:        args.BuyerPrice,
		Size:         args.TokenSize,
	}

	created, err := openTradeState(inv, payer, buyerTradeState, key, args.TradeStateBump, args.TokenSize)
	if err != nil {
		return err
	}

	if created {
		inv.Emit(&BidPlaced{
			AuctionHouse: house.key,
			TradeState:   buyerTradeState.Key,
			Buyer:        wallet.Key,
			TokenAccount: tokenAccount,
			TokenMint:    tokenMint,
			Metadata:     metadata.Key,
			Bookkeeper:   payer.info.Key,
			Public:       public,
			Price:        args.BuyerPrice,
			TokenSize:    args.TokenSize,
			OpenedAt:     inv.Now(),
		})
	}
	return nil
}

// topUpEscrow transfers exactly the shortfall between the escrow balance and
// price from the buyer, or nothing when the escrow already covers it. Native
// escrows additionally keep their rent exempt minimum.
func topUpEscrow(
	inv *runtime.Invocation,
	house *auctionHouse,
	payer *feePayer,
	wallet, paymentAccount, escrow, treasuryMint *runtime.AccountInfo,
	escrowSeeds [][]byte,
	price uint64,
) error {
	if house.state.IsNative() {
		if !bytes.Equal(paymentAccount.Key, wallet.Key) || !isSystemAccount(escrow) {
			return auctionhouse_program.ErrExpectedSolAccount
		}

		required, err := checkedAdd(price, inv.Rent().MinimumBalance(0))
		if err != nil {
			return err
		}
		if escrow.Lamports() >= required {
			return nil
		}

		diff, err := checkedSub(required, escrow.Lamports())
		if err != nil {
			return err
		}
		if wallet.Lamports() < diff {
			return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "wallet holds %d, need %d", wallet.Lamports(), diff)
		}
		return runtime.TransferLamports(inv, wallet, escrow, diff, nil)
	}

	if err := createEscrowTokenAccount(inv, house, payer, escrow, treasuryMint, escrowSeeds); err != nil {
		return err
	}

	escrowState, err := loadOwnedTokenAccount(escrow, house.key, house.state.TreasuryMint)
	if err != nil {
		return err
	}
	if escrowState.Amount >= price {
		return nil
	}

	diff, err := checkedSub(price, escrowState.Amount)
	if err != nil {
		return err
	}

	source, err := loadOwnedTokenAccount(paymentAccount, wallet.Key, house.state.TreasuryMint)
	if err != nil {
		return err
	}
	if source.Amount < diff {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "payment account holds %d, need %d", source.Amount, diff)
	}
	return inv.Invoke(token.Transfer(paymentAccount.Key, escrow.Key, wallet.Key, diff))
}

func (p *Program) cancel(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	var args auctionhouse_program.CancelInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 7
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	wallet := accounts[0]
	tokenAccount := accounts[1]
	tokenMint := accounts[2]
	authority := accounts[3]
	feeAccount := accounts[5]
	tradeState := accounts[6]

	house, err := loadAuctionHouse(accounts[4])
	if err != nil {
		return err
	}
	auth, err := authorize(inv, ixType, house, wallet, authority, numAccounts)
	if err != nil {
		return err
	}

	if err := house.checkAuthority(authority); err != nil {
		return err
	}
	if err := house.checkFeeAccount(feeAccount); err != nil {
		return err
	}
	if !auth.Wallet && !auth.HouseSigned() {
		return auctionhouse_program.ErrNoValidSignerPresent
	}

	// Listings and private bids share a derivation, since a wallet can't bid
	// on its own token account. Public bids replace the token account.
	key := &auctionhouse_program.TradeStateKey{
		Role:         auctionhouse_program.TradeStateRoleSeller,
		Wallet:       wallet.Key,
		AuctionHouse: house.key,
		TokenAccount: tokenAccount.Key,
		TreasuryMint: house.state.TreasuryMint,
		TokenMint:    tokenMint.Key,
		Price:        args.BuyerPrice,
		Size:         args.TokenSize,
	}
	privateAddress, _, err := auctionhouse_program.GetTradeStateAddress(key)
	if err != nil {
		return err
	}
	key.Role = auctionhouse_program.TradeStateRolePublicBuyer
	publicAddress, _, err := auctionhouse_program.GetTradeStateAddress(key)
	if err != nil {
		return err
	}

	isPrivate := bytes.Equal(tradeState.Key, privateAddress)
	if !isPrivate && !bytes.Equal(tradeState.Key, publicAddress) {
		return errors.Wrapf(auctionhouse_program.ErrDerivedKeyInvalid, "trade state %s", tradeState.String())
	}
	if !isTradeStateOpen(tradeState) {
		return errors.Wrapf(auctionhouse_program.ErrTradeStateDoesNotExist, "trade state %s", tradeState.String())
	}

	payer, err := house.getFeePayer(auth, feeAccount, wallet)
	if err != nil {
		return err
	}

	// Canceling a listing with the wallet's signature also revokes the
	// program as signer delegate
	if isPrivate && auth.Wallet && tokenAccount.IsOwnedBy(token.ProgramKey) {
		tokenState, err := loadTokenAccount(tokenAccount)
		if err != nil {
			return err
		}
		if !bytes.Equal(tokenState.Mint, tokenMint.Key) {
			return errors.Wrapf(auctionhouse_program.ErrMintMismatch, "token account %s", tokenAccount.String())
		}
		if bytes.Equal(tokenState.Owner, wallet.Key) && len(tokenState.Delegate) > 0 {
			if err := inv.Invoke(token.Revoke(tokenAccount.Key, wallet.Key)); err != nil {
				return err
			}
		}
	}

	return p.closeTradeState(inv, house, tradeState, payer, CloseReasonCanceled)
}

// closeTradeState closes an Open trade state into the fee payer and records
// the closure
func (p *Program) closeTradeState(inv *runtime.Invocation, house *auctionHouse, tradeState *runtime.AccountInfo, payer *feePayer, reason CloseReason) error {
	if err := closeTradeState(tradeState, payer.info); err != nil {
		return err
	}

	inv.Emit(&TradeStateClosed{
		AuctionHouse: house.key,
		TradeState:   tradeState.Key,
		Reason:       reason,
		ClosedAt:     inv.Now(),
	})
	return nil
}
