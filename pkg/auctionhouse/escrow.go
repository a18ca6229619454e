package auctionhouse

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func (p *Program) deposit(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	var args auctionhouse_program.DepositInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 8
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	wallet := accounts[0]
	paymentAccount := accounts[1]
	escrow := accounts[3]
	treasuryMint := accounts[4]
	authority := accounts[5]
	feeAccount := accounts[7]

	house, err := loadAuctionHouse(accounts[6])
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
	escrowSeeds, err := house.checkEscrow(escrow, wallet, args.EscrowPaymentBump)
	if err != nil {
		return err
	}

	if !auth.Wallet {
		return errors.Wrapf(auctionhouse_program.ErrNoValidSignerPresent, "wallet %s", wallet.String())
	}

	payer, err := house.getFeePayer(auth, feeAccount, wallet)
	if err != nil {
		return err
	}

	if house.state.IsNative() {
		if !bytes.Equal(paymentAccount.Key, wallet.Key) || !isSystemAccount(escrow) {
			return auctionhouse_program.ErrExpectedSolAccount
		}

		// The escrow must stay rent exempt on its own, so the first deposit
		// also covers its rent
		amount := args.Amount
		if rentMinimum := inv.Rent().MinimumBalance(0); escrow.Lamports() < rentMinimum {
			amount, err = checkedAdd(amount, rentMinimum-escrow.Lamports())
			if err != nil {
				return err
			}
		}

		if wallet.Lamports() < amount {
			return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "wallet holds %d, need %d", wallet.Lamports(), amount)
		}
		return runtime.TransferLamports(inv, wallet, escrow, amount, nil)
	}

	if err := createEscrowTokenAccount(inv, house, payer, escrow, treasuryMint, escrowSeeds); err != nil {
		return err
	}

	source, err := loadOwnedTokenAccount(paymentAccount, wallet.Key, house.state.TreasuryMint)
	if err != nil {
		return err
	}
	if source.Amount < args.Amount {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "payment account holds %d, need %d", source.Amount, args.Amount)
	}
	if args.Amount == 0 {
		return nil
	}
	return inv.Invoke(token.Transfer(paymentAccount.Key, escrow.Key, wallet.Key, args.Amount))
}

func (p *Program) withdraw(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	var args auctionhouse_program.WithdrawInstructionArgs
	if err := args.Unmarshal(inv.Data()); err != nil {
		return err
	}

	const numAccounts = 7
	accounts, err := getAccounts(inv, numAccounts)
	if err != nil {
		return err
	}
	wallet := accounts[0]
	receipt := accounts[1]
	escrow := accounts[2]
	treasuryMint := accounts[3]
	authority := accounts[4]
	feeAccount := accounts[6]

	house, err := loadAuctionHouse(accounts[5])
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
	escrowSeeds, err := house.checkEscrow(escrow, wallet, args.EscrowPaymentBump)
	if err != nil {
		return err
	}

	// The house may withdraw on a buyer's behalf, but only ever to the
	// buyer's own receipt account
	if !auth.Wallet && !auth.HouseSigned() {
		return auctionhouse_program.ErrNoValidSignerPresent
	}

	payer, err := house.getFeePayer(auth, feeAccount, wallet)
	if err != nil {
		return err
	}

	if house.state.IsNative() {
		if !bytes.Equal(receipt.Key, wallet.Key) {
			return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "receipt account %s", receipt.String())
		}
		if err := checkEscrowDebit(inv, escrow, args.Amount); err != nil {
			return err
		}
		return runtime.TransferLamports(inv, escrow, receipt, args.Amount, escrowSeeds)
	}

	if err := createAssociatedTokenAccount(inv, payer, receipt, wallet, treasuryMint); err != nil {
		return err
	}

	balance, err := loadOwnedTokenAccount(escrow, house.key, house.state.TreasuryMint)
	if err != nil {
		return err
	}
	if balance.Amount < args.Amount {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "escrow holds %d, need %d", balance.Amount, args.Amount)
	}
	if args.Amount == 0 {
		return nil
	}
	return inv.InvokeSigned(
		token.Transfer(escrow.Key, receipt.Key, house.key, args.Amount),
		house.state.SignerSeeds(),
	)
}

// checkEscrowDebit verifies a native escrow can pay amount, and is either
// drained or left rent exempt
func checkEscrowDebit(inv *runtime.Invocation, escrow *runtime.AccountInfo, amount uint64) error {
	remaining, err := checkedSub(escrow.Lamports(), amount)
	if err != nil {
		return errors.Wrapf(auctionhouse_program.ErrInsufficientFunds, "escrow holds %d, need %d", escrow.Lamports(), amount)
	}
	if remaining > 0 && remaining < inv.Rent().MinimumBalance(0) {
		return errors.Wrapf(auctionhouse_program.ErrEscrowUnderRentExemption, "escrow would hold %d", remaining)
	}
	return nil
}
