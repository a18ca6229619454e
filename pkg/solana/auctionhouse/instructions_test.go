package auctionhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellInstruction(t *testing.T) {
	accounts := &SellInstructionAccounts{
		Wallet:                 newTestKey(t),
		TokenAccount:           newTestKey(t),
		Metadata:               newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		SellerTradeState:       newTestKey(t),
		FreeSellerTradeState:   newTestKey(t),
		ProgramAsSigner:        newTestKey(t),
		WalletIsSigner:         true,
	}
	args := &SellInstructionArgs{
		TradeStateBump:      255,
		FreeTradeStateBump:  254,
		ProgramAsSignerBump: 253,
		BuyerPrice:          100,
		TokenSize:           1,
	}

	ix := NewSellInstruction(accounts, args)
	assert.EqualValues(t, PROGRAM_ADDRESS, ix.Program)
	require.Len(t, ix.Data, 1+SellInstructionArgsSize)
	require.Len(t, ix.Accounts, 9)

	instructionType, err := GetInstructionType(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, InstructionTypeSell, instructionType)

	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.False(t, ix.Accounts[3].IsSigner)
	assert.False(t, ix.Accounts[8].IsWritable)

	var actual SellInstructionArgs
	require.NoError(t, actual.Unmarshal(ix.Data))
	assert.Equal(t, args, &actual)

	// The auctioneer form appends the auctioneer accounts
	accounts.Auctioneer = &AuctioneerInstructionAccounts{
		AuctioneerAuthority: newTestKey(t),
		AhAuctioneerPda:     newTestKey(t),
	}
	ix = NewSellInstruction(accounts, args)
	require.Len(t, ix.Accounts, 11)
	assert.Equal(t, byte(InstructionTypeAuctioneerSell), ix.Data[0])
	assert.True(t, ix.Accounts[9].IsSigner)
	assert.EqualValues(t, accounts.Auctioneer.AhAuctioneerPda, ix.Accounts[10].PublicKey)

	require.NoError(t, actual.Unmarshal(ix.Data))
	assert.Equal(t, args, &actual)
}

func TestBuyInstructions(t *testing.T) {
	args := &BuyInstructionArgs{
		TradeStateBump:    250,
		EscrowPaymentBump: 251,
		BuyerPrice:        150,
		TokenSize:         3,
	}

	private := NewBuyInstruction(&BuyInstructionAccounts{
		Wallet:                 newTestKey(t),
		PaymentAccount:         newTestKey(t),
		TransferAuthority:      newTestKey(t),
		TreasuryMint:           NATIVE_MINT,
		TokenAccount:           newTestKey(t),
		Metadata:               newTestKey(t),
		EscrowPaymentAccount:   newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		BuyerTradeState:        newTestKey(t),
	}, args)
	require.Len(t, private.Accounts, 11)
	assert.Equal(t, byte(InstructionTypeBuy), private.Data[0])
	assert.True(t, private.Accounts[0].IsSigner)

	public := NewPublicBuyInstruction(&PublicBuyInstructionAccounts{
		Wallet:                 newTestKey(t),
		PaymentAccount:         newTestKey(t),
		TransferAuthority:      newTestKey(t),
		TreasuryMint:           NATIVE_MINT,
		TokenMint:              newTestKey(t),
		Metadata:               newTestKey(t),
		EscrowPaymentAccount:   newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		BuyerTradeState:        newTestKey(t),
		AuthorityIsSigner:      true,
	}, args)
	require.Len(t, public.Accounts, 11)
	assert.Equal(t, byte(InstructionTypePublicBuy), public.Data[0])
	assert.True(t, public.Accounts[7].IsSigner)

	for _, data := range [][]byte{private.Data, public.Data} {
		var actual BuyInstructionArgs
		require.NoError(t, actual.Unmarshal(data))
		assert.Equal(t, args, &actual)
	}
}

func TestExecuteSaleInstruction(t *testing.T) {
	partialSize := uint64(2)
	partialPrice := uint64(20)

	for _, args := range []*ExecuteSaleInstructionArgs{
		{
			EscrowPaymentBump:   1,
			FreeTradeStateBump:  2,
			ProgramAsSignerBump: 3,
			BuyerPrice:          100,
			TokenSize:           10,
		},
		{
			EscrowPaymentBump:   1,
			FreeTradeStateBump:  2,
			ProgramAsSignerBump: 3,
			BuyerPrice:          100,
			TokenSize:           10,
			PartialOrderSize:    &partialSize,
			PartialOrderPrice:   &partialPrice,
		},
	} {
		ix := NewExecuteSaleInstruction(newTestExecuteSaleAccounts(t), args)
		require.Len(t, ix.Data, 1+ExecuteSaleInstructionArgsSize)
		require.Len(t, ix.Accounts, 17)

		var actual ExecuteSaleInstructionArgs
		require.NoError(t, actual.Unmarshal(ix.Data))
		assert.Equal(t, args, &actual)
		assert.Equal(t, args.PartialOrderSize != nil, actual.IsPartial())
	}
}

func TestCancelInstruction(t *testing.T) {
	args := &CancelInstructionArgs{
		BuyerPrice: 100,
		TokenSize:  1,
	}

	ix := NewCancelInstruction(&CancelInstructionAccounts{
		Wallet:                 newTestKey(t),
		TokenAccount:           newTestKey(t),
		TokenMint:              newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		TradeState:             newTestKey(t),
		WalletIsSigner:         true,
	}, args)
	require.Len(t, ix.Accounts, 7)

	var actual CancelInstructionArgs
	require.NoError(t, actual.Unmarshal(ix.Data))
	assert.Equal(t, args, &actual)
}

func TestAuctionHouseInstructions(t *testing.T) {
	createArgs := &CreateAuctionHouseInstructionArgs{
		Bump:                 255,
		FeePayerBump:         254,
		TreasuryBump:         253,
		SellerFeeBasisPoints: 200,
		RequiresSignOff:      false,
		CanChangeSalePrice:   true,
	}
	create := NewCreateAuctionHouseInstruction(&CreateAuctionHouseInstructionAccounts{
		TreasuryMint:                       NATIVE_MINT,
		Payer:                              newTestKey(t),
		Authority:                          newTestKey(t),
		FeeWithdrawalDestination:           newTestKey(t),
		TreasuryWithdrawalDestination:      newTestKey(t),
		TreasuryWithdrawalDestinationOwner: newTestKey(t),
		AuctionHouse:                       newTestKey(t),
		AuctionHouseFeeAccount:             newTestKey(t),
		AuctionHouseTreasury:               newTestKey(t),
	}, createArgs)

	var actualCreate CreateAuctionHouseInstructionArgs
	require.NoError(t, actualCreate.Unmarshal(create.Data))
	assert.Equal(t, createArgs, &actualCreate)

	bps := uint16(500)
	updateArgs := &UpdateAuctionHouseInstructionArgs{
		SellerFeeBasisPoints: &bps,
	}
	update := NewUpdateAuctionHouseInstruction(&UpdateAuctionHouseInstructionAccounts{
		TreasuryMint:                       NATIVE_MINT,
		Payer:                              newTestKey(t),
		Authority:                          newTestKey(t),
		NewAuthority:                       newTestKey(t),
		FeeWithdrawalDestination:           newTestKey(t),
		TreasuryWithdrawalDestination:      newTestKey(t),
		TreasuryWithdrawalDestinationOwner: newTestKey(t),
		AuctionHouse:                       newTestKey(t),
	}, updateArgs)

	var actualUpdate UpdateAuctionHouseInstructionArgs
	require.NoError(t, actualUpdate.Unmarshal(update.Data))
	assert.Equal(t, updateArgs, &actualUpdate)
	assert.Nil(t, actualUpdate.RequiresSignOff)
	assert.Nil(t, actualUpdate.CanChangeSalePrice)

	// Args decode against the wrong instruction type are rejected
	var deposit DepositInstructionArgs
	assert.Equal(t, ErrInvalidInstructionData, deposit.Unmarshal(create.Data))
	assert.Equal(t, ErrInvalidInstructionData, actualCreate.Unmarshal(create.Data[:4]))
	assert.Equal(t, ErrInvalidInstructionData, actualCreate.Unmarshal(nil))
}

func TestEscrowInstructions(t *testing.T) {
	depositArgs := &DepositInstructionArgs{EscrowPaymentBump: 9, Amount: 1_000}
	deposit := NewDepositInstruction(&DepositInstructionAccounts{
		Wallet:                 newTestKey(t),
		PaymentAccount:         newTestKey(t),
		TransferAuthority:      newTestKey(t),
		EscrowPaymentAccount:   newTestKey(t),
		TreasuryMint:           NATIVE_MINT,
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
	}, depositArgs)
	require.Len(t, deposit.Accounts, 8)

	var actualDeposit DepositInstructionArgs
	require.NoError(t, actualDeposit.Unmarshal(deposit.Data))
	assert.Equal(t, depositArgs, &actualDeposit)

	withdrawArgs := &WithdrawInstructionArgs{EscrowPaymentBump: 9, Amount: 500}
	withdraw := NewWithdrawInstruction(&WithdrawInstructionAccounts{
		Wallet:                 newTestKey(t),
		ReceiptAccount:         newTestKey(t),
		EscrowPaymentAccount:   newTestKey(t),
		TreasuryMint:           NATIVE_MINT,
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		Auctioneer: &AuctioneerInstructionAccounts{
			AuctioneerAuthority: newTestKey(t),
			AhAuctioneerPda:     newTestKey(t),
		},
	}, withdrawArgs)
	require.Len(t, withdraw.Accounts, 9)
	assert.Equal(t, byte(InstructionTypeAuctioneerWithdraw), withdraw.Data[0])

	var actualWithdraw WithdrawInstructionArgs
	require.NoError(t, actualWithdraw.Unmarshal(withdraw.Data))
	assert.Equal(t, withdrawArgs, &actualWithdraw)

	fee := NewWithdrawFromFeeInstruction(&WithdrawFromFeeInstructionAccounts{
		Authority:                newTestKey(t),
		FeeWithdrawalDestination: newTestKey(t),
		AuctionHouseFeeAccount:   newTestKey(t),
		AuctionHouse:             newTestKey(t),
	}, &WithdrawFromFeeInstructionArgs{Amount: 10})

	var actualFee WithdrawFromFeeInstructionArgs
	require.NoError(t, actualFee.Unmarshal(fee.Data))
	assert.EqualValues(t, 10, actualFee.Amount)

	treasury := NewWithdrawFromTreasuryInstruction(&WithdrawFromTreasuryInstructionAccounts{
		TreasuryMint:                  NATIVE_MINT,
		Authority:                     newTestKey(t),
		TreasuryWithdrawalDestination: newTestKey(t),
		AuctionHouseTreasury:          newTestKey(t),
		AuctionHouse:                  newTestKey(t),
	}, &WithdrawFromTreasuryInstructionArgs{Amount: 20})

	var actualTreasury WithdrawFromTreasuryInstructionArgs
	require.NoError(t, actualTreasury.Unmarshal(treasury.Data))
	assert.EqualValues(t, 20, actualTreasury.Amount)

	// Fee and treasury withdrawals look alike but don't decode as each other
	assert.Equal(t, ErrInvalidInstructionData, actualFee.Unmarshal(treasury.Data))
}

func TestDelegateAuctioneerInstruction(t *testing.T) {
	accounts := &DelegateAuctioneerInstructionAccounts{
		AuctionHouse:        newTestKey(t),
		Authority:           newTestKey(t),
		AuctioneerAuthority: newTestKey(t),
		AhAuctioneerPda:     newTestKey(t),
	}
	args := &DelegateAuctioneerInstructionArgs{
		Scopes: NewAuthorityScopes(AuthorityScopeSell, AuthorityScopeBuy),
	}

	for _, ix := range []struct {
		expected InstructionType
		data     []byte
	}{
		{InstructionTypeDelegateAuctioneer, NewDelegateAuctioneerInstruction(accounts, args).Data},
		{InstructionTypeUpdateAuctioneer, NewUpdateAuctioneerInstruction(accounts, args).Data},
	} {
		assert.Equal(t, byte(ix.expected), ix.data[0])

		var actual DelegateAuctioneerInstructionArgs
		require.NoError(t, actual.Unmarshal(ix.data))
		assert.Equal(t, args, &actual)
	}

	var actual DelegateAuctioneerInstructionArgs
	assert.Equal(t, ErrInvalidInstructionData, actual.Unmarshal([]byte{byte(InstructionTypeDelegateAuctioneer), 0xff}))
}

func newTestExecuteSaleAccounts(t *testing.T) *ExecuteSaleInstructionAccounts {
	return &ExecuteSaleInstructionAccounts{
		Buyer:                  newTestKey(t),
		Seller:                 newTestKey(t),
		TokenAccount:           newTestKey(t),
		TokenMint:              newTestKey(t),
		Metadata:               newTestKey(t),
		TreasuryMint:           NATIVE_MINT,
		EscrowPaymentAccount:   newTestKey(t),
		SellerPaymentReceipt:   newTestKey(t),
		BuyerReceiptToken:      newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		AuctionHouseTreasury:   newTestKey(t),
		BuyerTradeState:        newTestKey(t),
		SellerTradeState:       newTestKey(t),
		FreeTradeState:         newTestKey(t),
		ProgramAsSigner:        newTestKey(t),
		AuthorityIsSigner:      true,
	}
}
