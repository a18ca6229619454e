package auctioneer

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// ForwardedAccounts locates the auctioneer accounts appended to a forwarded
// instruction
type ForwardedAccounts struct {
	AuctioneerAuthority ed25519.PublicKey
	AhAuctioneerPda     ed25519.PublicKey
	AuctionHouseProgram ed25519.PublicKey
}

// NewForwardedInstruction wraps an auction house instruction so it runs
// through the auctioneer program.
//
// The wrapped instruction keeps its data, which must be one of the direct
// instructions with an auctioneer variant. Its accounts are followed by the
// auctioneer authority PDA, the auction house's auctioneer record and the
// auction house program. The authority PDA is not marked as a signer here,
// since only the auctioneer program can sign for it.
func NewForwardedInstruction(ix solana.Instruction, accounts *ForwardedAccounts) (solana.Instruction, error) {
	t, err := auctionhouse.GetInstructionType(ix.Data)
	if err != nil {
		return solana.Instruction{}, err
	}
	if _, ok := t.AuctioneerVariant(); !ok {
		return solana.Instruction{}, ErrInvalidInstructionData
	}

	program := accounts.AuctionHouseProgram
	if len(program) == 0 {
		program = auctionhouse.PROGRAM_ID
	}

	metas := make([]solana.AccountMeta, 0, len(ix.Accounts)+3)
	for _, meta := range ix.Accounts {
		metas = append(metas, solana.AccountMeta{
			PublicKey:  meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		})
	}
	metas = append(metas,
		solana.NewReadonlyAccountMeta(accounts.AuctioneerAuthority, false),
		solana.NewReadonlyAccountMeta(accounts.AhAuctioneerPda, false),
		solana.NewReadonlyAccountMeta(program, false),
	)

	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)

	return solana.Instruction{
		Program:  PROGRAM_ADDRESS,
		Accounts: metas,
		Data:     data,
	}, nil
}

// DecodeForwardedAccounts splits the accounts of a forwarded instruction into
// the wrapped instruction's accounts and the trailing auctioneer accounts
func DecodeForwardedAccounts(accounts []ed25519.PublicKey) ([]ed25519.PublicKey, *ForwardedAccounts, error) {
	if len(accounts) < 3 {
		return nil, nil, ErrInvalidInstructionData
	}

	n := len(accounts) - 3
	return accounts[:n], &ForwardedAccounts{
		AuctioneerAuthority: accounts[n],
		AhAuctioneerPda:     accounts[n+1],
		AuctionHouseProgram: accounts[n+2],
	}, nil
}

// AuctionHouseAccountIndex is the position of the auction house account
// within the accounts of a forwardable instruction
func AuctionHouseAccountIndex(t auctionhouse.InstructionType) (int, bool) {
	switch t.Direct() {
	case auctionhouse.InstructionTypeDeposit:
		return 6, true
	case auctionhouse.InstructionTypeWithdraw:
		return 5, true
	case auctionhouse.InstructionTypeSell:
		return 4, true
	case auctionhouse.InstructionTypeBuy, auctionhouse.InstructionTypePublicBuy:
		return 8, true
	case auctionhouse.InstructionTypeCancel:
		return 4, true
	case auctionhouse.InstructionTypeExecuteSale:
		return 10, true
	}
	return 0, false
}

// CallerAccountIndexes are the positions, within the accounts of a
// forwardable instruction, of the accounts that can vouch for a forwarded
// call. At least one of them must sign: the order's wallet, the buyer or
// seller of a sale, or the auction house authority. The authority always
// directly precedes the auction house account.
func CallerAccountIndexes(t auctionhouse.InstructionType) ([]int, bool) {
	auctionHouse, ok := AuctionHouseAccountIndex(t)
	if !ok {
		return nil, false
	}

	authority := auctionHouse - 1
	if t.Direct() == auctionhouse.InstructionTypeExecuteSale {
		return []int{0, 1, authority}, true
	}
	return []int{0, authority}, true
}
