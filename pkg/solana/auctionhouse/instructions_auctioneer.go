package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

// AuctioneerInstructionAccounts are appended to an instruction to run its
// auctioneer gated form
type AuctioneerInstructionAccounts struct {
	AuctioneerAuthority ed25519.PublicKey
	AhAuctioneerPda     ed25519.PublicKey
}

func (a *AuctioneerInstructionAccounts) metas() []solana.AccountMeta {
	if a == nil {
		return nil
	}
	return []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(a.AuctioneerAuthority, true),
		solana.NewReadonlyAccountMeta(a.AhAuctioneerPda, false),
	}
}

const (
	DelegateAuctioneerInstructionArgsSize = 1 // scopes
)

type DelegateAuctioneerInstructionArgs struct {
	Scopes AuthorityScopes
}

func (args *DelegateAuctioneerInstructionArgs) Unmarshal(data []byte) error {
	t, err := GetInstructionType(data)
	if err != nil {
		return err
	}
	if t != InstructionTypeDelegateAuctioneer && t != InstructionTypeUpdateAuctioneer {
		return ErrInvalidInstructionData
	}
	if len(data) != 1+DelegateAuctioneerInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	args.Scopes = AuthorityScopes(data[1])
	return args.Scopes.Validate()
}

type DelegateAuctioneerInstructionAccounts struct {
	AuctionHouse        ed25519.PublicKey
	Authority           ed25519.PublicKey
	AuctioneerAuthority ed25519.PublicKey
	AhAuctioneerPda     ed25519.PublicKey
}

func NewDelegateAuctioneerInstruction(
	accounts *DelegateAuctioneerInstructionAccounts,
	args *DelegateAuctioneerInstructionArgs,
) solana.Instruction {
	return newScopeInstruction(InstructionTypeDelegateAuctioneer, accounts, args)
}

func NewUpdateAuctioneerInstruction(
	accounts *DelegateAuctioneerInstructionAccounts,
	args *DelegateAuctioneerInstructionArgs,
) solana.Instruction {
	return newScopeInstruction(InstructionTypeUpdateAuctioneer, accounts, args)
}

func newScopeInstruction(
	t InstructionType,
	accounts *DelegateAuctioneerInstructionAccounts,
	args *DelegateAuctioneerInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+DelegateAuctioneerInstructionArgsSize)

	putInstructionType(data, t, &offset)
	putUint8(data, uint8(args.Scopes), &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			solana.NewAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.Authority, true),
			solana.NewReadonlyAccountMeta(accounts.AuctioneerAuthority, false),
			solana.NewAccountMeta(accounts.AhAuctioneerPda, false),
		},
	}
}
