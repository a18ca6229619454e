package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
)

// ProgramKey is the address of the token program that should be used.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

type Command byte

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs
const (
	CommandInitializeMint    Command = 0
	CommandInitializeAccount Command = 1
	CommandTransfer          Command = 3
	CommandApprove           Command = 4
	CommandRevoke            Command = 5
	CommandMintTo            Command = 7
	CommandCloseAccount      Command = 9

	CommandUnknown = Command(math.MaxUint8)
)

func (c Command) String() string {
	switch c {
	case CommandInitializeMint:
		return "initialize_mint"
	case CommandInitializeAccount:
		return "initialize_account"
	case CommandTransfer:
		return "transfer"
	case CommandApprove:
		return "approve"
	case CommandRevoke:
		return "revoke"
	case CommandMintTo:
		return "mint_to"
	case CommandCloseAccount:
		return "close_account"
	}
	return "unknown"
}

// GetCommand returns the command encoded in token instruction data
func GetCommand(data []byte) (Command, error) {
	if len(data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}
	return Command(data[0]), nil
}

// InitializeMint initializes a new mint. The freeze authority is optional.
//
//	0. `[writable]` The mint to initialize.
//	1. `[]` Rent sysvar
func InitializeMint(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	data := make([]byte, 1+1+32+1+32)
	data[0] = byte(CommandInitializeMint)
	data[1] = decimals
	copy(data[2:], mintAuthority)
	if len(freezeAuthority) > 0 {
		data[34] = 1
		copy(data[35:], freezeAuthority)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

type InitializeMintArgs struct {
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

func DecodeInitializeMint(data []byte) (*InitializeMintArgs, error) {
	if err := checkData(data, CommandInitializeMint, 1+1+32+1+32); err != nil {
		return nil, err
	}

	args := &InitializeMintArgs{
		Decimals:      data[1],
		MintAuthority: make(ed25519.PublicKey, ed25519.PublicKeySize),
	}
	copy(args.MintAuthority, data[2:34])
	if data[34] == 1 {
		args.FreezeAuthority = make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(args.FreezeAuthority, data[35:])
	}
	return args, nil
}

// InitializeAccount initializes a token account.
//
//	0. `[writable]`  The account to initialize.
//	1. `[]` The mint this account will be associated with.
//	2. `[]` The new account's owner.
//	3. `[]` Rent sysvar
func InitializeAccount(account, mint, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandInitializeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

// Transfer moves tokens between accounts of the same mint. The authority is
// either the source owner or its delegate.
//
//	0. `[writable]` The source account.
//	1. `[writable]` The destination account.
//	2. `[signer]` The source account's owner/delegate.
func Transfer(source, dest, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		amountData(CommandTransfer, amount),
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// Approve sets a delegate allowed to transfer up to amount from source.
//
//	0. `[writable]` The source account.
//	1. `[]` The delegate.
//	2. `[signer]` The source account owner.
func Approve(source, delegate, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		amountData(CommandApprove, amount),
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(delegate, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// Revoke clears the delegate of source.
//
//	0. `[writable]` The source account.
//	1. `[signer]` The source account owner.
func Revoke(source, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandRevoke)},
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// MintTo mints new tokens into an account.
//
//	0. `[writable]` The mint.
//	1. `[writable]` The account to mint tokens to.
//	2. `[signer]` The mint's minting authority.
func MintTo(mint, dest, mintAuthority ed25519.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		amountData(CommandMintTo, amount),
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(mintAuthority, true),
	)
}

// CloseAccount closes a zero balance token account, sending its lamports to dest.
//
//	0. `[writable]` The account to close.
//	1. `[writable]` The destination account.
//	2. `[signer]` The account's owner.
func CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// DecodeAmount returns the amount argument of Transfer, Approve and MintTo
func DecodeAmount(data []byte, expected Command) (uint64, error) {
	if err := checkData(data, expected, 1+8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[1:]), nil
}

func amountData(cmd Command, amount uint64) []byte {
	data := make([]byte, 1+8)
	data[0] = byte(cmd)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

func checkData(data []byte, expected Command, size int) error {
	cmd, err := GetCommand(data)
	if err != nil {
		return err
	}
	if cmd != expected {
		return solana.ErrIncorrectInstruction
	}
	if len(data) != size {
		return errors.Errorf("invalid %s instruction data size: %d", expected, len(data))
	}
	return nil
}
