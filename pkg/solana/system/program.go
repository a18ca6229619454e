package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

// ProgramKey is the system program, 11111111111111111111111111111111
var ProgramKey = make(ed25519.PublicKey, ed25519.PublicKeySize)

type Command uint32

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
const (
	CommandCreateAccount Command = 0
	CommandAssign        Command = 1
	CommandTransfer      Command = 2
	CommandAllocate      Command = 8
)

const (
	createAccountDataSize = 4 + 8 + 8 + ed25519.PublicKeySize
	assignDataSize        = 4 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
	allocateDataSize      = 4 + 8
)

// MaxPermittedDataLength is the largest account the system program will allocate
const MaxPermittedDataLength = 10 * 1024 * 1024

func (c Command) String() string {
	switch c {
	case CommandCreateAccount:
		return "create_account"
	case CommandAssign:
		return "assign"
	case CommandTransfer:
		return "transfer"
	case CommandAllocate:
		return "allocate"
	}
	return "unknown"
}

// GetCommand returns the command encoded in system instruction data
func GetCommand(data []byte) (Command, error) {
	if len(data) < 4 {
		return 0, solana.ErrIncorrectInstruction
	}
	return Command(binary.LittleEndian.Uint32(data)), nil
}

// CreateAccount creates and funds a new account owned by owner.
//
//	0. [WRITE, SIGNER] Funding account
//	1. [WRITE, SIGNER] New account
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandCreateAccount))
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type CreateAccountArgs struct {
	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecodeCreateAccount(data []byte) (*CreateAccountArgs, error) {
	if err := checkData(data, CommandCreateAccount, createAccountDataSize); err != nil {
		return nil, err
	}

	args := &CreateAccountArgs{
		Lamports: binary.LittleEndian.Uint64(data[4:]),
		Size:     binary.LittleEndian.Uint64(data[4+8:]),
		Owner:    make(ed25519.PublicKey, ed25519.PublicKeySize),
	}
	copy(args.Owner, data[4+2*8:])
	return args, nil
}

// Assign changes the owner of an account.
//
//	0. [WRITE, SIGNER] Assigned account
func Assign(account, owner ed25519.PublicKey) solana.Instruction {
	data := make([]byte, assignDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandAssign))
	copy(data[4:], owner)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(account, true),
	)
}

func DecodeAssign(data []byte) (ed25519.PublicKey, error) {
	if err := checkData(data, CommandAssign, assignDataSize); err != nil {
		return nil, err
	}

	owner := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(owner, data[4:])
	return owner, nil
}

// Transfer moves lamports between two accounts.
//
//	0. [WRITE, SIGNER] Funding account
//	1. [WRITE] Recipient account
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandTransfer))
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

func DecodeTransfer(data []byte) (uint64, error) {
	if err := checkData(data, CommandTransfer, transferDataSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[4:]), nil
}

// Allocate allocates space for an account without funding it.
//
//	0. [WRITE, SIGNER] New account
func Allocate(account ed25519.PublicKey, size uint64) solana.Instruction {
	data := make([]byte, allocateDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandAllocate))
	binary.LittleEndian.PutUint64(data[4:], size)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(account, true),
	)
}

func DecodeAllocate(data []byte) (uint64, error) {
	if err := checkData(data, CommandAllocate, allocateDataSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[4:]), nil
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
