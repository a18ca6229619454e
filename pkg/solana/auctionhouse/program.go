package auctionhouse

import (
	"crypto/ed25519"
	"errors"
	"fmt"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	METADATA_PROGRAM_ID  = ed25519.PublicKey(mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"))
	SYSTEM_PROGRAM_ID    = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
	ASSOCIATED_TOKEN_ID  = ed25519.PublicKey(mustBase58Decode("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"))
	NATIVE_MINT          = ed25519.PublicKey(mustBase58Decode("So11111111111111111111111111111111111111112"))
	SYSVAR_RENT_PUBKEY   = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
	PublicBidSentinel    = make(ed25519.PublicKey, ed25519.PublicKeySize)
)

const (
	MaxBasisPoints = 10_000
)

// ProgramError is a named, numbered failure surfaced as the result of an
// auction house instruction
type ProgramError struct {
	Code    uint32
	Name    string
	Message string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

var programErrors = map[uint32]*ProgramError{}

func newProgramError(code uint32, name, message string) *ProgramError {
	err := &ProgramError{Code: code, Name: name, Message: message}
	if _, ok := programErrors[code]; ok {
		panic(fmt.Sprintf("duplicate program error code %d", code))
	}
	programErrors[code] = err
	return err
}

// GetProgramError returns the program error with the provided code, if any
func GetProgramError(code uint32) (*ProgramError, bool) {
	err, ok := programErrors[code]
	return err, ok
}

var (
	ErrPublicKeyMismatch              = newProgramError(6000, "PublicKeyMismatch", "public key mismatch")
	ErrUninitializedAccount           = newProgramError(6001, "UninitializedAccount", "account is not initialized")
	ErrIncorrectOwner                 = newProgramError(6002, "IncorrectOwner", "account has an incorrect owner")
	ErrNumericalOverflow              = newProgramError(6003, "NumericalOverflow", "numerical overflow")
	ErrInsufficientFunds              = newProgramError(6004, "InsufficientFunds", "insufficient funds")
	ErrExpectedSolAccount             = newProgramError(6005, "ExpectedSolAccount", "expected a system account for native payments")
	ErrRequiresSignOff                = newProgramError(6006, "CannotTakeThisActionWithoutAuctionHouseSignOff", "auction house authority must sign off")
	ErrNoPayerPresent                 = newProgramError(6007, "NoPayerPresent", "no payer present on this transaction")
	ErrDerivedKeyInvalid              = newProgramError(6008, "DerivedKeyInvalid", "derived key is invalid")
	ErrMetadataDoesntExist            = newProgramError(6009, "MetadataDoesntExist", "metadata does not match the token mint")
	ErrInvalidTokenAmount             = newProgramError(6010, "InvalidTokenAmount", "invalid token amount")
	ErrSaleRequiresSigner             = newProgramError(6011, "SaleRequiresSigner", "this sale requires a signer")
	ErrNoValidSignerPresent           = newProgramError(6012, "NoValidSignerPresent", "no valid signer present")
	ErrInvalidBasisPoints             = newProgramError(6013, "InvalidBasisPoints", "basis points cannot exceed 10000")
	ErrTradeStateDoesNotExist         = newProgramError(6014, "TradeStateDoesntExist", "trade state does not exist")
	ErrTradeStateIsNotEmpty           = newProgramError(6015, "TradeStateIsNotEmpty", "trade state is not empty")
	ErrInvalidAuctioneer              = newProgramError(6016, "InvalidAuctioneer", "invalid auctioneer for this auction house instance")
	ErrMissingAuctioneerScope         = newProgramError(6017, "MissingAuctioneerScope", "auctioneer does not have the correct scope for this action")
	ErrMustUseAuctioneerHandler       = newProgramError(6018, "MustUseAuctioneerHandler", "this auction house requires the auctioneer handler")
	ErrNoAuctioneerProgramSet         = newProgramError(6019, "NoAuctioneerProgramSet", "no auctioneer program set")
	ErrAuctionHouseAlreadyDelegated   = newProgramError(6020, "AuctionHouseAlreadyDelegated", "auction house already has an auctioneer")
	ErrBumpSeedNotInHashMap           = newProgramError(6021, "BumpSeedNotInHashMap", "bump seed does not match the canonical derivation")
	ErrEscrowUnderRentExemption       = newProgramError(6022, "EscrowUnderRentExemption", "escrow would fall under rent exemption")
	ErrSelfTrade                      = newProgramError(6023, "SelfTrade", "a wallet cannot bid on its own token account")
	ErrNotEnoughTokensAvailable       = newProgramError(6024, "NotEnoughTokensAvailableForPurchase", "not enough tokens available for purchase")
	ErrPartialPriceMismatch           = newProgramError(6025, "PartialPriceMismatch", "partial price does not match the per token price")
	ErrListingPartiallyFilled         = newProgramError(6026, "PartialFillRemainderMismatch", "full fill requested against a partially filled listing")
	ErrSellerTokenAccountNotDelegated = newProgramError(6027, "SellerTokenAccountNotDelegated", "seller token account is not delegated to the program signer")
	ErrInvalidTreasuryMint            = newProgramError(6028, "InvalidTreasuryMint", "treasury mint does not match the auction house")
	ErrInvalidAccountOwner            = newProgramError(6029, "PublicKeyOwnerMismatch", "token account is not owned by the expected wallet")
	ErrMintMismatch                   = newProgramError(6030, "MintMismatch", "token mint does not match")
	ErrAccountAlreadyInitialized      = newProgramError(6031, "AccountAlreadyInitialized", "account is already initialized")
	ErrMissingAccount                 = newProgramError(6032, "MissingAccount", "instruction is missing a required account")
	ErrUnknownInstruction             = newProgramError(6033, "InstructionMismatch", "unknown instruction")
)
