package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana/system"
	"github.com/code-payments/auction-house-server/pkg/solana/token"
)

var (
	ErrTokenUninitialized      = errors.New("token: state is uninitialized")
	ErrTokenAlreadyInitialized = errors.New("token: already in use")
	ErrTokenOwnerMismatch      = errors.New("token: owner does not match")
	ErrTokenMintMismatch       = errors.New("token: account not associated with this mint")
	ErrTokenInsufficientFunds  = errors.New("token: insufficient funds")
	ErrTokenAccountFrozen      = errors.New("token: account is frozen")
	ErrTokenFixedSupply        = errors.New("token: fixed supply")
	ErrTokenNonZeroBalance     = errors.New("token: cannot close a non-zero balance account")
)

// tokenProgram is the subset of the SPL token program used by the auction
// house. Multisig authorities and freezing are not supported.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/processor.rs
type tokenProgram struct{}

func (tokenProgram) ProgramId() ed25519.PublicKey {
	return token.ProgramKey
}

func (p tokenProgram) Process(inv *Invocation) error {
	cmd, err := token.GetCommand(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	switch cmd {
	case token.CommandInitializeMint:
		return p.initializeMint(inv)
	case token.CommandInitializeAccount:
		return p.initializeAccount(inv)
	case token.CommandTransfer:
		return p.transfer(inv)
	case token.CommandApprove:
		return p.approve(inv)
	case token.CommandRevoke:
		return p.revoke(inv)
	case token.CommandMintTo:
		return p.mintTo(inv)
	case token.CommandCloseAccount:
		return p.closeAccount(inv)
	}
	return errors.Wrapf(ErrInvalidArgument, "unsupported token instruction %d", cmd)
}

func (p tokenProgram) initializeMint(inv *Invocation) error {
	args, err := token.DecodeInitializeMint(inv.Data())
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	mintAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	if !mintAccount.IsOwnedBy(token.ProgramKey) || len(mintAccount.Data()) != token.MintSize {
		return errors.Wrapf(ErrInvalidAccountData, "mint %s", mintAccount.String())
	}

	var mint token.Mint
	mint.Unmarshal(mintAccount.Data())
	if mint.IsInitialized {
		return errors.Wrapf(ErrTokenAlreadyInitialized, "mint %s", mintAccount.String())
	}

	mint = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	return mintAccount.SetData(mint.Marshal())
}

func (p tokenProgram) initializeAccount(inv *Invocation) error {
	if len(inv.Data()) != 1 {
		return errors.Wrap(ErrInvalidArgument, "invalid initialize account data")
	}

	tokenAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	mintAccount, err := inv.Account(1)
	if err != nil {
		return err
	}
	owner, err := inv.Account(2)
	if err != nil {
		return err
	}

	if !tokenAccount.IsOwnedBy(token.ProgramKey) || len(tokenAccount.Data()) != token.AccountSize {
		return errors.Wrapf(ErrInvalidAccountData, "token account %s", tokenAccount.String())
	}

	var state token.Account
	state.Unmarshal(tokenAccount.Data())
	if state.State != token.AccountStateUninitialized {
		return errors.Wrapf(ErrTokenAlreadyInitialized, "token account %s", tokenAccount.String())
	}

	if _, err := loadMint(mintAccount); err != nil {
		return err
	}

	state = token.Account{
		Mint:  mintAccount.Key,
		Owner: owner.Key,
		State: token.AccountStateInitialized,
	}
	return tokenAccount.SetData(state.Marshal())
}

func (p tokenProgram) transfer(inv *Invocation) error {
	amount, err := token.DecodeAmount(inv.Data(), token.CommandTransfer)
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	sourceAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	destAccount, err := inv.Account(1)
	if err != nil {
		return err
	}
	authority, err := inv.Account(2)
	if err != nil {
		return err
	}

	source, err := loadTokenAccount(sourceAccount)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destAccount)
	if err != nil {
		return err
	}

	if !bytes.Equal(source.Mint, dest.Mint) {
		return errors.Wrapf(ErrTokenMintMismatch, "destination %s", destAccount.String())
	}
	if source.Amount < amount {
		return errors.Wrapf(ErrTokenInsufficientFunds, "source %s has %d, need %d", sourceAccount.String(), source.Amount, amount)
	}

	if err := spendAuthority(source, authority, amount); err != nil {
		return err
	}

	// A self transfer only has the delegation side effect
	if bytes.Equal(sourceAccount.Key, destAccount.Key) {
		return sourceAccount.SetData(source.Marshal())
	}

	source.Amount -= amount
	if dest.Amount+amount < dest.Amount {
		return ErrArithmeticOverflow
	}
	dest.Amount += amount

	if err := sourceAccount.SetData(source.Marshal()); err != nil {
		return err
	}
	return destAccount.SetData(dest.Marshal())
}

func (p tokenProgram) approve(inv *Invocation) error {
	amount, err := token.DecodeAmount(inv.Data(), token.CommandApprove)
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	sourceAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	delegate, err := inv.Account(1)
	if err != nil {
		return err
	}
	owner, err := inv.Account(2)
	if err != nil {
		return err
	}

	source, err := loadTokenAccount(sourceAccount)
	if err != nil {
		return err
	}
	if err := requireTokenOwner(source, owner); err != nil {
		return err
	}

	source.Delegate = delegate.Key
	source.DelegatedAmount = amount
	return sourceAccount.SetData(source.Marshal())
}

func (p tokenProgram) revoke(inv *Invocation) error {
	if len(inv.Data()) != 1 {
		return errors.Wrap(ErrInvalidArgument, "invalid revoke data")
	}

	sourceAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	owner, err := inv.Account(1)
	if err != nil {
		return err
	}

	source, err := loadTokenAccount(sourceAccount)
	if err != nil {
		return err
	}
	if err := requireTokenOwner(source, owner); err != nil {
		return err
	}

	source.Delegate = nil
	source.DelegatedAmount = 0
	return sourceAccount.SetData(source.Marshal())
}

func (p tokenProgram) mintTo(inv *Invocation) error {
	amount, err := token.DecodeAmount(inv.Data(), token.CommandMintTo)
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}

	mintAccount, err := inv.Account(0)
	if err != nil {
		return err
	}
	destAccount, err := inv.Account(1)
	if err != nil {
		return err
	}
	authority, err := inv.Account(2)
	if err != nil {
		return err
	}

	mint, err := loadMint(mintAccount)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destAccount)
	if err != nil {
		return err
	}

	if !bytes.Equal(dest.Mint, mintAccount.Key) {
		return errors.Wrapf(ErrTokenMintMismatch, "destination %s", destAccount.String())
	}
	if len(mint.MintAuthority) == 0 {
		return ErrTokenFixedSupply
	}
	if !bytes.Equal(mint.MintAuthority, authority.Key) {
		return errors.Wrapf(ErrTokenOwnerMismatch, "mint authority %s", authority.String())
	}
	if err := requireSigner(authority); err != nil {
		return err
	}

	if mint.Supply+amount < mint.Supply || dest.Amount+amount < dest.Amount {
		return ErrArithmeticOverflow
	}
	mint.Supply += amount
	dest.Amount += amount

	if err := mintAccount.SetData(mint.Marshal()); err != nil {
		return err
	}
	return destAccount.SetData(dest.Marshal())
}

func (p tokenProgram) closeAccount(inv *Invocation) error {
	if len(inv.Data()) != 1 {
		return errors.Wrap(ErrInvalidArgument, "invalid close account data")
	}

	closed, err := inv.Account(0)
	if err != nil {
		return err
	}
	dest, err := inv.Account(1)
	if err != nil {
		return err
	}
	authority, err := inv.Account(2)
	if err != nil {
		return err
	}

	if bytes.Equal(closed.Key, dest.Key) {
		return errors.Wrap(ErrInvalidArgument, "cannot close an account into itself")
	}

	state, err := loadTokenAccount(closed)
	if err != nil {
		return err
	}
	if state.Amount != 0 {
		return errors.Wrapf(ErrTokenNonZeroBalance, "account %s", closed.String())
	}

	closeAuthority := state.CloseAuthority
	if len(closeAuthority) == 0 {
		closeAuthority = state.Owner
	}
	if !bytes.Equal(closeAuthority, authority.Key) {
		return errors.Wrapf(ErrTokenOwnerMismatch, "close authority %s", authority.String())
	}
	if err := requireSigner(authority); err != nil {
		return err
	}

	if err := transferLamports(closed, dest, closed.Lamports()); err != nil {
		return err
	}
	if err := closed.SetData(nil); err != nil {
		return err
	}
	return closed.SetOwner(system.ProgramKey)
}

// spendAuthority checks authority may move amount out of source, consuming
// the delegation when the delegate signs
func spendAuthority(source *token.Account, authority *AccountInfo, amount uint64) error {
	if err := requireSigner(authority); err != nil {
		return err
	}

	if bytes.Equal(source.Owner, authority.Key) {
		return nil
	}

	if len(source.Delegate) == 0 || !bytes.Equal(source.Delegate, authority.Key) {
		return errors.Wrapf(ErrTokenOwnerMismatch, "authority %s", authority.String())
	}
	if source.DelegatedAmount < amount {
		return errors.Wrapf(ErrTokenInsufficientFunds, "delegated %d, need %d", source.DelegatedAmount, amount)
	}

	source.DelegatedAmount -= amount
	if source.DelegatedAmount == 0 {
		source.Delegate = nil
	}
	return nil
}

func requireTokenOwner(state *token.Account, owner *AccountInfo) error {
	if !bytes.Equal(state.Owner, owner.Key) {
		return errors.Wrapf(ErrTokenOwnerMismatch, "owner %s", owner.String())
	}
	return requireSigner(owner)
}

func loadTokenAccount(info *AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(ErrIncorrectProgramId, "token account %s", info.String())
	}

	var state token.Account
	if !state.Unmarshal(info.Data()) {
		return nil, errors.Wrapf(ErrInvalidAccountData, "token account %s", info.String())
	}

	switch state.State {
	case token.AccountStateUninitialized:
		return nil, errors.Wrapf(ErrTokenUninitialized, "token account %s", info.String())
	case token.AccountStateFrozen:
		return nil, errors.Wrapf(ErrTokenAccountFrozen, "token account %s", info.String())
	}
	return &state, nil
}

func loadMint(info *AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(ErrIncorrectProgramId, "mint %s", info.String())
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data()) {
		return nil, errors.Wrapf(ErrInvalidAccountData, "mint %s", info.String())
	}
	if !mint.IsInitialized {
		return nil, errors.Wrapf(ErrTokenUninitialized, "mint %s", info.String())
	}
	return &mint, nil
}
