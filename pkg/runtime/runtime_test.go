package runtime

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/data/account/memory"
	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	"github.com/code-payments/auction-house-server/pkg/solana/token"
	_ "github.com/code-payments/auction-house-server/pkg/testutil"
)

const testWalletBalance = 1_000_000_000

func TestSubmit_SystemTransfer(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	dest := newKey(t)

	result, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(dest), 10_000_000))
	require.NoError(t, err)

	assert.EqualValues(t, 1, result.Attempts)
	assert.Equal(t, env.now, result.ExecutedAt)
	assert.EqualValues(t, 1, result.Slot)
	assert.Equal(t, pub(payer), result.FeePayer)

	assert.EqualValues(t, testWalletBalance-10_000_000, env.lamports(t, pub(payer)))
	assert.EqualValues(t, 10_000_000, env.lamports(t, pub(dest)))
}

func TestSubmit_SignatureVerification(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	other := newKey(t)

	// Missing signature for a required signer
	tx := solana.NewTransaction(pub(payer), system.Transfer(pub(payer), pub(other), 1_000_000))
	_, err := env.rt.Submit(env.ctx, &tx)
	assert.ErrorIs(t, err, solana.ErrMissingSignature)

	// Signature over a different message
	tx = solana.NewTransaction(pub(payer), system.Transfer(pub(payer), pub(other), 1_000_000))
	require.NoError(t, tx.Sign(payer))
	tx.Message.Instructions[0].Data[4] = 0xff
	_, err = env.rt.Submit(env.ctx, &tx)
	assert.ErrorIs(t, err, solana.ErrInvalidSignature)

	assert.EqualValues(t, testWalletBalance, env.lamports(t, pub(payer)))
}

func TestSubmit_Atomicity(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	dest := newKey(t)

	_, err := env.submit(
		t,
		payer,
		[]ed25519.PrivateKey{payer},
		system.Transfer(pub(payer), pub(dest), 10_000_000),
		system.Transfer(pub(payer), pub(dest), testWalletBalance),
	)

	ixErr, ok := GetInstructionError(err)
	require.True(t, ok)
	assert.Equal(t, 1, ixErr.Index)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.EqualValues(t, testWalletBalance, env.lamports(t, pub(payer)))
	_, err = env.store.Get(env.ctx, encode(pub(dest)))
	assert.Equal(t, account.ErrAccountNotFound, err)
}

func TestSubmit_RentExemption(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	dest := newKey(t)

	minimum := DefaultRentSchedule.MinimumBalance(0)

	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(dest), minimum-1))
	assert.ErrorIs(t, err, ErrInsufficientFundsForRent)

	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(dest), minimum))
	require.NoError(t, err)

	// Draining an account entirely deletes it
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer, dest}, system.Transfer(pub(dest), pub(payer), minimum))
	require.NoError(t, err)

	_, err = env.store.Get(env.ctx, encode(pub(dest)))
	assert.Equal(t, account.ErrAccountNotFound, err)
	assert.EqualValues(t, testWalletBalance, env.lamports(t, pub(payer)))
}

func TestSubmit_CreateAccount(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	created := newKey(t)
	owner := newKey(t)

	lamports := DefaultRentSchedule.MinimumBalance(64)

	// The new account must sign
	tx := solana.NewTransaction(pub(payer), system.CreateAccount(pub(payer), pub(created), pub(owner), lamports, 64))
	require.NoError(t, tx.Sign(payer, created))
	_, err := env.rt.Submit(env.ctx, &tx)
	require.NoError(t, err)

	record, err := env.store.Get(env.ctx, encode(pub(created)))
	require.NoError(t, err)
	assert.Equal(t, encode(pub(owner)), record.Owner)
	assert.EqualValues(t, lamports, record.Lamports)
	assert.Equal(t, make([]byte, 64), record.Data)

	// An existing account can't be created again
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer, created}, system.CreateAccount(pub(payer), pub(created), pub(owner), lamports, 64))
	assert.ErrorIs(t, err, ErrAccountInUse)
}

func TestSubmit_TokenLifecycle(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	mint := newKey(t)
	receiver := newKey(t)
	delegate := newKey(t)

	payerAta, err := token.GetAssociatedAccount(pub(payer), pub(mint))
	require.NoError(t, err)

	createPayerAta, _, err := token.CreateAssociatedTokenAccount(pub(payer), pub(payer), pub(mint), false)
	require.NoError(t, err)

	_, err = env.submit(
		t,
		payer,
		[]ed25519.PrivateKey{payer, mint},
		system.CreateAccount(pub(payer), pub(mint), token.ProgramKey, DefaultRentSchedule.MinimumBalance(token.MintSize), token.MintSize),
		token.InitializeMint(pub(mint), pub(payer), nil, 0),
		createPayerAta,
		token.MintTo(pub(mint), payerAta, pub(payer), 10),
	)
	require.NoError(t, err)

	var mintState token.Mint
	require.True(t, mintState.Unmarshal(env.data(t, pub(mint))))
	assert.EqualValues(t, 10, mintState.Supply)
	assert.Equal(t, pub(payer), mintState.MintAuthority)

	payerToken := env.tokenAccount(t, payerAta)
	assert.EqualValues(t, 10, payerToken.Amount)
	assert.Equal(t, pub(payer), payerToken.Owner)
	assert.EqualValues(t, DefaultRentSchedule.MinimumBalance(token.AccountSize), env.lamports(t, payerAta))

	// A delegate spends its allowance, after which the delegation is gone
	createReceiverAta, receiverAta, err := token.CreateAssociatedTokenAccount(pub(payer), pub(receiver), pub(mint), true)
	require.NoError(t, err)

	_, err = env.submit(
		t,
		payer,
		[]ed25519.PrivateKey{payer, delegate},
		createReceiverAta,
		createReceiverAta,
		token.Approve(payerAta, pub(delegate), pub(payer), 4),
		token.Transfer(payerAta, receiverAta, pub(delegate), 4),
	)
	require.NoError(t, err)

	payerToken = env.tokenAccount(t, payerAta)
	assert.EqualValues(t, 6, payerToken.Amount)
	assert.Empty(t, payerToken.Delegate)
	assert.EqualValues(t, 0, payerToken.DelegatedAmount)
	assert.EqualValues(t, 4, env.tokenAccount(t, receiverAta).Amount)

	// The delegation was consumed
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer, delegate}, token.Transfer(payerAta, receiverAta, pub(delegate), 1))
	assert.ErrorIs(t, err, ErrTokenOwnerMismatch)

	// Non-idempotent creation fails on an existing account
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, createPayerAta)
	assert.ErrorIs(t, err, ErrAccountInUse)

	// Only empty accounts can be closed
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, token.CloseAccount(payerAta, pub(payer), pub(payer)))
	assert.ErrorIs(t, err, ErrTokenNonZeroBalance)

	_, err = env.submit(
		t,
		payer,
		[]ed25519.PrivateKey{payer},
		token.Transfer(payerAta, receiverAta, pub(payer), 6),
		token.CloseAccount(payerAta, pub(payer), pub(payer)),
	)
	require.NoError(t, err)

	_, err = env.store.Get(env.ctx, encode(payerAta))
	assert.Equal(t, account.ErrAccountNotFound, err)
	assert.EqualValues(t, 10, env.tokenAccount(t, receiverAta).Amount)
}

func TestSubmit_OwnershipIntegrity(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	victim := env.newWallet(t, testWalletBalance)

	program := env.register(t, func(inv *Invocation) error {
		target, err := inv.Account(0)
		if err != nil {
			return err
		}

		switch inv.Data()[0] {
		case 0:
			// Spend lamports from an account the program doesn't own
			if err := target.Debit(1); err != nil {
				return err
			}
			payer, _ := inv.Account(1)
			return payer.Credit(1)
		case 1:
			// Create lamports out of nothing
			return target.Credit(1)
		case 2:
			return target.SetData([]byte{1})
		case 3:
			return target.SetOwner(inv.ProgramId())
		}
		return nil
	})

	for _, tc := range []struct {
		data     byte
		expected error
	}{
		{0, ErrExternalAccountLamportSpend},
		{1, ErrUnbalancedInstruction},
		{2, ErrExternalAccountDataModified},
		{3, ErrModifiedProgramId},
	} {
		_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(
			program,
			[]byte{tc.data},
			solana.NewAccountMeta(pub(victim), false),
			solana.NewAccountMeta(pub(payer), false),
		))
		assert.ErrorIs(t, err, tc.expected)
	}

	// Readonly accounts are rejected at the source
	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{1},
		solana.NewReadonlyAccountMeta(pub(victim), false),
	))
	assert.ErrorIs(t, err, ErrAccountNotWritable)

	assert.EqualValues(t, testWalletBalance, env.lamports(t, pub(victim)))
}

func TestInvokeSigned_ProgramAddressSigner(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	dest := newKey(t)

	var vault ed25519.PublicKey
	var bump uint8

	program := env.register(t, func(inv *Invocation) error {
		from, _ := inv.Account(0)
		to, _ := inv.Account(1)

		var seeds [][][]byte
		if inv.Data()[0] == 1 {
			seeds = append(seeds, [][]byte{[]byte("vault"), {bump}})
		}
		return inv.InvokeSigned(system.Transfer(from.Key, to.Key, 1_000_000), seeds...)
	})

	var err error
	vault, bump, err = solana.FindProgramAddressAndBump(program, []byte("vault"))
	require.NoError(t, err)
	require.NoError(t, NewGenesis(DefaultRentSchedule).AddWallet(vault, testWalletBalance).Commit(env.ctx, env.store))

	ix := func(sign byte) solana.Instruction {
		return solana.NewInstruction(
			program,
			[]byte{sign},
			solana.NewAccountMeta(vault, false),
			solana.NewAccountMeta(pub(dest), false),
		)
	}

	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, ix(0))
	assert.ErrorIs(t, err, ErrPrivilegeEscalation)

	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, ix(1))
	require.NoError(t, err)

	assert.EqualValues(t, testWalletBalance-1_000_000, env.lamports(t, vault))
	assert.EqualValues(t, 1_000_000, env.lamports(t, pub(dest)))
}

func TestInvokeSigned_AccountPrivileges(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)
	readonly := newKey(t)
	other := newKey(t)

	program := env.register(t, func(inv *Invocation) error {
		from, _ := inv.Account(0)
		switch inv.Data()[0] {
		case 0:
			// Escalates a readonly account to a writable signer
			return inv.Invoke(system.Transfer(from.Key, from.Key, 0))
		default:
			// References an account the caller wasn't given
			return inv.Invoke(system.Transfer(from.Key, pub(other), 1))
		}
	})

	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{0},
		solana.NewReadonlyAccountMeta(pub(readonly), false),
	))
	assert.ErrorIs(t, err, ErrPrivilegeEscalation)

	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{1},
		solana.NewAccountMeta(pub(payer), true),
	))
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestInvokeSigned_CallDepth(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)

	var program ed25519.PublicKey
	var maxDepth int
	program = env.register(t, func(inv *Invocation) error {
		if inv.Depth() > maxDepth {
			maxDepth = inv.Depth()
		}
		return inv.Invoke(solana.NewInstruction(program, nil))
	})

	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, nil))
	assert.ErrorIs(t, err, ErrCallDepthExceeded)
	assert.Equal(t, defaultMaxCallDepth+1, maxDepth)
}

func TestInvokeSigned_Reentrancy(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)

	var first, second ed25519.PublicKey
	first = env.register(t, func(inv *Invocation) error {
		if inv.Depth() > 1 {
			return nil
		}
		return inv.Invoke(solana.NewInstruction(second, nil))
	})
	second = env.register(t, func(inv *Invocation) error {
		return inv.Invoke(solana.NewInstruction(first, nil))
	})

	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(first, nil))
	assert.ErrorIs(t, err, ErrReentrancyNotAllowed)
}

func TestSubmit_EventsAndHandlers(t *testing.T) {
	env := setup(t)

	payer := env.newWallet(t, testWalletBalance)

	var calls int
	program := env.register(t, func(inv *Invocation) error {
		calls++
		inv.Emit(testEvent{name: "emitted"})
		if len(inv.Data()) > 0 {
			return ErrInvalidArgument
		}
		return nil
	})

	var mu sync.Mutex
	var observed []*Result
	env.rt.OnCommit(func(_ context.Context, result *Result) {
		mu.Lock()
		observed = append(observed, result)
		mu.Unlock()
	})

	result, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, nil))
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "emitted", result.Events[0].EventName())

	// Events of failed transactions are dropped
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, []byte{1}))
	assert.Error(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, observed, 1)
	assert.Equal(t, result.Id, observed[0].Id)
}

func TestSubmit_StaleRetry(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	env := setupWithStore(t, store)

	payer := env.newWallet(t, testWalletBalance)
	dest := newKey(t)

	store.failures = 2

	result, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(dest), 1_000_000))
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Attempts)
	assert.EqualValues(t, 1_000_000, env.lamports(t, pub(dest)))

	store.failures = defaultMaxCommitAttempts
	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(dest), 1_000_000))
	assert.ErrorIs(t, err, account.ErrStaleAccountState)
	assert.EqualValues(t, 1_000_000, env.lamports(t, pub(dest)))
}

func TestSubmit_RateLimited(t *testing.T) {
	store := memory.New()
	limiter := &countingLimiter{allowed: 1}
	rt := New(store, withManualTestOverrides(&Overrides{}), WithRateLimiter(limiter))
	env := &testEnv{ctx: context.Background(), rt: rt, store: store}

	payer := env.newWallet(t, testWalletBalance)

	_, err := env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(payer), 0))
	require.NoError(t, err)

	_, err = env.submit(t, payer, []ed25519.PrivateKey{payer}, system.Transfer(pub(payer), pub(payer), 0))
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRegister_Duplicate(t *testing.T) {
	env := setup(t)

	assert.Error(t, env.rt.Register(systemProgram{}))
	assert.Error(t, env.rt.Register(&testProgram{id: system.RentSysVar}))
}

func TestRentSchedule(t *testing.T) {
	assert.EqualValues(t, 890_880, DefaultRentSchedule.MinimumBalance(0))
	assert.EqualValues(t, 2_039_280, DefaultRentSchedule.MinimumBalance(token.AccountSize))
	assert.True(t, DefaultRentSchedule.IsExempt(890_880, 0))
	assert.False(t, DefaultRentSchedule.IsExempt(890_879, 0))
}

type testEnv struct {
	ctx   context.Context
	rt    *Runtime
	store account.Store
	now   time.Time
}

func setup(t *testing.T) *testEnv {
	return setupWithStore(t, memory.New())
}

func setupWithStore(t *testing.T, store account.Store) *testEnv {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &testEnv{
		ctx:   context.Background(),
		rt:    New(store, withManualTestOverrides(&Overrides{StripedLockParallelization: 4}), WithClock(FixedClock{At: now})),
		store: store,
		now:   now,
	}
}

func (e *testEnv) newWallet(t *testing.T, lamports uint64) ed25519.PrivateKey {
	key := newKey(t)
	require.NoError(t, NewGenesis(DefaultRentSchedule).AddWallet(pub(key), lamports).Commit(e.ctx, e.store))
	return key
}

func (e *testEnv) register(t *testing.T, process func(inv *Invocation) error) ed25519.PublicKey {
	program := &testProgram{id: pub(newKey(t)), process: process}
	require.NoError(t, e.rt.Register(program))
	return program.id
}

func (e *testEnv) submit(t *testing.T, payer ed25519.PrivateKey, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*Result, error) {
	tx := solana.NewTransaction(pub(payer), instructions...)
	require.NoError(t, tx.Sign(signers...))
	return e.rt.Submit(e.ctx, &tx)
}

func (e *testEnv) lamports(t *testing.T, key ed25519.PublicKey) uint64 {
	record, err := e.store.Get(e.ctx, encode(key))
	if err == account.ErrAccountNotFound {
		return 0
	}
	require.NoError(t, err)
	return record.Lamports
}

func (e *testEnv) data(t *testing.T, key ed25519.PublicKey) []byte {
	record, err := e.store.Get(e.ctx, encode(key))
	require.NoError(t, err)
	return record.Data
}

func (e *testEnv) tokenAccount(t *testing.T, key ed25519.PublicKey) *token.Account {
	var state token.Account
	require.True(t, state.Unmarshal(e.data(t, key)))
	return &state
}

type testProgram struct {
	id      ed25519.PublicKey
	process func(inv *Invocation) error
}

func (p *testProgram) ProgramId() ed25519.PublicKey {
	return p.id
}

func (p *testProgram) Process(inv *Invocation) error {
	return p.process(inv)
}

type testEvent struct {
	name string
}

func (e testEvent) EventName() string {
	return e.name
}

type flakyStore struct {
	account.Store

	failures uint64
}

func (s *flakyStore) SaveBatch(ctx context.Context, records ...*account.Record) error {
	if s.failures > 0 {
		s.failures--
		return account.ErrStaleAccountState
	}
	return s.Store.SaveBatch(ctx, records...)
}

type countingLimiter struct {
	allowed int
}

func (l *countingLimiter) Allow(_ string) (bool, error) {
	if l.allowed == 0 {
		return false, nil
	}
	l.allowed--
	return true, nil
}

func newKey(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return key
}

func pub(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
