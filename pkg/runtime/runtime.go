package runtime

import (
	"context"
	"crypto/ed25519"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/lock"
	"github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/rate"
	"github.com/code-payments/auction-house-server/pkg/retry"
	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	async "github.com/code-payments/auction-house-server/pkg/sync"
)

const (
	metricsStructName = "runtime.Runtime"

	submitDurationMetricName = "Runtime/submit_duration"
	submitFailureEventName   = "RuntimeSubmitFailure"
)

// Runtime executes signed transactions against the account store. Each
// transaction either commits every change it makes, or none of them.
type Runtime struct {
	log  *logrus.Entry
	conf *conf

	accounts account.Store
	clock    Clock
	limiter  rate.Limiter

	localLocks       *async.StripedLock
	distributedLocks lock.Manager

	programs map[string]Program
	sysvars  map[string]struct{}

	slot atomic.Uint64

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

type Option func(*Runtime)

// WithClock sets the clock transactions are executed at
func WithClock(clock Clock) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithLockManager coordinates account write locks across processes sharing
// the same account store
func WithLockManager(manager lock.Manager) Option {
	return func(r *Runtime) {
		r.distributedLocks = manager
	}
}

// WithRateLimiter overrides the fee payer rate limiter derived from config
func WithRateLimiter(limiter rate.Limiter) Option {
	return func(r *Runtime) {
		r.limiter = limiter
	}
}

// New returns a Runtime with the system, token and associated token account
// programs registered
func New(accounts account.Store, configProvider ConfigProvider, opts ...Option) *Runtime {
	conf := configProvider()
	ctx := context.Background()

	r := &Runtime{
		log:      logrus.StandardLogger().WithField("type", "runtime/Runtime"),
		conf:     conf,
		accounts: accounts,
		clock:    SystemClock{},

		localLocks: async.NewStripedLock(uint(conf.stripedLockParallelization.Get(ctx))),

		programs: make(map[string]Program),
		sysvars: map[string]struct{}{
			encode(system.RentSysVar):  {},
			encode(system.ClockSysVar): {},
		},
	}

	if limit := conf.submitRateLimit.Get(ctx); limit > 0 {
		r.limiter = rate.NewLocalRateLimiter(xrate.Limit(limit))
	} else {
		r.limiter = rate.NoLimiter{}
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, builtin := range []Program{systemProgram{}, tokenProgram{}, associatedTokenProgram{}} {
		r.programs[encode(builtin.ProgramId())] = builtin
	}

	return r
}

// Register adds programs to the runtime. Program ids must be unique.
func (r *Runtime) Register(programs ...Program) error {
	for _, program := range programs {
		id := encode(program.ProgramId())
		if _, ok := r.programs[id]; ok {
			return errors.Errorf("program %s is already registered", id)
		}
		if _, ok := r.sysvars[id]; ok {
			return errors.Errorf("program %s collides with a sysvar", id)
		}
		r.programs[id] = program
	}
	return nil
}

// OnCommit registers a handler that observes every committed transaction
func (r *Runtime) OnCommit(handler EventHandler) {
	r.handlersMu.Lock()
	r.handlers = append(r.handlers, handler)
	r.handlersMu.Unlock()
}

// Rent returns the current rent schedule
func (r *Runtime) Rent(ctx context.Context) RentSchedule {
	return RentSchedule{
		LamportsPerByteYear: r.conf.lamportsPerByteYear.Get(ctx),
		ExemptionThreshold:  r.conf.rentExemptionThreshold.Get(ctx),
	}
}

// Slot is the slot of the most recently executed transaction
func (r *Runtime) Slot() uint64 {
	return r.slot.Load()
}

// Accounts is the store the runtime executes against
func (r *Runtime) Accounts() account.Store {
	return r.accounts
}

// Submit verifies and executes a transaction.
//
// Execution errors are returned as an *InstructionError identifying the
// failed instruction, in which case no state was changed.
func (r *Runtime) Submit(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	defer tracer.End()

	start := time.Now()

	result, err := r.submit(ctx, tx)

	metrics.RecordDuration(ctx, submitDurationMetricName, time.Since(start))
	if err != nil {
		tracer.OnError(err)

		kvPairs := map[string]interface{}{
			"error": err.Error(),
		}
		if ixErr, ok := GetInstructionError(err); ok {
			kvPairs["instruction"] = ixErr.Index
		}
		metrics.RecordEvent(ctx, submitFailureEventName, kvPairs)
	}

	return result, err
}

func (r *Runtime) submit(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	if len(tx.Message.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}

	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}

	feePayer := tx.FeePayer()

	log := r.log.WithFields(logrus.Fields{
		"method":    "submit",
		"fee_payer": encode(feePayer),
		"signature": encode(tx.Signature()),
	})

	allowed, err := r.limiter.Allow(encode(feePayer))
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
	} else if !allowed {
		return nil, ErrRateLimited
	}

	instructions, err := tx.Message.Decompile()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	var writable, readonly [][]byte
	for i, key := range tx.Message.Accounts {
		if tx.Message.IsWritable(i) {
			writable = append(writable, key)
		} else {
			readonly = append(readonly, key)
		}
	}

	unlock := r.localLocks.LockKeys(writable, readonly)
	defer unlock()

	release, err := r.acquireDistributedLocks(ctx, writable)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *Result
	attempts, err := retry.Retry(
		func() error {
			var err error
			result, err = r.execute(ctx, tx, instructions)
			return err
		},
		retry.RetriableErrors(account.ErrStaleAccountState),
		retry.Limit(uint(r.conf.maxCommitAttempts.Get(ctx))),
	)
	if err != nil {
		log.WithError(err).Debug("transaction failed")
		return nil, err
	}
	result.Attempts = attempts

	log.WithFields(logrus.Fields{
		"id":       result.Id.String(),
		"slot":     result.Slot,
		"attempts": attempts,
		"events":   len(result.Events),
	}).Debug("transaction committed")

	r.handlersMu.RLock()
	handlers := r.handlers
	r.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, result)
	}

	return result, nil
}

func (r *Runtime) execute(ctx context.Context, tx *solana.Transaction, instructions []solana.Instruction) (*Result, error) {
	t := &txn{
		ctx:      ctx,
		rt:       r,
		feePayer: tx.FeePayer(),
		rent:     r.Rent(ctx),
		now:      r.clock.Now(),
		slot:     r.slot.Add(1),
		maxDepth: int(r.conf.maxCallDepth.Get(ctx)),
		states:   make(map[string]*accountState),
		loaded:   make(map[string]*account.Record),
	}

	if err := t.load(tx.Message.Accounts); err != nil {
		return nil, err
	}

	// Tracks every top level account, so rent can be checked on whatever the
	// instruction changed
	var all []*AccountInfo
	for _, key := range tx.Message.Accounts {
		all = append(all, &AccountInfo{Key: key, state: t.states[encode(key)]})
	}
	touched := newFrame(nil, all)

	for i, ix := range instructions {
		program, ok := r.programs[encode(ix.Program)]
		if !ok {
			return nil, &InstructionError{Index: i, Err: errors.Wrapf(ErrUnknownProgram, "program %s", encode(ix.Program))}
		}

		accounts := make([]*AccountInfo, len(ix.Accounts))
		for j, meta := range ix.Accounts {
			accounts[j] = &AccountInfo{
				Key:        meta.PublicKey,
				IsSigner:   meta.IsSigner,
				IsWritable: meta.IsWritable,
				state:      t.states[encode(meta.PublicKey)],
			}
		}

		inv := &Invocation{
			txn:      t,
			program:  ix.Program,
			data:     ix.Data,
			accounts: accounts,
			depth:    1,
		}

		touched.reset()
		if err := t.execute(program, inv); err != nil {
			return nil, &InstructionError{Index: i, Err: err}
		}

		for _, state := range touched.changed() {
			if state.lamports > 0 && !t.rent.IsExempt(state.lamports, len(state.data)) {
				return nil, &InstructionError{
					Index: i,
					Err:   errors.Wrapf(ErrInsufficientFundsForRent, "account %s", encode(state.address)),
				}
			}
		}
	}

	if records := t.changes(); len(records) > 0 {
		if err := r.accounts.SaveBatch(ctx, records...); err != nil {
			return nil, err
		}
	}

	return &Result{
		Id:         uuid.New(),
		Signature:  tx.Signature(),
		FeePayer:   t.feePayer,
		Slot:       t.slot,
		ExecutedAt: t.now,
		Events:     t.events,
	}, nil
}

// execute runs a program and checks the changes it made to its accounts
func (t *txn) execute(program Program, inv *Invocation) error {
	inv.frame = newFrame(inv.program, inv.accounts)

	t.stack = append(t.stack, inv.program)
	defer func() {
		t.stack = t.stack[:len(t.stack)-1]
	}()

	if err := program.Process(inv); err != nil {
		return err
	}
	return inv.frame.verify()
}

func (r *Runtime) isVirtualAccount(key ed25519.PublicKey) bool {
	address := encode(key)
	if _, ok := r.programs[address]; ok {
		return true
	}
	_, ok := r.sysvars[address]
	return ok
}

func (r *Runtime) acquireDistributedLocks(ctx context.Context, keys [][]byte) (release func(), err error) {
	if r.distributedLocks == nil {
		return func() {}, nil
	}

	addresses := make([]string, 0, len(keys))
	for _, key := range keys {
		addresses = append(addresses, encode(key))
	}
	sort.Strings(addresses)

	var held []lock.DistributedLock
	release = func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Unlock(context.Background()); err != nil {
				r.log.WithError(err).Warn("failure releasing account lock")
			}
		}
	}

	for _, address := range addresses {
		l, err := r.distributedLocks.Create(ctx, "account/"+address)
		if err != nil {
			release()
			return nil, errors.Wrap(err, "error creating account lock")
		}

		if _, err := l.Acquire(ctx); err != nil {
			release()
			return nil, errors.Wrap(err, "error acquiring account lock")
		}
		held = append(held, l)
	}

	return release, nil
}
