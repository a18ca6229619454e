package auctionhouse

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/runtime"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

const (
	metricsStructName = "auctionhouse.Program"

	saleExecutedEventName      = "AuctionHouseSaleExecuted"
	instructionFailedEventName = "AuctionHouseInstructionFailed"
)

// Program is the auction house settlement engine. It holds no state of its
// own; every order, escrow and scope record lives in runtime accounts.
type Program struct {
	log      *logrus.Entry
	conf     *conf
	metadata MetadataValidator
}

type Option func(*Program)

// WithMetadataValidator overrides the canonical metadata address check
func WithMetadataValidator(validator MetadataValidator) Option {
	return func(p *Program) {
		p.metadata = validator
	}
}

func NewProgram(configProvider ConfigProvider, opts ...Option) *Program {
	p := &Program{
		log:      logrus.StandardLogger().WithField("type", "auctionhouse/Program"),
		conf:     configProvider(),
		metadata: NewCanonicalMetadataValidator(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProgramId implements runtime.Program.ProgramId
func (p *Program) ProgramId() ed25519.PublicKey {
	return auctionhouse_program.PROGRAM_ID
}

// Process implements runtime.Program.Process
func (p *Program) Process(inv *runtime.Invocation) error {
	ixType, err := auctionhouse_program.GetInstructionType(inv.Data())
	if err != nil {
		return err
	}

	tracer := metrics.TraceMethodCall(inv.Context(), metricsStructName, ixType.String())
	defer tracer.End()

	log := p.log.WithFields(logrus.Fields{
		"method":    ixType.String(),
		"fee_payer": base58.Encode(inv.FeePayer()),
		"depth":     inv.Depth(),
	})

	err = p.dispatch(inv, ixType)
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Debug("instruction failed")

		kvPairs := map[string]interface{}{
			"instruction": ixType.String(),
			"error":       err.Error(),
		}
		var programErr *auctionhouse_program.ProgramError
		if errors.As(err, &programErr) {
			kvPairs["code"] = programErr.Code
		}
		metrics.RecordEvent(inv.Context(), instructionFailedEventName, kvPairs)
	}
	return err
}

func (p *Program) dispatch(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	switch ixType {
	case auctionhouse_program.InstructionTypeCreateAuctionHouse:
		return p.createAuctionHouse(inv)
	case auctionhouse_program.InstructionTypeUpdateAuctionHouse:
		return p.updateAuctionHouse(inv)
	case auctionhouse_program.InstructionTypeWithdrawFromFee:
		return p.withdrawFromFee(inv)
	case auctionhouse_program.InstructionTypeWithdrawFromTreasury:
		return p.withdrawFromTreasury(inv)
	case auctionhouse_program.InstructionTypeDelegateAuctioneer:
		return p.delegateAuctioneer(inv)
	case auctionhouse_program.InstructionTypeUpdateAuctioneer:
		return p.updateAuctioneer(inv)
	}

	// Direct and auctioneer forms share handlers, and only differ by the
	// authorization context built for them
	switch ixType.Direct() {
	case auctionhouse_program.InstructionTypeDeposit:
		return p.deposit(inv, ixType)
	case auctionhouse_program.InstructionTypeWithdraw:
		return p.withdraw(inv, ixType)
	case auctionhouse_program.InstructionTypeSell:
		return p.sell(inv, ixType)
	case auctionhouse_program.InstructionTypeBuy:
		return p.buy(inv, ixType, false)
	case auctionhouse_program.InstructionTypePublicBuy:
		return p.buy(inv, ixType, true)
	case auctionhouse_program.InstructionTypeCancel:
		return p.cancel(inv, ixType)
	case auctionhouse_program.InstructionTypeExecuteSale:
		return p.executeSale(inv, ixType)
	}

	return errors.Wrapf(auctionhouse_program.ErrUnknownInstruction, "instruction type %d", ixType)
}

// getAccounts returns the first n accounts of the instruction
func getAccounts(inv *runtime.Invocation, n int) ([]*runtime.AccountInfo, error) {
	if inv.NumAccounts() < n {
		return nil, errors.Wrapf(auctionhouse_program.ErrMissingAccount, "expected %d accounts, got %d", n, inv.NumAccounts())
	}
	return inv.Accounts()[:n], nil
}

// checkSignOff enforces requires_sign_off on order placement and settlement
func checkSignOff(house *auctionHouse, auth *AuthorizationContext) error {
	if house.state.RequiresSignOff && !auth.HouseSigned() {
		return auctionhouse_program.ErrRequiresSignOff
	}
	return nil
}
