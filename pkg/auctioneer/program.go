package auctioneer

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana"

	auctioneer_program "github.com/code-payments/auction-house-server/pkg/solana/auctioneer"
	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

const (
	metricsStructName = "auctioneer.Program"
)

// Program forwards direct auction house instructions as their auctioneer
// forms, signing as the auction house's auctioneer authority address. It's the
// only way an auction house with a delegated auctioneer can be traded on.
type Program struct {
	log *logrus.Entry
}

func NewProgram() *Program {
	return &Program{
		log: logrus.StandardLogger().WithField("type", "auctioneer/Program"),
	}
}

// ProgramId implements runtime.Program.ProgramId
func (p *Program) ProgramId() ed25519.PublicKey {
	return auctioneer_program.PROGRAM_ID
}

// Process implements runtime.Program.Process
func (p *Program) Process(inv *runtime.Invocation) error {
	ixType, err := auctionhouse_program.GetInstructionType(inv.Data())
	if err != nil {
		return err
	}

	tracer := metrics.TraceMethodCall(inv.Context(), metricsStructName, ixType.String())
	defer tracer.End()

	err = p.forward(inv, ixType)
	if err != nil {
		tracer.OnError(err)
		p.log.WithError(err).WithField("method", ixType.String()).Debug("forwarding failed")
	}
	return err
}

func (p *Program) forward(inv *runtime.Invocation, ixType auctionhouse_program.InstructionType) error {
	if ixType.IsAuctioneerVariant() {
		return errors.Wrapf(auctioneer_program.ErrInvalidInstructionData, "%s is already an auctioneer instruction", ixType)
	}
	variant, ok := ixType.AuctioneerVariant()
	if !ok {
		return errors.Wrapf(auctioneer_program.ErrInvalidInstructionData, "%s can't be forwarded", ixType)
	}

	accounts := inv.Accounts()
	if len(accounts) < 3 {
		return errors.Wrapf(auctioneer_program.ErrInvalidInstructionData, "expected at least 3 accounts, got %d", len(accounts))
	}
	n := len(accounts) - 3
	inner := accounts[:n]
	authority := accounts[n]
	record := accounts[n+1]
	program := accounts[n+2]

	if !bytes.Equal(program.Key, auctionhouse_program.PROGRAM_ID) {
		return errors.Wrapf(auctioneer_program.ErrInvalidProgram, "program %s", program.String())
	}

	index, ok := auctioneer_program.AuctionHouseAccountIndex(ixType)
	if !ok || index >= n {
		return errors.Wrapf(auctioneer_program.ErrInvalidInstructionData, "missing auction house account for %s", ixType)
	}
	auctionHouse := inner[index].Key

	if err := checkCaller(ixType, inner); err != nil {
		return err
	}

	expected, bump, err := auctioneer_program.GetAuctioneerAuthorityAddress(&auctioneer_program.GetAuctioneerAuthorityAddressArgs{
		AuctionHouse: auctionHouse,
	})
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, authority.Key) {
		return errors.Wrapf(auctioneer_program.ErrInvalidAuthority, "authority %s", authority.String())
	}

	metas := make([]solana.AccountMeta, 0, n+2)
	for _, info := range inner {
		metas = append(metas, solana.AccountMeta{
			PublicKey:  info.Key,
			IsSigner:   info.IsSigner,
			IsWritable: info.IsWritable,
		})
	}
	metas = append(metas,
		solana.NewReadonlyAccountMeta(authority.Key, true),
		solana.NewReadonlyAccountMeta(record.Key, false),
	)

	data := make([]byte, len(inv.Data()))
	copy(data, inv.Data())
	data[0] = byte(variant)

	p.log.WithFields(logrus.Fields{
		"method":        ixType.String(),
		"auction_house": base58.Encode(auctionHouse),
	}).Trace("forwarding instruction")

	seeds := auctionhouse_program.WithBump(auctioneer_program.AuctioneerAuthoritySeeds(auctionHouse), bump)
	return inv.InvokeSigned(
		solana.Instruction{
			Program:  auctionhouse_program.PROGRAM_ADDRESS,
			Accounts: metas,
			Data:     data,
		},
		seeds,
	)
}

// checkCaller fails unless one of the accounts able to vouch for the
// instruction signed it. The authority address signs for whoever calls, so
// the caller has to be authenticated here.
func checkCaller(ixType auctionhouse_program.InstructionType, inner []*runtime.AccountInfo) error {
	indexes, ok := auctioneer_program.CallerAccountIndexes(ixType)
	if !ok {
		return errors.Wrapf(auctioneer_program.ErrInvalidInstructionData, "%s can't be forwarded", ixType)
	}

	for _, index := range indexes {
		if index < len(inner) && inner[index].IsSigner {
			return nil
		}
	}
	return errors.Wrapf(auctioneer_program.ErrMissingCallerSigner, "%s", ixType)
}
