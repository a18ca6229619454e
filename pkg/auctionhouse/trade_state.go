package auctionhouse

import (
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/system"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// isTradeStateOpen reports whether the account holds an open order created by
// the program. Any other account is treated as Absent.
func isTradeStateOpen(info *runtime.AccountInfo) bool {
	return info.IsOwnedBy(auctionhouse_program.PROGRAM_ID) && auctionhouse_program.IsTradeStateOpen(info.Data())
}

func loadTradeState(info *runtime.AccountInfo) (*auctionhouse_program.TradeStateAccount, error) {
	if !isTradeStateOpen(info) {
		return nil, errors.Wrapf(auctionhouse_program.ErrTradeStateDoesNotExist, "trade state %s", info.String())
	}

	var state auctionhouse_program.TradeStateAccount
	if err := state.Unmarshal(info.Data()); err != nil {
		return nil, errors.Wrapf(auctionhouse_program.ErrInvalidAccountData, "trade state %s", info.String())
	}
	return &state, nil
}

// openTradeState moves a trade state from Absent to Open. An already Open
// trade state is left untouched and reported with created set to false, so
// resending an order is a no-op.
func openTradeState(
	inv *runtime.Invocation,
	payer *feePayer,
	info *runtime.AccountInfo,
	key *auctionhouse_program.TradeStateKey,
	bump uint8,
	size uint64,
) (created bool, err error) {
	if err := auctionhouse_program.VerifyTradeStateAddress(key, info.Key, bump); err != nil {
		return false, err
	}

	if isTradeStateOpen(info) {
		existing, err := loadTradeState(info)
		if err != nil {
			return false, err
		}
		if existing.Bump != bump {
			return false, errors.Wrapf(auctionhouse_program.ErrBumpSeedNotInHashMap, "trade state %s", info.String())
		}
		return false, nil
	}

	// Abandoned program owned accounts are never reused with stale data
	if info.IsOwnedBy(auctionhouse_program.PROGRAM_ID) {
		return false, errors.Wrapf(auctionhouse_program.ErrTradeStateIsNotEmpty, "trade state %s", info.String())
	}

	err = runtime.CreateProgramAccount(inv, &runtime.CreateProgramAccountArgs{
		Funder:       payer.info,
		Account:      info,
		Owner:        auctionhouse_program.PROGRAM_ID,
		Size:         auctionhouse_program.TradeStateAccountSize,
		FunderSeeds:  payer.seeds,
		AccountSeeds: auctionhouse_program.WithBump(key.Seeds(), bump),
	})
	if err != nil {
		return false, err
	}

	state := &auctionhouse_program.TradeStateAccount{
		Bump:      bump,
		Remaining: size,
	}
	if err := info.SetData(state.Marshal()); err != nil {
		return false, err
	}
	return true, nil
}

// closeTradeState sweeps every lamport of an Open trade state to dest and
// returns the account to the system program, which deletes it on commit
func closeTradeState(info, dest *runtime.AccountInfo) error {
	if !isTradeStateOpen(info) {
		return errors.Wrapf(auctionhouse_program.ErrTradeStateDoesNotExist, "trade state %s", info.String())
	}

	lamports := info.Lamports()
	if err := info.Debit(lamports); err != nil {
		return err
	}
	if err := dest.Credit(lamports); err != nil {
		return err
	}

	if err := info.SetData(nil); err != nil {
		return err
	}
	return info.SetOwner(system.ProgramKey)
}

// updateRemaining rewrites the remaining size of an Open trade state
func updateRemaining(info *runtime.AccountInfo, state *auctionhouse_program.TradeStateAccount, remaining uint64) error {
	state.Remaining = remaining
	return info.SetData(state.Marshal())
}
