package auctionhouse

type InstructionType uint8

const (
	Unknown InstructionType = iota

	InstructionTypeCreateAuctionHouse
	InstructionTypeUpdateAuctionHouse

	InstructionTypeDeposit
	InstructionTypeWithdraw
	InstructionTypeWithdrawFromFee
	InstructionTypeWithdrawFromTreasury

	InstructionTypeSell
	InstructionTypeBuy
	InstructionTypePublicBuy
	InstructionTypeCancel
	InstructionTypeExecuteSale

	InstructionTypeDelegateAuctioneer
	InstructionTypeUpdateAuctioneer

	InstructionTypeAuctioneerDeposit
	InstructionTypeAuctioneerWithdraw
	InstructionTypeAuctioneerSell
	InstructionTypeAuctioneerBuy
	InstructionTypeAuctioneerPublicBuy
	InstructionTypeAuctioneerCancel
	InstructionTypeAuctioneerExecuteSale
)

var auctioneerVariants = map[InstructionType]InstructionType{
	InstructionTypeDeposit:     InstructionTypeAuctioneerDeposit,
	InstructionTypeWithdraw:    InstructionTypeAuctioneerWithdraw,
	InstructionTypeSell:        InstructionTypeAuctioneerSell,
	InstructionTypeBuy:         InstructionTypeAuctioneerBuy,
	InstructionTypePublicBuy:   InstructionTypeAuctioneerPublicBuy,
	InstructionTypeCancel:      InstructionTypeAuctioneerCancel,
	InstructionTypeExecuteSale: InstructionTypeAuctioneerExecuteSale,
}

var directVariants = func() map[InstructionType]InstructionType {
	res := make(map[InstructionType]InstructionType)
	for direct, auctioneer := range auctioneerVariants {
		res[auctioneer] = direct
	}
	return res
}()

// AuctioneerVariant returns the auctioneer gated form of a direct instruction
func (t InstructionType) AuctioneerVariant() (InstructionType, bool) {
	v, ok := auctioneerVariants[t]
	return v, ok
}

// Direct returns the non-delegated form of an instruction. Instructions
// without an auctioneer form are returned as-is.
func (t InstructionType) Direct() InstructionType {
	if v, ok := directVariants[t]; ok {
		return v
	}
	return t
}

func (t InstructionType) IsAuctioneerVariant() bool {
	_, ok := directVariants[t]
	return ok
}

// Scope is the authority scope an auctioneer needs to run the instruction
func (t InstructionType) Scope() (AuthorityScope, bool) {
	switch t.Direct() {
	case InstructionTypeDeposit:
		return AuthorityScopeDeposit, true
	case InstructionTypeWithdraw:
		return AuthorityScopeWithdraw, true
	case InstructionTypeSell:
		return AuthorityScopeSell, true
	case InstructionTypeBuy:
		return AuthorityScopeBuy, true
	case InstructionTypePublicBuy:
		return AuthorityScopePublicBuy, true
	case InstructionTypeCancel:
		return AuthorityScopeCancel, true
	case InstructionTypeExecuteSale:
		return AuthorityScopeExecuteSale, true
	}
	return 0, false
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeCreateAuctionHouse:
		return "create_auction_house"
	case InstructionTypeUpdateAuctionHouse:
		return "update_auction_house"
	case InstructionTypeDeposit:
		return "deposit"
	case InstructionTypeWithdraw:
		return "withdraw"
	case InstructionTypeWithdrawFromFee:
		return "withdraw_from_fee"
	case InstructionTypeWithdrawFromTreasury:
		return "withdraw_from_treasury"
	case InstructionTypeSell:
		return "sell"
	case InstructionTypeBuy:
		return "buy"
	case InstructionTypePublicBuy:
		return "public_buy"
	case InstructionTypeCancel:
		return "cancel"
	case InstructionTypeExecuteSale:
		return "execute_sale"
	case InstructionTypeDelegateAuctioneer:
		return "delegate_auctioneer"
	case InstructionTypeUpdateAuctioneer:
		return "update_auctioneer"
	}
	if t.IsAuctioneerVariant() {
		return "auctioneer_" + t.Direct().String()
	}
	return "unknown"
}

// GetInstructionType returns the type prefix of auction house instruction data
func GetInstructionType(data []byte) (InstructionType, error) {
	if len(data) == 0 {
		return Unknown, ErrInvalidInstructionData
	}
	return InstructionType(data[0]), nil
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}

// checkInstructionData validates the prefix and size of instruction data,
// accepting either the direct or auctioneer form of expected
func checkInstructionData(data []byte, expected InstructionType, argsSize int) error {
	actual, err := GetInstructionType(data)
	if err != nil {
		return err
	}
	if actual.Direct() != expected {
		return ErrInvalidInstructionData
	}
	if len(data) != 1+argsSize {
		return ErrInvalidInstructionData
	}
	return nil
}

// instructionType picks the auctioneer form of t when auctioneer accounts
// are provided
func instructionType(t InstructionType, auctioneer *AuctioneerInstructionAccounts) InstructionType {
	if auctioneer == nil {
		return t
	}
	v, ok := t.AuctioneerVariant()
	if !ok {
		return t
	}
	return v
}
