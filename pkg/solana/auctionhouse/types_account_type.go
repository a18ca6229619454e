package auctionhouse

type AccountType uint8

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeAuctionHouse
	AccountTypeAuctioneer
)
