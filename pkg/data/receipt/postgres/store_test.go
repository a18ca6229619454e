package postgres

import (
	"database/sql"
	"testing"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/data/receipt/tests"

	postgrestest "github.com/code-payments/auction-house-server/pkg/database/postgres/test"
)

var schema = postgrestest.Schema{
	Create: `
		CREATE TABLE auctionhouse__core_listingreceipt(
			id SERIAL NOT NULL PRIMARY KEY,

			trade_state TEXT NOT NULL,
			auction_house TEXT NOT NULL,
			seller TEXT NOT NULL,
			token_account TEXT NOT NULL,
			token_mint TEXT NOT NULL,
			metadata TEXT NOT NULL,

			price BIGINT NOT NULL,
			token_size BIGINT NOT NULL,
			remaining BIGINT NOT NULL,

			bookkeeper TEXT NOT NULL,
			purchase_receipt TEXT,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			activated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			closed_at TIMESTAMP WITH TIME ZONE,

			CONSTRAINT auctionhouse__core_listingreceipt__uniq__trade_state UNIQUE (trade_state)
		);

		CREATE INDEX auctionhouse__core_listingreceipt__auction_house ON auctionhouse__core_listingreceipt(auction_house);

		CREATE TABLE auctionhouse__core_bidreceipt(
			id SERIAL NOT NULL PRIMARY KEY,

			trade_state TEXT NOT NULL,
			auction_house TEXT NOT NULL,
			buyer TEXT NOT NULL,
			token_account TEXT,
			token_mint TEXT NOT NULL,
			metadata TEXT NOT NULL,
			public BOOL NOT NULL,

			price BIGINT NOT NULL,
			token_size BIGINT NOT NULL,

			bookkeeper TEXT NOT NULL,
			purchase_receipt TEXT,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			activated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			closed_at TIMESTAMP WITH TIME ZONE,

			CONSTRAINT auctionhouse__core_bidreceipt__uniq__trade_state UNIQUE (trade_state)
		);

		CREATE INDEX auctionhouse__core_bidreceipt__auction_house ON auctionhouse__core_bidreceipt(auction_house);

		CREATE TABLE auctionhouse__core_purchasereceipt(
			id SERIAL NOT NULL PRIMARY KEY,

			address TEXT NOT NULL,
			auction_house TEXT NOT NULL,
			buyer TEXT NOT NULL,
			seller TEXT NOT NULL,
			token_mint TEXT NOT NULL,

			price BIGINT NOT NULL,
			token_size BIGINT NOT NULL,
			fee BIGINT NOT NULL,

			signature TEXT NOT NULL,
			slot BIGINT NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,

			CONSTRAINT auctionhouse__core_purchasereceipt__uniq__address UNIQUE (address)
		);

		CREATE INDEX auctionhouse__core_purchasereceipt__auction_house ON auctionhouse__core_purchasereceipt(auction_house);
	`,
	Drop: `
		DROP TABLE auctionhouse__core_listingreceipt;
		DROP TABLE auctionhouse__core_bidreceipt;
		DROP TABLE auctionhouse__core_purchasereceipt;
	`,
}

var (
	testStore receipt.Store
	reset     func()
)

func TestMain(m *testing.M) {
	postgrestest.Main(m, schema, func(db *sql.DB, r func()) {
		testStore = New(db)
		reset = r
	})
}

func TestReceiptPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, reset)
}
