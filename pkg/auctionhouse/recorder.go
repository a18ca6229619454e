package auctionhouse

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/metrics"
	"github.com/code-payments/auction-house-server/pkg/runtime"

	sync_util "github.com/code-payments/auction-house-server/pkg/sync"
)

const (
	recorderMetricsStructName = "auctionhouse.ReceiptRecorder"

	receiptDroppedEventName = "AuctionHouseReceiptDropped"

	receiptWriteTimeout = 5 * time.Second
)

// ReceiptRecorder persists listing, bid and purchase receipts for committed
// transactions. Receipts are an index over runtime accounts and are written
// asynchronously, so a failed write never affects settlement.
//
// Events for the same auction house are handled in commit order.
type ReceiptRecorder struct {
	log     *logrus.Entry
	conf    *conf
	store   receipt.Store
	workers *sync_util.StripedChannel
	wg      sync.WaitGroup
}

type recordedEvent struct {
	result *runtime.Result
	event  runtime.Event
}

// NewReceiptRecorder starts a recorder backed by store. Use Attach to begin
// observing a runtime.
func NewReceiptRecorder(store receipt.Store, configProvider ConfigProvider) *ReceiptRecorder {
	conf := configProvider()

	r := &ReceiptRecorder{
		log:   logrus.StandardLogger().WithField("type", "auctionhouse/ReceiptRecorder"),
		conf:  conf,
		store: store,
		workers: sync_util.NewStripedChannel(
			uint(conf.receiptWorkerCount.Get(context.Background())),
			uint(conf.receiptQueueSize.Get(context.Background())),
		),
	}

	for i, channel := range r.workers.GetChannels() {
		r.wg.Add(1)
		go r.worker(i, channel)
	}

	return r
}

// Attach registers the recorder as a commit handler of rt
func (r *ReceiptRecorder) Attach(rt *runtime.Runtime) {
	rt.OnCommit(r.OnCommit)
}

// OnCommit implements runtime.EventHandler
func (r *ReceiptRecorder) OnCommit(ctx context.Context, result *runtime.Result) {
	if !r.conf.receiptsEnabled.Get(ctx) {
		return
	}

	for _, event := range result.Events {
		auctionHouse, ok := auctionHouseOf(event)
		if !ok {
			continue
		}

		if !r.workers.Send(auctionHouse, &recordedEvent{result: result, event: event}) {
			r.log.WithFields(logrus.Fields{
				"event":         event.EventName(),
				"auction_house": base58.Encode(auctionHouse),
			}).Warn("receipt queue is full or closed, dropping event")

			metrics.RecordEvent(ctx, receiptDroppedEventName, map[string]interface{}{
				"event": event.EventName(),
			})
		}
	}
}

// Close stops accepting events and waits for queued events to be written
func (r *ReceiptRecorder) Close() {
	r.workers.Close()
	r.wg.Wait()
}

func (r *ReceiptRecorder) worker(id int, channel <-chan interface{}) {
	defer r.wg.Done()

	log := r.log.WithFields(logrus.Fields{
		"method": "worker",
		"worker": id,
	})

	for value := range channel {
		typed, ok := value.(*recordedEvent)
		if !ok {
			log.Warn("channel did not receive expected struct")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), receiptWriteTimeout)
		if err := r.record(ctx, typed.result, typed.event); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"event":     typed.event.EventName(),
				"execution": typed.result.Id.String(),
			}).Warn("failure recording receipt")
		}
		cancel()
	}
}

func (r *ReceiptRecorder) record(ctx context.Context, result *runtime.Result, event runtime.Event) (err error) {
	tracer := metrics.TraceMethodCall(ctx, recorderMetricsStructName, event.EventName())
	defer func() {
		if err != nil {
			tracer.OnError(err)
		}
		tracer.End()
	}()

	switch typed := event.(type) {
	case *ListingOpened:
		return r.recordListing(ctx, typed)
	case *BidPlaced:
		return r.recordBid(ctx, typed)
	case *TradeStateClosed:
		return r.recordClosed(ctx, typed)
	case *SaleExecuted:
		return r.recordSale(ctx, result, typed)
	}
	return nil
}

func (r *ReceiptRecorder) recordListing(ctx context.Context, event *ListingOpened) error {
	record := &receipt.ListingRecord{
		TradeState:   base58.Encode(event.TradeState),
		AuctionHouse: base58.Encode(event.AuctionHouse),
		Seller:       base58.Encode(event.Seller),
		TokenAccount: base58.Encode(event.TokenAccount),
		TokenMint:    base58.Encode(event.TokenMint),
		Metadata:     base58.Encode(event.Metadata),
		Price:        event.Price,
		TokenSize:    event.TokenSize,
		Remaining:    event.TokenSize,
		Bookkeeper:   base58.Encode(event.Bookkeeper),
		CreatedAt:    event.OpenedAt,
		ActivatedAt:  event.OpenedAt,
	}
	return r.store.SaveListing(ctx, record)
}

func (r *ReceiptRecorder) recordBid(ctx context.Context, event *BidPlaced) error {
	record := &receipt.BidRecord{
		TradeState:   base58.Encode(event.TradeState),
		AuctionHouse: base58.Encode(event.AuctionHouse),
		Buyer:        base58.Encode(event.Buyer),
		TokenMint:    base58.Encode(event.TokenMint),
		Metadata:     base58.Encode(event.Metadata),
		Public:       event.Public,
		Price:        event.Price,
		TokenSize:    event.TokenSize,
		Bookkeeper:   base58.Encode(event.Bookkeeper),
		CreatedAt:    event.OpenedAt,
		ActivatedAt:  event.OpenedAt,
	}
	if !event.Public {
		record.TokenAccount = base58.Encode(event.TokenAccount)
	}
	return r.store.SaveBid(ctx, record)
}

func (r *ReceiptRecorder) recordClosed(ctx context.Context, event *TradeStateClosed) error {
	tradeState := base58.Encode(event.TradeState)
	closedAt := event.ClosedAt

	listing, err := r.store.GetListing(ctx, tradeState)
	switch err {
	case nil:
		listing.ClosedAt = &closedAt
		if event.Reason == CloseReasonFilled {
			listing.Remaining = 0
		}
		return r.store.SaveListing(ctx, listing)
	case receipt.ErrReceiptNotFound:
	default:
		return err
	}

	bid, err := r.store.GetBid(ctx, tradeState)
	switch err {
	case nil:
		bid.ClosedAt = &closedAt
		return r.store.SaveBid(ctx, bid)
	case receipt.ErrReceiptNotFound:
		// Trade states opened before receipts were enabled have nothing to
		// update
		return nil
	default:
		return err
	}
}

func (r *ReceiptRecorder) recordSale(ctx context.Context, result *runtime.Result, event *SaleExecuted) error {
	address := PurchaseReceiptAddress(result, event.BuyerTradeState)

	err := r.store.PutPurchase(ctx, &receipt.PurchaseRecord{
		Address:      address,
		AuctionHouse: base58.Encode(event.AuctionHouse),
		Buyer:        base58.Encode(event.Buyer),
		Seller:       base58.Encode(event.Seller),
		TokenMint:    base58.Encode(event.TokenMint),
		Price:        event.Price,
		TokenSize:    event.TokenSize,
		Fee:          event.Fee,
		Signature:    base58.Encode(result.Signature),
		Slot:         result.Slot,
		CreatedAt:    event.ExecutedAt,
	})
	if err != nil && err != receipt.ErrReceiptExists {
		return errors.Wrap(err, "error saving purchase receipt")
	}

	// Sale events follow the closures of the same transaction, so the listing
	// and bid receipts only need the purchase linked
	listing, err := r.store.GetListing(ctx, base58.Encode(event.SellerTradeState))
	if err == nil {
		listing.PurchaseReceipt = address
		listing.Remaining = event.SellerRemaining
		if err := r.store.SaveListing(ctx, listing); err != nil {
			return errors.Wrap(err, "error linking listing receipt")
		}
	} else if err != receipt.ErrReceiptNotFound {
		return err
	}

	bid, err := r.store.GetBid(ctx, base58.Encode(event.BuyerTradeState))
	if err == nil {
		bid.PurchaseReceipt = address
		if err := r.store.SaveBid(ctx, bid); err != nil {
			return errors.Wrap(err, "error linking bid receipt")
		}
	} else if err != receipt.ErrReceiptNotFound {
		return err
	}

	return nil
}

// PurchaseReceiptAddress is the deterministic receipt address of the sale
// filling buyerTradeState within a committed execution
func PurchaseReceiptAddress(result *runtime.Result, buyerTradeState ed25519.PublicKey) string {
	return uuid.NewSHA1(result.Id, buyerTradeState).String()
}

func auctionHouseOf(event runtime.Event) ([]byte, bool) {
	switch typed := event.(type) {
	case *ListingOpened:
		return typed.AuctionHouse, true
	case *BidPlaced:
		return typed.AuctionHouse, true
	case *TradeStateClosed:
		return typed.AuctionHouse, true
	case *SaleExecuted:
		return typed.AuctionHouse, true
	}
	return nil, false
}
