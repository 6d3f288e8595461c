package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"asset_ledger/internal/domain"
	"asset_ledger/internal/event"
	"asset_ledger/internal/infra"
	"asset_ledger/internal/settlement"

	"github.com/shopspring/decimal"
)

// Repository persists committed records together with their notification.
type Repository interface {
	Commit(ctx context.Context, item domain.Item, ev event.Event) error
	LoadItems(ctx context.Context) ([]domain.Item, error)
	LastEventSeq(ctx context.Context) (uint64, error)
}

// Publisher receives every notification after its operation committed.
type Publisher interface {
	Publish(ev event.Event)
}

// Config wires a Ledger. Repository, Publisher and Metrics are optional.
type Config struct {
	ListingFee decimal.Decimal
	Settlement *settlement.Engine
	Repository Repository
	Publisher  Publisher
	Metrics    *infra.Metrics
}

// Ledger is the authoritative item store. Mutating operations run one at a
// time: validate, settle, then commit, holding the operation lock throughout.
type Ledger struct {
	op sync.Mutex // serializes List, Buy, Reprice, Cancel and Restore

	mu      sync.RWMutex // guards items and custody for readers
	items   map[domain.ItemID]*domain.Item
	custody map[domain.AssetRef]domain.ItemID // active listing per asset

	ids      *Sequence
	eventSeq uint64

	listingFee decimal.Decimal
	settle     *settlement.Engine
	repo       Repository
	pub        Publisher
	metrics    *infra.Metrics
}

// New creates an empty ledger.
func New(cfg Config) (*Ledger, error) {
	if cfg.Settlement == nil {
		return nil, errors.New("ledger: settlement engine is required")
	}
	if cfg.ListingFee.IsNegative() {
		return nil, fmt.Errorf("ledger: negative listing fee %s", cfg.ListingFee)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Ledger{
		items:      make(map[domain.ItemID]*domain.Item),
		custody:    make(map[domain.AssetRef]domain.ItemID),
		ids:        NewSequence(),
		listingFee: cfg.ListingFee,
		settle:     cfg.Settlement,
		repo:       cfg.Repository,
		pub:        cfg.Publisher,
		metrics:    metrics,
	}, nil
}

// Accounts returns the custodian holding escrow and custody, and the operator
// receiving listing fees.
func (l *Ledger) Accounts() (custodian, operator domain.Identity) {
	return l.settle.Custodian(), l.settle.Operator()
}

// ListingFee returns the fee required by List and Reprice.
func (l *Ledger) ListingFee() decimal.Decimal {
	return l.listingFee
}

// Restore reloads committed records from the repository.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}
	ctx, release, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	items, err := l.repo.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("restore items: %w", err)
	}
	lastSeq, err := l.repo.LastEventSeq(ctx)
	if err != nil {
		return fmt.Errorf("restore event sequence: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = make(map[domain.ItemID]*domain.Item, len(items))
	l.custody = make(map[domain.AssetRef]domain.ItemID)
	var active int64
	for i := range items {
		it := items[i]
		l.items[it.ID] = &it
		l.ids.ResumeAfter(it.ID)
		if it.IsListed() {
			l.custody[it.Asset()] = it.ID
			active++
		}
	}
	l.eventSeq = lastSeq
	l.metrics.SetActiveListings(active)

	slog.Info("Ledger restored", slog.Int("items", len(items)), slog.Int64("active", active),
		slog.Uint64("last_seq", lastSeq))
	return nil
}

// List puts caller's asset up for sale at price. feePaid must equal the
// listing fee; the fee is escrowed and custody moves to the ledger.
func (l *Ledger) List(ctx context.Context, caller domain.Identity, ref domain.AssetRef, price, feePaid decimal.Decimal) (domain.ItemID, error) {
	ctx, release, err := l.enter(ctx)
	if err != nil {
		return 0, l.fail("list", ref.String(), caller, err)
	}
	defer release()

	if !price.IsPositive() {
		return 0, l.fail("list", ref.String(), caller, domain.ErrInvalidPrice)
	}
	if !feePaid.Equal(l.listingFee) {
		return 0, l.fail("list", ref.String(), caller, domain.ErrFeeMismatch)
	}
	if l.activeListing(ref) {
		return 0, l.fail("list", ref.String(), caller, domain.ErrAlreadyListed)
	}
	owner, err := l.settle.OwnerOf(ctx, ref)
	if err != nil {
		return 0, l.fail("list", ref.String(), caller, err)
	}
	if owner != caller {
		return 0, l.fail("list", ref.String(), caller, domain.ErrNotAssetOwner)
	}

	start := time.Now()
	receipt, err := l.settle.SettleListing(ctx, caller, ref, feePaid)
	l.metrics.RecordSettlement(time.Since(start))
	if err != nil {
		return 0, l.fail("list", ref.String(), caller, err)
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:         l.ids.Peek(),
		Collection: ref.Collection,
		Token:      ref.Token,
		Seller:     caller,
		Owner:      domain.NoOwner,
		Price:      price,
		ListingFee: feePaid,
		State:      domain.StateListed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ev := &event.ListedEvent{
		BaseEvent:  event.NewBase(l.eventSeq+1, item.ID),
		Collection: ref.Collection,
		Token:      ref.Token,
		Seller:     caller,
		Price:      price,
	}
	if err := l.commit(ctx, item, ev, receipt); err != nil {
		return 0, l.fail("list", ref.String(), caller, err)
	}
	l.ids.Advance()
	l.metrics.RecordListing()

	slog.Info("Item listed", slog.Uint64("item_id", uint64(item.ID)), slog.String("asset", ref.String()),
		slog.String("seller", string(caller)), slog.String("price", price.String()))
	return item.ID, nil
}

// Buy sells item id to caller for amountPaid, which must equal the price.
func (l *Ledger) Buy(ctx context.Context, caller domain.Identity, id domain.ItemID, amountPaid decimal.Decimal) error {
	ctx, release, err := l.enter(ctx)
	if err != nil {
		return l.fail("buy", id.String(), caller, err)
	}
	defer release()

	item, err := l.lookup(id)
	if err != nil {
		return l.fail("buy", id.String(), caller, err)
	}
	if err := item.CheckTransition(); err != nil {
		return l.fail("buy", id.String(), caller, err)
	}
	if caller == item.Seller {
		return l.fail("buy", id.String(), caller, domain.ErrSelfPurchase)
	}
	if !amountPaid.Equal(item.Price) {
		return l.fail("buy", id.String(), caller, domain.ErrWrongPayment)
	}

	start := time.Now()
	receipt, err := l.settle.SettleSale(ctx, item, caller, amountPaid)
	l.metrics.RecordSettlement(time.Since(start))
	if err != nil {
		return l.fail("buy", id.String(), caller, err)
	}

	item.Owner = caller
	item.State = domain.StateSold
	item.UpdatedAt = time.Now().UTC()
	ev := &event.SoldEvent{
		BaseEvent: event.NewBase(l.eventSeq+1, id),
		Buyer:     caller,
		Amount:    amountPaid,
	}
	if err := l.commit(ctx, item, ev, receipt); err != nil {
		return l.fail("buy", id.String(), caller, err)
	}
	l.metrics.RecordSale()

	slog.Info("Item sold", slog.Uint64("item_id", uint64(id)), slog.String("buyer", string(caller)),
		slog.String("amount", amountPaid.String()))
	return nil
}

// Reprice changes the price of a listed item. The seller pays the listing fee
// again on every price change.
func (l *Ledger) Reprice(ctx context.Context, caller domain.Identity, id domain.ItemID, newPrice, feePaid decimal.Decimal) error {
	ctx, release, err := l.enter(ctx)
	if err != nil {
		return l.fail("reprice", id.String(), caller, err)
	}
	defer release()

	item, err := l.lookup(id)
	if err != nil {
		return l.fail("reprice", id.String(), caller, err)
	}
	if err := item.CheckTransition(); err != nil {
		return l.fail("reprice", id.String(), caller, err)
	}
	if caller != item.Seller {
		return l.fail("reprice", id.String(), caller, domain.ErrNotSeller)
	}
	if !newPrice.IsPositive() {
		return l.fail("reprice", id.String(), caller, domain.ErrInvalidPrice)
	}
	if newPrice.Equal(item.Price) {
		return l.fail("reprice", id.String(), caller, domain.ErrSamePrice)
	}
	if !feePaid.Equal(l.listingFee) {
		return l.fail("reprice", id.String(), caller, domain.ErrFeeMismatch)
	}

	start := time.Now()
	receipt, err := l.settle.SettleReprice(ctx, caller, feePaid)
	l.metrics.RecordSettlement(time.Since(start))
	if err != nil {
		return l.fail("reprice", id.String(), caller, err)
	}

	old := item.Price
	item.Price = newPrice
	item.UpdatedAt = time.Now().UTC()
	ev := &event.PriceChangedEvent{
		BaseEvent: event.NewBase(l.eventSeq+1, id),
		NewPrice:  newPrice,
	}
	if err := l.commit(ctx, item, ev, receipt); err != nil {
		return l.fail("reprice", id.String(), caller, err)
	}
	l.metrics.RecordReprice()

	slog.Info("Item repriced", slog.Uint64("item_id", uint64(id)),
		slog.String("old_price", old.String()), slog.String("new_price", newPrice.String()))
	return nil
}

// Cancel withdraws a listed item and returns custody to its seller.
func (l *Ledger) Cancel(ctx context.Context, caller domain.Identity, id domain.ItemID) error {
	ctx, release, err := l.enter(ctx)
	if err != nil {
		return l.fail("cancel", id.String(), caller, err)
	}
	defer release()

	item, err := l.lookup(id)
	if err != nil {
		return l.fail("cancel", id.String(), caller, err)
	}
	if err := item.CheckTransition(); err != nil {
		return l.fail("cancel", id.String(), caller, err)
	}
	if caller != item.Seller {
		return l.fail("cancel", id.String(), caller, domain.ErrNotSeller)
	}

	start := time.Now()
	receipt, err := l.settle.SettleCancel(ctx, item)
	l.metrics.RecordSettlement(time.Since(start))
	if err != nil {
		return l.fail("cancel", id.String(), caller, err)
	}

	// Custody is back with the seller, so the record is no longer ownerless.
	item.Owner = item.Seller
	item.State = domain.StateCanceled
	item.UpdatedAt = time.Now().UTC()
	ev := &event.CanceledEvent{BaseEvent: event.NewBase(l.eventSeq+1, id)}
	if err := l.commit(ctx, item, ev, receipt); err != nil {
		return l.fail("cancel", id.String(), caller, err)
	}
	l.metrics.RecordCancel()

	slog.Info("Item canceled", slog.Uint64("item_id", uint64(id)), slog.String("seller", string(caller)))
	return nil
}

// Item returns a copy of the record with the given id.
func (l *Ledger) Item(id domain.ItemID) (domain.Item, error) {
	return l.lookup(id)
}

// Snapshot returns copies of every record in ascending id order.
func (l *Ledger) Snapshot() []domain.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.Item, 0, len(l.items))
	for _, it := range l.items {
		result = append(result, *it)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (l *Ledger) lookup(id domain.ItemID) (domain.Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	it, ok := l.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return *it, nil
}

func (l *Ledger) activeListing(ref domain.AssetRef) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.custody[ref]
	return ok
}

// commit persists and installs the new record. A persistence failure reverts
// the settlement so no effect of the operation remains.
func (l *Ledger) commit(ctx context.Context, item domain.Item, ev event.Event, receipt *settlement.Receipt) error {
	if l.repo != nil {
		if err := l.repo.Commit(ctx, item, ev); err != nil {
			l.metrics.RecordRollback()
			if rerr := receipt.Revert(ctx); rerr != nil {
				return errors.Join(fmt.Errorf("persist: %w", err), rerr)
			}
			return fmt.Errorf("persist: %w", err)
		}
	}

	l.mu.Lock()
	stored := item
	l.items[item.ID] = &stored
	if item.IsListed() {
		l.custody[item.Asset()] = item.ID
	} else {
		delete(l.custody, item.Asset())
	}
	l.eventSeq = ev.GetSeq()
	active := len(l.custody)
	l.mu.Unlock()
	l.metrics.SetActiveListings(int64(active))

	if l.pub != nil {
		l.pub.Publish(ev)
	}
	return nil
}

func (l *Ledger) fail(op, target string, caller domain.Identity, err error) error {
	l.metrics.RecordFailure()
	if domain.KindOf(err) == domain.KindTransfer {
		slog.Warn("Settlement failed", slog.String("op", op), slog.String("target", target),
			slog.String("caller", string(caller)), slog.Any("error", err))
	}
	return fmt.Errorf("%s %s: %w", op, target, err)
}
