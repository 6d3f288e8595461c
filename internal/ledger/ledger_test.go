package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"asset_ledger/internal/domain"
	"asset_ledger/internal/event"
	"asset_ledger/internal/infra/registry"
	"asset_ledger/internal/infra/vault"
	"asset_ledger/internal/settlement"

	"github.com/shopspring/decimal"
)

var (
	assetA = domain.AssetRef{Collection: "punks", Token: "1"}
	assetB = domain.AssetRef{Collection: "punks", Token: "2"}
	fee    = decimal.NewFromInt(1)
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.GetType()
	}
	return out
}

// memRepo is an in-memory Repository that can be told to fail.
type memRepo struct {
	mu    sync.Mutex
	items map[domain.ItemID]domain.Item
	seq   uint64
	fail  bool
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[domain.ItemID]domain.Item)}
}

func (r *memRepo) Commit(ctx context.Context, item domain.Item, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.items[item.ID] = item
	r.seq = ev.GetSeq()
	return nil
}

func (r *memRepo) LoadItems(ctx context.Context) ([]domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *memRepo) LastEventSeq(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq, nil
}

type fixture struct {
	ledger *Ledger
	reg    *registry.Memory
	funds  *vault.Vault
	events *recorder
	repo   *memRepo
}

func newFixture(t testing.TB) *fixture {
	t.Helper()

	reg := registry.NewMemory()
	reg.Mint(assetA, "alice")
	reg.Mint(assetB, "alice")
	funds := vault.New()
	funds.Deposit("alice", d(10))
	funds.Deposit("bob", d(1000))
	funds.Deposit("carol", d(1000))

	f := &fixture{reg: reg, funds: funds, events: &recorder{}, repo: newMemRepo()}
	l, err := New(Config{
		ListingFee: fee,
		Settlement: settlement.NewEngine(reg, funds, "ledger", "operator"),
		Repository: f.repo,
		Publisher:  f.events,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f.ledger = l
	return f
}

func (f *fixture) list(t *testing.T, ref domain.AssetRef, price int64) domain.ItemID {
	t.Helper()
	id, err := f.ledger.List(context.Background(), "alice", ref, d(price), fee)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return id
}

func TestNew_RequiresSettlement(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error without settlement engine")
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.list(t, assetA, 100)
	if id != 1 {
		t.Errorf("Expected first id 1, got %d", id)
	}

	it, err := f.ledger.Item(id)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if it.State != domain.StateListed || !it.Owner.IsNone() || it.Seller != "alice" {
		t.Errorf("Unexpected record: %+v", it)
	}
	if owner, _ := f.reg.OwnerOf(ctx, assetA); owner != "ledger" {
		t.Errorf("Expected ledger custody, got %s", owner)
	}
	if !f.funds.Balance("ledger").Equal(fee) {
		t.Errorf("Expected fee in escrow, got %s", f.funds.Balance("ledger"))
	}

	id2 := f.list(t, assetB, 50)
	if id2 <= id {
		t.Errorf("Ids must increase: %d then %d", id, id2)
	}

	evs := f.events.events
	listed, ok := evs[0].(*event.ListedEvent)
	if !ok {
		t.Fatalf("Expected ListedEvent, got %T", evs[0])
	}
	if listed.ItemID != id || listed.Seller != "alice" || !listed.Price.Equal(d(100)) || listed.Token != "1" {
		t.Errorf("Unexpected event: %+v", listed)
	}
}

func TestList_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		caller domain.Identity
		ref    domain.AssetRef
		price  decimal.Decimal
		fee    decimal.Decimal
		want   error
	}{
		{"zero price", "alice", assetA, d(0), fee, domain.ErrInvalidPrice},
		{"negative price", "alice", assetA, d(-5), fee, domain.ErrInvalidPrice},
		{"fee too low", "alice", assetA, d(10), d(0), domain.ErrFeeMismatch},
		{"fee too high", "alice", assetA, d(10), d(2), domain.ErrFeeMismatch},
		{"not owner", "bob", assetA, d(10), fee, domain.ErrNotAssetOwner},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.ledger.List(ctx, c.caller, c.ref, c.price, c.fee)
			if !errors.Is(err, c.want) {
				t.Errorf("Expected %v, got %v", c.want, err)
			}
		})
	}

	t.Run("unknown asset", func(t *testing.T) {
		_, err := f.ledger.List(ctx, "alice", domain.AssetRef{Collection: "x", Token: "y"}, d(10), fee)
		if domain.KindOf(err) != domain.KindTransfer {
			t.Errorf("Expected transfer error, got %v", err)
		}
	})

	if len(f.ledger.Snapshot()) != 0 {
		t.Error("Rejected listings must not create records")
	}
	if !f.funds.Balance("alice").Equal(d(10)) {
		t.Errorf("Rejected listings must not charge: %s", f.funds.Balance("alice"))
	}
}

func TestList_AlreadyListed(t *testing.T) {
	f := newFixture(t)
	f.list(t, assetA, 100)

	// The ledger now holds title, so even the ledger's own custody cannot relist.
	_, err := f.ledger.List(context.Background(), "ledger", assetA, d(100), fee)
	if !errors.Is(err, domain.ErrAlreadyListed) {
		t.Errorf("Expected ErrAlreadyListed, got %v", err)
	}
}

func TestBuyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.list(t, assetA, 100)

	snap := f.ledger.Snapshot()
	if len(snap) != 1 || snap[0].ID != a {
		t.Fatalf("Expected [A], got %v", snap)
	}

	err := f.ledger.Buy(ctx, "bob", a, d(50))
	if !errors.Is(err, domain.ErrWrongPayment) {
		t.Fatalf("Expected ErrWrongPayment, got %v", err)
	}
	if it, _ := f.ledger.Item(a); it.State != domain.StateListed {
		t.Fatalf("State changed on wrong payment: %s", it.State)
	}
	if !f.funds.Balance("bob").Equal(d(1000)) {
		t.Fatalf("Buyer charged on wrong payment: %s", f.funds.Balance("bob"))
	}

	if err := f.ledger.Buy(ctx, "bob", a, d(100)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	it, _ := f.ledger.Item(a)
	if it.State != domain.StateSold || it.Owner != "bob" {
		t.Errorf("Unexpected record after sale: %+v", it)
	}
	if !f.funds.Balance("alice").Equal(d(109)) {
		t.Errorf("Expected seller 9+100, got %s", f.funds.Balance("alice"))
	}
	if !f.funds.Balance("operator").Equal(d(1)) {
		t.Errorf("Expected operator 1, got %s", f.funds.Balance("operator"))
	}
	if owner, _ := f.reg.OwnerOf(ctx, assetA); owner != "bob" {
		t.Errorf("Expected bob to hold title, got %s", owner)
	}

	sold, ok := f.events.events[1].(*event.SoldEvent)
	if !ok || sold.Buyer != "bob" || !sold.Amount.Equal(d(100)) {
		t.Errorf("Unexpected sold event: %+v", f.events.events[1])
	}
}

func TestBuy_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 100)

	if err := f.ledger.Buy(ctx, "bob", 99, d(100)); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
	if err := f.ledger.Buy(ctx, "alice", id, d(100)); !errors.Is(err, domain.ErrSelfPurchase) {
		t.Errorf("Expected ErrSelfPurchase, got %v", err)
	}

	if err := f.ledger.Buy(ctx, "bob", id, d(100)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if err := f.ledger.Buy(ctx, "carol", id, d(100)); !errors.Is(err, domain.ErrAlreadySold) {
		t.Errorf("Expected ErrAlreadySold, got %v", err)
	}
	if !f.funds.Balance("carol").Equal(d(1000)) {
		t.Errorf("Second buyer charged: %s", f.funds.Balance("carol"))
	}
}

func TestBuy_InsufficientFundsLeavesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 5000)

	err := f.ledger.Buy(ctx, "bob", id, d(5000))
	if !errors.Is(err, domain.ErrTransferFailed) || !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected insufficient funds transfer error, got %v", err)
	}
	it, _ := f.ledger.Item(id)
	if it.State != domain.StateListed || !it.Owner.IsNone() {
		t.Errorf("State changed on failed settlement: %+v", it)
	}
}

func TestBuy_SellerRefusesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 100)
	f.funds.Freeze("alice")

	err := f.ledger.Buy(ctx, "bob", id, d(100))
	if !errors.Is(err, domain.ErrAccountFrozen) {
		t.Fatalf("Expected ErrAccountFrozen, got %v", err)
	}
	if !f.funds.Balance("bob").Equal(d(1000)) {
		t.Errorf("Buyer not refunded: %s", f.funds.Balance("bob"))
	}
	if owner, _ := f.reg.OwnerOf(ctx, assetA); owner != "ledger" {
		t.Errorf("Custody moved: %s", owner)
	}
	if len(f.events.events) != 1 {
		t.Errorf("Failed sale must not notify, got %v", f.events.types())
	}
}

func TestReprice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 100)

	if err := f.ledger.Reprice(ctx, "alice", id, d(100), fee); !errors.Is(err, domain.ErrSamePrice) {
		t.Errorf("Expected ErrSamePrice, got %v", err)
	}
	if err := f.ledger.Reprice(ctx, "bob", id, d(80), fee); !errors.Is(err, domain.ErrNotSeller) {
		t.Errorf("Expected ErrNotSeller, got %v", err)
	}
	if err := f.ledger.Reprice(ctx, "alice", id, d(80), d(0)); !errors.Is(err, domain.ErrFeeMismatch) {
		t.Errorf("Expected ErrFeeMismatch, got %v", err)
	}
	if err := f.ledger.Reprice(ctx, "alice", id, d(0), fee); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}
	if err := f.ledger.Reprice(ctx, "alice", 42, d(80), fee); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	if err := f.ledger.Reprice(ctx, "alice", id, d(80), fee); err != nil {
		t.Fatalf("Reprice failed: %v", err)
	}
	it, _ := f.ledger.Item(id)
	if !it.Price.Equal(d(80)) {
		t.Errorf("Expected price 80, got %s", it.Price)
	}
	// Listing fee plus reprice fee.
	if !f.funds.Balance("ledger").Equal(d(2)) {
		t.Errorf("Expected 2 in escrow, got %s", f.funds.Balance("ledger"))
	}

	if err := f.ledger.Buy(ctx, "bob", id, d(100)); !errors.Is(err, domain.ErrWrongPayment) {
		t.Errorf("Old price must be rejected, got %v", err)
	}
	if err := f.ledger.Buy(ctx, "bob", id, d(80)); err != nil {
		t.Fatalf("Buy at new price failed: %v", err)
	}
	if err := f.ledger.Reprice(ctx, "alice", id, d(70), fee); !errors.Is(err, domain.ErrAlreadySold) {
		t.Errorf("Expected ErrAlreadySold, got %v", err)
	}

	types := f.events.types()
	want := []event.Type{event.TypeListed, event.TypePriceChanged, event.TypeSold}
	if len(types) != len(want) {
		t.Fatalf("Expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestCancelScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.list(t, assetB, 40)

	if err := f.ledger.Cancel(ctx, "bob", b); !errors.Is(err, domain.ErrNotSeller) {
		t.Errorf("Expected ErrNotSeller, got %v", err)
	}
	if err := f.ledger.Cancel(ctx, "alice", b); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	it, _ := f.ledger.Item(b)
	if it.State != domain.StateCanceled || it.Owner != "alice" {
		t.Errorf("Unexpected record after cancel: %+v", it)
	}
	if owner, _ := f.reg.OwnerOf(ctx, assetB); owner != "alice" {
		t.Errorf("Expected custody returned to alice, got %s", owner)
	}

	if err := f.ledger.Buy(ctx, "bob", b, d(40)); !errors.Is(err, domain.ErrAlreadyCanceled) {
		t.Errorf("Expected ErrAlreadyCanceled, got %v", err)
	}
	if err := f.ledger.Cancel(ctx, "alice", b); !errors.Is(err, domain.ErrAlreadyCanceled) {
		t.Errorf("Expected ErrAlreadyCanceled, got %v", err)
	}
	if err := f.ledger.Reprice(ctx, "alice", b, d(41), fee); !errors.Is(err, domain.ErrAlreadyCanceled) {
		t.Errorf("Expected ErrAlreadyCanceled, got %v", err)
	}

	// The asset can be listed again as a new item.
	again, err := f.ledger.List(ctx, "alice", assetB, d(45), fee)
	if err != nil {
		t.Fatalf("Relist failed: %v", err)
	}
	if again == b {
		t.Error("Relisting must allocate a fresh id")
	}
}

func TestCancel_RegistryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 100)

	// Take the title away behind the ledger's back.
	f.reg.Mint(assetA, "mallory")

	err := f.ledger.Cancel(ctx, "alice", id)
	if domain.KindOf(err) != domain.KindTransfer {
		t.Fatalf("Expected transfer error, got %v", err)
	}
	if it, _ := f.ledger.Item(id); it.State != domain.StateListed {
		t.Errorf("State changed on failed cancel: %s", it.State)
	}
}

func TestCommitFailureRevertsSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.list(t, assetA, 100)

	f.repo.fail = true
	if err := f.ledger.Buy(ctx, "bob", id, d(100)); err == nil {
		t.Fatal("Expected persistence error")
	}

	if it, _ := f.ledger.Item(id); it.State != domain.StateListed {
		t.Errorf("State changed on failed commit: %s", it.State)
	}
	if !f.funds.Balance("bob").Equal(d(1000)) {
		t.Errorf("Buyer not refunded: %s", f.funds.Balance("bob"))
	}
	if !f.funds.Balance("alice").Equal(d(9)) {
		t.Errorf("Seller payment not reverted: %s", f.funds.Balance("alice"))
	}
	if owner, _ := f.reg.OwnerOf(ctx, assetA); owner != "ledger" {
		t.Errorf("Custody not reverted: %s", owner)
	}

	f.repo.fail = true
	if _, err := f.ledger.List(ctx, "alice", assetB, d(10), fee); err == nil {
		t.Fatal("Expected persistence error")
	}
	f.repo.fail = false
	id2 := f.list(t, assetB, 10)
	if id2 != id+1 {
		t.Errorf("Failed commit must not consume an id: got %d", id2)
	}
}

func TestConcurrentBuy(t *testing.T) {
	f := newFixture(t)
	id := f.list(t, assetA, 100)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buyer := "bob"
			if i%2 == 1 {
				buyer = "carol"
			}
			errs[i] = f.ledger.Buy(context.Background(), domain.Identity(buyer), id, d(100))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAlreadySold):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("Expected exactly one successful buy, got %d", wins)
	}

	spent := d(2000).Sub(f.funds.Balance("bob")).Sub(f.funds.Balance("carol"))
	if !spent.Equal(d(100)) {
		t.Errorf("Funds collected %s times the price", spent)
	}
	if !f.funds.Balance("operator").Equal(fee) {
		t.Errorf("Fee collected more than once: %s", f.funds.Balance("operator"))
	}
}

// reentrantRegistry calls back into the ledger during custody transfer.
type reentrantRegistry struct {
	*registry.Memory
	ledger *Ledger
	err    error
}

func (r *reentrantRegistry) Transfer(ctx context.Context, from, to domain.Identity, ref domain.AssetRef) error {
	if r.ledger != nil && to != "ledger" {
		r.err = r.ledger.Buy(ctx, "carol", 1, d(100))
	}
	return r.Memory.Transfer(ctx, from, to, ref)
}

func TestReentrantCallRejected(t *testing.T) {
	reg := &reentrantRegistry{Memory: registry.NewMemory()}
	reg.Mint(assetA, "alice")
	funds := vault.New()
	funds.Deposit("alice", d(10))
	funds.Deposit("bob", d(1000))
	funds.Deposit("carol", d(1000))

	l, err := New(Config{ListingFee: fee, Settlement: settlement.NewEngine(reg, funds, "ledger", "operator")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	id, err := l.List(ctx, "alice", assetA, d(100), fee)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	reg.ledger = l
	if err := l.Buy(ctx, "bob", id, d(100)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if !errors.Is(reg.err, domain.ErrReentrant) {
		t.Errorf("Expected ErrReentrant from nested call, got %v", reg.err)
	}
	if it, _ := l.Item(id); it.Owner != "bob" {
		t.Errorf("Expected bob as owner, got %s", it.Owner)
	}
	if !funds.Balance("carol").Equal(d(1000)) {
		t.Errorf("Nested buyer charged: %s", funds.Balance("carol"))
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.list(t, assetA, 100)
	b := f.list(t, assetB, 50)
	if err := f.ledger.Buy(ctx, "bob", a, d(100)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	restored, err := New(Config{
		ListingFee: fee,
		Settlement: settlement.NewEngine(f.reg, f.funds, "ledger", "operator"),
		Repository: f.repo,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	snap := restored.Snapshot()
	if len(snap) != 2 || snap[0].ID != a || snap[1].ID != b {
		t.Fatalf("Unexpected restored records: %+v", snap)
	}
	if snap[0].State != domain.StateSold {
		t.Errorf("Expected sold record, got %s", snap[0].State)
	}

	// The active listing index is rebuilt.
	if _, err := restored.List(ctx, "ledger", assetB, d(10), fee); !errors.Is(err, domain.ErrAlreadyListed) {
		t.Errorf("Expected ErrAlreadyListed, got %v", err)
	}

	if err := restored.Cancel(ctx, "alice", b); err != nil {
		t.Fatalf("Cancel after restore failed: %v", err)
	}
	id, err := restored.List(ctx, "alice", assetB, d(60), fee)
	if err != nil {
		t.Fatalf("List after restore failed: %v", err)
	}
	if id != b+1 {
		t.Errorf("Expected id %d after restore, got %d", b+1, id)
	}
	if f.repo.seq != 5 {
		t.Errorf("Expected event sequence to continue at 5, got %d", f.repo.seq)
	}
}

// cancelingFunds cancels the caller's context when the transfer count reaches cancelAt.
type cancelingFunds struct {
	*vault.Vault
	calls    int
	cancelAt int
	cancel   context.CancelFunc
}

func (c *cancelingFunds) Transfer(ctx context.Context, from, to domain.Identity, amount decimal.Decimal) error {
	c.calls++
	if c.calls == c.cancelAt && c.cancel != nil {
		c.cancel()
	}
	return c.Vault.Transfer(ctx, from, to, amount)
}

func TestBuy_CallerCanceledMidSettlement(t *testing.T) {
	reg := registry.NewMemory()
	reg.Mint(assetA, "alice")
	v := vault.New()
	v.Deposit("alice", d(10))
	v.Deposit("bob", d(1000))
	funds := &cancelingFunds{Vault: v}

	repo := newMemRepo()
	l, err := New(Config{
		ListingFee: fee,
		Settlement: settlement.NewEngine(reg, funds, "ledger", "operator"),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, err := l.List(context.Background(), "alice", assetA, d(100), fee)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	funds.cancel = cancel
	funds.cancelAt = funds.calls + 2 // cancel on "pay seller"

	// Once settlement has started the operation runs to completion.
	if err := l.Buy(ctx, "bob", id, d(100)); err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("Expected the caller context to be canceled during Buy")
	}

	it, _ := l.Item(id)
	if it.State != domain.StateSold || it.Owner != "bob" {
		t.Errorf("Expected SOLD to bob, got %s/%s", it.State, it.Owner)
	}
	if repo.items[id].State != domain.StateSold {
		t.Errorf("Sale not persisted: %s", repo.items[id].State)
	}
	if !v.Balance("bob").Equal(d(900)) || !v.Balance("alice").Equal(d(109)) {
		t.Errorf("Unexpected balances bob=%s alice=%s", v.Balance("bob"), v.Balance("alice"))
	}
	if !v.Balance("ledger").IsZero() || !v.Balance("operator").Equal(d(1)) {
		t.Errorf("Unexpected escrow=%s operator=%s", v.Balance("ledger"), v.Balance("operator"))
	}
	if owner, _ := reg.OwnerOf(context.Background(), assetA); owner != "bob" {
		t.Errorf("Expected bob to hold title, got %s", owner)
	}
}

func TestList_CanceledContextHasNoEffect(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ledger.List(ctx, "alice", assetA, d(100), fee)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(f.ledger.Snapshot()) != 0 || len(f.events.types()) != 0 {
		t.Error("Canceled List left a record or event")
	}
	if !f.funds.Balance("alice").Equal(d(10)) {
		t.Errorf("Fee collected: alice has %s", f.funds.Balance("alice"))
	}

	if id := f.list(t, assetA, 100); id != 1 {
		t.Errorf("Expected id 1 to remain unused, got %d", id)
	}
}
