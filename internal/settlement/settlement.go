package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"asset_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// Engine performs the coupled fund and custody movements of ledger operations.
// Legs run in order; when one fails the completed legs are reversed so the
// caller observes either every effect or none.
type Engine struct {
	registry  domain.AssetRegistry
	funds     domain.Funds
	custodian domain.Identity // holds listed assets and escrowed funds
	operator  domain.Identity // receives listing fees
}

// NewEngine creates a settlement engine.
func NewEngine(registry domain.AssetRegistry, funds domain.Funds, custodian, operator domain.Identity) *Engine {
	return &Engine{
		registry:  registry,
		funds:     funds,
		custodian: custodian,
		operator:  operator,
	}
}

// Custodian returns the identity holding assets and funds in escrow.
func (e *Engine) Custodian() domain.Identity {
	return e.custodian
}

// Operator returns the fee account.
func (e *Engine) Operator() domain.Identity {
	return e.operator
}

// OwnerOf asks the registry for the current title holder.
func (e *Engine) OwnerOf(ctx context.Context, ref domain.AssetRef) (domain.Identity, error) {
	owner, err := e.registry.OwnerOf(ctx, ref)
	if err != nil {
		return domain.NoOwner, domain.NewTransferError("owner of "+ref.String(), err)
	}
	return owner, nil
}

// SettleListing escrows the listing fee and takes custody of the asset.
func (e *Engine) SettleListing(ctx context.Context, seller domain.Identity, ref domain.AssetRef, fee decimal.Decimal) (*Receipt, error) {
	b := e.batch()
	b.pay("collect listing fee", seller, e.custodian, fee)
	b.move("custody to ledger", seller, e.custodian, ref)
	return b.run(ctx)
}

// SettleSale collects the price from the buyer, pays the seller, releases the
// escrowed listing fee to the operator and hands the asset to the buyer.
func (e *Engine) SettleSale(ctx context.Context, item domain.Item, buyer domain.Identity, amount decimal.Decimal) (*Receipt, error) {
	if !amount.Equal(item.Price) {
		return nil, domain.ErrWrongPayment
	}
	b := e.batch()
	b.pay("collect payment", buyer, e.custodian, amount)
	b.pay("pay seller", e.custodian, item.Seller, amount)
	b.pay("pay operator fee", e.custodian, e.operator, item.ListingFee)
	b.move("custody to buyer", e.custodian, buyer, item.Asset())
	return b.run(ctx)
}

// SettleReprice escrows the fee charged for a price change.
func (e *Engine) SettleReprice(ctx context.Context, seller domain.Identity, fee decimal.Decimal) (*Receipt, error) {
	b := e.batch()
	b.pay("collect reprice fee", seller, e.custodian, fee)
	return b.run(ctx)
}

// SettleCancel returns custody of the asset to the seller.
func (e *Engine) SettleCancel(ctx context.Context, item domain.Item) (*Receipt, error) {
	b := e.batch()
	b.move("custody to seller", e.custodian, item.Seller, item.Asset())
	return b.run(ctx)
}

// leg is one reversible movement.
type leg struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

type batch struct {
	e    *Engine
	legs []leg
}

func (e *Engine) batch() *batch {
	return &batch{e: e}
}

func (b *batch) pay(name string, from, to domain.Identity, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	funds := b.e.funds
	b.legs = append(b.legs, leg{
		name: name,
		do:   func(ctx context.Context) error { return funds.Transfer(ctx, from, to, amount) },
		undo: func(ctx context.Context) error { return funds.Transfer(ctx, to, from, amount) },
	})
}

func (b *batch) move(name string, from, to domain.Identity, ref domain.AssetRef) {
	registry := b.e.registry
	b.legs = append(b.legs, leg{
		name: name,
		do:   func(ctx context.Context) error { return registry.Transfer(ctx, from, to, ref) },
		undo: func(ctx context.Context) error { return registry.Transfer(ctx, to, from, ref) },
	})
}

func (b *batch) run(ctx context.Context) (*Receipt, error) {
	r := &Receipt{}
	for _, l := range b.legs {
		if err := l.do(ctx); err != nil {
			failed := domain.NewTransferError(l.name, err)
			if rerr := r.Revert(ctx); rerr != nil {
				return nil, errors.Join(failed, rerr)
			}
			return nil, failed
		}
		r.done = append(r.done, l)
	}
	return r, nil
}

// Receipt records the legs of a completed settlement so the caller can undo
// them when its own commit fails.
type Receipt struct {
	done []leg
}

// Legs returns the names of the completed legs in execution order.
func (r *Receipt) Legs() []string {
	names := make([]string, len(r.done))
	for i, l := range r.done {
		names[i] = l.name
	}
	return names
}

// Revert reverses every completed leg, newest first. Reversal keeps going past
// failures and reports all of them. It ignores cancellation of ctx.
func (r *Receipt) Revert(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(r.done) - 1; i >= 0; i-- {
		l := r.done[i]
		if err := l.undo(ctx); err != nil {
			slog.Error("SETTLEMENT_ROLLBACK_FAILED", slog.String("leg", l.name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("revert %s: %w", l.name, err))
		}
	}
	r.done = nil
	return errors.Join(errs...)
}
