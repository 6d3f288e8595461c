package vault

import (
	"context"
	"fmt"
	"sync"

	"asset_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// Vault is an in-process implementation of domain.Funds backed by a BalanceBook.
type Vault struct {
	mu   sync.Mutex
	book *domain.BalanceBook
	seq  uint64
}

// New creates an empty vault.
func New() *Vault {
	return &Vault{book: domain.NewBalanceBook()}
}

// Deposit credits amount to owner from outside the system.
func (v *Vault) Deposit(owner domain.Identity, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative deposit %s", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	return v.book.Get(owner).Credit(amount, v.seq)
}

// Transfer moves amount between two accounts. It fails without effect.
func (v *Vault) Transfer(ctx context.Context, from, to domain.Identity, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("non-positive transfer %s", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	if err := v.book.Move(from, to, amount, v.seq); err != nil {
		return err
	}
	v.book.VerifyAll()
	return nil
}

// Freeze makes owner refuse incoming transfers until Unfreeze.
func (v *Vault) Freeze(owner domain.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.book.Get(owner).Frozen = true
}

func (v *Vault) Unfreeze(owner domain.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.book.Get(owner).Frozen = false
}

// Balance returns the current amount held by owner.
func (v *Vault) Balance(owner domain.Identity) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.book.Get(owner).Amount
}

// Total returns the sum of all balances.
func (v *Vault) Total() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.book.Total()
}

// Snapshot returns a copy of every balance.
func (v *Vault) Snapshot() map[domain.Identity]domain.Balance {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.book.Snapshot()
}
