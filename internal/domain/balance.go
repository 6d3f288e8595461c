package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance represents one party's funds with invariant checking.
type Balance struct {
	Owner   Identity        `json:"owner"`
	Amount  decimal.Decimal `json:"amount"`
	Frozen  bool            `json:"frozen"` // refuses incoming credits
	LastSeq uint64          `json:"last_seq"`
}

// Credit adds funds to the balance.
func (b *Balance) Credit(amount decimal.Decimal, seq uint64) error {
	if b.Frozen {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, b.Owner)
	}
	b.Amount = b.Amount.Add(amount)
	b.LastSeq = seq
	return nil
}

// Debit removes funds from the balance.
func (b *Balance) Debit(amount decimal.Decimal, seq uint64) error {
	if amount.GreaterThan(b.Amount) {
		return fmt.Errorf("%w: %s need %s, available %s",
			ErrInsufficientFunds, b.Owner, amount, b.Amount)
	}
	b.Amount = b.Amount.Sub(amount)
	b.LastSeq = seq
	return nil
}

// VerifyInvariant checks that the balance never went negative.
func (b *Balance) VerifyInvariant() {
	if b.Amount.IsNegative() {
		panic(fmt.Sprintf("BALANCE_INVARIANT_NEGATIVE_AMOUNT: %s = %s", b.Owner, b.Amount))
	}
}

// BalanceBook manages multiple balances with invariant checking.
type BalanceBook struct {
	balances map[Identity]*Balance
}

// NewBalanceBook creates a new balance book.
func NewBalanceBook() *BalanceBook {
	return &BalanceBook{
		balances: make(map[Identity]*Balance),
	}
}

// Get returns the balance for an identity, creating if not exists.
func (bb *BalanceBook) Get(owner Identity) *Balance {
	b, ok := bb.balances[owner]
	if !ok {
		b = &Balance{Owner: owner, Amount: decimal.Zero}
		bb.balances[owner] = b
	}
	return b
}

// Move debits from and credits to as one step. Nothing changes on failure.
func (bb *BalanceBook) Move(from, to Identity, amount decimal.Decimal, seq uint64) error {
	src := bb.Get(from)
	dst := bb.Get(to)
	if dst.Frozen {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, to)
	}
	if err := src.Debit(amount, seq); err != nil {
		return err
	}
	dst.Amount = dst.Amount.Add(amount)
	dst.LastSeq = seq
	return nil
}

// VerifyAll checks invariants on all balances.
func (bb *BalanceBook) VerifyAll() {
	for _, b := range bb.balances {
		b.VerifyInvariant()
	}
}

// Total sums all balances. Transfers never change it.
func (bb *BalanceBook) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range bb.balances {
		total = total.Add(b.Amount)
	}
	return total
}

// Snapshot returns a copy of all balances (for state dump).
func (bb *BalanceBook) Snapshot() map[Identity]Balance {
	result := make(map[Identity]Balance, len(bb.balances))
	for k, v := range bb.balances {
		result[k] = *v
	}
	return result
}
