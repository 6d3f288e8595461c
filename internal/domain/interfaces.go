package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AssetRegistry is the external system of record for asset titles.
// Both calls may suspend and may fail.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, ref AssetRef) (Identity, error)
	Transfer(ctx context.Context, from, to Identity, ref AssetRef) error
}

// Funds moves attached payments between parties.
// Transfer fails without effect when the payer cannot cover the amount or the
// payee refuses it.
type Funds interface {
	Transfer(ctx context.Context, from, to Identity, amount decimal.Decimal) error
}
