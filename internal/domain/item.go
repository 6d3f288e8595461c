package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ItemID identifies a listed item. IDs are assigned in strictly increasing order
// and never reused.
type ItemID uint64

func (id ItemID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseItemID parses the decimal form produced by ItemID.String.
func ParseItemID(s string) (ItemID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ItemID(v), nil
}

// Identity is an opaque party identifier (seller, buyer, operator, custodian).
type Identity string

// NoOwner is the sentinel owner of an item that has not been sold or returned.
const NoOwner Identity = ""

// IsNone reports whether the identity is the NoOwner sentinel.
func (i Identity) IsNone() bool {
	return i == NoOwner
}

// AssetRef points at one unique asset held by the external registry.
type AssetRef struct {
	Collection string `json:"collection"`
	Token      string `json:"token"`
}

func (r AssetRef) String() string {
	return r.Collection + "/" + r.Token
}

// ItemState is the lifecycle state of an item record.
type ItemState string

const (
	StateListed   ItemState = "LISTED"
	StateSold     ItemState = "SOLD"
	StateCanceled ItemState = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed.
func (s ItemState) IsTerminal() bool {
	return s == StateSold || s == StateCanceled
}

// Item is the ledger's record of one listed asset instance.
// Records are never deleted; terminal records remain as the audit trail.
type Item struct {
	ID         ItemID          `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	Collection string          `gorm:"index:idx_item_asset" json:"collection"`
	Token      string          `gorm:"index:idx_item_asset" json:"token"`
	Seller     Identity        `gorm:"index" json:"seller"`
	Owner      Identity        `gorm:"index" json:"owner"` // NoOwner while listed
	Price      decimal.Decimal `gorm:"type:text" json:"price"`
	ListingFee decimal.Decimal `gorm:"type:text" json:"listing_fee"` // fee escrowed at list time
	State      ItemState       `gorm:"index" json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Asset returns the registry reference of the item.
func (it *Item) Asset() AssetRef {
	return AssetRef{Collection: it.Collection, Token: it.Token}
}

// IsListed checks if the item is still open for sale.
func (it *Item) IsListed() bool {
	return it.State == StateListed
}

// CheckTransition returns the state error for operating on a terminal item, or nil.
func (it *Item) CheckTransition() error {
	switch it.State {
	case StateSold:
		return ErrAlreadySold
	case StateCanceled:
		return ErrAlreadyCanceled
	default:
		return nil
	}
}
