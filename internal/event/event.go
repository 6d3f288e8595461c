package event

import (
	"time"

	"asset_ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type names a ledger notification.
type Type string

const (
	TypeListed       Type = "LISTED"
	TypeSold         Type = "SOLD"
	TypePriceChanged Type = "PRICE_CHANGED"
	TypeCanceled     Type = "CANCELED"
)

// Event is one notification emitted after a committed ledger operation.
type Event interface {
	GetID() uuid.UUID
	GetSeq() uint64
	GetType() Type
	GetItemID() domain.ItemID
}

// BaseEvent carries the fields shared by all notifications.
type BaseEvent struct {
	ID     uuid.UUID     `json:"id"`
	Seq    uint64        `json:"seq"`
	Ts     time.Time     `json:"ts"`
	ItemID domain.ItemID `json:"item_id"`
}

// NewBase stamps a fresh event id and the current time.
func NewBase(seq uint64, itemID domain.ItemID) BaseEvent {
	return BaseEvent{ID: uuid.New(), Seq: seq, Ts: time.Now().UTC(), ItemID: itemID}
}

func (e BaseEvent) GetID() uuid.UUID         { return e.ID }
func (e BaseEvent) GetSeq() uint64           { return e.Seq }
func (e BaseEvent) GetItemID() domain.ItemID { return e.ItemID }

// ListedEvent carries every field of the new record.
type ListedEvent struct {
	BaseEvent
	Collection string          `json:"collection"`
	Token      string          `json:"token"`
	Seller     domain.Identity `json:"seller"`
	Price      decimal.Decimal `json:"price"`
}

func (e *ListedEvent) GetType() Type { return TypeListed }

type SoldEvent struct {
	BaseEvent
	Buyer  domain.Identity `json:"buyer"`
	Amount decimal.Decimal `json:"amount"`
}

func (e *SoldEvent) GetType() Type { return TypeSold }

type PriceChangedEvent struct {
	BaseEvent
	NewPrice decimal.Decimal `json:"new_price"`
}

func (e *PriceChangedEvent) GetType() Type { return TypePriceChanged }

type CanceledEvent struct {
	BaseEvent
}

func (e *CanceledEvent) GetType() Type { return TypeCanceled }

// Envelope is the wire and journal form of an event.
type Envelope struct {
	Type Type  `json:"type"`
	Data Event `json:"data"`
}

// Wrap builds the envelope for ev.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.GetType(), Data: ev}
}
