package service

import (
	"sort"

	"asset_ledger/internal/domain"
)

// RecordSource exposes the committed ledger state.
type RecordSource interface {
	Snapshot() []domain.Item
	Item(id domain.ItemID) (domain.Item, error)
}

// Catalog derives read-only views over the ledger. Each call scans the current
// snapshot, so results always reflect the latest committed operation.
type Catalog struct {
	source RecordSource
}

// NewCatalog creates a new Catalog over source
func NewCatalog(source RecordSource) *Catalog {
	return &Catalog{source: source}
}

// FetchUnsold returns every listed item.
func (c *Catalog) FetchUnsold() []domain.Item {
	return c.filter(func(it *domain.Item) bool {
		return it.State == domain.StateListed
	})
}

// FetchOwned returns items whose current owner is owner. The NoOwner sentinel
// never matches anything.
func (c *Catalog) FetchOwned(owner domain.Identity) []domain.Item {
	if owner.IsNone() {
		return []domain.Item{}
	}
	return c.filter(func(it *domain.Item) bool {
		return it.Owner == owner
	})
}

// FetchListedBy returns every item seller ever listed, in any state.
func (c *Catalog) FetchListedBy(seller domain.Identity) []domain.Item {
	return c.filter(func(it *domain.Item) bool {
		return it.Seller == seller
	})
}

// FetchItem returns one record.
func (c *Catalog) FetchItem(id domain.ItemID) (domain.Item, error) {
	return c.source.Item(id)
}

func (c *Catalog) filter(keep func(*domain.Item) bool) []domain.Item {
	snap := c.source.Snapshot()
	result := make([]domain.Item, 0, len(snap))
	for i := range snap {
		if keep(&snap[i]) {
			result = append(result, snap[i])
		}
	}

	// Sort by id for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}
