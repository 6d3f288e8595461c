package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"asset_ledger/internal/domain"
)

// Memory is an in-process asset title registry used in sandbox deployments and tests.
type Memory struct {
	mu     sync.RWMutex
	owners map[domain.AssetRef]domain.Identity
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{
		owners: make(map[domain.AssetRef]domain.Identity),
	}
}

// Mint records owner as the title holder of ref, replacing any previous holder.
func (m *Memory) Mint(ref domain.AssetRef, owner domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners[ref] = owner
}

// OwnerOf returns the title holder of ref.
func (m *Memory) OwnerOf(ctx context.Context, ref domain.AssetRef) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.NoOwner, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.owners[ref]
	if !ok {
		return domain.NoOwner, fmt.Errorf("%w: %s", domain.ErrUnknownAsset, ref)
	}
	return owner, nil
}

// Transfer moves the title of ref from one holder to another.
func (m *Memory) Transfer(ctx context.Context, from, to domain.Identity, ref domain.AssetRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[ref]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAsset, ref)
	}
	if owner != from {
		return fmt.Errorf("%s is held by %s, not %s", ref, owner, from)
	}
	m.owners[ref] = to
	return nil
}

// HeldBy lists the assets held by owner, sorted for stable output.
func (m *Memory) HeldBy(owner domain.Identity) []domain.AssetRef {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []domain.AssetRef
	for ref, o := range m.owners {
		if o == owner {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Collection != refs[j].Collection {
			return refs[i].Collection < refs[j].Collection
		}
		return refs[i].Token < refs[j].Token
	})
	return refs
}
