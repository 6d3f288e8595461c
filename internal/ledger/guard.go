package ledger

import (
	"context"

	"asset_ledger/internal/domain"
)

type opKey struct{}

// enter acquires the operation lock for one top-level ledger operation.
// It fails if ctx is done before the lock is held. The returned context is
// detached from ctx's cancellation, so an operation that started settling
// always runs to commit or to a full revert. It also marks the operation as in
// flight: collaborators that call back into the ledger with a context derived
// from it get ErrReentrant. A callback made with an unrelated context is not
// detected and blocks on the lock.
func (l *Ledger) enter(ctx context.Context) (context.Context, func(), error) {
	if owner, _ := ctx.Value(opKey{}).(*Ledger); owner == l {
		return ctx, func() {}, domain.ErrReentrant
	}
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, err
	}
	l.op.Lock()
	if err := ctx.Err(); err != nil {
		l.op.Unlock()
		return ctx, func() {}, err
	}
	return context.WithValue(context.WithoutCancel(ctx), opKey{}, l), l.op.Unlock, nil
}
