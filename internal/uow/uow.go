package uow

import (
	"context"

	postgresrepo "github.com/kirinyoku/raffle-go/internal/repository/postgres"
)

// AfterCommit runs once the surrounding transaction has committed. Cache
// invalidation and change notifications hang off it so that nothing outside
// the database observes a write that was later rolled back.
type AfterCommit func(ctx context.Context)

// Work is the body of a unit of work. Register hooks through after; they are
// discarded if Work or the commit fails.
type Work func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error

// UoW runs raffle, cart and order mutations in one serializable transaction.
type UoW struct {
	store *postgresrepo.Store
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a serializable read-write transaction. Hooks fire in
// registration order on a context that survives cancellation of ctx, so a
// client hanging up right after commit still gets its caches invalidated.
func (u *UoW) Do(ctx context.Context, fn Work) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, nil, func(ctx context.Context, tx postgresrepo.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			if h != nil {
				hooks = append(hooks, h)
			}
		})
	})
	if err != nil {
		return err
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		h(hookCtx)
	}

	return nil
}
