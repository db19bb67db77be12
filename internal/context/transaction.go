package context

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type contextKey string

const (
	TRANSACTION_KEY contextKey = "transaction"
)

type transaction struct {
	tx *gorm.DB

	mu    sync.Mutex
	hooks []func()
}

// GetTransaction retrieves an open transaction from the context
func GetTransaction(ctx context.Context) (*gorm.DB, bool) {
	state, ok := ctx.Value(TRANSACTION_KEY).(*transaction)
	if !ok || state.tx == nil {
		return nil, false
	}
	return state.tx, true
}

// WithTransaction marks ctx as running inside tx
func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TRANSACTION_KEY, &transaction{tx: tx})
}

// AfterCommit defers fn until the transaction carried by ctx commits. Hooks of
// a rolled back transaction never run. Without a transaction fn runs at once.
func AfterCommit(ctx context.Context, fn func()) {
	state, ok := ctx.Value(TRANSACTION_KEY).(*transaction)
	if !ok || state.tx == nil {
		fn()
		return
	}

	state.mu.Lock()
	state.hooks = append(state.hooks, fn)
	state.mu.Unlock()
}

// RunCommitHooks runs and clears the hooks registered on ctx's transaction,
// in registration order. Call it only after a successful commit.
func RunCommitHooks(ctx context.Context) {
	state, ok := ctx.Value(TRANSACTION_KEY).(*transaction)
	if !ok {
		return
	}

	state.mu.Lock()
	hooks := state.hooks
	state.hooks = nil
	state.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}
