package main

import (
	"context"

	"github.com/sells-group/diagnostic-versions/internal/audit"
	"github.com/sells-group/diagnostic-versions/internal/lifecycle"
	"github.com/sells-group/diagnostic-versions/internal/reconcile"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// openStore is swapped in tests for a store over pgxmock.
var openStore = initStore

func initStore(ctx context.Context) (*store.PostgresStore, error) {
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// services bundles what the commands drive.
type services struct {
	store    *store.PostgresStore
	versions *lifecycle.Service
	importer *reconcile.Reconciler
}

func newServices(st *store.PostgresStore) *services {
	ledger := audit.NewLedger(st.Pool(), nil)
	return &services{
		store:    st,
		versions: lifecycle.NewService(st.Pool(), ledger),
		importer: reconcile.NewReconciler(st.Pool(), ledger),
	}
}

// openServices validates config for mode and connects.
func openServices(ctx context.Context, mode string) (*services, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	return newServices(st), nil
}

func (s *services) Close() {
	_ = s.store.Close()
}
