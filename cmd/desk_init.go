package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/dealflow"
	"github.com/harborline/dealdesk-cli/internal/store"
)

// deskEnv holds the open store and the service layer shared by every command
// that touches the book.
type deskEnv struct {
	Store   store.Store
	Service *dealflow.Service
}

// Close releases the store. Safe on a partially built env.
func (e *deskEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "json":
		return store.NewJSON(cfg.Store.Dir, cfg.Store.Backups)
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dealdesk.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initDesk validates config for the given mode, opens and migrates the store,
// resolves the preference key set, and builds the service. Callers should
// defer env.Close().
func initDesk(ctx context.Context, mode string) (*deskEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	keys, err := dealflow.ResolveKeys(cfg.Match)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &deskEnv{
		Store:   st,
		Service: dealflow.New(st, keys, "cli"),
	}, nil
}
