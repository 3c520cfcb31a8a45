package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/credential"
	"github.com/nhle/advisor-tasks/internal/engine"
	"github.com/nhle/advisor-tasks/internal/filter"
	"github.com/nhle/advisor-tasks/internal/logging"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/notify"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/remote/httpclient"
	"github.com/nhle/advisor-tasks/internal/store"
)

// App holds the services shared by all commands. It is allocated before
// the commands are registered and populated in the Before hook.
type App struct {
	Config   *model.AppConfig
	Store    remote.Store
	Engine   *engine.Engine
	Bus      *notify.Bus
	Location *filter.History

	// Tokens is opened lazily by commands that need the keyring.
	Tokens *credential.Store

	closeStore func() error
}

// NewApp wires an engine of cfg.Tenant over st. The filter location starts
// at the raw query where.
func NewApp(cfg *model.AppConfig, st remote.Store, where string, log zerolog.Logger) (*App, error) {
	bus := notify.NewBus(logging.With(log, "notify"), 0)
	loc := filter.NewHistory(where)

	eng, err := engine.New(*cfg, st, loc, bus, logging.With(log, "engine"))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &App{
		Config:   cfg,
		Store:    st,
		Engine:   eng,
		Bus:      bus,
		Location: loc,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// TokenStore returns the keyring-backed token store, opening it on first use.
func (a *App) TokenStore() (*credential.Store, error) {
	if a.Tokens != nil {
		return a.Tokens, nil
	}
	s, err := credential.Open()
	if err != nil {
		return nil, err
	}
	a.Tokens = s
	return s, nil
}

// OpenApp opens the configured backend and wires the engine over it.
func OpenApp(ctx context.Context, cfg *model.AppConfig, where string, log zerolog.Logger) (*App, error) {
	var (
		st      remote.Store
		closeFn func() error
		tokens  *credential.Store
	)

	switch cfg.Backend.Kind {
	case model.BackendHTTP:
		token := cfg.Backend.Token
		if token == "" {
			s, err := credential.Open()
			if err != nil {
				log.Warn().Err(err).Msg("keyring unavailable, continuing without api token")
			} else {
				tokens = s
				if token, err = s.ResolveToken(cfg.Tenant, ""); err != nil {
					return nil, err
				}
			}
		}
		st = httpclient.New(cfg.Backend.BaseURL, token, httpclient.WithLogger(logging.With(log, "httpclient")))

	case model.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Backend.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		sqlite, err := store.NewSQLiteStore(cfg.Backend.DBPath,
			store.WithExports(cfg.Backend.ExportDir, cfg.Backend.BaseURL),
			store.WithLogger(logging.With(log, "store")),
		)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := sqlite.EnsureTenant(ctx, cfg.Tenant, cfg.Tenant); err != nil {
			return nil, errors.Join(fmt.Errorf("ensure tenant: %w", err), sqlite.Close())
		}
		st = sqlite
		closeFn = sqlite.Close

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
	}

	app, err := NewApp(cfg, st, where, log)
	if err != nil {
		if closeFn != nil {
			err = errors.Join(err, closeFn())
		}
		return nil, err
	}
	app.Tokens = tokens
	app.closeStore = closeFn
	return app, nil
}
