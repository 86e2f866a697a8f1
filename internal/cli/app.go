package cli

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/odysseus0/feedmd/internal/config"
	"github.com/odysseus0/feedmd/internal/fetch"
	"github.com/odysseus0/feedmd/internal/render"
	"github.com/odysseus0/feedmd/internal/store"
)

// App holds the opened database and the services built on it for the
// lifetime of one command.
type App struct {
	cfg      config.Config
	db       *sql.DB
	store    *store.Store
	renderer *render.Renderer
	fetcher  *fetch.Fetcher
}

func NewApp(cfg config.Config, dbPath string) (*App, error) {
	cfg.DBPath = dbPath
	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s := store.NewStore(db)
	renderer := render.NewRenderer(render.Options{
		RewriteImages: cfg.RewriteImages,
		Logger:        slog.Default(),
	})

	return &App{
		cfg:      cfg,
		db:       db,
		store:    s,
		renderer: renderer,
		fetcher:  fetch.NewFetcher(s, renderer, cfg, slog.Default()),
	}, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func requireApp(getApp func() *App) (*App, error) {
	app := getApp()
	if app == nil {
		return nil, errors.New("app not initialized")
	}
	return app, nil
}
