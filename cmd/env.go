package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/salonscope/harvest-cli/internal/export"
	"github.com/salonscope/harvest-cli/internal/pipeline"
	"github.com/salonscope/harvest-cli/internal/scrape"
	"github.com/salonscope/harvest-cli/internal/store"
	"github.com/salonscope/harvest-cli/internal/task"
	"github.com/salonscope/harvest-cli/pkg/websearch"
)

// harvestEnv bundles the wired components one command invocation needs.
type harvestEnv struct {
	Store    store.Store
	Tasks    *task.Service
	Pipeline *pipeline.Pipeline
	Profile  *scrape.Profile
	Fetcher  *scrape.Fetcher
}

func (e *harvestEnv) Close() {
	_ = e.Store.Close()
}

// initStore opens the configured database backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline wires the full harvest pipeline from configuration.
func initPipeline(ctx context.Context) (*harvestEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := scrape.LoadProfile(cfg.Site.ProfilePath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sink, err := export.NewDirSink(cfg.Export.Dir)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init export sink")
	}

	var search websearch.Provider
	if cfg.Search.Endpoint != "" {
		search = websearch.NewClient(cfg.Search.Endpoint, websearch.WithAPIKey(cfg.Search.Key))
	} else {
		search = &websearch.Static{}
	}

	fetcher := scrape.NewFetcher(cfg.Fetch)
	tasks := task.NewService(st, nil)

	p := pipeline.New(
		cfg.Pipeline,
		cfg.Export,
		scrape.NewPaginator(fetcher, profile),
		scrape.NewDetailExtractor(fetcher, profile),
		search,
		tasks,
		st,
		sink,
		nil,
	)

	return &harvestEnv{
		Store:    st,
		Tasks:    tasks,
		Pipeline: p,
		Profile:  profile,
		Fetcher:  fetcher,
	}, nil
}
