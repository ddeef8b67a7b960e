package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scoutline/sourcing-cli/internal/pipeline"
	"github.com/scoutline/sourcing-cli/internal/store"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
	"github.com/scoutline/sourcing-cli/pkg/apollo"
	"github.com/scoutline/sourcing-cli/pkg/contactout"
	"github.com/scoutline/sourcing-cli/pkg/scrapin"
)

// initStore opens the configured storage backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

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
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline wires provider clients and the store into a Pipeline.
// Credentials are validated up front: a missing key is a configuration
// error, fatal before any job work starts.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	searchClient := apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))
	enrichClient := contactout.NewClient(cfg.ContactOut.Key, contactout.WithBaseURL(cfg.ContactOut.BaseURL))
	scrapeClient := scrapin.NewClient(cfg.ScrapIn.Key, scrapin.WithBaseURL(cfg.ScrapIn.BaseURL))
	aiClient := anthropic.NewClient(cfg.Anthropic.Key)

	p, err := pipeline.New(st, searchClient, enrichClient, scrapeClient, aiClient, cfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return p, st, nil
}
