package main

import (
	"context"

	"storefront-cart/catalog"
	"storefront-cart/config"
	"storefront-cart/metrics"
	"storefront-cart/store"
)

// deps are the collaborators every command needs.
type deps struct {
	store   store.Store
	catalog *catalog.Client
	metrics *metrics.Recorder
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	m := metrics.New()

	st, err := store.Open(ctx, store.Options{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		TTL:    cfg.Storage.TTL,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("driver", cfg.Storage.Driver).Info("storage ready")

	cat := catalog.NewClient(cfg.Catalog.BaseURL, catalog.Options{
		Timeout:    cfg.Catalog.Timeout,
		MaxRetries: cfg.Catalog.MaxRetries,
		BackoffMin: cfg.Catalog.BackoffMin,
		BackoffMax: cfg.Catalog.BackoffMax,
		Logger:     log,
		Metrics:    m,
	})
	return &deps{store: st, catalog: cat, metrics: m}, nil
}
