package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/cm-offers-feed/pkg/cache"
	"github.com/Sternrassler/cm-offers-feed/pkg/client"
	"github.com/Sternrassler/cm-offers-feed/pkg/config"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/postage"
	"github.com/Sternrassler/cm-offers-feed/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// app holds the collaborators shared by all commands.
type app struct {
	cfg       *config.Config
	store     cache.Store
	client    *client.Client
	cache     *postage.Cache
	resolver  *postage.Resolver
	estimator *postage.Estimator

	closeStore func() error
}

// newApp opens the configured store and wires the client and pricing cache.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a, err := newAppWithStore(cfg, store)
	if err != nil {
		closeStore()
		return nil, err
	}
	a.closeStore = closeStore
	return a, nil
}

func newAppWithStore(cfg *config.Config, store cache.Store) (*app, error) {
	limiter := ratelimit.NewTracker(store, logging.NewLogger(logging.ComponentLimiter))

	clientCfg := client.DefaultConfig(limiter, cfg.HTTP.UserAgent)
	clientCfg.Timeout = cfg.HTTP.Timeout
	c, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	pricing := postage.NewCache(store, postage.NewAPI(c, cfg.Postage.BaseURL))
	resolver := postage.NewResolver(store)

	return &app{
		cfg:        cfg,
		store:      store,
		client:     c,
		cache:      pricing,
		resolver:   resolver,
		estimator:  postage.NewEstimator(pricing, resolver),
		closeStore: func() error { return nil },
	}, nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.closeStore()
}

// openStore connects the configured backend.
func openStore(ctx context.Context, sc config.StoreConfig) (cache.Store, func() error, error) {
	switch sc.Backend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr: sc.RedisURL,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", sc.RedisURL, err)
		}
		logger.Info().Str("addr", sc.RedisURL).Msg("Connected to Redis")
		return cache.NewRedisStore(redisClient), redisClient.Close, nil

	case config.BackendSQLite:
		store, err := cache.OpenSQLiteStore(sc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", store.Path()).Msg("Opened SQLite store")
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}
