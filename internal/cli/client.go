package cli

import (
	"context"
	"fmt"

	"github.com/moralis-scan/scan/internal/cloudquery"
	"github.com/moralis-scan/scan/internal/cloudquery/cache"
	"github.com/moralis-scan/scan/internal/config"
	"github.com/moralis-scan/scan/internal/pagination"
	"github.com/moralis-scan/scan/internal/tui"
)

// queryFactory builds the object query the page and browse commands use.
// Tests replace it to avoid the network.
//
//nolint:gochecknoglobals // Test seam for the cloud-function transport.
var queryFactory = newObjectQuery

// newObjectQuery wires an HTTP caller and, when enabled, the response cache.
// The returned func releases the cache backend.
func newObjectQuery(
	ctx context.Context,
	cfg *config.Config,
) (*cloudquery.Query[cloudquery.Object], func(), error) {
	if err := cfg.RequireServer(); err != nil {
		return nil, nil, err
	}

	caller := cloudquery.NewHTTPCaller(cfg.Server.URL, cfg.Server.AppID,
		cloudquery.WithTimeout(cfg.Server.Timeout),
		cloudquery.WithRetries(cfg.Server.MaxRetries),
		cloudquery.WithLogger(logger.With().Str("component", "cloudquery").Logger()),
	)

	opts := []cloudquery.QueryOption{
		cloudquery.WithQueryLogger(logger.With().Str("component", "query").Logger()),
	}
	closer := func() {}
	if cfg.Cache.Enabled {
		store, closeStore, err := openStore(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, cloudquery.WithCache(store))
		closer = closeStore
	}

	return cloudquery.NewQuery[cloudquery.Object](caller, opts...), closer, nil
}

// openStore opens the configured cache backend regardless of cc.Enabled, so
// cache maintenance works while caching is switched off.
func openStore(ctx context.Context, cc config.CacheConfig) (cache.Store, func(), error) {
	switch cc.Backend {
	case config.BackendRedis:
		store, err := cache.NewRedisStore(ctx, cc.RedisAddr, cc.TTLSeconds)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("closing redis cache")
			}
		}, nil
	case config.BackendFile, "":
		store, err := cache.NewFileStore(cc.Directory, true, cc.TTLSeconds)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: got %q", config.ErrInvalidBackend, cc.Backend)
	}
}

// newController builds an object controller for method and subject with
// paging defaults from cfg. A positive pageSize overrides the config.
func newController(
	ctx context.Context,
	query pagination.Querier[cloudquery.Object],
	cfg *config.Config,
	method, subject string,
	pageSize int,
) *tui.ObjectController {
	if pageSize <= 0 {
		pageSize = cfg.Paging.PageSize
	}
	return tui.NewObjectController(ctx, query, method, subject,
		pagination.Options[cloudquery.Object, map[string]any]{
			PageSize:     pageSize,
			SubjectParam: cfg.Paging.SubjectParam,
			CountName:    cfg.Paging.CountName,
		})
}
