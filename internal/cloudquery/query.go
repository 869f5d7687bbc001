package cloudquery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/moralis-scan/scan/internal/cloudquery/cache"
)

// Ticket identifies one request started with Query.Begin.
type Ticket struct {
	seq     uint64
	method  string
	opts    Options
	key     string
	traceID string
}

// TraceID returns the ULID used to correlate log lines for this request.
func (t Ticket) TraceID() string {
	return t.traceID
}

// QueryOption customizes a Query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	store  cache.Store
	logger zerolog.Logger
}

// WithCache serves repeated identical calls from store until they expire.
func WithCache(store cache.Store) QueryOption {
	return func(c *queryConfig) { c.store = store }
}

// WithQueryLogger sets the logger used for request tracing.
func WithQueryLogger(l zerolog.Logger) QueryOption {
	return func(c *queryConfig) { c.logger = l }
}

// Query executes paged cloud-function calls on behalf of a single consumer.
//
// Each Begin supersedes every earlier request: a call that completes after
// a newer Begin is dropped and never reported. Data from the last settled
// call is retained while the next one is in flight. Query is safe for
// concurrent use; Do is expected to run off the consumer's event loop.
type Query[R any] struct {
	caller Caller
	cfg    queryConfig

	group singleflight.Group

	mu     sync.Mutex
	latest uint64
	last   Response[R]
}

// NewQuery creates a query that calls through caller.
func NewQuery[R any](caller Caller, opts ...QueryOption) *Query[R] {
	cfg := queryConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Query[R]{caller: caller, cfg: cfg}
}

// Last returns the most recent settled response.
func (q *Query[R]) Last() Response[R] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

// Begin registers a call of method with opts as the current request and
// returns the snapshot a consumer should show while it runs: loading,
// previous data, no error.
func (q *Query[R]) Begin(method string, opts Options) (Ticket, Response[R]) {
	countName := ""
	if opts.IncludesCount {
		countName = opts.countName()
	}
	key, err := cache.GenerateKey(cache.KeyParams{Method: method, Params: opts.Params, CountName: countName})
	if err != nil {
		key = ""
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.latest++
	t := Ticket{seq: q.latest, method: method, opts: opts, key: key, traceID: ulid.Make().String()}
	return t, Response[R]{Data: q.last.Data, Loading: true}
}

// Do executes the request behind t. ok is false when a later Begin
// superseded t; the result is then discarded.
func (q *Query[R]) Do(ctx context.Context, t Ticket) (Response[R], bool) {
	logger := q.cfg.logger.With().
		Str("component", "cloudquery").
		Str("function", t.method).
		Str("trace_id", t.traceID).
		Logger()

	if q.superseded(t) {
		logger.Debug().Msg("skipping superseded request")
		return Response[R]{}, false
	}

	raw, err := q.fetch(ctx, t, logger)

	var page *Page[R]
	if err == nil {
		page, err = DecodePage[R](raw, t.opts)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if t.seq != q.latest {
		logger.Debug().Msg("dropping superseded response")
		return Response[R]{}, false
	}

	if err != nil {
		logger.Warn().Err(err).Msg("cloud function failed")
		q.last = Response[R]{Data: q.last.Data, Err: err}
		return q.last, true
	}

	q.last = Response[R]{Data: page}
	return q.last, true
}

func (q *Query[R]) superseded(t Ticket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return t.seq != q.latest
}

func (q *Query[R]) fetch(ctx context.Context, t Ticket, logger zerolog.Logger) (json.RawMessage, error) {
	store := q.cfg.store
	useCache := store != nil && store.IsEnabled() && t.key != ""

	if useCache && !t.opts.SkipCache {
		entry, err := store.Get(ctx, t.key)
		switch {
		case err == nil:
			logger.Debug().Dur("age", entry.Age()).Msg("cache hit")
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheExpired):
			logger.Warn().Err(err).Msg("cache read failed")
		}
	}

	call := func() (any, error) {
		return q.caller.Call(ctx, t.method, t.opts.Params)
	}

	var (
		v   any
		err error
	)
	if t.key == "" {
		v, err = call()
	} else {
		v, err, _ = q.group.Do(t.key, call)
	}
	if err != nil {
		return nil, err
	}
	raw, _ := v.(json.RawMessage)

	if useCache {
		if setErr := store.Set(ctx, t.key, raw); setErr != nil {
			logger.Warn().Err(setErr).Msg("cache write failed")
		}
	}
	return raw, nil
}
