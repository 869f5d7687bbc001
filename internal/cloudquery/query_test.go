package cloudquery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralis-scan/scan/internal/cloudquery/cache"
)

func countingCaller(result string, calls *atomic.Int32) CallerFunc {
	return func(_ context.Context, _ string, _ map[string]any) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(result), nil
	}
}

func pageOpts(page int) Options {
	return Options{
		Params:        map[string]any{"userAddress": "0xabc", "pageSize": 10, "pageNum": page},
		IncludesCount: true,
		CountName:     "count",
	}
}

func TestQuery_BeginDo(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery[int](countingCaller(`{"results":[1,2],"count":12}`, &calls))

	ticket, snapshot := q.Begin("fn", pageOpts(1))
	assert.True(t, snapshot.Loading)
	assert.Nil(t, snapshot.Data)
	assert.NotEmpty(t, ticket.TraceID())

	resp, ok := q.Do(context.Background(), ticket)
	require.True(t, ok)
	assert.False(t, resp.Loading)
	require.NoError(t, resp.Err)
	require.NotNil(t, resp.Data)
	assert.Equal(t, []int{1, 2}, resp.Data.Results)
	assert.Equal(t, 12, *resp.Data.Count)
	assert.Equal(t, resp, q.Last())

	_, next := q.Begin("fn", pageOpts(2))
	assert.True(t, next.Loading)
	assert.Equal(t, resp.Data, next.Data, "previous data is kept while loading")
}

func TestQuery_SupersededResponseDropped(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery[int](countingCaller(`{"results":[1],"count":1}`, &calls))

	first, _ := q.Begin("fn", pageOpts(1))
	second, _ := q.Begin("fn", pageOpts(2))

	_, ok := q.Do(context.Background(), first)
	assert.False(t, ok)
	assert.Nil(t, q.Last().Data)
	assert.Equal(t, int32(0), calls.Load(), "superseded ticket must not reach the caller")

	resp, ok := q.Do(context.Background(), second)
	assert.True(t, ok)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_SupersededDuringCallIsDropped(t *testing.T) {
	var q *Query[int]
	var next Ticket
	q = NewQuery[int](CallerFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		if next.seq == 0 {
			next, _ = q.Begin("fn", pageOpts(2))
		}
		return json.RawMessage(`{"results":[1],"count":1}`), nil
	}))

	first, _ := q.Begin("fn", pageOpts(1))
	_, ok := q.Do(context.Background(), first)
	assert.False(t, ok)
	assert.Nil(t, q.Last().Data)

	resp, ok := q.Do(context.Background(), next)
	require.True(t, ok)
	assert.NotNil(t, resp.Data)
}

func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	fail := false
	boom := errors.New("boom")
	q := NewQuery[int](CallerFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		if fail {
			return nil, boom
		}
		return json.RawMessage(`{"results":[7],"count":1}`), nil
	}))

	t1, _ := q.Begin("fn", pageOpts(1))
	first, _ := q.Do(context.Background(), t1)
	require.NotNil(t, first.Data)

	fail = true
	t2, _ := q.Begin("fn", pageOpts(2))
	resp, ok := q.Do(context.Background(), t2)
	require.True(t, ok)
	assert.ErrorIs(t, resp.Err, boom)
	assert.False(t, resp.Loading)
	assert.Equal(t, first.Data, resp.Data)
}

func TestQuery_DecodeError(t *testing.T) {
	var calls atomic.Int32
	q := NewQuery[int](countingCaller(`{"results":"nope"}`, &calls))

	ticket, _ := q.Begin("fn", pageOpts(1))
	resp, ok := q.Do(context.Background(), ticket)
	require.True(t, ok)
	assert.Error(t, resp.Err)
}

func TestQuery_Cache(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), true, 60)
	require.NoError(t, err)

	var calls atomic.Int32
	q := NewQuery[int](countingCaller(`{"results":[1],"count":1}`, &calls), WithCache(store))

	for range 2 {
		ticket, _ := q.Begin("fn", pageOpts(1))
		resp, ok := q.Do(context.Background(), ticket)
		require.True(t, ok)
		require.NoError(t, resp.Err)
	}
	assert.Equal(t, int32(1), calls.Load(), "second identical request is served from cache")

	ticket, _ := q.Begin("fn", pageOpts(2))
	_, _ = q.Do(context.Background(), ticket)
	assert.Equal(t, int32(2), calls.Load())

	refresh := pageOpts(1)
	refresh.SkipCache = true
	ticket, _ = q.Begin("fn", refresh)
	_, _ = q.Do(context.Background(), ticket)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_DeduplicatesInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32

	q := NewQuery[int](CallerFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return json.RawMessage(`{"results":[1],"count":1}`), nil
	}))

	first, _ := q.Begin("fn", pageOpts(1))
	second, _ := q.Begin("fn", pageOpts(1))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = q.Do(context.Background(), first)
	}()
	<-started

	results := make(chan bool, 1)
	go func() {
		_, ok := q.Do(context.Background(), second)
		results <- ok
	}()

	close(release)
	wg.Wait()
	assert.True(t, <-results)
	assert.LessOrEqual(t, calls.Load(), int32(2))
}
