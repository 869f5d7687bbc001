package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry(t *testing.T) {
	data := json.RawMessage(`{"results":[],"count":0}`)
	entry := NewEntry("k", data, 60)

	assert.Equal(t, "k", entry.Key)
	assert.False(t, entry.IsExpired())
	assert.Greater(t, entry.Remaining(), time.Duration(0))
	assert.LessOrEqual(t, entry.Age(), time.Second)

	t.Run("Expired", func(t *testing.T) {
		expired := NewEntry("k", data, 60)
		expired.ExpiresAt = time.Now().Add(-time.Second)
		assert.True(t, expired.IsExpired())
		assert.Equal(t, time.Duration(0), expired.Remaining())
	})

	t.Run("JSON", func(t *testing.T) {
		encoded, err := json.Marshal(entry)
		require.NoError(t, err)

		var decoded Entry
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, entry.Key, decoded.Key)
		assert.JSONEq(t, string(entry.Data), string(decoded.Data))
		assert.Equal(t, entry.ExpiresAt.Format(time.RFC3339), decoded.ExpiresAt.Format(time.RFC3339))
	})
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey(KeyParams{
		Method: "getTransactions",
		Params: map[string]any{"userAddress": "0xabc", "pageSize": 10, "pageNum": 2},
	})
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := GenerateKey(KeyParams{
		Method: " getTransactions ",
		Params: map[string]any{"pageNum": 2, "pageSize": 10, "userAddress": "0xabc"},
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := GenerateKey(KeyParams{
		Method: "getTransactions",
		Params: map[string]any{"userAddress": "0xabc", "pageSize": 10, "pageNum": 3},
	})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = GenerateKey(KeyParams{Method: "  "})
	assert.ErrorIs(t, err, ErrInvalidCacheKey)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir, true, 60)
	require.NoError(t, err)
	assert.True(t, store.IsEnabled())
	assert.Equal(t, dir, store.Directory())

	data := json.RawMessage(`{"results":[{"objectId":"a"}],"count":1}`)

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key-1", data))

		entry, getErr := store.Get(ctx, "key-1")
		require.NoError(t, getErr)
		assert.JSONEq(t, string(data), string(entry.Data))

		count, countErr := store.Count()
		require.NoError(t, countErr)
		assert.Equal(t, 1, count)
	})

	t.Run("KeyIsSanitized", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "a/b:c", data))
		_, statErr := os.Stat(filepath.Join(dir, "a_b_c.json"))
		assert.NoError(t, statErr)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "key-1"))
		_, getErr := store.Get(ctx, "key-1")
		assert.ErrorIs(t, getErr, ErrCacheNotFound)
		assert.NoError(t, store.Delete(ctx, "key-1"))
	})

	t.Run("EmptyKey", func(t *testing.T) {
		assert.ErrorIs(t, store.Set(ctx, "", data), ErrInvalidCacheKey)
		_, getErr := store.Get(ctx, "")
		assert.ErrorIs(t, getErr, ErrInvalidCacheKey)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k1", data))
		require.NoError(t, store.Set(ctx, "k2", data))
		require.NoError(t, store.Clear(ctx))
		count, _ := store.Count()
		assert.Equal(t, 0, count)
	})

	t.Run("Disabled", func(t *testing.T) {
		disabled, newErr := NewFileStore("", false, 60)
		require.NoError(t, newErr)
		assert.False(t, disabled.IsEnabled())
		assert.ErrorIs(t, disabled.Set(ctx, "k", data), ErrCacheDisabled)
		_, getErr := disabled.Get(ctx, "k")
		assert.ErrorIs(t, getErr, ErrCacheDisabled)
	})

	t.Run("Prune", func(t *testing.T) {
		pruneDir := t.TempDir()
		expiring, newErr := NewFileStore(pruneDir, true, -1)
		require.NoError(t, newErr)
		require.NoError(t, expiring.Set(ctx, "old", data))

		fresh, newErr := NewFileStore(pruneDir, true, 60)
		require.NoError(t, newErr)
		require.NoError(t, fresh.Set(ctx, "new", data))

		removed, pruneErr := fresh.Prune(ctx)
		require.NoError(t, pruneErr)
		assert.Equal(t, 1, removed)

		count, _ := fresh.Count()
		assert.Equal(t, 1, count)
	})

	t.Run("ExpiredGet", func(t *testing.T) {
		expiring, newErr := NewFileStore(t.TempDir(), true, -1)
		require.NoError(t, newErr)
		require.NoError(t, expiring.Set(ctx, "gone", data))
		_, getErr := expiring.Get(ctx, "gone")
		assert.ErrorIs(t, getErr, ErrCacheExpired)
	})
}

func TestNewFileStore_RequiresDirectory(t *testing.T) {
	_, err := NewFileStore("", true, 60)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SCAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SCAN_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, 60)
	require.NoError(t, err)
	defer store.Close()

	data := json.RawMessage(`{"count":3}`)
	require.NoError(t, store.Set(ctx, "redis-key", data))

	entry, err := store.Get(ctx, "redis-key")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(entry.Data))

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx, "redis-key")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestNewRedisStore_EmptyAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "", 60)
	assert.Error(t, err)
}

func TestTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "90", want: 90},
		{in: "5m", want: 300},
		{in: "1h30m", want: 5400},
		{in: "0", wantErr: true},
		{in: "48h", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "30s", FormatDuration(30*time.Second))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "1h30m", FormatDuration(90*time.Minute))
}
