package components

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	value, found, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, cache.Delete(ctx, "k"))
	_, found, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_BatchOps(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	entries := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}
	require.NoError(t, cache.MSet(ctx, entries, time.Minute))

	values, err := cache.MGet(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []byte("1"), values[0])
	assert.Equal(t, []byte("2"), values[1])
	assert.Nil(t, values[2])
}

func TestMemoryCache_Metrics(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	cache.Get(ctx, "k")
	cache.Get(ctx, "k")
	cache.Get(ctx, "absent")

	metrics := cache.CacheMetrics()
	assert.InDelta(t, 2.0/3.0, metrics.HitRate, 0.001)
	assert.Greater(t, metrics.Operations, int64(0))
}

func TestMemoryRateLimiter_EnforcesLimit(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 10; i++ {
		decision, err := limiter.Hit(ctx, "k", 5, time.Minute)
		require.NoError(t, err)
		if decision.Allowed {
			allowed++
		} else {
			assert.Greater(t, decision.RetryAfter, time.Duration(0))
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestMemoryRateLimiter_IndependentKeys(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Hit(ctx, "a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}
	decision, err := limiter.Hit(ctx, "b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestMemoryRateLimiter_Algorithms(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	for _, algorithm := range Algorithms() {
		decision, err := limiter.HitWithAlgorithm(ctx, "algo:"+string(algorithm), 10, time.Minute, algorithm)
		require.NoError(t, err, string(algorithm))
		assert.True(t, decision.Allowed, string(algorithm))
	}

	_, err := limiter.HitWithAlgorithm(ctx, "k", 10, time.Minute, Algorithm("leaky_bucket"))
	assert.Error(t, err)
}

func TestLogrusAdapter_EmitsFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	adapter := NewLogrusAdapter(base)
	adapter.Info("hello", Fields{"answer": 42})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.EqualValues(t, 42, entry["answer"])
}

func TestLogrusAdapter_WithContext(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	adapter := NewLogrusAdapter(base)
	adapter.WithContext(Fields{"trace_id": "t-1"}, func(scoped EventLogger) {
		scoped.Warn("scoped", Fields{"step": "one"})
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "t-1", entry["trace_id"])
	assert.Equal(t, "one", entry["step"])
}

func TestPlaygroundValidator_ValidRecord(t *testing.T) {
	v := NewPlaygroundValidator()
	require.NoError(t, v.RegisterSchema("user", map[string]string{
		"name":  "required,min=2",
		"email": "required,email",
	}))

	out, err := v.Validate(context.Background(), "user", map[string]interface{}{
		"name":  "ada",
		"email": "ada@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestPlaygroundValidator_Failures(t *testing.T) {
	v := NewPlaygroundValidator()
	require.NoError(t, v.RegisterSchema("user", map[string]string{
		"name":  "required,min=2",
		"email": "required,email",
	}))
	ctx := context.Background()

	_, err := v.Validate(ctx, "user", map[string]interface{}{"name": "ada"})
	assert.Error(t, err, "missing required field")

	_, err = v.Validate(ctx, "user", map[string]interface{}{"name": "ada", "email": "not-an-email"})
	assert.Error(t, err, "invalid email")

	_, err = v.Validate(ctx, "unknown", map[string]interface{}{})
	assert.Error(t, err, "unknown schema")

	_, err = v.Validate(ctx, "user", "not a map")
	assert.Error(t, err, "non-map record")
}

func TestPlaygroundValidator_Batch(t *testing.T) {
	v := NewPlaygroundValidator()
	require.NoError(t, v.RegisterSchema("user", map[string]string{"name": "required"}))
	ctx := context.Background()

	out, err := v.ValidateBatch(ctx, "user", []interface{}{
		map[string]interface{}{"name": "a"},
		map[string]interface{}{"name": "b"},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = v.ValidateBatch(ctx, "user", []interface{}{
		map[string]interface{}{"name": "a"},
		map[string]interface{}{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}

func TestSet_PresentAndCount(t *testing.T) {
	assert.Empty(t, Set{}.Present())
	assert.Equal(t, 0, Set{}.Count())

	set := Set{Cache: NewMemoryCache(), Logger: NewLogrusAdapter(logrus.New())}
	assert.Equal(t, []string{"cache", "logger"}, set.Present())
	assert.Equal(t, 2, set.Count())
}
