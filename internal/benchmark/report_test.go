package benchmark

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuite(id string, at time.Time) *BenchmarkSuite {
	return &BenchmarkSuite{
		ID:        id,
		Timestamp: at,
		Duration:  3 * time.Second,
		Results: []BenchmarkResult{
			{
				Name:         "cache_get",
				Category:     CategoryCache,
				Type:         TypePerformance,
				Iterations:   1000,
				OpsPerSecond: 42000,
				Success:      true,
				Latency:      &LatencyStats{Mean: 20 * time.Microsecond, P99: 90 * time.Microsecond},
			},
		},
		Summary: BenchmarkSummary{
			TotalTests:      1,
			SuccessfulTests: 1,
			Categories: map[Category]CategoryStats{
				CategoryCache: {Tests: 1, AvgOpsPerSecond: 42000},
			},
		},
	}
}

func TestStore_SaveGetList(t *testing.T) {
	store, err := NewStore(testLogger(), "")
	require.NoError(t, err)

	older := sampleSuite("older", time.Now().Add(-time.Hour))
	newer := sampleSuite("newer", time.Now())
	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	got, ok := store.Get("older")
	require.True(t, ok)
	assert.Equal(t, "older", got.ID)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"newer", "older"}, store.List())
}

func TestStore_RejectsEmptyID(t *testing.T) {
	store, err := NewStore(testLogger(), "")
	require.NoError(t, err)
	assert.Error(t, store.Save(&BenchmarkSuite{}))
	assert.Error(t, store.Save(nil))
}

func TestStore_PersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(testLogger(), dir)
	require.NoError(t, err)

	suite := sampleSuite("on-disk", time.Now())
	require.NoError(t, store.Save(suite))

	data, err := os.ReadFile(filepath.Join(dir, "on-disk.json"))
	require.NoError(t, err)

	decoded, err := Decode(data, EncodingJSON)
	require.NoError(t, err)
	assert.Equal(t, "on-disk", decoded.ID)
	assert.Len(t, decoded.Results, 1)
}

func TestEncodeDecode_JSONAndCBOR(t *testing.T) {
	suite := sampleSuite("roundtrip", time.Now().UTC().Truncate(time.Second))

	for _, encoding := range []Encoding{EncodingJSON, EncodingCBOR} {
		data, err := Encode(suite, encoding)
		require.NoError(t, err, string(encoding))

		decoded, err := Decode(data, encoding)
		require.NoError(t, err, string(encoding))
		assert.Equal(t, suite.ID, decoded.ID)
		assert.Equal(t, suite.Duration, decoded.Duration)
		require.Len(t, decoded.Results, 1)
		assert.Equal(t, suite.Results[0].OpsPerSecond, decoded.Results[0].OpsPerSecond)
	}
}

func TestEncode_UnknownEncoding(t *testing.T) {
	_, err := Encode(sampleSuite("x", time.Now()), Encoding("yaml"))
	assert.Error(t, err)
	_, err = Decode([]byte("{}"), Encoding("yaml"))
	assert.Error(t, err)
}
