package harness

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/corebench/internal/benchmark"
	"github.com/enterprise/corebench/internal/components"
	"github.com/enterprise/corebench/internal/loadsim"
)

func testHandler(t *testing.T) (*HTTPHandler, *mux.Router) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	small := benchmark.CategoryConfig{Iterations: 100, Warmup: 5, Concurrency: 4}
	runner := benchmark.NewRunner(logger, benchmark.Config{
		Cache: small, RateLimit: small, Logging: small, Validation: small, Integration: small,
	})
	store, err := benchmark.NewStore(logger, "")
	require.NoError(t, err)

	set := components.Set{
		Cache:  components.NewMemoryCache(),
		Logger: components.NewLogrusAdapter(logger),
	}

	handler := NewHTTPHandler(runner, store, loadsim.NewSimulator(logger), set, logger)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return handler, router
}

func TestHealthz(t *testing.T) {
	_, router := testHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRunThenFetchBenchmark(t *testing.T) {
	_, router := testHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bench/run", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	suiteID, _ := run["suite_id"].(string)
	require.NotEmpty(t, suiteID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bench/"+suiteID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bench/"+suiteID+"/analysis", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Contains(t, analysis, "score")
}

func TestGetBenchmark_NotFound(t *testing.T) {
	_, router := testHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bench/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunLoadSuite_FilteredScenario(t *testing.T) {
	_, router := testHandler(t)

	body := strings.NewReader(`{"scenarios":["cache_load"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load/run", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var run map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	suiteID, _ := run["suite_id"].(string)
	require.NotEmpty(t, suiteID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/load/"+suiteID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunLoadSuite_NoMatchingScenarios(t *testing.T) {
	_, router := testHandler(t)

	body := strings.NewReader(`{"scenarios":["does_not_exist"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/load/run", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
