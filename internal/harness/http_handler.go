// Package harness exposes the benchmark and load-test surfaces over HTTP.
package harness

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/enterprise/corebench/internal/benchmark"
	"github.com/enterprise/corebench/internal/components"
	"github.com/enterprise/corebench/internal/loadsim"
	"github.com/enterprise/corebench/internal/scenario"
)

// HTTPHandler serves benchmark and load-test operations.
type HTTPHandler struct {
	runner    *benchmark.Runner
	store     *benchmark.Store
	simulator *loadsim.Simulator
	set       components.Set
	logger    *logrus.Logger
	tracer    trace.Tracer

	mu         sync.RWMutex
	loadSuites map[string]*loadsim.LoadTestSuite
}

// NewHTTPHandler creates an HTTP handler over the given runner, report store
// and simulator.
func NewHTTPHandler(runner *benchmark.Runner, store *benchmark.Store, simulator *loadsim.Simulator, set components.Set, logger *logrus.Logger) *HTTPHandler {
	return &HTTPHandler{
		runner:     runner,
		store:      store,
		simulator:  simulator,
		set:        set,
		logger:     logger,
		tracer:     otel.Tracer("harness_http_handler"),
		loadSuites: make(map[string]*loadsim.LoadTestSuite),
	}
}

// RegisterRoutes registers the harness endpoints.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/bench/run", h.runBenchmarks).Methods("POST")
	router.HandleFunc("/api/bench", h.listBenchmarks).Methods("GET")
	router.HandleFunc("/api/bench/{id}", h.getBenchmark).Methods("GET")
	router.HandleFunc("/api/bench/{id}/analysis", h.getAnalysis).Methods("GET")

	router.HandleFunc("/api/load/run", h.runLoadSuite).Methods("POST")
	router.HandleFunc("/api/load/{id}", h.getLoadSuite).Methods("GET")

	router.HandleFunc("/healthz", h.healthz).Methods("GET")
}

func (h *HTTPHandler) runBenchmarks(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "run_benchmarks")
	defer span.End()

	suite, err := h.runner.RunAll(ctx, h.set)
	if err != nil {
		h.handleError(w, "Benchmark run failed", http.StatusInternalServerError, err)
		return
	}
	if err := h.store.Save(suite); err != nil {
		h.handleError(w, "Failed to store benchmark report", http.StatusInternalServerError, err)
		return
	}

	h.sendJSONResponse(w, map[string]interface{}{
		"suite_id": suite.ID,
		"duration": suite.Duration.String(),
		"summary":  suite.Summary,
	}, http.StatusOK)
}

func (h *HTTPHandler) listBenchmarks(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, map[string]interface{}{"suites": h.store.List()}, http.StatusOK)
}

func (h *HTTPHandler) getBenchmark(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	suite, ok := h.store.Get(id)
	if !ok {
		h.sendJSONResponse(w, map[string]interface{}{"error": "suite not found", "suite_id": id}, http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "cbor" {
		data, err := benchmark.Encode(suite, benchmark.EncodingCBOR)
		if err != nil {
			h.handleError(w, "Failed to encode report", http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/cbor")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	h.sendJSONResponse(w, suite, http.StatusOK)
}

func (h *HTTPHandler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "get_analysis")
	defer span.End()

	id := mux.Vars(r)["id"]
	suite, ok := h.store.Get(id)
	if !ok {
		h.sendJSONResponse(w, map[string]interface{}{"error": "suite not found", "suite_id": id}, http.StatusNotFound)
		return
	}

	h.sendJSONResponse(w, scenario.AnalyzeResults(suite), http.StatusOK)
}

// loadRunRequest narrows a load run to a subset of the registered components.
// An empty list runs every scenario the component set supports.
type loadRunRequest struct {
	Scenarios []string `json:"scenarios,omitempty"`
}

func (h *HTTPHandler) runLoadSuite(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "run_load_suite")
	defer span.End()

	var req loadRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.handleError(w, "Invalid request body", http.StatusBadRequest, err)
			return
		}
	}

	scenarios := scenario.CreateComprehensiveTestSuite(h.set)
	if len(req.Scenarios) > 0 {
		wanted := make(map[string]bool, len(req.Scenarios))
		for _, name := range req.Scenarios {
			wanted[name] = true
		}
		filtered := scenarios[:0]
		for _, s := range scenarios {
			if wanted[s.Name] {
				filtered = append(filtered, s)
			}
		}
		scenarios = filtered
	}
	if len(scenarios) == 0 {
		h.sendJSONResponse(w, map[string]interface{}{"error": "no matching scenarios"}, http.StatusBadRequest)
		return
	}

	suite, err := h.simulator.RunSuite(ctx, "http_load", scenarios)
	if err != nil {
		h.handleError(w, "Load suite failed", http.StatusInternalServerError, err)
		return
	}

	h.mu.Lock()
	h.loadSuites[suite.ID] = suite
	h.mu.Unlock()

	h.sendJSONResponse(w, map[string]interface{}{
		"suite_id": suite.ID,
		"summary":  suite.Summary,
	}, http.StatusOK)
}

func (h *HTTPHandler) getLoadSuite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.mu.RLock()
	suite, ok := h.loadSuites[id]
	h.mu.RUnlock()
	if !ok {
		h.sendJSONResponse(w, map[string]interface{}{"error": "load suite not found", "suite_id": id}, http.StatusNotFound)
		return
	}
	h.sendJSONResponse(w, suite, http.StatusOK)
}

func (h *HTTPHandler) healthz(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"components": h.set.Present(),
	}, http.StatusOK)
}

func (h *HTTPHandler) handleError(w http.ResponseWriter, message string, statusCode int, err error) {
	h.logger.WithError(err).Error(message)
	h.sendJSONResponse(w, map[string]interface{}{
		"error":   message,
		"status":  statusCode,
		"details": err.Error(),
	}, statusCode)
}

func (h *HTTPHandler) sendJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
