package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/enterprise/corebench/internal/benchmark"
	"github.com/enterprise/corebench/internal/chaos"
	"github.com/enterprise/corebench/internal/components"
	"github.com/enterprise/corebench/internal/config"
	"github.com/enterprise/corebench/internal/harness"
	"github.com/enterprise/corebench/internal/loadsim"
	"github.com/enterprise/corebench/internal/scenario"
	"github.com/enterprise/corebench/pkg/logger"
)

var (
	configPath string
	version    = "dev"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "corebench",
		Short: "Performance harness for core infrastructure components",
		Long: `A load-testing and benchmarking harness for cache, rate limiter,
logger and validator components, with fault injection, continuous monitoring
and scored performance analysis.`,
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control surface",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}

	var benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Run the full benchmark suite and print the report",
		Run: func(cmd *cobra.Command, args []string) {
			runBenchmarks()
		},
	}

	var loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Run the comprehensive load-test suite",
		Run: func(cmd *cobra.Command, args []string) {
			runLoadSuite()
		},
	}

	var (
		chaosLatency       time.Duration
		chaosErrorRate     float64
		chaosResource      string
		chaosTargetPercent float64
		chaosDuration      time.Duration
	)
	var chaosCmd = &cobra.Command{
		Use:   "chaos",
		Short: "Inject synthetic failures for resilience testing",
		Run: func(cmd *cobra.Command, args []string) {
			runChaos(chaosLatency, chaosErrorRate, chaosResource, chaosTargetPercent, chaosDuration)
		},
	}
	chaosCmd.Flags().DurationVar(&chaosLatency, "latency", 0, "Per-operation delay for the latency pattern")
	chaosCmd.Flags().Float64Var(&chaosErrorRate, "error-rate", 0, "Per-poll error probability in [0,1]")
	chaosCmd.Flags().StringVar(&chaosResource, "resource", "", "Resource to exhaust: memory, cpu or connections")
	chaosCmd.Flags().Float64Var(&chaosTargetPercent, "target-percent", 50, "Resource exhaustion target percentage")
	chaosCmd.Flags().DurationVar(&chaosDuration, "duration", 10*time.Second, "Window for each failure pattern")

	var analyzeFormat string
	var analyzeCmd = &cobra.Command{
		Use:   "analyze <report>",
		Short: "Score a saved benchmark report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runAnalyze(args[0], analyzeFormat)
		},
	}
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Report encoding: json or cbor")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Git Commit: %s\n", gitCommit)
		},
	}

	var validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Run: func(cmd *cobra.Command, args []string) {
			validateConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, benchCmd, loadCmd, chaosCmd, analyzeCmd, versionCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig() *config.Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// buildComponents constructs the component set the harness targets from
// configuration.
func buildComponents(cfg *config.Config, log *logrus.Logger) components.Set {
	var cache components.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := components.NewRedisCache(cfg.Cache.Redis, log)
		if err != nil {
			log.Fatalf("Failed to connect to Redis cache: %v", err)
		}
		cache = redisCache
	default:
		cache = components.NewMemoryCache()
	}

	return components.Set{
		Cache:       cache,
		RateLimiter: components.NewMemoryRateLimiter(),
		Logger:      components.NewLogrusAdapter(log),
		Validator:   components.NewPlaygroundValidator(),
	}
}

func buildRunner(cfg *config.Config, log *logrus.Logger) *benchmark.Runner {
	var opts []benchmark.RunnerOption
	if cfg.Metrics.Enabled {
		opts = append(opts, benchmark.WithMetrics(benchmark.NewMetrics(prometheus.DefaultRegisterer)))
	}

	runner := benchmark.NewRunner(log, cfg.Benchmark, opts...)

	if cfg.Events.Enabled {
		publisher := buildPublisher(cfg, log)
		runner.AddListener(benchmark.NewPublisherListener(publisher, log))
	}

	return runner
}

func buildPublisher(cfg *config.Config, log *logrus.Logger) benchmark.EventPublisher {
	var publishers []benchmark.EventPublisher
	if cfg.Events.NATS.Enabled {
		natsPublisher, err := benchmark.NewNATSEventPublisher(cfg.Events.NATS.URL, log)
		if err != nil {
			log.Fatalf("Failed to create NATS publisher: %v", err)
		}
		publishers = append(publishers, natsPublisher)
	}
	if cfg.Events.Kafka.Enabled {
		publishers = append(publishers, benchmark.NewKafkaEventPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, log))
	}
	if len(publishers) == 0 {
		return benchmark.NoOpPublisher{}
	}
	if len(publishers) == 1 {
		return publishers[0]
	}
	return benchmark.NewRouterPublisher(publishers...)
}

func runServer() {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
	}).Info("Starting corebench")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	set := buildComponents(cfg, log)
	runner := buildRunner(cfg, log)
	simulator := loadsim.NewSimulator(log)

	store, err := benchmark.NewStore(log, cfg.Reports.Directory)
	if err != nil {
		log.Fatalf("Failed to create report store: %v", err)
	}

	var monitorOpts []scenario.MonitorOption
	if cfg.Metrics.Enabled {
		monitorOpts = append(monitorOpts, scenario.WithRegressionCounter(prometheus.DefaultRegisterer))
	}
	monitor := scenario.NewMonitor(log, monitorOpts...)
	if cfg.Monitor.Enabled {
		if err := scenario.SetupCoreMetricsMonitoring(monitor, set, cfg.Monitor.Interval); err != nil {
			log.Fatalf("Failed to set up monitoring: %v", err)
		}
		if err := monitor.Start(ctx); err != nil {
			log.Fatalf("Failed to start monitoring: %v", err)
		}
		defer monitor.Stop()
	}

	router := mux.NewRouter()
	handler := harness.NewHTTPHandler(runner, store, simulator, set, log)
	handler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}

	log.Info("corebench stopped")
}

func runBenchmarks() {
	cfg := loadConfig()
	log := logger.New(cfg.Logging)

	set := buildComponents(cfg, log)
	runner := buildRunner(cfg, log)

	suite, err := runner.RunAll(context.Background(), set)
	if err != nil {
		log.Fatalf("Benchmark run failed: %v", err)
	}

	store, err := benchmark.NewStore(log, cfg.Reports.Directory)
	if err != nil {
		log.Fatalf("Failed to create report store: %v", err)
	}
	if err := store.Save(suite); err != nil {
		log.Fatalf("Failed to save report: %v", err)
	}

	analysis := scenario.AnalyzeResults(suite)
	log.WithFields(logrus.Fields{
		"suite_id": suite.ID,
		"score":    analysis.Score,
		"critical": len(analysis.CriticalIssues),
		"warnings": len(analysis.Warnings),
	}).Info("Benchmark suite analyzed")

	data, err := benchmark.Encode(suite, benchmark.EncodingJSON)
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(data))
}

func runLoadSuite() {
	cfg := loadConfig()
	log := logger.New(cfg.Logging)

	set := buildComponents(cfg, log)
	simulator := loadsim.NewSimulator(log)

	scenarios := scenario.CreateComprehensiveTestSuite(set)
	if len(scenarios) == 0 {
		log.Fatal("No components available for load testing")
	}
	for i := range scenarios {
		scenarios[i].TotalRequests = cfg.LoadTest.TotalRequests
		scenarios[i].Concurrency = cfg.LoadTest.Concurrency
		scenarios[i].BatchDelay = cfg.LoadTest.BatchDelay
	}

	suite, err := simulator.RunSuite(context.Background(), "cli_load", scenarios)
	if err != nil {
		log.Fatalf("Load suite failed: %v", err)
	}

	log.WithFields(logrus.Fields{
		"suite_id":         suite.ID,
		"scenarios":        suite.Summary.TotalScenarios,
		"total_requests":   suite.Summary.TotalRequests,
		"avg_success_rate": suite.Summary.AvgSuccessRate,
	}).Info("Load suite completed")
}

func runAnalyze(path, format string) {
	cfg := loadConfig()
	log := logger.New(cfg.Logging)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read report: %v", err)
	}

	suite, err := benchmark.Decode(data, benchmark.Encoding(format))
	if err != nil {
		log.Fatalf("Failed to decode report: %v", err)
	}

	analysis := scenario.AnalyzeResults(suite)
	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode analysis: %v", err)
	}
	fmt.Println(string(out))
}

func runChaos(latency time.Duration, errorRate float64, resource string, targetPercent float64, duration time.Duration) {
	cfg := loadConfig()
	log := logger.New(cfg.Logging)

	opts := chaos.Options{}
	if latency > 0 {
		opts.NetworkLatency = &chaos.LatencyOptions{Delay: latency, Duration: duration}
	}
	if errorRate > 0 {
		opts.ErrorRate = &chaos.ErrorRateOptions{Percentage: errorRate, Duration: duration}
	}
	if resource != "" {
		kinds := map[string]chaos.ResourceKind{
			"memory":      chaos.ResourceMemory,
			"cpu":         chaos.ResourceCPU,
			"connections": chaos.ResourceConnections,
		}
		kind, ok := kinds[resource]
		if !ok {
			log.Fatalf("Unknown resource kind: %q", resource)
		}
		opts.ResourceExhaustion = &chaos.ResourceOptions{
			Resource:       kind,
			TargetPercent:  targetPercent,
			Duration:       duration,
			MaxConnections: cfg.Chaos.MaxConnections,
		}
	}

	injector := chaos.NewInjector(log, chaos.WithPollInterval(cfg.Chaos.PollInterval))
	if err := injector.InjectFailures(context.Background(), opts); err != nil {
		log.Fatalf("Failure injection ended with error: %v", err)
	}
	log.Info("Failure injection completed")
}

func validateConfig() {
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	logrus.Info("Configuration is valid")
}
