package scenario

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/corebench/internal/components"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCreateComprehensiveTestSuite_FullSet(t *testing.T) {
	set := components.Set{
		Cache:       components.NewMemoryCache(),
		RateLimiter: components.NewMemoryRateLimiter(),
		Logger:      components.NewLogrusAdapter(quietLogger()),
		Validator:   components.NewPlaygroundValidator(),
	}

	scenarios := CreateComprehensiveTestSuite(set)
	require.Len(t, scenarios, 5)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
		assert.NotNil(t, s.Operation)
		assert.Greater(t, s.TotalRequests, 0)
		assert.Greater(t, s.Concurrency, 0)
	}
	assert.Equal(t, "integration_load", names[len(names)-1])
}

func TestCreateComprehensiveTestSuite_SingleComponentSkipsIntegration(t *testing.T) {
	scenarios := CreateComprehensiveTestSuite(components.Set{
		Cache: components.NewMemoryCache(),
	})
	require.Len(t, scenarios, 1)
	assert.Equal(t, "cache_load", scenarios[0].Name)
}

func TestCreateComprehensiveTestSuite_EmptySet(t *testing.T) {
	assert.Empty(t, CreateComprehensiveTestSuite(components.Set{}))
}

func TestCacheScenarioOperationSucceeds(t *testing.T) {
	scenario := CreateCacheTestScenario(components.NewMemoryCache())
	for i := 0; i < 50; i++ {
		assert.NoError(t, scenario.Operation(context.Background()))
	}
}

func TestRateLimitScenarioDeniedIsSuccess(t *testing.T) {
	scenario := CreateRateLimitTestScenario(components.NewMemoryRateLimiter())
	// Far more hits than the scenario limit; denials must not error.
	for i := 0; i < 1000; i++ {
		assert.NoError(t, scenario.Operation(context.Background()))
	}
}

func TestValidationScenarioOperationSucceeds(t *testing.T) {
	scenario := CreateValidationTestScenario(components.NewPlaygroundValidator())
	for i := 0; i < 50; i++ {
		assert.NoError(t, scenario.Operation(context.Background()))
	}
}

func TestIntegrationScenarioOperationSucceeds(t *testing.T) {
	set := components.Set{
		Cache:       components.NewMemoryCache(),
		RateLimiter: components.NewMemoryRateLimiter(),
		Logger:      components.NewLogrusAdapter(quietLogger()),
		Validator:   components.NewPlaygroundValidator(),
	}
	scenario := createIntegrationScenario(set)
	for i := 0; i < 100; i++ {
		assert.NoError(t, scenario.Operation(context.Background()))
	}
}
