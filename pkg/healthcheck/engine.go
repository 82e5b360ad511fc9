package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine runs registered health checks on demand.
type Engine struct {
	checkers map[string]Checker
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewEngine creates a new health check engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		checkers: make(map[string]Checker),
		logger:   logger,
	}
}

// Register adds a health checker to the engine.
func (e *Engine) Register(checker Checker) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := checker.Name()
	e.checkers[name] = checker
	e.logger.Info("Registered health checker", zap.String("component", name))
}

// Unregister removes a health checker from the engine.
func (e *Engine) Unregister(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.checkers, name)
}

// CheckAll runs all registered health checks and aggregates the results.
func (e *Engine) CheckAll(ctx context.Context) *AggregatedResult {
	e.mu.RLock()
	checkers := make(map[string]Checker, len(e.checkers))
	for k, v := range e.checkers {
		checkers[k] = v
	}
	e.mu.RUnlock()

	results := make(map[string]*Result, len(checkers))
	var wg sync.WaitGroup
	var resultsMu sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(n string, c Checker) {
			defer wg.Done()

			start := time.Now()
			result := c.Check(ctx)
			result.Duration = time.Since(start)

			resultsMu.Lock()
			results[n] = result
			resultsMu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	return &AggregatedResult{
		OverallStatus: DetermineOverallStatus(results),
		Components:    results,
		Timestamp:     time.Now(),
	}
}
