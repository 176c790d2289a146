package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/engine"
)

// TestCase defines the interface for all behavior tests.
type TestCase interface {
	// Name returns the test name (e.g., "1.2: Countdown Finishes Once")
	Name() string

	// Category returns the test category (e.g., "Countdown Timer")
	Category() string

	// Description returns a brief description of what the test validates
	Description() string

	// Setup prepares the test environment (creates engine, subscribes to events)
	Setup(ctx context.Context) error

	// Run executes the test procedure
	Run(ctx context.Context) error

	// Teardown cleans up resources
	Teardown() error

	// Validate checks pass/fail criteria and returns result
	Validate() *TestResult
}

// TestResult contains the outcome of a test execution.
type TestResult struct {
	TestName   string
	Category   string
	Passed     bool
	Duration   time.Duration
	StartTime  time.Time
	EndTime    time.Time
	Assertions []*Assertion
	Metrics    map[string]any
	Errors     []error
	Warnings   []string
}

// Assertion represents a single pass/fail check.
type Assertion struct {
	Name     string
	Expected any
	Actual   any
	Passed   bool
	Message  string
}

// NewTestResult creates a new test result.
func NewTestResult(testName, category string) *TestResult {
	return &TestResult{
		TestName:   testName,
		Category:   category,
		Passed:     true, // Assume pass until assertion fails
		Assertions: make([]*Assertion, 0),
		Metrics:    make(map[string]any),
		Errors:     make([]error, 0),
		Warnings:   make([]string, 0),
		StartTime:  time.Now(),
	}
}

// AddAssertion adds an assertion to the result. A failed assertion fails
// the test.
func (r *TestResult) AddAssertion(a *Assertion) {
	r.Assertions = append(r.Assertions, a)
	if !a.Passed {
		r.Passed = false
	}
}

// AddMetric adds a metric to track.
func (r *TestResult) AddMetric(name string, value any) {
	r.Metrics[name] = value
}

// AddError adds an error (doesn't necessarily fail the test).
func (r *TestResult) AddError(err error) {
	r.Errors = append(r.Errors, err)
	r.Passed = false // Any error = test failure
}

// AddWarning adds a warning (doesn't fail the test).
func (r *TestResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Finish marks the test as complete and calculates duration.
func (r *TestResult) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// PassedAssertions returns the number of passed assertions.
func (r *TestResult) PassedAssertions() int {
	count := 0
	for _, a := range r.Assertions {
		if a.Passed {
			count++
		}
	}
	return count
}

// FailedAssertions returns the number of failed assertions.
func (r *TestResult) FailedAssertions() int {
	return len(r.Assertions) - r.PassedAssertions()
}

// String returns a human-readable summary.
func (r *TestResult) String() string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	return fmt.Sprintf("[%s] %s (%s)", status, r.TestName, r.Duration)
}

// BaseTestCase provides common functionality for tests.
// Embed this in your test implementations.
type BaseTestCase struct {
	engine *engine.Engine
	config engine.Config
	result *TestResult
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBaseTestCase creates a new base test case.
func NewBaseTestCase() *BaseTestCase {
	return &BaseTestCase{
		result: NewTestResult("", ""),
	}
}

// Engine returns the test engine.
func (b *BaseTestCase) Engine() *engine.Engine {
	return b.engine
}

// Result returns the test result.
func (b *BaseTestCase) Result() *TestResult {
	return b.result
}

// Config returns the configuration the engine was built with.
func (b *BaseTestCase) Config() engine.Config {
	return b.config
}

// Context returns the test context.
func (b *BaseTestCase) Context() context.Context {
	return b.ctx
}

// SetupEngine creates and starts an engine on the system clock and real
// scheduler. Audible notifications are always disabled.
func (b *BaseTestCase) SetupEngine(ctx context.Context, cfg engine.Config, opts ...engine.EngineOption) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.result.StartTime = time.Now()

	cfg.Sound = false
	cfg.Bell = false
	b.config = cfg

	eng, err := engine.New(append([]engine.EngineOption{engine.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	b.engine = eng

	if err := eng.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	return nil
}

// LoadConfig returns the environment config, or defaults if it is invalid.
func LoadConfig() engine.Config {
	cfg, err := engine.LoadFromEnv()
	if err != nil {
		return engine.DefaultConfig()
	}
	return cfg
}

// TeardownEngine shuts down the engine.
func (b *BaseTestCase) TeardownEngine() error {
	if b.cancel != nil {
		b.cancel()
	}

	if b.engine != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return b.engine.Shutdown(shutdownCtx)
	}

	return nil
}

// Assert adds an assertion to the result.
func (b *BaseTestCase) Assert(name string, expected, actual any, passed bool, message string) {
	b.result.AddAssertion(&Assertion{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Message:  message,
	})
}

// Metric adds a metric to track.
func (b *BaseTestCase) Metric(name string, value any) {
	b.result.AddMetric(name, value)
}

// Error adds an error to the result.
func (b *BaseTestCase) Error(err error) {
	b.result.AddError(err)
}

// Warning adds a warning to the result.
func (b *BaseTestCase) Warning(msg string) {
	b.result.AddWarning(msg)
}
