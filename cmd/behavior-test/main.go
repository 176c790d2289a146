package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/framework"
	"github.com/BYTE-6D65/timemaster/cmd/behavior-test/tests"
)

const suiteName = "Timemaster Real-Time Behavior Test Suite"

var errFailed = errors.New("some tests failed")

type options struct {
	all      bool
	category string
	testName string
	verbose  bool
	report   string
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "behavior-test",
		Short: "Run the timing engines against the wall clock",
		Long: `behavior-test drives the countdown, stopwatch and clock face on the
system clock and real scheduler and checks their timing end to end.

Environment variables (TIMEMASTER_*) tune the engine config as in timemaster.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.all && opts.category == "" && opts.testName == "" {
				return errors.New("must specify --all, --category, or --test")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSuite(ctx, cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.all, "all", false, "Run all tests")
	flags.StringVar(&opts.category, "category", "", "Run tests in specific category")
	flags.StringVar(&opts.testName, "test", "", "Run specific test (e.g., 1.2)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Verbose output (detailed results)")
	flags.StringVar(&opts.report, "report", "summary", "Report type: summary, detailed, json")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Timeout per test")

	return cmd
}

func runSuite(ctx context.Context, w io.Writer, opts options) error {
	testsToRun := filterTests(buildTestRegistry(), opts.all, opts.category, opts.testName)
	if len(testsToRun) == 0 {
		return errors.New("no tests match the specified criteria")
	}

	report := framework.NewTestReport(suiteName)

	fmt.Fprintf(w, "=== %s ===\n\n", suiteName)
	fmt.Fprintf(w, "Running %d test(s)...\n\n", len(testsToRun))

	for i, test := range testsToRun {
		if ctx.Err() != nil {
			fmt.Fprintln(w, "Tests interrupted by user")
			break
		}

		fmt.Fprintf(w, "[%d/%d] Running: %s...\n", i+1, len(testsToRun), test.Name())

		result := runTest(ctx, test, opts.timeout)
		report.AddResult(result)

		if result.Passed {
			fmt.Fprintf(w, "  ✅ PASS (%s)\n", result.Duration)
		} else {
			fmt.Fprintf(w, "  ❌ FAIL (%s)\n", result.Duration)
			if !opts.verbose {
				printFailures(w, result)
			}
		}
		fmt.Fprintln(w)
	}

	report.Finish()

	fmt.Fprintln(w)
	switch opts.report {
	case "summary":
		report.PrintSummary(w)
	case "detailed":
		report.PrintDetailed(w)
	case "json":
		if err := report.PrintJSON(w); err != nil {
			return fmt.Errorf("printing JSON report: %w", err)
		}
	default:
		return fmt.Errorf("unknown report type: %s", opts.report)
	}

	if report.FailedTests() > 0 {
		return errFailed
	}
	return nil
}

func printFailures(w io.Writer, result *framework.TestResult) {
	for _, assertion := range result.Assertions {
		if !assertion.Passed {
			fmt.Fprintf(w, "    ✗ %s\n", assertion.Name)
			if assertion.Message != "" {
				fmt.Fprintf(w, "      %s\n", assertion.Message)
			}
		}
	}
	for _, err := range result.Errors {
		fmt.Fprintf(w, "    ✗ %v\n", err)
	}
}

// runTest executes a single test with timeout.
func runTest(ctx context.Context, test framework.TestCase, timeout time.Duration) *framework.TestResult {
	testCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := test.Setup(testCtx); err != nil {
		result := framework.NewTestResult(test.Name(), test.Category())
		result.AddError(fmt.Errorf("setup failed: %w", err))
		result.Finish()
		return result
	}

	defer func() {
		if err := test.Teardown(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Teardown failed for %s: %v\n", test.Name(), err)
		}
	}()

	if err := test.Run(testCtx); err != nil {
		result := framework.NewTestResult(test.Name(), test.Category())
		result.AddError(fmt.Errorf("run failed: %w", err))
		result.Finish()
		return result
	}

	return test.Validate()
}

// buildTestRegistry creates the registry of all available tests.
func buildTestRegistry() []framework.TestCase {
	return []framework.TestCase{
		// Category: Countdown Timer
		tests.NewTest11ZeroRejected(),
		tests.NewTest12FinishesOnce(),
		tests.NewTest13PauseResume(),

		// Category: Stopwatch
		tests.NewTest21StopwatchAccumulation(),

		// Category: Clock Face
		tests.NewTest31RenderCadence(),
	}
}

// filterTests filters the test registry based on CLI flags. Names and
// categories match by prefix, so "1" selects every countdown test.
func filterTests(registry []framework.TestCase, all bool, category, testName string) []framework.TestCase {
	if all {
		return registry
	}

	var filtered []framework.TestCase
	for _, test := range registry {
		switch {
		case testName != "":
			if strings.HasPrefix(test.Name(), testName) {
				filtered = append(filtered, test)
			}
		case category != "":
			if strings.HasPrefix(test.Category(), category) {
				filtered = append(filtered, test)
			}
		}
	}

	return filtered
}
