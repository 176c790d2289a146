package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BYTE-6D65/timemaster/pkg/engine"
	"github.com/BYTE-6D65/timemaster/pkg/prefs"
	"github.com/BYTE-6D65/timemaster/pkg/render"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "timemaster",
		Short: "Clock, stopwatch, countdown timer and sand timer for the terminal",
		Long: `timemaster is a small time utility with four tabs:

  Clock      analog face and HH:MM:SS readout
  Stopwatch  start, stop, laps
  Timer      minutes:seconds countdown with pause and a finish alert
  Sand       30 second sand timer

Every setting can come from flags, TIMEMASTER_* environment variables
or a YAML file given with --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := engine.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to this file (debug level defaults to "+engine.DefaultLogPath()+")")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9090")

	for key, flag := range map[string]string{
		"log_level":    "log-level",
		"log_file":     "log-file",
		"metrics_addr": "metrics-addr",
	} {
		// Lookup cannot fail for flags defined above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newVersionCmd(), newConfigCmd(v, &configFile))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and platform information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "timemaster v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := engine.Load(v, *configFile)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func run(ctx context.Context, cfg engine.Config) error {
	logger, closeLog, err := engine.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	metrics := telemetry.Default()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, metrics, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	store := openPrefs(cfg.PrefsFile, logger)
	fallback := prefs.ThemeLight
	if lipgloss.HasDarkBackground() {
		fallback = prefs.ThemeDark
	}
	theme := prefs.Theme(store, fallback)

	eng, err := engine.New(
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	p := newProgram(eng, newModel(eng, store, theme, logger), tea.WithAltScreen(), tea.WithContext(ctx))

	if err := eng.Start(); err != nil {
		return err
	}

	_, runErr := p.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// newProgram wires engine output into a program for m. The engine delivers
// frames and flashes on scheduler and bus goroutines, never on the caller
// of Start or inside Update, so the blocking Send cannot stall the event
// loop.
func newProgram(eng *engine.Engine, m model, opts ...tea.ProgramOption) *tea.Program {
	p := tea.NewProgram(m, opts...)
	eng.OnFrame(func(f render.Frame) { p.Send(frameMsg(f)) })
	eng.OnFlash(func(d time.Duration) { p.Send(flashMsg{duration: d}) })
	return p
}

// openPrefs falls back to an in-memory store so a broken preferences file
// only costs the saved theme.
func openPrefs(path string, logger *log.Logger) prefs.Store {
	if path == "" {
		path = prefs.DefaultPath()
	}

	store, err := prefs.OpenFile(path)
	if err != nil {
		logger.Warn("preferences unavailable, using defaults", "path", path, "err", err)
		return prefs.NewMemoryStore()
	}
	return store
}

func serveMetrics(addr string, metrics *telemetry.Metrics, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "err", err)
		}
	}()
	return srv
}
