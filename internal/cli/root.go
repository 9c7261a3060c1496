// Package cli implements the multiwin command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/multiwin/internal/app"
	"github.com/dshills/multiwin/internal/config"
	xlog "github.com/dshills/multiwin/internal/log"
	"github.com/dshills/multiwin/internal/telemetry"
)

// NewRootCmd creates the root command. Running it starts the application.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multiwin",
		Short: "Multi-window trace viewer with coordinated shutdown",
		Long: "multiwin runs a background trace producer, a main window and an optional\n" +
			"status window, and shuts them down in order when the main window closes.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, version)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Path to a .toml or .yaml config file")
	cmd.Flags().String("log-level", "", "Log level (overrides config)")
	cmd.Flags().String("log-file", "", "Write logs to this file instead of stderr")
	cmd.Flags().Bool("headless", false, "Run without the terminal UI")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("otlp-endpoint", "", "Export shutdown traces to this OTLP/HTTP collector")
	cmd.Flags().Bool("otlp-insecure", true, "Use plain HTTP for the OTLP collector")
	cmd.Flags().Duration("run-for", 0, "Request shutdown after this long (0 runs until closed)")

	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("multiwin version %s\n", version))
	cmd.AddCommand(NewVersionCmd(version))
	return cmd
}

func runApp(cmd *cobra.Command, version string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	runFor, _ := flags.GetDuration("run-for")

	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return exitError(ExitConfig, err, "load config")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("headless") {
		cfg.UI.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return exitError(ExitConfig, err, "invalid settings")
	}

	logOut, closeLog, err := logOutput(cmd, cfg)
	if err != nil {
		return exitError(ExitConfig, err, "open log file")
	}
	defer closeLog()
	if err := xlog.Configure(xlog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut}); err != nil {
		return exitError(ExitConfig, err, "configure logging")
	}
	logger := xlog.WithComponent("cli")

	endpoint, _ := flags.GetString("otlp-endpoint")
	insecure, _ := flags.GetBool("otlp-insecure")
	provider, err := telemetry.NewProvider(cmd.Context(), telemetry.Config{
		Endpoint:       endpoint,
		Insecure:       insecure,
		ServiceName:    "multiwin",
		ServiceVersion: version,
	})
	if err != nil {
		return exitError(ExitError, err, "set up tracing")
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str("event", "cli.tracing_shutdown_failed").Msg("trace export did not flush")
		}
	}()

	opts := []app.Option{
		app.WithLogger(xlog.Base()),
		app.WithTracerProvider(provider.TracerProvider()),
	}
	if configPath != "" {
		opts = append(opts, app.WithConfigPath(configPath))
	}
	application, err := app.New(cfg, opts...)
	if err != nil {
		return exitError(ExitError, err, "start")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go forwardSignals(ctx, cancel, application)

	if runFor > 0 {
		timer := time.AfterFunc(runFor, application.Close)
		defer timer.Stop()
	}

	logger.Info().Str("event", "cli.start").Str("version", version).Bool("headless", cfg.UI.Headless).Msg("starting")
	if err := application.Run(ctx); err != nil {
		return exitError(ExitError, err, "run")
	}
	return nil
}

// forwardSignals turns the first SIGINT/SIGTERM into a main window close
// and a second one into an immediate stop.
func forwardSignals(ctx context.Context, cancel context.CancelFunc, application *app.Application) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			if n == 0 {
				application.Close()
				continue
			}
			cancel()
			return
		}
	}
}

// logOutput picks where logs go. A terminal UI owns stdout and stderr, so
// without a log file its logs are dropped.
func logOutput(cmd *cobra.Command, cfg config.Config) (io.Writer, func(), error) {
	path, _ := cmd.Flags().GetString("log-file")
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if cfg.UI.Headless {
		return zerolog.SyncWriter(cmd.ErrOrStderr()), func() {}, nil
	}
	return io.Discard, func() {}, nil
}
