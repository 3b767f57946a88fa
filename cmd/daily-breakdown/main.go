package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iwvelando/daily-breakdown/internal/config"
	"github.com/iwvelando/daily-breakdown/internal/forecast"
	"github.com/iwvelando/daily-breakdown/internal/server"
	"github.com/iwvelando/daily-breakdown/pkg/constants"
	"github.com/iwvelando/daily-breakdown/pkg/output"
	"github.com/iwvelando/daily-breakdown/pkg/seasonality"
	"github.com/iwvelando/daily-breakdown/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set via -ldflags at build time.
var version = "dev"

// Environment variables consulted when the matching flag is not given. A
// .env file in the working directory is loaded first.
const (
	envConfig       = "DAILY_BREAKDOWN_CONFIG"
	envServerConfig = "DAILY_BREAKDOWN_SERVER_CONFIG"
	envLogLevel     = "DAILY_BREAKDOWN_LOG_LEVEL"
	envAddress      = "DAILY_BREAKDOWN_ADDRESS"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "daily-breakdown",
		Short: "Split monthly targets into daily targets",
		Long: `daily-breakdown distributes monthly business targets across the days of
each month using weekly and monthly seasonality and a growth curve, either
a fixed smooth curve or one estimated from historical actuals.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newPatternsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// flagOrEnv returns the flag value when it was set explicitly, then the
// environment variable, then the flag default.
func flagOrEnv(cmd *cobra.Command, name, env string) string {
	value, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) {
		return value
	}
	if fromEnv := strings.TrimSpace(os.Getenv(env)); fromEnv != "" {
		return fromEnv
	}
	return value
}

// --- Run Command ---

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the daily breakdown for every active scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			configLocation := flagOrEnv(cmd, "config", envConfig)
			outputFormatFlag, _ := cmd.Flags().GetString("output-format")
			summary, _ := cmd.Flags().GetBool("summary")
			return runBreakdown(cmd.Context(), cmd.OutOrStdout(), configLocation, outputFormatFlag,
				flagOrEnv(cmd, "log-level", envLogLevel), summary)
		},
	}
	cmd.Flags().String("config", constants.DefaultConfigFile, "path to configuration file")
	cmd.Flags().String("output-format", "", "type of output override: pretty, csv, json")
	cmd.Flags().Bool("summary", false, "print the per-scenario quality summary after the results")
	return cmd
}

func runBreakdown(ctx context.Context, w io.Writer, configLocation, outputFormatFlag, logLevel string, summary bool) error {
	conf, err := config.LoadConfiguration(configLocation)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
	}

	logger, err := initializeLogger(conf.Logging, logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if outputFormatFlag != "" {
		outputFormat = outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	if err := conf.Validate(); err != nil {
		logger.Error("invalid configuration",
			zap.String("op", "main.runBreakdown"),
			zap.Error(err),
		)
		return err
	}

	inputs, err := conf.LoadInputs(true)
	if err != nil {
		logger.Error("failed to load inputs",
			zap.String("op", "main.runBreakdown"),
			zap.Error(err),
		)
		return err
	}

	for _, warning := range conf.ValidateConfiguration(inputs) {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runBreakdown"),
		)
	}

	results, err := forecast.GetForecast(ctx, logger, conf, inputs)
	if err != nil {
		logger.Error("failed to compute breakdown",
			zap.String("op", "main.runBreakdown"),
			zap.Error(err),
		)
		return err
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		err = output.PrettyFormat(w, results)
	case constants.OutputFormatCSV:
		err = output.CsvFormat(w, results)
	case constants.OutputFormatJSON:
		err = output.JSONFormat(w, results)
	}
	if err != nil {
		return err
	}

	if summary || conf.Output.Summary {
		return output.SummaryFormat(w, results)
	}
	return nil
}

// --- Serve Command ---

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the breakdown API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConf, err := server.LoadConfig(flagOrEnv(cmd, "server-config", envServerConfig))
			if err != nil {
				return err
			}
			if address := flagOrEnv(cmd, "address", envAddress); address != "" {
				serverConf.Address = address
			}

			logger, err := initializeLogger(serverConf.Logging, flagOrEnv(cmd, "log-level", envLogLevel))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, serverConf)
		},
	}
	cmd.Flags().String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().String("address", "", "listen address override")
	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, conf *server.Config) error {
	srv := &http.Server{
		Addr:         conf.Address,
		Handler:      server.NewHandler(logger, conf.UploadSizeBytes(), version),
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.serve"),
			zap.String("address", conf.Address),
			zap.Int64("max_upload_bytes", conf.UploadSizeBytes()),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server",
		zap.String("op", "main.serve"),
		zap.Duration("timeout", conf.ShutdownTimeout),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// --- Patterns Command ---

func newPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the seasonality patterns available to scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := seasonality.NewRegistry()
			if configLocation, _ := cmd.Flags().GetString("config"); configLocation != "" {
				conf, err := config.LoadConfiguration(configLocation)
				if err != nil {
					return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
				}
				if registry, err = conf.Registry(); err != nil {
					return err
				}
			}
			return printPatterns(cmd.OutOrStdout(), registry)
		},
	}
	cmd.Flags().String("config", "", "include the custom patterns of this configuration file")
	return cmd
}

func printPatterns(w io.Writer, registry *seasonality.Registry) error {
	for _, name := range registry.WeeklyNames() {
		coefficients, err := registry.Weekly(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "weekly  %-20s %v\n", name, coefficients)
	}
	for _, name := range registry.MonthlyNames() {
		coefficients, err := registry.Monthly(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "monthly %-20s %v\n", name, coefficients)
	}
	return nil
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "daily-breakdown %s\n", version)
		},
	}
}
