package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"nullfix/internal/config"
	"nullfix/internal/logging"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "nullfix",
		Short:         "Infer and apply nullability annotations with a depth-bounded checker loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &config.Error{Field: "command", Err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return &config.Error{Field: "command", Err: errors.New("command not specified")}
		},
	}
	configPath string
	reportDB   string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "nullfix.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&reportDB, "report-db", "", "Path to the SQLite run report (overrides report.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(reportCmd)
}

// exitCode separates bad input from failed runs.
func exitCode(err error) int {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

// loadConfig reads the config file and applies the persistent flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if reportDB != "" {
		cfg.Report.DB = reportDB
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logging.Stderr(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, &config.Error{Field: "log", Err: err}
	}
	return logger, nil
}

// exactArgs wraps cobra argument errors so they exit like configuration
// errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &config.Error{Field: cmd.Name(), Err: err}
		}
		return nil
	}
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return &config.Error{Field: cmd.Name(), Err: err}
		}
		return nil
	}
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &config.Error{Field: "index", Err: fmt.Errorf("want a non-negative integer, got %q", s)}
	}
	return n, nil
}
