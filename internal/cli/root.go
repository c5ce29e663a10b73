// Package cli implements the hcert command line tool.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/version"
)

var (
	logLevel  string
	appLogger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:               "hcert",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "HC1 health certificate token tool",
	Long: `hcert encodes and decodes HC1 health certificate tokens, prints certificate kids
and verifies trust lists published by hcert-server.

Log output goes to stderr so command output can be piped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appLogger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logger.ParseLogLevel(logLevel),
			TimeFormat: time.Kitchen,
		}))
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(kidCmd)
	rootCmd.AddCommand(trustListCmd)
}
