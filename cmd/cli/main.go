package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medstat/adapters/statsapi"
	"medstat/internal"
)

// globalOptions are shared by the commands that call the stats API
type globalOptions struct {
	apiURL   string
	timeout  time.Duration
	logLevel string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "medstat-cli",
		Short:         "MedStat CLI for previewing datasets and running analyses against the stats API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("STATS_API_URL", "http://localhost:8100"), "Stats API base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "WARN"), "Log level: ERROR|WARN|INFO|DEBUG|TRACE")

	rootCmd.AddCommand(
		newPreviewCmd(),
		newUploadCmd(opts),
		newREDCapCmd(opts),
		newRunCmd(opts),
	)
	return rootCmd
}

func (o *globalOptions) logger() *internal.Logger {
	return internal.NewLogger(internal.ParseLogLevel(o.logLevel))
}

func (o *globalOptions) client() *statsapi.Client {
	return statsapi.NewClient(o.apiURL, o.timeout, o.logger())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
