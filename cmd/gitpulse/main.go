// gitpulse mirrors recent GitHub activity of tracked repositories into a
// local SQLite database and serves it as one merged timeline.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/gitpulse/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gitpulse",
		Short: "Sync and query GitHub repository activity",
		Long: `gitpulse pulls commits, pull requests, issues and reviews of tracked
repositories from GitHub into a local database and serves them as one
merged, newest-first activity timeline.

Configuration comes from GITPULSE_* environment variables, optionally
layered over a config file given with --config.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (yaml, json, toml or env)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(reposCmd())
	rootCmd.AddCommand(activityCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the default logger at the
// configured level, writing JSON to w.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})))

	return cfg, nil
}
