package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envOnly    bool
)

var rootCmd = &cobra.Command{
	Use:   "board",
	Short: "Redmine issue mirror",
	Long: `board mirrors Redmine issues into a local database and serves them over HTTP.

Running board with no subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	defaultPath := os.Getenv("BOARD_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	envOnlyDefault := false
	if raw := os.Getenv("BOARD_ENV_ONLY"); raw != "" {
		envOnlyDefault = strings.EqualFold(raw, "true") || raw == "1"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to config.yaml (env BOARD_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&envOnly, "env-only", envOnlyDefault, "skip the config file and read BOARD_* env vars only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
