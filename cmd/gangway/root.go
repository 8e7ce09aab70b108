package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/adapters/file"
	"github.com/gangwayhq/gangway/pkg/adapters/redis"
	"github.com/gangwayhq/gangway/pkg/ports"
	"github.com/gangwayhq/gangway/pkg/registry"
)

var rootCmd = &cobra.Command{
	Use:   "gangway",
	Short: "Gangway is an employee onboarding flow controller",
	Long:  `Gangway drives dependency-gated onboarding wizards: it syncs progress to an HR backend in the background while keeping a local durable cache as the source of truth for the session.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("api", "http://localhost:8610", "Base URL of the onboarding backend")
	rootCmd.PersistentFlags().String("cache-dir", ".gangway/cache", "Directory for the local file cache")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for the local cache (overrides --cache-dir)")
	rootCmd.PersistentFlags().String("registry", "", "Path to a YAML step registry (default: built-in steps)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// newLogger builds the logger from the --verbose flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return logging.New(level)
}

// loadRegistry resolves the step registry from the --registry flag.
func loadRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	path, _ := cmd.Flags().GetString("registry")
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadYAMLFile(path)
}

// newStore picks the local cache backend from the persistent flags.
func newStore(cmd *cobra.Command) ports.BlobStore {
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		return redis.New(addr, "", 0)
	}
	dir, _ := cmd.Flags().GetString("cache-dir")
	return file.New(dir)
}
