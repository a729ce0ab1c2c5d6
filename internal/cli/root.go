// Package cli implements the memori-store CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/memori-store/internal/config"
	"github.com/rcliao/memori-store/internal/memory"
)

var (
	configPath string
	dbFlag     string
	nsFlag     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memori-store",
	Short: "Short-term and long-term memory for AI agents",
	Long:  "Store chat history and memories per namespace, search them, and inspect usage. SQLite-backed by default; Badger via badger:// descriptors.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $MEMORI_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbFlag, "db", "d", "", "Store descriptor, e.g. sqlite:///path/memori.db (overrides config)")
	RootCmd.PersistentFlags().StringVarP(&nsFlag, "ns", "n", "", "Namespace (overrides config)")
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("MEMORI_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if dbFlag != "" {
		cfg.Database = dbFlag
	}
	if nsFlag != "" {
		cfg.Namespace = nsFlag
	}
	return cfg, cfg.Validate()
}

// openEngine loads the config and builds an engine logging to stderr.
func openEngine() (*memory.Engine, config.Config) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	e, err := memory.New(cfg, memory.WithLogger(logger))
	if err != nil {
		exitErr("open engine", err)
	}
	return e, cfg
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
