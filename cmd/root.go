package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "choropleth",
	Short: "Build choropleth maps from an area table and a boundary shapefile",
	Long:  "Loads an XLSX/CSV table of values keyed by area code and a polygon shapefile, joins them, bins the values into colors and writes or serves a Leaflet map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		commandLogger(cmd).Debug("config loaded",
			zap.String("log_level", cfg.Log.Level),
			zap.String("classify_mode", cfg.Classify.Mode),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// commandLogger tags the global logger with the CLI component and the
// running subcommand.
func commandLogger(cmd *cobra.Command) *zap.Logger {
	return zap.L().With(zap.String("component", "cli"), zap.String("command", cmd.Name()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
