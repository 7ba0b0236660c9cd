package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sitescout",
	Short: "Data-center site suitability scoring",
	Long:  "Ingests land-parcel polygons (GeoJSON or shapefile), scores each 0-100 for data-center siting, and serves ranked, color-tiered results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
