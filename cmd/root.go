package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cityobj",
	Short: "Resolve urban objects mentioned in text to OSM geometry",
	Long:  "Extracts named and numbered urban objects from Russian text, fuzzy-matches them against an OpenStreetMap catalog for a region, and writes the matched geometry.",
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
