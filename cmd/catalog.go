package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/output"
)

var (
	catalogRegion string
	catalogOutput string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build a region's reference catalog and dump it as GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		cat, err := env.Builder.Build(ctx, catalogRegion)
		if err != nil {
			return err
		}
		zap.L().Info("catalog built", zap.String("region", catalogRegion), zap.Int("entries", cat.Len()))

		if catalogOutput == "" {
			return output.WriteCatalog(cmd.OutOrStdout(), cat)
		}
		f, err := os.Create(catalogOutput)
		if err != nil {
			return eris.Wrap(err, "create catalog file")
		}
		if err := output.WriteCatalog(f, cat); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		return eris.Wrap(f.Close(), "close catalog file")
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogRegion, "region", "", "OSM relation id (overpass) or shapefile basename (required)")
	catalogCmd.Flags().StringVar(&catalogOutput, "output", "", "output GeoJSON file (default stdout)")
	_ = catalogCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(catalogCmd)
}
