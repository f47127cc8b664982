package main

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/output"
	"github.com/sells-group/cityobj/internal/pipeline"
	"github.com/sells-group/cityobj/internal/store"
	"github.com/sells-group/cityobj/internal/table"
)

var (
	resolveInput      string
	resolveTextColumn string
	resolveRegion     string
	resolveOutput     string
	resolveFormat     string
	resolveDB         bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve urban objects mentioned in a table's text column",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := outputFormat(resolveFormat, resolveOutput)
		if err != nil {
			return err
		}
		if resolveDB && cfg.Store.DatabaseURL == "" {
			return eris.New("store database URL is required for --db (CITYOBJ_STORE_DATABASE_URL)")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		tbl, err := table.ReadFile(ctx, resolveInput)
		if err != nil {
			return eris.Wrap(err, "read input")
		}

		rows, err := env.Pipeline.Run(ctx, tbl, resolveTextColumn, resolveRegion)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		if err := writeRows(cmd.OutOrStdout(), resolveOutput, format, tbl.Columns, rows); err != nil {
			return err
		}

		if resolveDB {
			runID := uuid.New()
			n, err := saveRows(ctx, runID, resolveRegion, tbl.Columns, rows)
			if err != nil {
				return err
			}
			zap.L().Info("rows stored",
				zap.String("run_id", runID.String()),
				zap.Int64("rows", n),
			)
		}
		return nil
	},
}

// outputFormat picks the explicit format, else infers it from the output path.
func outputFormat(flag, path string) (output.Format, error) {
	if flag != "" {
		return output.ParseFormat(flag)
	}
	if path != "" {
		return output.FormatFromPath(path), nil
	}
	return output.FormatCSV, nil
}

// writeRows writes to path, or to stdout when path is empty.
func writeRows(stdout io.Writer, path string, format output.Format, columns []string, rows []pipeline.ResolvedRow) error {
	if path == "" {
		return output.Write(stdout, format, columns, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	if err := output.Write(f, format, columns, rows); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "close output file")
}

func saveRows(ctx context.Context, runID uuid.UUID, region string, columns []string, rows []pipeline.ResolvedRow) (int64, error) {
	pool, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	sink := store.NewResultSink(pool, cfg.Store.Schema, cfg.Store.Table)
	if err := sink.Migrate(ctx); err != nil {
		return 0, err
	}
	return sink.Write(ctx, runID, region, columns, rows)
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInput, "input", "", "input CSV, TSV or XLSX file (required)")
	resolveCmd.Flags().StringVar(&resolveTextColumn, "text-column", "text", "column holding the text to analyse")
	resolveCmd.Flags().StringVar(&resolveRegion, "region", "", "OSM relation id (overpass) or shapefile basename (required)")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "", "output file (default stdout)")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "", "output format: csv, json, geojson, xlsx (default from --output extension)")
	resolveCmd.Flags().BoolVar(&resolveDB, "db", false, "also store resolved rows in PostGIS")
	_ = resolveCmd.MarkFlagRequired("input")
	_ = resolveCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(resolveCmd)
}
