package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/metrics"
	"github.com/sells-group/cityobj/internal/output"
	"github.com/sells-group/cityobj/internal/pipeline"
	"github.com/sells-group/cityobj/internal/table"
)

var servePort int

// resolver runs the pipeline over a table.
type resolver interface {
	Run(ctx context.Context, tbl *table.Table, textColumn, regionID string) ([]pipeline.ResolvedRow, error)
}

// resolveRequest is the body of POST /v1/resolve. Columns fixes the column
// order of the response; when empty, the union of the row keys is used in
// sorted order.
type resolveRequest struct {
	Region     string              `json:"region"`
	TextColumn string              `json:"text_column"`
	Columns    []string            `json:"columns,omitempty"`
	Rows       []map[string]string `json:"rows"`
}

type resolveResponse struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resolve API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Pipeline, cfg.Server.AllowedOrigins, env.Metrics, env.Registry),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// buildRouter mounts the API. When m is non-nil requests are counted and
// GET /metrics serves g.
func buildRouter(p resolver, origins []string, m *metrics.Metrics, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler(g))
	}
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/resolve", func(w http.ResponseWriter, req *http.Request) {
		var body resolveRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Region == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "region is required"})
			return
		}
		if body.TextColumn == "" {
			body.TextColumn = "text"
		}
		columns := body.Columns
		if len(columns) == 0 {
			columns = recordColumns(body.Rows)
		}

		tbl := table.FromRecords(columns, body.Rows)
		if _, err := tbl.ColumnIndex(body.TextColumn); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		rows, err := p.Run(req.Context(), tbl, body.TextColumn, body.Region)
		if err != nil {
			zap.L().Error("resolve request failed", zap.String("region", body.Region), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}

		recs, err := output.Records(tbl.Columns, rows)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, resolveResponse{Columns: output.Columns(tbl.Columns), Rows: recs})
	})

	return r
}

func recordColumns(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
