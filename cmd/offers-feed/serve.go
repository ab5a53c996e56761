package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/cm-offers-feed/pkg/client"
	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/metrics"
	"github.com/Sternrassler/cm-offers-feed/pkg/postage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, metrics and postage lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           newMux(a),
			ReadHeaderTimeout: 10 * time.Second,
		}
		httpLog := logging.NewLogger(logging.ComponentHTTPServ)

		errCh := make(chan error, 1)
		go func() {
			httpLog.Info().Str("addr", srv.Addr).Str("user_agent", cfg.HTTP.UserAgent).Msg("Starting server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		httpLog.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/postage", postageHandler(a))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// postageResponse is the body of /postage.
type postageResponse struct {
	ID          string           `json:"id"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	YearUpdated int              `json:"yearUpdated"`
	Tracked     bool             `json:"tracked"`
	Cheapest    *postage.Option  `json:"cheapest,omitempty"`
	Label       string           `json:"label,omitempty"`
	Options     []postage.Option `json:"postageOptions"`
}

// postageHandler answers /postage?from=<country>&to=<country>&tracked=<bool>.
func postageHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := parseCountry(q.Get("from"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		to, err := parseCountry(q.Get("to"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tracked := false
		if v := q.Get("tracked"); v != "" {
			if tracked, err = strconv.ParseBool(v); err != nil {
				http.Error(w, "invalid tracked value", http.StatusBadRequest)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		record, err := a.cache.Lookup(ctx, from, to)
		if errors.Is(err, postage.ErrNoEstimate) {
			status := http.StatusBadGateway
			if client.Transient(err) {
				status = http.StatusServiceUnavailable
				w.Header().Set("Retry-After", "30")
			}
			http.Error(w, err.Error(), status)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := postageResponse{
			ID:          record.ID,
			From:        country.Name(from),
			To:          country.Name(to),
			YearUpdated: record.YearUpdated,
			Tracked:     tracked,
			Options:     record.Options,
		}
		if opt, ok := postage.SelectCheapest(record, tracked); ok {
			resp.Cheapest = &opt
			resp.Label = opt.Label()
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn().Err(err).Msg("Failed to write postage response")
		}
	}
}
