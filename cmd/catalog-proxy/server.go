package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/client"
	"github.com/RaY8118/anime-recommendation/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// catalogAPI is the part of the catalog client the gateway serves.
type catalogAPI interface {
	FetchChunk(ctx context.Context, chunkIndex, chunkSize int, filters catalog.FilterSet) (*catalog.Page, error)
	Genres(ctx context.Context) ([]string, error)
}

// pinger reports whether a dependency is reachable.
type pinger func(ctx context.Context) error

// routerConfig holds the gateway routing settings.
type routerConfig struct {
	DefaultPerPage    int
	RequestsPerMinute int
	RequestTimeout    time.Duration
}

func newRouter(api catalogAPI, ready pinger, cfg routerConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(ready))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		r.Get("/animes", animesHandler(api, cfg.DefaultPerPage))
		r.Get("/animes/genres", genresHandler(api))
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(ready pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func animesHandler(api catalogAPI, defaultPerPage int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, page, perPage, err := catalog.ParseQuery(r.URL.Query(), defaultPerPage)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		result, err := api.FetchChunk(r.Context(), page, perPage, filters)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func genresHandler(api catalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genres, err := api.Genres(r.Context())
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, catalog.GenresResponse{Genres: genres})
	}
}

// writeUpstreamError maps catalog client failures to gateway responses.
// Client errors keep their status; an open circuit is 503; anything else
// is 502.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var catalogErr *client.CatalogError
	switch {
	case errors.Is(err, client.ErrCircuitOpen):
		writeDetail(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
	case errors.As(err, &catalogErr) && catalogErr.ErrorClass == client.ErrorClassClient && catalogErr.StatusCode > 0:
		writeDetail(w, catalogErr.StatusCode, catalogErr.Message)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded):
		writeDetail(w, http.StatusGatewayTimeout, "catalog request timed out")
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Catalog request failed")
		writeDetail(w, http.StatusBadGateway, "catalog request failed")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// requestLogger attaches a request-scoped logger and logs each request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Logger()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(reqLogger.WithContext(r.Context())))

			reqLogger.Debug().
				Str("method", r.Method).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}
