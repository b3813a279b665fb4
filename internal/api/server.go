// Package api serves the point-query and map endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chromasky/internal/ingest"
	"chromasky/internal/narrative"
	"chromasky/internal/render"
	"chromasky/internal/score"
	"chromasky/internal/store"
)

type Server struct {
	store     *store.Store
	source    ingest.SnapshotSource
	scorer    *score.Scorer
	cache     *render.Cache
	windows   *ingest.Windows
	narrative *narrative.Generator
	port      string
}

func NewServer(st *store.Store, src ingest.SnapshotSource, cache *render.Cache, windows *ingest.Windows, port string) *Server {
	return &Server{
		store:     st,
		source:    src,
		scorer:    score.NewScorer(),
		cache:     cache,
		windows:   windows,
		narrative: narrative.NewGenerator(),
		port:      port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chromasky", s.handlePointQuery)
	mux.HandleFunc("/api/v1/map/", s.handleMapField)
	mux.HandleFunc("/maps/", s.handleMapImage)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
