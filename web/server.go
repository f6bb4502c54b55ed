package web

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/effibem/bemviewer/status"
	"github.com/effibem/bemviewer/viewer"
)

//go:embed data
var staticFiles embed.FS

const shutdownTimeout = 5 * time.Second

// Server exposes a viewer to a browser page.
type Server struct {
	Viewer   *viewer.Viewer
	Viewport *viewer.Viewport
	Hub      *status.Hub
	// Gatherer backs /metrics, the route is absent when nil.
	Gatherer prometheus.Gatherer
	// SourceRoot is the directory /api/load may read local documents from.
	// Empty allows http(s) urls only.
	SourceRoot string
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load", s.HandlerLoad).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.HandlerUpload).Methods(http.MethodPost)
	api.HandleFunc("/filter/{category}/{state}", s.HandlerFilter).Methods(http.MethodPost)
	api.HandleFunc("/story", s.HandlerStory).Methods(http.MethodPost)
	api.HandleFunc("/renderby/{mode}", s.HandlerRenderBy).Methods(http.MethodPost)
	api.HandleFunc("/edges/{state}", s.HandlerEdges).Methods(http.MethodPost)
	api.HandleFunc("/diagnostics/{kind}/{state}", s.HandlerDiagnostics).Methods(http.MethodPost)
	api.HandleFunc("/pick", s.HandlerPick).Methods(http.MethodPost)
	api.HandleFunc("/resize", s.HandlerResize).Methods(http.MethodPost)
	api.HandleFunc("/state", s.HandlerState).Methods(http.MethodGet)

	r.HandleFunc("/frame.png", s.HandlerFrame).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandlerWebsocket)
	r.HandleFunc("/debug/scene", s.HandlerDebugScene).Methods(http.MethodGet)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	data, err := fs.Sub(staticFiles, "data")
	if err != nil {
		panic(err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(data)))

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.LoggingHandler(os.Stdout, h)
}

// StartServer serves until ctx is done, then shuts down gracefully.
func StartServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("[web] Starting server %v", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Printf("[web] Stopping server %v", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
