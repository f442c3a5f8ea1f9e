package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"jackautoplug"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Server exposes health, metrics and the desired pairs over HTTP.
type Server struct {
	pairs    []jackautoplug.Pair
	status   StatusSource
	gatherer prometheus.Gatherer
}

func NewServer(pairs []jackautoplug.Pair, status StatusSource, gatherer prometheus.Gatherer) *Server {
	return &Server{pairs: pairs, status: status, gatherer: gatherer}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/v1/pairs", s.listPairs)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	if !s.status.Status().Activated {
		http.Error(w, "not activated", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

type pairView struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

type pairsResponse struct {
	Activated bool       `json:"activated"`
	Passes    uint64     `json:"passes"`
	LastPass  *time.Time `json:"last_pass,omitempty"`
	Pairs     []pairView `json:"pairs"`
}

func (s *Server) listPairs(w http.ResponseWriter, _ *http.Request) {
	st := s.status.Status()

	outcomes := make(map[jackautoplug.Pair]pairView, len(st.LastPass.Results))
	for _, r := range st.LastPass.Results {
		v := pairView{Outcome: r.Outcome.String()}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		outcomes[r.Pair] = v
	}

	resp := pairsResponse{
		Activated: st.Activated,
		Passes:    st.Passes,
		Pairs:     make([]pairView, 0, len(s.pairs)),
	}
	if st.Passes > 0 {
		started := st.LastPass.Started
		resp.LastPass = &started
	}
	for _, p := range s.pairs {
		v := outcomes[p]
		v.From, v.To = p.From, p.To
		resp.Pairs = append(resp.Pairs, v)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("encode pairs response", "err", err)
	}
}

// ListenAndServe serves on addr and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving introspection api", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
