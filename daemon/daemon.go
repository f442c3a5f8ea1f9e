// Package daemon runs jackautoplug for the lifetime of the process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jackautoplug/config"
	"jackautoplug/converge"
	"jackautoplug/internal/metrics"

	systemd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// ErrRuntimeShutdown is returned by Run when the graph server goes away.
var ErrRuntimeShutdown = errors.New("jack server shut down")

// Run builds the desired pairs, opens the runtime, binds the engine to its
// notifications and blocks until ctx is cancelled or the server shuts the
// client down. Configuration errors are returned before the runtime is
// opened.
func Run(ctx context.Context, cfg config.Config, open Opener) error {
	pairs, err := cfg.Pairs()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg, len(pairs))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	rt, err := open(cfg.Name(), cfg.StartServer)
	if err != nil {
		return fmt.Errorf("open graph runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("close graph runtime", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	binding := converge.NewBinding(ctx, converge.New(pairs), m)
	slog.Info("activating", "client", cfg.Name(), "pairs", len(pairs))
	if err := rt.Activate(binding); err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	if _, err := systemd.SdNotify(false, systemd.SdNotifyReady); err != nil {
		slog.Error("Failed to notify systemd that the daemon is ready.", "err", err)
	}
	defer func() { _, _ = systemd.SdNotify(false, systemd.SdNotifyStopping) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-rt.Shutdown():
			return ErrRuntimeShutdown
		}
	})
	if cfg.Listen != "" {
		srv := NewServer(pairs, binding, reg)
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Listen) })
	}

	err = g.Wait()
	// Stop further passes before the runtime is closed.
	cancel()
	if err == nil {
		slog.Info("shutting down")
	}
	return err
}
