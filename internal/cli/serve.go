package cli

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mycoledger/internal/core"
	"mycoledger/pkg/domain"
)

// NewServeMetricsCommand serves ledger gauges for Prometheus.
func NewServeMetricsCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve ledger gauges on /metrics and expvar on /debug/vars",
		Long: `Serve ledger gauges on /metrics. Durable stores are re-read through one
open handle on every scrape, so the gauges follow writes made by other
mycoledger processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.runtime(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = rt.cfg.Metrics.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on http://%s/metrics\n", ln.Addr())
			return serveMetrics(cmd.Context(), ln, rt)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to metrics.addr)")
	return cmd
}

// snapshotReader is implemented by durable stores that can re-read committed
// state through their open handle.
type snapshotReader interface {
	ReadSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// snapshotSource reads through the runtime's store, which stays open until
// the runtime closes after the server stops.
func snapshotSource(rt *runtime) core.SnapshotSource {
	if r, ok := rt.store.(snapshotReader); ok {
		return r.ReadSnapshot
	}
	return func(context.Context) (domain.Snapshot, error) { return rt.svc.ExportState(), nil }
}

func metricsHandler(rt *runtime) (http.Handler, error) {
	if err := rt.registry.Register(core.NewLedgerCollector(snapshotSource(rt))); err != nil {
		return nil, err
	}
	if err := rt.registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux, nil
}

func serveMetrics(ctx context.Context, ln net.Listener, rt *runtime) error {
	handler, err := metricsHandler(rt)
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.logger.Info("metrics server stopping")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

var _ prometheus.Collector = (*core.LedgerCollector)(nil)
