package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

// ErrNoMetricsHandler is returned when the diagnostics server is started
// without a Prometheus handler.
var ErrNoMetricsHandler = errors.New("diagnostics: no metrics handler")

// DiagnosticsServer exposes /healthz, /readyz and /metrics over HTTP while a
// sweep runs.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer starts serving at addr. metrics is the scrape handler
// from Providers.MetricsHandler; a non-nil meter also registers runtime
// metrics. Readiness runs the given checks.
func NewDiagnosticsServer(
	addr string, metrics http.Handler, meter metric.Meter, checks ...ReadyCheck,
) (*DiagnosticsServer, error) {
	if metrics == nil {
		return nil, ErrNoMetricsHandler
	}

	if meter != nil {
		_, err := NewRuntimeMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("register runtime metrics: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))
	mux.Handle("/metrics", metrics)

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the server.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	err := d.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
