package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToggleTotal counts committed toggles by relation kind and resulting state.
	ToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_toggle_total",
		Help: "Committed like/follow toggles by kind and resulting state",
	}, []string{"kind", "state"})

	// ToggleRaceTotal counts inserts that lost the race on the relation unique index.
	ToggleRaceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_toggle_race_total",
		Help: "Relation inserts rejected by the unique index",
	}, []string{"kind"})

	// NotificationOpsTotal counts inbox mutations by operation and outcome.
	NotificationOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_notification_ops_total",
		Help: "Notification inbox operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// TxAbortTotal counts aborted transactions by operation.
	TxAbortTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_tx_abort_total",
		Help: "Aborted store transactions by operation",
	}, []string{"operation"})

	// BestEffortFailures counts failed post-commit side effects.
	BestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_best_effort_failures_total",
		Help: "Failed post-commit side effects by step",
	}, []string{"step"})

	// RealtimeFailures counts realtime deliveries that could not be published.
	RealtimeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krealgram_realtime_failures_total",
		Help: "Realtime events that failed to publish by transport",
	}, []string{"transport"})

	// UploadBytes observes stored media sizes.
	UploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "krealgram_upload_bytes",
		Help:    "Size of stored media blobs in bytes",
		Buckets: prometheus.ExponentialBuckets(16<<10, 4, 8),
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
