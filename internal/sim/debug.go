package sim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/pkg/metrics"
)

// debugServer exposes the simulator's observability surface: Prometheus
// metrics, a liveness probe and a JSON dump of the persisted boot flags.
// Real targets carry none of this.
type debugServer struct {
	addr  string
	store core.StatusStore
	log   logr.Logger
}

func newDebugServer(addr string, store core.StatusStore, log logr.Logger) *debugServer {
	return &debugServer{addr: addr, store: store, log: log.WithName("debug")}
}

type statusResponse struct {
	ShouldRollback    bool   `json:"shouldRollback"`
	HasFirmwareToSwap bool   `json:"hasFirmwareToSwap"`
	IsAfterUpdate     bool   `json:"isAfterUpdate"`
	IsAfterRollback   bool   `json:"isAfterRollback"`
	SwapSize          uint32 `json:"swapSize"`
}

func (d *debugServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/statusz", d.handleStatus).Methods(http.MethodGet)
	return r
}

func (d *debugServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		ShouldRollback:    d.store.ShouldRollback(),
		HasFirmwareToSwap: d.store.HasFirmwareToSwap(),
		IsAfterUpdate:     d.store.IsAfterUpdate(),
		IsAfterRollback:   d.store.IsAfterRollback(),
		SwapSize:          d.store.SwapSize(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.log.Error(err, "failed to encode status response")
	}
}

// run serves until ctx is canceled, then drains with a short grace period.
func (d *debugServer) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              d.addr,
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.log.Info("debug server listening", "addr", d.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
