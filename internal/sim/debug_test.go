package sim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/hal"
)

func TestDebugEndpoints(t *testing.T) {
	store := &hal.RecordingStore{Rollback: true, ConfSwapSize: 0x4000}
	srv := httptest.NewServer(newDebugServer("", store, logr.Discard()).routes())
	defer srv.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatalf("GET /healthz: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("statusz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/statusz")
		if err != nil {
			t.Fatalf("GET /statusz: %v", err)
		}
		defer resp.Body.Close()

		var status statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if !status.ShouldRollback || status.SwapSize != 0x4000 {
			t.Errorf("status = %+v, want rollback armed with swap size 0x4000", status)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}
