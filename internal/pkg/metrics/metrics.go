package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the module-owned registry. The boot core never serves it
// itself; the simulator's debug server exposes it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// SwapSectorsTotal counts sector pairs exchanged between the slots.
	SwapSectorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootcore_swap_sectors_total",
			Help: "Total number of sector pairs exchanged between the download and application slots.",
		},
	)

	// UploadsTotal counts recovery uploads by outcome.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcore_recovery_uploads_total",
			Help: "Total number of recovery firmware uploads by outcome.",
		},
		[]string{"outcome"}, // accepted / digest_mismatch / too_large
	)

	// UploadBytesTotal counts upload bytes committed to the download slot.
	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootcore_recovery_upload_bytes_total",
			Help: "Total number of uploaded bytes written to the download slot.",
		},
	)

	// ConnectionsTotal counts recovery connections by request class.
	ConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcore_recovery_connections_total",
			Help: "Total number of recovery server connections by request classification.",
		},
		[]string{"class"}, // get / post / reboot / unknown / idle
	)

	// DHCPAttemptsTotal counts DHCP lease attempts by result.
	DHCPAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcore_dhcp_attempts_total",
			Help: "Total number of DHCP lease attempts by result.",
		},
		[]string{"result"}, // leased / timeout
	)
)

func init() {
	Registry.MustRegister(SwapSectorsTotal)
	Registry.MustRegister(UploadsTotal)
	Registry.MustRegister(UploadBytesTotal)
	Registry.MustRegister(ConnectionsTotal)
	Registry.MustRegister(DHCPAttemptsTotal)
}
