package domain

// RawStats is a single non-streaming stats snapshot as reported by the
// runtime. Field names follow the Docker stats wire format. The sections the
// metric derivation depends on are pointers so a payload that omits them is
// distinguishable from one reporting zeros.
type RawStats struct {
	CPU      *CPUStats                  `json:"cpu_stats"`
	PreCPU   *CPUStats                  `json:"precpu_stats"`
	Memory   *MemoryStats               `json:"memory_stats"`
	Networks map[string]NetworkCounters `json:"networks"`
}

// Complete reports whether the snapshot carries every section the metric
// derivation needs.
func (r *RawStats) Complete() bool {
	return r.CPU != nil && r.PreCPU != nil && r.Memory != nil
}

type CPUStats struct {
	Usage       CPUUsage `json:"cpu_usage"`
	SystemUsage uint64   `json:"system_cpu_usage"`
}

type CPUUsage struct {
	TotalUsage uint64 `json:"total_usage"`
}

type MemoryStats struct {
	Usage uint64 `json:"usage"`
	Limit uint64 `json:"limit"`
}

type NetworkCounters struct {
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

// ContainerStats are the normalized metrics derived from a RawStats snapshot.
type ContainerStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsageMB float64 `json:"memory_usage_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRx     uint64  `json:"network_rx"`
	NetworkTx     uint64  `json:"network_tx"`
}

// StatusKind tags the outcome of a status query. The three kinds are
// mutually exclusive: an unknown container is never reported as an error.
type StatusKind int

const (
	StatusKindOK StatusKind = iota
	StatusKindNotFound
	StatusKindError
)

func (k StatusKind) String() string {
	switch k {
	case StatusKindOK:
		return "ok"
	case StatusKindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// StatusResult is the tagged outcome of a container status query. Status
// carries the runtime-reported state string only when Kind is StatusKindOK.
type StatusResult struct {
	Kind   StatusKind `json:"kind"`
	Status string     `json:"status,omitempty"`
}
