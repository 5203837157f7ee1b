package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"tracegen/internal/config"
)

// MaxHistory is how many runs the store keeps after each save.
const MaxHistory = 100

// HistoryItem records one generation run: enough to find the files again,
// check they were not modified, and replay the run from its seed.
type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Seed      uint64        `json:"seed"`
	Seeded    bool          `json:"seeded"` // false when the seed came from entropy
	Config    config.Config `json:"config"`

	PlatformPath   string `json:"platform_path"`
	WorkloadPath   string `json:"workload_path"`
	PlatformDigest string `json:"platform_digest"`
	WorkloadDigest string `json:"workload_digest"`

	Summary RunSummary `json:"summary"`
}

type RunSummary struct {
	Hosts          int     `json:"hosts"`
	TotalSpeed     float64 `json:"total_speed_gf"`
	Jobs           int     `json:"jobs"`
	LastArrival    int     `json:"last_arrival"`
	MeanDelay      float64 `json:"mean_delay"`
	P99Delay       int64   `json:"p99_delay"`
	MeanSize       float64 `json:"mean_size"`
	MeanOverestPct float64 `json:"mean_overestimate_pct"`
	OfferedLoad    float64 `json:"offered_load"`
	Clamped        int     `json:"clamped_draws"`
}

// DefaultPath is ~/.tracegen/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locating home directory")
	}
	return filepath.Join(home, ".tracegen", "history.db"), nil
}
