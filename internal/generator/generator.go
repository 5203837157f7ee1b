// Package generator runs one trace generation: seed, build the platform and
// the workload from the same sampler, encode both and write them out.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tracegen/internal/config"
	"tracegen/internal/sampler"
	"tracegen/internal/stats"
	"tracegen/internal/storage"
	"tracegen/internal/topology"
	"tracegen/internal/workload"
)

// Output is a generated pair of documents, still in memory.
type Output struct {
	Platform *topology.Platform
	Workload *workload.Workload

	PlatformDoc []byte
	WorkloadDoc []byte

	// Clamped counts bounded draws that hit the reject limit.
	Clamped int
}

// Generate builds both documents from s. The platform is drawn first, then
// the workload, so the same seed and table always give the same bytes.
func Generate(cfg config.Config, s *sampler.Sampler) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	s.RejectLimit = cfg.RejectLimit

	platform := topology.Generate(cfg.Machines, cfg.Platform, s)
	wl, err := workload.Generate(cfg.Jobs, platform.Size(), cfg.Workload, s)
	if err != nil {
		return nil, err
	}

	platformDoc, err := topology.Marshal(platform)
	if err != nil {
		return nil, err
	}
	workloadDoc, err := workload.Marshal(wl)
	if err != nil {
		return nil, err
	}

	return &Output{
		Platform:    platform,
		Workload:    wl,
		PlatformDoc: platformDoc,
		WorkloadDoc: workloadDoc,
		Clamped:     s.Clamped(),
	}, nil
}

// Result describes a finished run.
type Result struct {
	*Output

	Seed   uint64
	Seeded bool

	PlatformPath   string
	WorkloadPath   string
	PlatformDigest string
	WorkloadDigest string

	Trace        *stats.Trace
	PlatformInfo *stats.Platform
	Elapsed      time.Duration
}

// NewSampler seeds from cfg.Seed, or from system entropy when it is unset.
func NewSampler(cfg config.Config) (*sampler.Sampler, bool, error) {
	if cfg.Seed != nil {
		return sampler.New(*cfg.Seed), true, nil
	}
	s, err := sampler.NewFromEntropy()
	return s, false, err
}

// Run generates and writes both documents. The platform is written first;
// if the workload write fails the platform file is left in place.
func Run(cfg config.Config) (*Result, error) {
	start := time.Now()

	s, seeded, err := NewSampler(cfg)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"seed":     s.Seed(),
		"seeded":   seeded,
		"machines": cfg.Machines,
		"jobs":     cfg.Jobs,
	}).Debug("starting generation")

	out, err := Generate(cfg, s)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Output:         out,
		Seed:           s.Seed(),
		Seeded:         seeded,
		PlatformPath:   cfg.PlatformFile(),
		WorkloadPath:   cfg.WorkloadFile(),
		PlatformDigest: Digest(out.PlatformDoc),
		WorkloadDigest: Digest(out.WorkloadDoc),
		Trace:          stats.Summarize(out.Workload, stats.DefaultArrivalBuckets),
		PlatformInfo:   stats.SummarizePlatform(out.Platform),
	}

	if err := writeFile(res.PlatformPath, out.PlatformDoc); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":   res.PlatformPath,
		"hosts":  out.Platform.Size(),
		"digest": res.PlatformDigest,
	}).Info("platform written")

	if err := writeFile(res.WorkloadPath, out.WorkloadDoc); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":   res.WorkloadPath,
		"jobs":   len(out.Workload.Jobs),
		"digest": res.WorkloadDigest,
	}).Info("workload written")

	if out.Clamped > 0 {
		log.WithField("clamped", out.Clamped).Warn("bounded sampler hit reject_limit; some sizes or runtimes were clamped")
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// Record converts r into a history entry.
func (r *Result) Record(cfg config.Config) *storage.HistoryItem {
	t := r.Trace
	return &storage.HistoryItem{
		Seed:           r.Seed,
		Seeded:         r.Seeded,
		Config:         cfg,
		PlatformPath:   r.PlatformPath,
		WorkloadPath:   r.WorkloadPath,
		PlatformDigest: r.PlatformDigest,
		WorkloadDigest: r.WorkloadDigest,
		Summary: storage.RunSummary{
			Hosts:          r.PlatformInfo.Hosts,
			TotalSpeed:     r.PlatformInfo.TotalSpeed,
			Jobs:           t.Jobs,
			LastArrival:    t.LastArrival,
			MeanDelay:      t.Delay.Mean(),
			P99Delay:       t.Delay.ValueAtQuantile(99),
			MeanSize:       t.Size.Mean(),
			MeanOverestPct: t.Overestimate.Mean(),
			OfferedLoad:    t.OfferedLoad(),
			Clamped:        r.Clamped,
		},
	}
}

// Digest fingerprints a document so history entries can detect edits.
func Digest(doc []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(doc))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dirs for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", path)
}

// Verify reports whether the file at path still has the given digest.
func Verify(path, digest string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", path)
	}
	return Digest(data) == digest, nil
}
