// Package cli is the headless front end: it runs a generation or reads
// existing documents and prints a styled report.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tracegen/internal/banner"
	"tracegen/internal/config"
	"tracegen/internal/generator"
	"tracegen/internal/stats"
	"tracegen/internal/storage"
	"tracegen/internal/topology"
	"tracegen/internal/tui/components"
	"tracegen/internal/tui/history"
	"tracegen/internal/tui/styles"
	"tracegen/internal/workload"
)

type Options struct {
	// HistoryPath is the bbolt file; empty uses storage.DefaultPath.
	HistoryPath string
	NoHistory   bool
	// Quiet suppresses the report. Logging is unaffected.
	Quiet bool
	Out   io.Writer
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// Generate runs one generation, reports it and records it in the history.
func Generate(cfg config.Config, opts Options) (*generator.Result, error) {
	w := opts.out()
	if !opts.Quiet {
		printHeader(w, cfg)
	}

	res, err := generator.Run(cfg)
	if err != nil {
		return nil, err
	}

	if !opts.Quiet {
		printResult(w, res)
	}

	if !opts.NoHistory {
		if err := record(opts.HistoryPath, res.Record(cfg)); err != nil {
			log.WithError(err).Warn("could not record run history")
		}
	}
	return res, nil
}

func record(path string, item *storage.HistoryItem) error {
	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(item); err != nil {
		return err
	}
	pruned, err := store.Prune(storage.MaxHistory)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"id": item.ID, "pruned": pruned}).Debug("run recorded")
	return nil
}

func openStore(path string) (*storage.Store, error) {
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return storage.Open(path)
}

// Inspect decodes existing documents and prints the same report as a
// generation. platformPath and csvPath may be empty.
func Inspect(platformPath, workloadPath, csvPath string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	f, err := os.Open(workloadPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", workloadPath)
	}
	defer f.Close()
	wl, err := workload.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "reading %s", workloadPath)
	}
	if err := workload.Check(wl); err != nil {
		return errors.Wrapf(err, "checking %s", workloadPath)
	}

	fmt.Fprintln(out, styles.Title.Render("Inspect"))
	if platformPath != "" {
		pf, err := os.Open(platformPath)
		if err != nil {
			return errors.Wrapf(err, "opening %s", platformPath)
		}
		defer pf.Close()
		p, err := topology.Decode(pf)
		if err != nil {
			return errors.Wrapf(err, "reading %s", platformPath)
		}
		if p.Size() != wl.NbRes {
			fmt.Fprintln(out, styles.Warn.Render(fmt.Sprintf(
				"platform has %d hosts but workload nb_res is %d", p.Size(), wl.NbRes)))
		}
		printPlatform(out, platformPath, stats.SummarizePlatform(p))
	}
	printTrace(out, workloadPath, stats.Summarize(wl, stats.DefaultArrivalBuckets))

	if csvPath != "" {
		if err := ExportCSV(wl, csvPath); err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": csvPath, "jobs": len(wl.Jobs)}).Info("job table exported")
	}
	return nil
}

// PrintHistory lists recorded runs, newest first.
func PrintHistory(path string, limit int, out io.Writer) error {
	items, err := ListHistory(path, limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, styles.Subtle.Render("no runs recorded yet"))
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-20s  %-20s  %6s  %6s  %s\n", "ID", "TIME", "SEED", "HOSTS", "JOBS", "WORKLOAD")
	for _, it := range items {
		seed := fmt.Sprintf("%d", it.Seed)
		if !it.Seeded {
			seed += "*"
		}
		fmt.Fprintf(out, "%-36s  %-20s  %-20s  %6d  %6d  %s\n",
			it.ID, it.Timestamp.Format("2006-01-02 15:04:05"), seed,
			it.Summary.Hosts, it.Summary.Jobs, it.WorkloadPath)
	}
	return nil
}

func ListHistory(path string, limit int) ([]storage.HistoryItem, error) {
	store, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(limit)
}

// ShowItem prints one run and whether its files still match the recorded
// digests.
func ShowItem(path, id string, out io.Writer) error {
	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	item, err := store.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, history.Detail(*item))
	fmt.Fprintln(out, styles.Row("Platform file", fileState(item.PlatformPath, item.PlatformDigest)))
	fmt.Fprintln(out, styles.Row("Workload file", fileState(item.WorkloadPath, item.WorkloadDigest)))
	fmt.Fprintln(out, styles.Row("Replay", "tracegen history replay "+item.ID))
	return nil
}

// Replay regenerates a recorded run from its stored parameter table and
// seed. Empty platformPath or workloadPath reuse the recorded paths.
func Replay(id, platformPath, workloadPath string, opts Options) (*generator.Result, error) {
	item, err := getItem(opts.HistoryPath, id)
	if err != nil {
		return nil, err
	}

	cfg := item.Config
	seed := item.Seed
	cfg.Seed = &seed
	cfg.PlatformPath = item.PlatformPath
	cfg.WorkloadPath = item.WorkloadPath
	if platformPath != "" {
		cfg.PlatformPath = platformPath
	}
	if workloadPath != "" {
		cfg.WorkloadPath = workloadPath
	}
	log.WithFields(log.Fields{"id": item.ID, "seed": seed}).Info("replaying run")

	res, err := Generate(cfg, opts)
	if err != nil {
		return nil, err
	}
	if res.PlatformDigest != item.PlatformDigest || res.WorkloadDigest != item.WorkloadDigest {
		log.WithField("id", item.ID).Warn("replay differs from the recorded run")
	}
	return res, nil
}

// getItem closes the store before returning so a following Generate can
// take the file lock.
func getItem(path, id string) (*storage.HistoryItem, error) {
	store, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Get(id)
}

func fileState(path, digest string) string {
	ok, err := generator.Verify(path, digest)
	switch {
	case err != nil && os.IsNotExist(errors.Cause(err)):
		return "missing"
	case err != nil:
		return "unreadable"
	case ok:
		return "unchanged"
	default:
		return "modified"
	}
}

func printHeader(w io.Writer, cfg config.Config) {
	fmt.Fprintln(w, banner.GetString())
	seed := "entropy"
	if cfg.Seed != nil {
		seed = fmt.Sprintf("%d", *cfg.Seed)
	}
	fmt.Fprintln(w, styles.Row("Machines", fmt.Sprintf("%d", cfg.Machines)))
	fmt.Fprintln(w, styles.Row("Jobs", fmt.Sprintf("%d", cfg.Jobs)))
	fmt.Fprintln(w, styles.Row("Seed", seed))
	fmt.Fprintln(w)
}

func printResult(w io.Writer, res *generator.Result) {
	fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf("Generated in %s", res.Elapsed.Round(time.Millisecond))))
	fmt.Fprintln(w, styles.Row("Seed", fmt.Sprintf("%d", res.Seed)))
	printPlatform(w, res.PlatformPath, res.PlatformInfo)
	printTrace(w, res.WorkloadPath, res.Trace)
	if res.Clamped > 0 {
		fmt.Fprintln(w, styles.Warn.Render(fmt.Sprintf("%d draws clamped by reject_limit", res.Clamped)))
	}
}

func printPlatform(w io.Writer, path string, p *stats.Platform) {
	fmt.Fprintln(w, styles.Title.Render("Platform"))
	fmt.Fprintln(w, styles.Row("File", path))
	fmt.Fprintln(w, styles.Row("Hosts", fmt.Sprintf("%d (+ %s)", p.Hosts, topology.ControlHostID)))
	fmt.Fprintln(w, styles.Row("Speed", fmt.Sprintf("%.2f..%.2f Gf, %.2f Gf total", p.MinSpeed, p.MaxSpeed, p.TotalSpeed)))
	if len(p.PerClass) > 0 {
		names := make([]string, 0, len(p.PerClass))
		for name := range p.PerClass {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s %d", name, p.PerClass[name])
		}
		fmt.Fprintln(w, styles.Row("Classes", strings.Join(parts, ", ")))
	}
	fmt.Fprintln(w)
}

func printTrace(w io.Writer, path string, t *stats.Trace) {
	fmt.Fprintln(w, styles.Title.Render("Workload"))
	fmt.Fprintln(w, styles.Row("File", path))
	fmt.Fprintln(w, styles.Row("Jobs", fmt.Sprintf("%d on %d hosts", t.Jobs, t.NbRes)))
	if t.Jobs == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, styles.Row("Arrivals", fmt.Sprintf("%d..%d s, %.3f jobs/s", t.FirstArrival, t.LastArrival, t.ArrivalRate())))
	fmt.Fprintln(w, styles.Row("Size", quantiles(t.Size, "")))
	fmt.Fprintln(w, styles.Row("Delay", quantiles(t.Delay, " s")))
	fmt.Fprintln(w, styles.Row("Walltime", quantiles(t.Walltime, " s")))
	fmt.Fprintln(w, styles.Row("Overestimate", quantiles(t.Overestimate, "%")))
	fmt.Fprintln(w, styles.Row("Offered load", fmt.Sprintf("%.2f", t.OfferedLoad())))

	spark := components.NewSparkline("arrivals over time", styles.Active)
	spark.Set(t.Arrivals)
	fmt.Fprintln(w, spark.View())
	fmt.Fprintln(w)
}

func quantiles(h *stats.Histogram, unit string) string {
	return fmt.Sprintf("p50 %d%s  p90 %d%s  p99 %d%s  max %d%s",
		h.ValueAtQuantile(50), unit,
		h.ValueAtQuantile(90), unit,
		h.ValueAtQuantile(99), unit,
		h.Max(), unit)
}
