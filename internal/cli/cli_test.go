package cli

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"tracegen/internal/config"
	"tracegen/internal/generator"
	"tracegen/internal/storage"
)

func testConfig(t *testing.T) (config.Config, Options) {
	t.Helper()
	dir := t.TempDir()
	seed := uint64(2024)
	cfg := config.Default()
	cfg.Machines = 6
	cfg.Jobs = 30
	cfg.Seed = &seed
	cfg.PlatformPath = filepath.Join(dir, "out", "platform.xml")
	cfg.WorkloadPath = filepath.Join(dir, "out", "workload.json")
	return cfg, Options{HistoryPath: filepath.Join(dir, "history.db"), Out: &bytes.Buffer{}}
}

func TestGenerateRecordsHistory(t *testing.T) {
	cfg, opts := testConfig(t)

	res, err := Generate(cfg, opts)
	require.NoError(t, err)
	require.FileExists(t, cfg.PlatformPath)
	require.FileExists(t, cfg.WorkloadPath)

	report := opts.Out.(*bytes.Buffer).String()
	require.Contains(t, report, "Platform")
	require.Contains(t, report, "Workload")
	require.Contains(t, report, "arrivals over time")

	items, err := ListHistory(opts.HistoryPath, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, res.Seed, items[0].Seed)
	require.True(t, items[0].Seeded)
	require.Equal(t, res.WorkloadDigest, items[0].WorkloadDigest)
	require.Equal(t, 30, items[0].Summary.Jobs)
}

func TestGenerateQuietNoHistory(t *testing.T) {
	cfg, opts := testConfig(t)
	opts.Quiet = true
	opts.NoHistory = true

	_, err := Generate(cfg, opts)
	require.NoError(t, err)
	require.Empty(t, opts.Out.(*bytes.Buffer).String())
	require.NoFileExists(t, opts.HistoryPath)
}

func TestGenerateHistoryFailureIsNotFatal(t *testing.T) {
	cfg, opts := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	opts.HistoryPath = filepath.Join(blocker, "history.db")

	_, err := Generate(cfg, opts)
	require.NoError(t, err)
}

func TestInspect(t *testing.T) {
	cfg, opts := testConfig(t)
	opts.NoHistory = true
	_, err := Generate(cfg, opts)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Inspect(cfg.PlatformPath, cfg.WorkloadPath, "", &out))
	require.Contains(t, out.String(), "6 (+ master_host)")
	require.Contains(t, out.String(), "30 on 6 hosts")

	out.Reset()
	require.NoError(t, Inspect("", cfg.WorkloadPath, "", &out))
	require.NotContains(t, out.String(), "master_host")
}

func TestInspectExportsCSV(t *testing.T) {
	cfg, opts := testConfig(t)
	opts.NoHistory = true
	res, err := Generate(cfg, opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jobs.csv")
	require.NoError(t, Inspect("", cfg.WorkloadPath, path, &bytes.Buffer{}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 31)
	require.Equal(t, []string{"id", "subtime", "res", "delay", "walltime", "profile"}, rows[0])

	first := res.Workload.Jobs[0]
	require.Equal(t, first.ID, rows[1][0])
	require.Equal(t, strconv.Itoa(first.Walltime), rows[1][4])
	require.Equal(t, "P1", rows[1][5])
}

func TestInspectRejectsBrokenWorkload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.json")
	doc := `{"description":"x","nb_res":1,"jobs":[{"id":"1","profile":"P9","res":1,"walltime":5,"subtime":0}],"profiles":{}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	err := Inspect("", path, "", &bytes.Buffer{})
	require.Error(t, err)

	err = Inspect("", filepath.Join(t.TempDir(), "missing.json"), "", &bytes.Buffer{})
	require.Error(t, err)
}

func TestShowItemVerifiesFiles(t *testing.T) {
	cfg, opts := testConfig(t)
	_, err := Generate(cfg, opts)
	require.NoError(t, err)

	items, err := ListHistory(opts.HistoryPath, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var out bytes.Buffer
	require.NoError(t, ShowItem(opts.HistoryPath, items[0].ID, &out))
	require.Contains(t, out.String(), "unchanged")
	require.Contains(t, out.String(), "tracegen history replay "+items[0].ID)

	require.NoError(t, os.WriteFile(cfg.WorkloadPath, []byte("{}"), 0o644))
	require.NoError(t, os.Remove(cfg.PlatformPath))
	out.Reset()
	require.NoError(t, ShowItem(opts.HistoryPath, items[0].ID, &out))
	require.Contains(t, out.String(), "modified")
	require.Contains(t, out.String(), "missing")

	err = ShowItem(opts.HistoryPath, "nope", &out)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestShowItemUnreadableFile(t *testing.T) {
	cfg, opts := testConfig(t)
	_, err := Generate(cfg, opts)
	require.NoError(t, err)
	items, err := ListHistory(opts.HistoryPath, 1)
	require.NoError(t, err)

	// a directory in place of the workload cannot be read but does exist
	require.NoError(t, os.Remove(cfg.WorkloadPath))
	require.NoError(t, os.Mkdir(cfg.WorkloadPath, 0o755))

	var out bytes.Buffer
	require.NoError(t, ShowItem(opts.HistoryPath, items[0].ID, &out))
	require.Contains(t, out.String(), "unreadable")
	require.NotContains(t, out.String(), "missing")
}

func TestReplayReproducesTunedRun(t *testing.T) {
	cfg, opts := testConfig(t)
	seed := uint64(9)
	cfg.Seed = &seed
	cfg.Machines = 4
	cfg.RejectLimit = 50
	cfg.Workload.CorrExp = 1.5
	cfg.Workload.Runtime.Mu = 6.1
	cfg.Workload.MeanInterArrival = 40
	cfg.Platform.SpeedClasses = cfg.Platform.SpeedClasses[:1]

	orig, err := Generate(cfg, opts)
	require.NoError(t, err)
	items, err := ListHistory(opts.HistoryPath, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	dir := t.TempDir()
	replay, err := Replay(items[0].ID, filepath.Join(dir, "p.xml"), filepath.Join(dir, "w.json"), opts)
	require.NoError(t, err)
	require.Equal(t, orig.PlatformDigest, replay.PlatformDigest)
	require.Equal(t, orig.WorkloadDigest, replay.WorkloadDigest)
	require.Equal(t, seed, replay.Seed)

	ok, err := generator.Verify(filepath.Join(dir, "w.json"), orig.WorkloadDigest)
	require.NoError(t, err)
	require.True(t, ok)

	items, err = ListHistory(opts.HistoryPath, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = Replay("nope", "", "", opts)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReplayUnseededRun(t *testing.T) {
	cfg, opts := testConfig(t)
	cfg.Seed = nil
	cfg.Workload.CorrExp = 0.9

	orig, err := Generate(cfg, opts)
	require.NoError(t, err)
	require.False(t, orig.Seeded)
	items, err := ListHistory(opts.HistoryPath, 1)
	require.NoError(t, err)

	replay, err := Replay(items[0].ID, "", "", opts)
	require.NoError(t, err)
	require.True(t, replay.Seeded)
	require.Equal(t, orig.Seed, replay.Seed)
	require.Equal(t, orig.WorkloadDigest, replay.WorkloadDigest)
}

func TestPrintHistory(t *testing.T) {
	cfg, opts := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, PrintHistory(opts.HistoryPath, 10, &out))
	require.Contains(t, out.String(), "no runs recorded yet")

	_, err := Generate(cfg, opts)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, PrintHistory(opts.HistoryPath, 10, &out))
	require.Contains(t, out.String(), "2024")
	require.Contains(t, out.String(), cfg.WorkloadPath)
}
