package generator_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"tracegen/internal/config"
	"tracegen/internal/generator"
	"tracegen/internal/sampler"
	"tracegen/internal/topology"
	"tracegen/internal/workload"
)

func seeded(seed uint64) config.Config {
	cfg := config.Default()
	cfg.Seed = &seed
	return cfg
}

func TestSameSeedByteIdentical(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := seeded(rapid.Uint64().Draw(t, "seed"))
		cfg.Machines = rapid.IntRange(1, 40).Draw(t, "machines")
		cfg.Jobs = rapid.IntRange(0, 80).Draw(t, "jobs")

		a, err := generator.Generate(cfg, sampler.New(*cfg.Seed))
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		b, err := generator.Generate(cfg, sampler.New(*cfg.Seed))
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !bytes.Equal(a.PlatformDoc, b.PlatformDoc) || !bytes.Equal(a.WorkloadDoc, b.WorkloadDoc) {
			t.Fatalf("seed %d produced different documents", *cfg.Seed)
		}
	})
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a, err := generator.Generate(config.Default(), sampler.New(1))
	require.NoError(t, err)
	b, err := generator.Generate(config.Default(), sampler.New(2))
	require.NoError(t, err)
	require.NotEqual(t, a.WorkloadDoc, b.WorkloadDoc)
}

func TestOneHostOneJob(t *testing.T) {
	cfg := seeded(31337)
	cfg.Machines = 1
	cfg.Jobs = 1

	out, err := generator.Generate(cfg, sampler.New(*cfg.Seed))
	require.NoError(t, err)

	hosts := out.Platform.All()
	require.Len(t, hosts, 2)
	require.Equal(t, "node_0", hosts[0].ID)
	require.Equal(t, topology.ControlHostID, hosts[1].ID)

	require.Len(t, out.Workload.Jobs, 1)
	require.Equal(t, 1, out.Workload.Jobs[0].Res)
	require.GreaterOrEqual(t, out.Workload.Jobs[0].Subtime, 0)
	require.Equal(t, 1, out.Workload.NbRes)
}

func TestZeroMachinesRejected(t *testing.T) {
	cfg := seeded(1)
	cfg.Machines = 0
	_, err := generator.Generate(cfg, sampler.New(1))
	require.ErrorIs(t, err, workload.ErrNoCapacity)

	cfg.Jobs = 0
	out, err := generator.Generate(cfg, sampler.New(1))
	require.NoError(t, err)
	require.Len(t, out.Platform.All(), 1)
	require.Empty(t, out.Workload.Jobs)
}

func TestRunWritesDocuments(t *testing.T) {
	dir := t.TempDir()
	cfg := seeded(5)
	cfg.Machines = 8
	cfg.Jobs = 50
	cfg.PlatformPath = filepath.Join(dir, "out", "platform.xml")
	cfg.WorkloadPath = filepath.Join(dir, "out", "workload.json")

	res, err := generator.Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Seeded)
	require.Equal(t, uint64(5), res.Seed)

	platformDoc, err := os.ReadFile(cfg.PlatformPath)
	require.NoError(t, err)
	require.Equal(t, res.PlatformDoc, platformDoc)
	require.Equal(t, generator.Digest(platformDoc), res.PlatformDigest)

	f, err := os.Open(cfg.WorkloadPath)
	require.NoError(t, err)
	defer f.Close()
	wl, err := workload.Decode(f)
	require.NoError(t, err)
	require.NoError(t, workload.Check(wl))
	require.Len(t, wl.Jobs, 50)
	require.Equal(t, 8, wl.NbRes)

	ok, err := generator.Verify(cfg.WorkloadPath, res.WorkloadDigest)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(cfg.WorkloadPath, []byte("{}"), 0o644))
	ok, err = generator.Verify(cfg.WorkloadPath, res.WorkloadDigest)
	require.NoError(t, err)
	require.False(t, ok)

	item := res.Record(cfg)
	require.Equal(t, 50, item.Summary.Jobs)
	require.Equal(t, 8, item.Summary.Hosts)
	require.Equal(t, res.WorkloadDigest, item.WorkloadDigest)
	require.Greater(t, item.Summary.MeanOverestPct, 100.0)
}

func TestRunUnseededRecordsSeed(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Machines = 3
	cfg.Jobs = 10
	cfg.PlatformPath = filepath.Join(dir, "p.xml")
	cfg.WorkloadPath = filepath.Join(dir, "w.json")

	res, err := generator.Run(cfg)
	require.NoError(t, err)
	require.False(t, res.Seeded)

	replay, err := generator.Generate(cfg, sampler.New(res.Seed))
	require.NoError(t, err)
	require.Equal(t, res.WorkloadDoc, replay.WorkloadDoc)
	require.Equal(t, res.PlatformDoc, replay.PlatformDoc)
}

func TestRunUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cfg := seeded(1)
	cfg.PlatformPath = filepath.Join(dir, "p.xml")
	cfg.WorkloadPath = filepath.Join(blocker, "w.json")

	_, err := generator.Run(cfg)
	require.Error(t, err)
	// the platform was already written
	_, statErr := os.Stat(cfg.PlatformPath)
	require.NoError(t, statErr)
}

func TestInvalidConfig(t *testing.T) {
	cfg := seeded(1)
	cfg.Workload.MeanInterArrival = 0
	_, err := generator.Run(cfg)
	require.Error(t, err)
}
