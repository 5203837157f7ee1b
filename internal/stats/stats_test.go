package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracegen/internal/sampler"
	"tracegen/internal/stats"
	"tracegen/internal/topology"
	"tracegen/internal/workload"
)

func TestHistogramClips(t *testing.T) {
	h := stats.NewHistogram(1000)
	h.Record(10)
	h.Record(-5)
	h.Record(5000)

	require.Equal(t, int64(3), h.TotalCount())
	require.Equal(t, int64(1), h.Clipped())
	require.Equal(t, int64(0), h.Min())
	require.InDelta(t, 1000, h.Max(), 1)
}

func TestSummarizeSmallTrace(t *testing.T) {
	w := &workload.Workload{
		NbRes: 4,
		Jobs: []workload.Job{
			{ID: "1", Profile: "P1", Res: 1, Walltime: 20, Subtime: 0},
			{ID: "2", Profile: "P2", Res: 2, Walltime: 30, Subtime: 5},
			{ID: "3", Profile: "P3", Res: 4, Walltime: 50, Subtime: 9},
		},
		Profiles: map[string]workload.Profile{
			"P1": {Delay: 10, Type: workload.ProfileTypeDelay},
			"P2": {Delay: 15, Type: workload.ProfileTypeDelay},
			"P3": {Delay: 25, Type: workload.ProfileTypeDelay},
		},
	}

	s := stats.Summarize(w, 10)
	require.Equal(t, 3, s.Jobs)
	require.Equal(t, int64(3), s.Size.TotalCount())
	require.Equal(t, int64(4), s.Size.Max())
	require.Equal(t, int64(10), s.Delay.Min())
	require.Equal(t, int64(50), s.Walltime.Max())
	require.Equal(t, int64(200), s.Overestimate.Min())
	require.Equal(t, int64(1*10+2*15+4*25), s.Work)
	require.Equal(t, 0, s.FirstArrival)
	require.Equal(t, 9, s.LastArrival)
	require.InDelta(t, 3.0/9.0, s.ArrivalRate(), 1e-9)
	require.InDelta(t, 140.0/(4*9), s.OfferedLoad(), 1e-9)

	require.Len(t, s.Arrivals, 10)
	total := uint64(0)
	for _, c := range s.Arrivals {
		total += c
	}
	require.Equal(t, uint64(3), total)
	require.Equal(t, uint64(1), s.Arrivals[0])
	require.Equal(t, uint64(1), s.Arrivals[9])
}

func TestSummarizeEmpty(t *testing.T) {
	s := stats.Summarize(&workload.Workload{}, 0)
	require.Zero(t, s.Jobs)
	require.Len(t, s.Arrivals, stats.DefaultArrivalBuckets)
	require.Zero(t, s.ArrivalRate())
	require.Zero(t, s.OfferedLoad())
}

func TestSummarizeGeneratedTraceCountsEveryJob(t *testing.T) {
	w, err := workload.Generate(500, 16, workload.DefaultParams(), sampler.New(8))
	require.NoError(t, err)

	s := stats.Summarize(w, 25)
	require.Equal(t, int64(500), s.Delay.TotalCount())
	require.Zero(t, s.Delay.Clipped())
	require.GreaterOrEqual(t, s.Overestimate.Min(), int64(119))
	require.LessOrEqual(t, s.Overestimate.Max(), int64(401))

	total := uint64(0)
	for _, c := range s.Arrivals {
		total += c
	}
	require.Equal(t, uint64(500), total)
}

func TestSummarizePlatform(t *testing.T) {
	p := topology.Generate(30, topology.DefaultParams(), sampler.New(4))
	s := stats.SummarizePlatform(p)

	require.Equal(t, 30, s.Hosts)
	count := 0
	for _, n := range s.PerClass {
		count += n
	}
	require.Equal(t, 30, count)
	require.GreaterOrEqual(t, s.MinSpeed, 5.0)
	require.Less(t, s.MaxSpeed, 26.0)
	require.LessOrEqual(t, s.MinSpeed, s.MaxSpeed)
	require.Greater(t, s.TotalSpeed, 30*5.0)
}
