// Package stats summarises generated traces and platforms for the run report
// and the history store.
package stats

import (
	"math"

	"tracegen/internal/topology"
	"tracegen/internal/workload"
)

const (
	// Upper bounds of the tracked ranges. Delays are raw runtimes (<= 1e6 s
	// by default) scaled by size^corr_exp, so leave generous headroom.
	maxSize     = 1 << 20
	maxSeconds  = 1 << 40
	maxRatioPct = 1 << 20

	DefaultArrivalBuckets = 40
)

// Trace holds the distribution of one workload.
type Trace struct {
	Jobs  int
	NbRes int

	Size     *Histogram
	Delay    *Histogram // seconds
	Walltime *Histogram // seconds
	// Overestimate is walltime/delay in percent.
	Overestimate *Histogram
	Gap          *Histogram // seconds between consecutive arrivals

	FirstArrival int
	LastArrival  int
	// Arrivals counts jobs per equal-width bucket of [0, LastArrival].
	Arrivals []uint64

	// Work is the sum of res × delay in host-seconds.
	Work int64
}

// Summarize walks w once. buckets <= 0 uses DefaultArrivalBuckets.
func Summarize(w *workload.Workload, buckets int) *Trace {
	if buckets <= 0 {
		buckets = DefaultArrivalBuckets
	}
	t := &Trace{
		Jobs:         len(w.Jobs),
		NbRes:        w.NbRes,
		Size:         NewHistogram(maxSize),
		Delay:        NewHistogram(maxSeconds),
		Walltime:     NewHistogram(maxSeconds),
		Overestimate: NewHistogram(maxRatioPct),
		Gap:          NewHistogram(maxSeconds),
		Arrivals:     make([]uint64, buckets),
	}
	if len(w.Jobs) == 0 {
		return t
	}

	t.FirstArrival = w.Jobs[0].Subtime
	t.LastArrival = w.Jobs[len(w.Jobs)-1].Subtime
	prev := 0
	for _, j := range w.Jobs {
		delay := w.Profiles[j.Profile].Delay

		t.Size.Record(int64(j.Res))
		t.Delay.Record(int64(delay))
		t.Walltime.Record(int64(j.Walltime))
		if delay > 0 {
			t.Overestimate.Record(int64(math.Round(100 * float64(j.Walltime) / float64(delay))))
		}
		t.Gap.Record(int64(j.Subtime - prev))
		prev = j.Subtime

		t.Work += int64(j.Res) * int64(delay)
		t.Arrivals[bucketOf(j.Subtime, t.LastArrival, buckets)]++
	}
	return t
}

func bucketOf(ts, last, buckets int) int {
	if last <= 0 {
		return 0
	}
	b := int(int64(ts) * int64(buckets) / int64(last+1))
	return min(max(b, 0), buckets-1)
}

// ArrivalRate is the mean number of submissions per second.
func (t *Trace) ArrivalRate() float64 {
	if t.LastArrival <= 0 {
		return 0
	}
	return float64(t.Jobs) / float64(t.LastArrival)
}

// OfferedLoad is the work submitted per unit of capacity over the arrival
// window. Values near or above 1 mean the queue will grow without bound.
func (t *Trace) OfferedLoad() float64 {
	if t.LastArrival <= 0 || t.NbRes <= 0 {
		return 0
	}
	return float64(t.Work) / (float64(t.NbRes) * float64(t.LastArrival))
}

// Platform describes a generated platform.
type Platform struct {
	Hosts      int
	TotalSpeed float64 // Gflop/s over compute hosts
	MinSpeed   float64
	MaxSpeed   float64
	// PerClass counts hosts by speed class; empty for decoded platforms.
	PerClass map[string]int
}

func SummarizePlatform(p *topology.Platform) *Platform {
	s := &Platform{
		Hosts:    p.Size(),
		PerClass: make(map[string]int),
	}
	for i, h := range p.Hosts {
		s.TotalSpeed += h.Speed
		if i == 0 || h.Speed < s.MinSpeed {
			s.MinSpeed = h.Speed
		}
		if h.Speed > s.MaxSpeed {
			s.MaxSpeed = h.Speed
		}
		if h.Class != "" {
			s.PerClass[h.Class]++
		}
	}
	return s
}
