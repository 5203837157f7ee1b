package stats

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram wraps hdrhistogram with clipping instead of errors: values above
// the trackable range are recorded at the top and counted in Clipped.
// Generation is single-threaded, so there is no locking.
type Histogram struct {
	hist    *hdrhistogram.Histogram
	max     int64
	clipped int64
}

// NewHistogram tracks values in [0, max] with 3 significant figures.
func NewHistogram(max int64) *Histogram {
	return &Histogram{
		hist: hdrhistogram.New(1, max, 3),
		max:  max,
	}
}

func (h *Histogram) Record(v int64) {
	if v < 0 {
		v = 0
	}
	if v > h.max {
		h.clipped++
		v = h.max
	}
	// in range by construction
	_ = h.hist.RecordValue(v)
}

func (h *Histogram) ValueAtQuantile(q float64) int64 { return h.hist.ValueAtQuantile(q) }
func (h *Histogram) Mean() float64                   { return h.hist.Mean() }
func (h *Histogram) StdDev() float64                 { return h.hist.StdDev() }
func (h *Histogram) Min() int64                      { return h.hist.Min() }
func (h *Histogram) Max() int64                      { return h.hist.Max() }
func (h *Histogram) TotalCount() int64               { return h.hist.TotalCount() }
func (h *Histogram) Clipped() int64                  { return h.clipped }
