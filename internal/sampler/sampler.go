// Package sampler owns the pseudorandom source of one generation run and
// the draws the trace model is built from.
package sampler

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream is the fixed PCG increment paired with the caller's seed.
const pcgStream = 0x9e3779b97f4a7c15

// LogNormal holds the parameters of the underlying normal distribution.
type LogNormal struct {
	Mu    float64 `json:"mu" yaml:"mu" mapstructure:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma" mapstructure:"sigma"`
}

// Sampler is not safe for concurrent use. Each generation run owns one.
type Sampler struct {
	src rand.Source
	rnd *rand.Rand

	// RejectLimit caps consecutive rejections in LogNormalInt. Zero means
	// no cap: the loop only ends once a draw falls inside the bounds.
	RejectLimit int

	seed    uint64
	clamped int
}

func New(seed uint64) *Sampler {
	src := rand.NewPCG(seed, pcgStream)
	return &Sampler{
		src:  src,
		rnd:  rand.New(src),
		seed: seed,
	}
}

// NewFromEntropy seeds a sampler from the operating system. The seed is kept
// so an unseeded run can be replayed with New.
func NewFromEntropy() (*Sampler, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, errors.Wrap(err, "reading seed entropy")
	}
	return New(binary.LittleEndian.Uint64(b[:])), nil
}

func (s *Sampler) Seed() uint64 { return s.seed }

// Clamped reports how many LogNormalInt calls hit RejectLimit.
func (s *Sampler) Clamped() int { return s.clamped }

// LogNormalInt draws exp(N(mu, sigma)), rounds it to the nearest integer
// (ties to even) and returns the first value inside [lo, hi].
//
// Termination is probabilistic: each draw lands in range with the
// probability mass the distribution puts on [lo-0.5, hi+0.5), so a range
// with no mass never returns unless RejectLimit is set. When it is, the
// last draw is clamped into [lo, hi] after RejectLimit misses.
func (s *Sampler) LogNormalInt(d LogNormal, lo, hi int) int {
	dist := distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: s.src}
	for rejected := 0; ; rejected++ {
		v := math.RoundToEven(dist.Rand())
		if v >= float64(lo) && v <= float64(hi) {
			return int(v)
		}
		if s.RejectLimit > 0 && rejected+1 >= s.RejectLimit {
			s.clamped++
			if v < float64(lo) {
				return lo
			}
			return hi
		}
	}
}

// Exp draws an exponential variate with the given mean (rate 1/mean).
func (s *Sampler) Exp(mean float64) float64 {
	return distuv.Exponential{Rate: 1 / mean, Src: s.src}.Rand()
}

// Uniform draws from [lo, hi).
func (s *Sampler) Uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

// IntN draws from [0, n). It panics if n <= 0.
func (s *Sampler) IntN(n int) int {
	return s.rnd.IntN(n)
}
