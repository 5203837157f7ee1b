// Package workload synthesizes a Poisson-arrival job trace with heavy-tailed,
// size-correlated runtimes and overestimated walltimes, and encodes it as a
// Batsim workload document.
package workload

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"tracegen/internal/sampler"
)

// ProfileTypeDelay marks a compute-only profile that just waits for Delay
// seconds.
const ProfileTypeDelay = "delay"

// ErrNoCapacity is returned when jobs are requested for a platform without
// compute hosts: a job size must lie in [1, capacity].
var ErrNoCapacity = errors.New("workload needs at least one compute host")

type Job struct {
	ID       string `json:"id"`
	Profile  string `json:"profile"`
	Res      int    `json:"res"`
	Walltime int    `json:"walltime"`
	Subtime  int    `json:"subtime"`
}

type Profile struct {
	Delay int    `json:"delay"`
	Type  string `json:"type"`
}

// Workload is the whole trace. Every job owns exactly one profile; profiles
// are never shared even when two delays coincide.
type Workload struct {
	Description string             `json:"description"`
	NbRes       int                `json:"nb_res"`
	Jobs        []Job              `json:"jobs"`
	Profiles    map[string]Profile `json:"profiles"`
}

// Range is a half-open interval [Min, Max).
type Range struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// Params is the workload half of the distribution table.
type Params struct {
	Size             sampler.LogNormal `json:"size" yaml:"size" mapstructure:"size"`
	Runtime          sampler.LogNormal `json:"runtime" yaml:"runtime" mapstructure:"runtime"`
	MaxRuntime       int               `json:"max_runtime" yaml:"max_runtime" mapstructure:"max_runtime"`
	CorrExp          float64           `json:"corr_exp" yaml:"corr_exp" mapstructure:"corr_exp"`
	Overestimate     Range             `json:"overestimate" yaml:"overestimate" mapstructure:"overestimate"`
	MeanInterArrival float64           `json:"mean_interarrival" yaml:"mean_interarrival" mapstructure:"mean_interarrival"`
	// Description overrides the generated "<m> jobs – ..." text when set.
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

func DefaultParams() Params {
	return Params{
		Size:             sampler.LogNormal{Mu: 0.8, Sigma: 1.0},
		Runtime:          sampler.LogNormal{Mu: 5.3, Sigma: 1.0},
		MaxRuntime:       1_000_000,
		CorrExp:          0.4,
		Overestimate:     Range{Min: 1.2, Max: 4.0},
		MeanInterArrival: 15,
	}
}

func DefaultDescription(jobs int) string {
	return fmt.Sprintf("%d jobs – synthetic heavy-tail", jobs)
}

func ProfileName(id int) string {
	return "P" + strconv.Itoa(id)
}

// Clock is the Poisson arrival process: a float clock advanced by
// exponential gaps and read back truncated to whole seconds.
type Clock struct {
	mean float64
	now  float64
}

func NewClock(meanInterArrival float64) *Clock {
	return &Clock{mean: meanInterArrival}
}

// Next advances the clock by one gap and returns the arrival second.
func (c *Clock) Next(s *sampler.Sampler) int {
	c.now += s.Exp(c.mean)
	return int(math.Floor(c.now))
}

// Arrivals returns m non-decreasing arrival timestamps. Two arrivals may
// share a second.
func Arrivals(m int, meanInterArrival float64, s *sampler.Sampler) []int {
	if m <= 0 {
		return nil
	}
	c := NewClock(meanInterArrival)
	out := make([]int, m)
	for i := range out {
		out[i] = c.Next(s)
	}
	return out
}

// Delay couples runtime to size with a power law: raw × size^corrExp,
// floored. With corrExp > 0 it is non-decreasing in size.
func Delay(raw, size int, corrExp float64) int {
	return int(math.Floor(float64(raw) * math.Pow(float64(size), corrExp)))
}

// Walltime is the user estimate: ceil(delay × factor), at least one second.
func Walltime(delay int, factor float64) int {
	return max(1, int(math.Ceil(float64(delay)*factor)))
}

// Synthesize draws the size, runtime and overestimation of job id arriving
// at subtime on a platform with capacity compute hosts.
func Synthesize(id, subtime, capacity int, p Params, s *sampler.Sampler) (Job, Profile) {
	size := s.LogNormalInt(p.Size, 1, capacity)
	raw := s.LogNormalInt(p.Runtime, 1, p.MaxRuntime)
	delay := Delay(raw, size, p.CorrExp)
	factor := s.Uniform(p.Overestimate.Min, p.Overestimate.Max)

	name := ProfileName(id)
	return Job{
			ID:       strconv.Itoa(id),
			Profile:  name,
			Res:      size,
			Walltime: Walltime(delay, factor),
			Subtime:  subtime,
		}, Profile{
			Delay: delay,
			Type:  ProfileTypeDelay,
		}
}

// Generate builds m jobs for a platform with capacity compute hosts. Per job
// it draws, in order, the arrival gap, size, raw runtime and overestimation
// factor; that order is what makes a seeded run reproducible.
func Generate(m, capacity int, p Params, s *sampler.Sampler) (*Workload, error) {
	if m > 0 && capacity < 1 {
		return nil, ErrNoCapacity
	}
	if m < 0 {
		m = 0
	}

	desc := p.Description
	if desc == "" {
		desc = DefaultDescription(m)
	}
	w := &Workload{
		Description: desc,
		NbRes:       capacity,
		Jobs:        make([]Job, 0, m),
		Profiles:    make(map[string]Profile, m),
	}

	clock := NewClock(p.MeanInterArrival)
	for id := 1; id <= m; id++ {
		subtime := clock.Next(s)
		job, profile := Synthesize(id, subtime, capacity, p, s)
		w.Jobs = append(w.Jobs, job)
		w.Profiles[job.Profile] = profile
	}
	return w, nil
}

// Check verifies the structural invariants of a trace: sequential ids,
// non-decreasing submission times, sizes within nb_res, positive walltimes,
// and a one-to-one job/profile mapping.
func Check(w *Workload) error {
	refs := make(map[string]string, len(w.Jobs))
	prev := math.MinInt
	for i, j := range w.Jobs {
		if want := strconv.Itoa(i + 1); j.ID != want {
			return errors.Errorf("job %d has id %q, want %q", i, j.ID, want)
		}
		if j.Subtime < prev {
			return errors.Errorf("job %s submitted at %d before previous job at %d", j.ID, j.Subtime, prev)
		}
		prev = j.Subtime
		if j.Res < 1 || j.Res > w.NbRes {
			return errors.Errorf("job %s requests %d hosts, want 1..%d", j.ID, j.Res, w.NbRes)
		}
		if j.Walltime < 1 {
			return errors.Errorf("job %s has walltime %d", j.ID, j.Walltime)
		}
		if _, ok := w.Profiles[j.Profile]; !ok {
			return errors.Errorf("job %s references missing profile %q", j.ID, j.Profile)
		}
		if other, dup := refs[j.Profile]; dup {
			return errors.Errorf("profile %q shared by jobs %s and %s", j.Profile, other, j.ID)
		}
		refs[j.Profile] = j.ID
	}
	for name := range w.Profiles {
		if _, ok := refs[name]; !ok {
			return errors.Errorf("profile %q is not referenced by any job", name)
		}
	}
	return nil
}
