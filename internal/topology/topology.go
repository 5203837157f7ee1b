// Package topology generates the compute platform a workload runs on and
// encodes it as a SimGrid platform document.
package topology

import (
	"fmt"

	"tracegen/internal/sampler"
)

const (
	// ControlHostID names the coordination node appended to every platform.
	ControlHostID = "master_host"
	// ControlSpeed is the control node's fixed speed in Gflop/s (100 Mf).
	ControlSpeed = 0.1
)

// SpeedClass is an inclusive speed band in Gflop/s.
type SpeedClass struct {
	Name string  `json:"name" yaml:"name" mapstructure:"name"`
	Min  float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max  float64 `json:"max" yaml:"max" mapstructure:"max"`
}

func (c SpeedClass) Contains(speed float64) bool {
	return speed >= c.Min && speed <= c.Max
}

// Params is the platform half of the distribution table. The class order is
// part of the seed contract: reordering classes changes the output.
type Params struct {
	SpeedClasses []SpeedClass `json:"speed_classes" yaml:"speed_classes" mapstructure:"speed_classes"`
}

func DefaultParams() Params {
	return Params{
		SpeedClasses: []SpeedClass{
			{Name: "slow", Min: 5, Max: 8},
			{Name: "medium", Min: 8, Max: 16},
			{Name: "fast", Min: 16, Max: 26},
		},
	}
}

type Host struct {
	ID    string
	Speed float64 // Gflop/s
	Class string  // empty for the control host
}

// Platform is the generated hosts in generation order plus the control host.
type Platform struct {
	Hosts   []Host
	Control Host
}

// Size is the number of compute hosts, excluding the control host.
func (p *Platform) Size() int { return len(p.Hosts) }

// All returns the compute hosts followed by the control host.
func (p *Platform) All() []Host {
	all := make([]Host, 0, len(p.Hosts)+1)
	all = append(all, p.Hosts...)
	return append(all, p.Control)
}

// Generate builds n compute hosts named node_0..node_{n-1}. Each picks a
// class uniformly, then a speed uniformly inside the class band. n <= 0
// yields a platform holding only the control host.
func Generate(n int, params Params, s *sampler.Sampler) *Platform {
	p := &Platform{
		Control: Host{ID: ControlHostID, Speed: ControlSpeed},
	}
	if n <= 0 {
		return p
	}

	p.Hosts = make([]Host, n)
	for i := range p.Hosts {
		class := params.SpeedClasses[s.IntN(len(params.SpeedClasses))]
		p.Hosts[i] = Host{
			ID:    fmt.Sprintf("node_%d", i),
			Speed: s.Uniform(class.Min, class.Max),
			Class: class.Name,
		}
	}
	return p
}
