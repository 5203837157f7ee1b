// Package config holds the generator's parameter table: run sizes, seed,
// output paths and the distribution parameters of the trace model.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tracegen/internal/topology"
	"tracegen/internal/workload"
)

const (
	DefaultMachines = 20
	DefaultJobs     = 200

	envPrefix = "TRACEGEN"
	fileName  = ".tracegen"
)

type Config struct {
	Machines int `yaml:"machines" mapstructure:"machines"`
	Jobs     int `yaml:"jobs" mapstructure:"jobs"`
	// Seed makes a run reproducible. Nil draws one from system entropy.
	Seed *uint64 `yaml:"seed,omitempty" mapstructure:"seed"`

	PlatformPath string `yaml:"platform_path,omitempty" mapstructure:"platform_path"`
	WorkloadPath string `yaml:"workload_path,omitempty" mapstructure:"workload_path"`

	// RejectLimit bounds consecutive bounded-sampler rejections before the
	// draw is clamped. Zero keeps the rejection loop uncapped.
	RejectLimit int `yaml:"reject_limit" mapstructure:"reject_limit"`

	Platform topology.Params `yaml:"platform" mapstructure:"platform"`
	Workload workload.Params `yaml:"workload" mapstructure:"workload"`
}

func Default() Config {
	return Config{
		Machines: DefaultMachines,
		Jobs:     DefaultJobs,
		Platform: topology.DefaultParams(),
		Workload: workload.DefaultParams(),
	}
}

// PlatformFile is the platform output path, "<n>machines.xml" when unset.
func (c *Config) PlatformFile() string {
	if c.PlatformPath != "" {
		return c.PlatformPath
	}
	return fmt.Sprintf("%dmachines.xml", c.Machines)
}

// WorkloadFile is the workload output path, "<m>jobs.json" when unset.
func (c *Config) WorkloadFile() string {
	if c.WorkloadPath != "" {
		return c.WorkloadPath
	}
	return fmt.Sprintf("%djobs.json", c.Jobs)
}

// Validate rejects parameter tables the generator cannot sample from. It
// does not prove that every bounded draw terminates quickly; it only rules
// out ranges that are empty or inverted.
func (c *Config) Validate() error {
	if c.Machines < 0 {
		return errors.Errorf("machines must be >= 0, got %d", c.Machines)
	}
	if c.Jobs < 0 {
		return errors.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.Jobs > 0 && c.Machines < 1 {
		return errors.Wrapf(workload.ErrNoCapacity, "%d jobs on %d machines", c.Jobs, c.Machines)
	}
	if c.RejectLimit < 0 {
		return errors.Errorf("reject_limit must be >= 0, got %d", c.RejectLimit)
	}

	if c.Machines > 0 && len(c.Platform.SpeedClasses) == 0 {
		return errors.New("platform.speed_classes is empty")
	}
	for _, sc := range c.Platform.SpeedClasses {
		if sc.Min <= 0 || sc.Max <= sc.Min {
			return errors.Errorf("speed class %q: want 0 < min < max, got [%v, %v]", sc.Name, sc.Min, sc.Max)
		}
	}

	w := c.Workload
	if w.Size.Sigma <= 0 {
		return errors.Errorf("workload.size.sigma must be > 0, got %v", w.Size.Sigma)
	}
	if w.Runtime.Sigma <= 0 {
		return errors.Errorf("workload.runtime.sigma must be > 0, got %v", w.Runtime.Sigma)
	}
	if w.MaxRuntime < 1 {
		return errors.Errorf("workload.max_runtime must be >= 1, got %d", w.MaxRuntime)
	}
	if w.CorrExp < 0 {
		return errors.Errorf("workload.corr_exp must be >= 0, got %v", w.CorrExp)
	}
	if w.Overestimate.Min <= 1 || w.Overestimate.Max <= w.Overestimate.Min {
		return errors.Errorf("workload.overestimate: want 1 < min < max, got [%v, %v)",
			w.Overestimate.Min, w.Overestimate.Max)
	}
	if w.MeanInterArrival <= 0 {
		return errors.Errorf("workload.mean_interarrival must be > 0, got %v", w.MeanInterArrival)
	}
	return nil
}

// NewViper returns a viper instance primed with the default table, so every
// key can be overridden from a config file or a TRACEGEN_* variable
// (nested keys join with underscores: TRACEGEN_WORKLOAD_CORR_EXP).
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("seed"); err != nil {
		return nil, errors.Wrap(err, "binding seed env")
	}

	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v, nil
}

// ReadFile loads path into v. With an empty path it looks for .tracegen.yaml
// in the working directory and then the home directory, and a missing file
// is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return errors.Wrapf(v.ReadInConfig(), "reading config %s", path)
	}

	v.SetConfigName(fileName)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	err := v.ReadInConfig()
	if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
		return nil
	}
	return errors.Wrap(err, "reading config")
}

// Load decodes the effective table from v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}

// Dump renders cfg as a YAML document that Load accepts back.
func Dump(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	return out, errors.Wrap(err, "encoding config")
}

// WriteFile writes cfg next to the generated documents, creating the parent
// directory.
func WriteFile(path string, cfg Config) error {
	out, err := Dump(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dirs for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o644), "writing %s", path)
}

func toMap(cfg Config) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding defaults")
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "decoding defaults")
	}
	return m, nil
}
