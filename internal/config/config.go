// Package config loads percolator settings from a YAML file and command-line
// flags and applies them to an engine and session.
//
// A file is optional; flags given explicitly on the command line override
// values read from it.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yshklarov/percolator/internal/engine"
	"github.com/yshklarov/percolator/internal/lattice"
	"github.com/yshklarov/percolator/internal/session"
)

// MeasureConfig selects a fill rule. P and Seed apply to bernoulli, Period
// to dots and diagonals.
type MeasureConfig struct {
	Kind   string  `yaml:"kind"`
	P      float64 `yaml:"p"`
	Seed   uint64  `yaml:"seed"`
	Period int     `yaml:"period,omitempty"`
}

// FlowConfig holds the flow settings.
type FlowConfig struct {
	Direction string  `yaml:"direction"` // top, all_sides
	Speed     float64 `yaml:"speed"`     // steps per second
}

// Config is the complete set of user settings.
type Config struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Measure       MeasureConfig `yaml:"measure"`
	Flow          FlowConfig    `yaml:"flow"`
	Torus         lattice.Torus `yaml:"torus"`
	Mode          string        `yaml:"mode"` // flow, clusters
	AutoPercolate bool          `yaml:"auto_percolate"`
	AutoFind      bool          `yaml:"auto_find"`
	AutoFlow      bool          `yaml:"auto_flow"`
	MaxSites      int           `yaml:"max_sites,omitempty"`
}

// DefaultConfig returns the settings of a fresh interactive session.
func DefaultConfig() Config {
	return Config{
		Width:  30,
		Height: 30,
		Measure: MeasureConfig{
			Kind: "bernoulli",
			P:    lattice.Threshold,
			Seed: 1,
		},
		Flow: FlowConfig{
			Direction: "top",
			Speed:     10,
		},
		Mode: "flow",
	}
}

// LoadFrom reads a YAML file over the defaults. A missing file yields the
// defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SaveTo writes cfg as YAML, creating the directory if needed.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "lattice width in sites")
	fs.IntVar(&c.Height, "height", c.Height, "lattice height in sites")
	fs.StringVar(&c.Measure.Kind, "measure", c.Measure.Kind, "fill rule: bernoulli, open, checkerboard, dots, diagonals")
	fs.Float64Var(&c.Measure.P, "p", c.Measure.P, "probability that a site is open (bernoulli)")
	fs.Uint64Var(&c.Measure.Seed, "seed", c.Measure.Seed, "seed for random fill rules")
	fs.IntVar(&c.Measure.Period, "period", c.Measure.Period, "pattern period (dots, diagonals)")
	fs.StringVar(&c.Flow.Direction, "direction", c.Flow.Direction, "flow entryways: top or all_sides")
	fs.Float64Var(&c.Flow.Speed, "speed", c.Flow.Speed, "flow speed in steps per second")
	fs.BoolVar(&c.Torus.X, "torus-x", c.Torus.X, "join the left and right columns")
	fs.BoolVar(&c.Torus.Y, "torus-y", c.Torus.Y, "join the top and bottom rows")
	fs.StringVar(&c.Mode, "mode", c.Mode, "percolation mode: flow or clusters")
	fs.BoolVar(&c.AutoPercolate, "auto-percolate", c.AutoPercolate, "flood every new lattice fully")
	fs.BoolVar(&c.AutoFind, "auto-find", c.AutoFind, "find clusters in every new lattice")
	fs.BoolVar(&c.AutoFlow, "auto-flow", c.AutoFlow, "start flowing on every new lattice")
	fs.IntVar(&c.MaxSites, "max-sites", c.MaxSites, "refuse lattices with more sites (0 = no limit)")
}

// Parse registers a -config flag next to the bound settings, parses args,
// and returns the file's settings with explicitly given flags applied on
// top. It also returns the config path, if any.
func Parse(fs *flag.FlagSet, args []string) (Config, string, error) {
	cfg := DefaultConfig()
	path := fs.String("config", "", "YAML configuration file")
	cfg.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, "", err
	}
	if *path == "" {
		return cfg, "", cfg.Validate()
	}
	fromFile, err := LoadFrom(*path)
	if err != nil {
		return cfg, *path, err
	}
	merged, err := Overlay(fromFile, fs)
	if err != nil {
		return cfg, *path, err
	}
	return merged, *path, merged.Validate()
}

// Overlay returns base with every flag explicitly set on fs applied.
func Overlay(base Config, fs *flag.FlagSet) (Config, error) {
	over := flag.NewFlagSet("overlay", flag.ContinueOnError)
	base.Bind(over)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if over.Lookup(f.Name) == nil {
			return
		}
		if setErr := over.Set(f.Name, f.Value.String()); setErr != nil {
			err = errors.Join(err, setErr)
		}
	})
	return base, err
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Width < 1 || c.Width > session.MaxSide || c.Height < 1 || c.Height > session.MaxSide {
		errs = append(errs, fmt.Errorf("size %dx%d out of range [1,%d]", c.Width, c.Height, session.MaxSide))
	}
	if _, err := c.LatticeMeasure(); err != nil {
		errs = append(errs, err)
	}
	if _, err := lattice.ParseFlowDirection(c.Flow.Direction); err != nil {
		errs = append(errs, err)
	}
	if c.Flow.Speed < engine.MinFlowSpeed || c.Flow.Speed > engine.MaxFlowSpeed {
		errs = append(errs, fmt.Errorf("flow speed %g out of range [%g,%g]", c.Flow.Speed, engine.MinFlowSpeed, engine.MaxFlowSpeed))
	}
	if _, err := session.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.MaxSites < 0 {
		errs = append(errs, fmt.Errorf("max_sites must not be negative, got %d", c.MaxSites))
	}
	return errors.Join(errs...)
}

// LatticeMeasure builds the configured fill rule.
func (c Config) LatticeMeasure() (lattice.Measure, error) {
	params := map[string]string{}
	switch c.Measure.Kind {
	case "bernoulli":
		params["p"] = strconv.FormatFloat(c.Measure.P, 'g', -1, 64)
		params["seed"] = strconv.FormatUint(c.Measure.Seed, 10)
	case "dots", "diagonals":
		if c.Measure.Period != 0 {
			params["period"] = strconv.Itoa(c.Measure.Period)
		}
	}
	return lattice.ParseMeasure(c.Measure.Kind, params)
}

// EngineOptions converts the flow, torus and size-limit settings.
func (c Config) EngineOptions() ([]engine.Option, error) {
	dir, err := lattice.ParseFlowDirection(c.Flow.Direction)
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithFlowDirection(dir),
		engine.WithTorus(c.Torus),
		engine.WithFlowSpeed(c.Flow.Speed),
		engine.WithMaxSites(c.MaxSites),
	}, nil
}

// NewEngine starts an engine for c.
func (c Config) NewEngine(extra ...engine.Option) (*engine.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m, err := c.LatticeMeasure()
	if err != nil {
		return nil, err
	}
	opts, err := c.EngineOptions()
	if err != nil {
		return nil, err
	}
	return engine.New(c.Width, c.Height, m, append(opts, extra...)...), nil
}

// SessionOptions converts the mode and automatic toggles.
func (c Config) SessionOptions() session.Options {
	mode, _ := session.ParseMode(c.Mode)
	return session.Options{
		Mode:          mode,
		AutoPercolate: c.AutoPercolate,
		AutoFind:      c.AutoFind,
		AutoFlow:      c.AutoFlow,
		Seed:          int64(c.Measure.Seed),
	}
}

// Apply pushes c into a running engine and refills it. Invalid settings
// leave the engine untouched.
func (c Config) Apply(e *engine.Engine) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m, err := c.LatticeMeasure()
	if err != nil {
		return err
	}
	dir, _ := lattice.ParseFlowDirection(c.Flow.Direction)
	e.SetSize(c.Width, c.Height)
	e.SetMeasure(m)
	e.SetFlowDirection(dir)
	e.SetTorus(c.Torus)
	e.SetFlowSpeed(c.Flow.Speed)
	e.Fill()
	return nil
}
