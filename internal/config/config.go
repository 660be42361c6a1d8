// Package config turns command-line flags, an optional YAML settings file and
// key=value overrides into a validated run configuration.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"wave1d/internal/bench"
	"wave1d/internal/wave"
)

// Transports understood by the launcher.
const (
	TransportMesh = "mesh"
	TransportNATS = "nats"
)

// DefaultBenchFile is where benchmark results are appended.
const DefaultBenchFile = "benchmark/results.txt"

type kvList []string

func (l *kvList) String() string {
	return strings.Join(*l, ",")
}

func (l *kvList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// Config represents the command-line parameters of a run.
type Config struct {
	Params wave.Params

	Workers   int
	Threads   int
	Transport string
	NATSURL   string
	RunID     string
	Rank      int

	GUI       bool
	Print     bool
	Plot      bool
	Bench     bool
	Trials    int
	BenchFile string

	File        string
	MetricsAddr string
	CommTimeout time.Duration
	LogLevel    string

	overrides kvList
	explicit  map[string]bool
	unknown   []string
}

// NewConfig returns a Config populated with the standard defaults.
func NewConfig() *Config {
	return &Config{
		Params:    wave.DefaultParams(),
		Workers:   1,
		Threads:   1,
		Transport: TransportMesh,
		NATSURL:   "nats://127.0.0.1:4222",
		Trials:    bench.DefaultTrials,
		BenchFile: DefaultBenchFile,
		LogLevel:  "info",
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.Float64Var(&c.Params.WaveSpeed, "speed", c.Params.WaveSpeed, "wave speed, strictly between 0 and 1")
	fs.IntVar(&c.Params.TimeSteps, "steps", c.Params.TimeSteps, "number of time steps (0 runs until the viewer quits)")
	fs.IntVar(&c.Params.IntervalEnd, "interval-end", c.Params.IntervalEnd, "right edge of the line")
	fs.IntVar(&c.Params.Points, "points", c.Params.Points, "number of grid points")
	fs.IntVar(&c.Params.Periods, "periods", c.Params.Periods, "sine periods in the initial wave")
	fs.Float64Var(&c.Params.Amplitude, "amplitude", c.Params.Amplitude, "amplitude of the initial wave")
	fs.Float64Var(&c.Params.Lambda, "lambda", c.Params.Lambda, "damping coefficient")

	fs.IntVar(&c.Workers, "workers", c.Workers, "number of workers")
	fs.IntVar(&c.Threads, "threads", c.Threads, "goroutines per worker for the interior update")
	fs.StringVar(&c.Transport, "transport", c.Transport, "worker transport: mesh or nats")
	fs.StringVar(&c.NATSURL, "nats-url", c.NATSURL, "NATS server for the nats transport")
	fs.StringVar(&c.RunID, "run", c.RunID, "run id shared by all NATS workers")
	fs.IntVar(&c.Rank, "rank", c.Rank, "this process's rank for the nats transport")

	fs.BoolVar(&c.GUI, "gui", c.GUI, "show the interactive viewer")
	fs.BoolVar(&c.Print, "print", c.Print, "print the final values")
	fs.BoolVar(&c.Plot, "plot", c.Plot, "plot the final values in the terminal")
	fs.BoolVar(&c.Bench, "bench", c.Bench, "run the benchmark instead of a single run")
	fs.IntVar(&c.Trials, "trials", c.Trials, "benchmark reruns")
	fs.StringVar(&c.BenchFile, "bench-file", c.BenchFile, "append-only benchmark log")

	fs.StringVar(&c.File, "config", c.File, "YAML settings file")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address")
	fs.DurationVar(&c.CommTimeout, "comm-timeout", c.CommTimeout, "fail a receive that waits longer (0 waits forever)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.Var(&c.overrides, "set", "parameter override in key=value form (repeatable)")
}

// Resolve applies the settings file and overrides after fs has been parsed.
// Flags given on the command line win over the file; -set wins over both.
func (c *Config) Resolve(fs *flag.FlagSet) error {
	c.explicit = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { c.explicit[f.Name] = true })

	if c.File != "" {
		f, err := LoadFile(c.File)
		if err != nil {
			return err
		}
		c.apply(f)
		c.unknown = f.Unknown
	}
	if len(c.overrides) > 0 {
		kv := make(map[string]string, len(c.overrides))
		for _, o := range c.overrides {
			key, value, ok := strings.Cut(o, "=")
			if !ok {
				return fmt.Errorf("config.Resolve: override %q is not key=value: %w", o, wave.ErrConfig)
			}
			kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		p, err := c.Params.FromMap(kv)
		if err != nil {
			return fmt.Errorf("config.Resolve: %w", err)
		}
		c.Params = p
	}
	// Workers of a NATS run must be told the coordinator's id.
	if c.RunID == "" && c.Rank == 0 {
		c.RunID = uuid.NewString()
	}
	return nil
}

// Unknown lists settings-file keys that were ignored.
func (c *Config) Unknown() []string { return c.unknown }

func (c *Config) apply(f File) {
	setF := func(flagName string, dst *float64, v *float64) {
		if v != nil && !c.explicit[flagName] {
			*dst = *v
		}
	}
	setI := func(flagName string, dst *int, v *int) {
		if v != nil && !c.explicit[flagName] {
			*dst = *v
		}
	}
	setB := func(flagName string, dst *bool, v *bool) {
		if v != nil && !c.explicit[flagName] {
			*dst = *v
		}
	}
	setF("speed", &c.Params.WaveSpeed, f.Speed)
	setI("steps", &c.Params.TimeSteps, f.TimeSteps)
	setI("interval-end", &c.Params.IntervalEnd, f.IntervalEnd)
	setI("points", &c.Params.Points, f.Points)
	setI("periods", &c.Params.Periods, f.Periods)
	setF("amplitude", &c.Params.Amplitude, f.Amplitude)
	setF("lambda", &c.Params.Lambda, f.Lambda)
	setB("gui", &c.GUI, f.ShowGUI)
	setB("print", &c.Print, f.PrintValues)
}

// Validate checks the parameter set and the worker layout.
func (c *Config) Validate() error {
	if err := c.Params.Validate(c.GUI); err != nil {
		return err
	}
	if c.Threads < 1 {
		return fmt.Errorf("config.Validate: threads %d: %w", c.Threads, wave.ErrConfig)
	}
	if c.Bench && c.GUI {
		return fmt.Errorf("config.Validate: benchmark and viewer are exclusive: %w", wave.ErrConfig)
	}
	switch c.Transport {
	case TransportMesh:
		if c.Workers < 1 {
			return fmt.Errorf("config.Validate: workers %d: %w", c.Workers, wave.ErrTopology)
		}
	case TransportNATS:
		if err := wave.RequireDistributed(c.Workers); err != nil {
			return fmt.Errorf("config.Validate: %w", err)
		}
		if c.Rank < 0 || c.Rank >= c.Workers {
			return fmt.Errorf("config.Validate: rank %d of %d: %w", c.Rank, c.Workers, wave.ErrTopology)
		}
		if c.RunID == "" {
			return fmt.Errorf("config.Validate: -run is required for rank %d: %w", c.Rank, wave.ErrConfig)
		}
	default:
		return fmt.Errorf("config.Validate: transport %q: %w", c.Transport, wave.ErrConfig)
	}
	if _, err := wave.NewPartition(0, c.Workers, c.Params.Points); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// Logger builds the text logger selected by LogLevel.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("config.Logger: %w", wave.ErrConfig)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// File mirrors the YAML settings file. Absent keys leave the configuration
// untouched.
type File struct {
	Speed       *float64 `yaml:"speed"`
	TimeSteps   *int     `yaml:"time_steps"`
	IntervalEnd *int     `yaml:"interval_end"`
	Points      *int     `yaml:"points"`
	Periods     *int     `yaml:"periods"`
	Amplitude   *float64 `yaml:"amplitude"`
	Lambda      *float64 `yaml:"lambda"`
	ShowGUI     *bool    `yaml:"show_gui"`
	PrintValues *bool    `yaml:"print_values"`

	Unknown []string `yaml:"-"`
}

var knownKeys = map[string]bool{
	"speed": true, "time_steps": true, "interval_end": true, "points": true,
	"periods": true, "amplitude": true, "lambda": true, "show_gui": true,
	"print_values": true,
}

// LoadFile reads a settings file. Unrecognised keys are collected in
// File.Unknown rather than rejected.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config.LoadFile: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes settings from YAML.
func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("config.ParseFile: %v: %w", err, wave.ErrConfig)
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return File{}, fmt.Errorf("config.ParseFile: %v: %w", err, wave.ErrConfig)
	}
	for key := range raw {
		if !knownKeys[key] {
			f.Unknown = append(f.Unknown, key)
		}
	}
	sort.Strings(f.Unknown)
	return f, nil
}
