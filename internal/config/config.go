package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
)

const (
	DefaultVolume        = 1.0
	DefaultConcentration = 0.5
	DefaultTemperature   = 350.0
	DefaultStart         = 0.0
	DefaultEnd           = 10.0
	DefaultPoints        = 100
	DefaultMethod        = "rk45"
)

var validate = validator.New()

type Config struct {
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Initial     InitialConfig `yaml:"initial" json:"initial"`
	Grid        GridConfig    `yaml:"grid" json:"grid"`
	Solver      SolverConfig  `yaml:"solver" json:"solver"`
	Forcing     ForcingConfig `yaml:"forcing" json:"forcing"`
}

type InitialConfig struct {
	Volume        float64 `yaml:"volume" json:"volume" validate:"gt=0"`
	Concentration float64 `yaml:"concentration" json:"concentration" validate:"gte=0"`
	Temperature   float64 `yaml:"temperature" json:"temperature" validate:"gt=0"`
}

type GridConfig struct {
	Start  float64 `yaml:"start" json:"start" validate:"gte=0"`
	End    float64 `yaml:"end" json:"end" validate:"gtfield=Start"`
	Points int     `yaml:"points" json:"points" validate:"gte=2"`
}

type SolverConfig struct {
	Method      string        `yaml:"method" json:"method" validate:"oneof=rk45 rk4 euler"`
	Rtol        float64       `yaml:"rtol" json:"rtol" validate:"gte=0"`
	Atol        float64       `yaml:"atol" json:"atol" validate:"gte=0"`
	InitialStep float64       `yaml:"initial_step,omitempty" json:"initial_step,omitempty" validate:"gte=0"`
	MinStep     float64       `yaml:"min_step" json:"min_step" validate:"gt=0"`
	MaxStep     float64       `yaml:"max_step,omitempty" json:"max_step,omitempty" validate:"gte=0"`
	MaxSteps    int           `yaml:"max_steps" json:"max_steps" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"gte=0"`
}

// ForcingConfig holds the four input signals. A forcing section in a config
// file replaces the default schedule as a whole.
type ForcingConfig struct {
	InletFlow         forcing.Signal `yaml:"inlet_flow" json:"inlet_flow"`
	OutletFlow        forcing.Signal `yaml:"outlet_flow" json:"outlet_flow"`
	FeedConcentration forcing.Signal `yaml:"feed_concentration" json:"feed_concentration"`
	FeedTemperature   forcing.Signal `yaml:"feed_temperature" json:"feed_temperature"`
}

func DefaultConfig() *Config {
	solver := dynamo.DefaultConfig()
	return &Config{
		Initial: InitialConfig{
			Volume:        DefaultVolume,
			Concentration: DefaultConcentration,
			Temperature:   DefaultTemperature,
		},
		Grid: GridConfig{
			Start:  DefaultStart,
			End:    DefaultEnd,
			Points: DefaultPoints,
		},
		Solver: SolverConfig{
			Method:   DefaultMethod,
			Rtol:     solver.Rtol,
			Atol:     solver.Atol,
			MinStep:  solver.MinStep,
			MaxSteps: solver.MaxSteps,
		},
		Forcing: ReferenceForcing(),
	}
}

// ReferenceForcing is the stock schedule of forcing.Reference.
func ReferenceForcing() ForcingConfig {
	return ForcingConfig{
		InletFlow:         forcing.StepAt(5.2, 50, 5.1),
		OutletFlow:        forcing.Constant(5.0),
		FeedConcentration: forcing.StepAt(1.0, 30, 0.5),
		FeedTemperature:   forcing.StepAt(300.0, 70, 325.0),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var probe struct {
		Forcing *yaml.Node `yaml:"forcing"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := DefaultConfig()
	if probe.Forcing != nil {
		cfg.Forcing = ForcingConfig{}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field. A non-positive initial volume is reported as
// dynamo.ErrSingularState since the balances divide by it.
func (c *Config) Validate() error {
	if v := c.Initial.Volume; !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("config: initial volume %g: %w", v, dynamo.ErrSingularState)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s fails %q (%v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.Solver.Rtol+c.Solver.Atol <= 0 {
		return errors.New("config: rtol and atol cannot both be zero")
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Clone() *Config {
	out := *c
	out.Forcing = ForcingConfig{
		InletFlow:         cloneSignal(c.Forcing.InletFlow),
		OutletFlow:        cloneSignal(c.Forcing.OutletFlow),
		FeedConcentration: cloneSignal(c.Forcing.FeedConcentration),
		FeedTemperature:   cloneSignal(c.Forcing.FeedTemperature),
	}
	return &out
}

func cloneSignal(s forcing.Signal) forcing.Signal {
	out := forcing.Signal{Base: s.Base}
	if len(s.Steps) > 0 {
		out.Steps = append([]forcing.Step(nil), s.Steps...)
	}
	return out
}

func (c *Config) InitialState() dynamo.State {
	return dynamo.State{c.Initial.Volume, c.Initial.Concentration, c.Initial.Temperature}
}

func (c *Config) Schedule() (*forcing.Schedule, error) {
	return forcing.NewSchedule(c.Grid.Points,
		c.Forcing.InletFlow,
		c.Forcing.OutletFlow,
		c.Forcing.FeedConcentration,
		c.Forcing.FeedTemperature,
	)
}

func (c *Config) SolverOptions() dynamo.Config {
	return dynamo.Config{
		Rtol:        c.Solver.Rtol,
		Atol:        c.Solver.Atol,
		InitialStep: c.Solver.InitialStep,
		MinStep:     c.Solver.MinStep,
		MaxStep:     c.Solver.MaxStep,
		MaxSteps:    c.Solver.MaxSteps,
		Timeout:     c.Solver.Timeout,
	}
}

// ParseFloat reads one initial-condition field. Anything that is not a
// finite real number is an *dynamo.InputParseError.
func ParseFloat(field, input string) (float64, error) {
	s := strings.TrimSpace(input)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &dynamo.InputParseError{Field: field, Input: input, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &dynamo.InputParseError{Field: field, Input: input, Err: errors.New("not a finite number")}
	}
	return v, nil
}

// ParseInitial parses the three initial conditions. Parse errors are
// reported before range errors.
func ParseInitial(volume, concentration, temperature string) (InitialConfig, error) {
	var (
		ic  InitialConfig
		err error
	)
	if ic.Volume, err = ParseFloat("volume", volume); err != nil {
		return InitialConfig{}, err
	}
	if ic.Concentration, err = ParseFloat("concentration", concentration); err != nil {
		return InitialConfig{}, err
	}
	if ic.Temperature, err = ParseFloat("temperature", temperature); err != nil {
		return InitialConfig{}, err
	}
	if err := ic.Validate(); err != nil {
		return InitialConfig{}, err
	}
	return ic, nil
}

func (ic InitialConfig) Validate() error {
	if !(ic.Volume > 0) {
		return fmt.Errorf("config: initial volume %g: %w", ic.Volume, dynamo.ErrSingularState)
	}
	if ic.Concentration < 0 {
		return fmt.Errorf("config: initial concentration %g must be >= 0", ic.Concentration)
	}
	if !(ic.Temperature > 0) {
		return fmt.Errorf("config: initial temperature %g must be > 0", ic.Temperature)
	}
	return nil
}
