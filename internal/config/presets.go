package config

import (
	"sort"

	"github.com/san-kum/tanksim/internal/forcing"
)

var Presets = map[string]*Config{
	"reference": withDescription(DefaultConfig(),
		"inlet flow 5.2 -> 5.1 at index 50, feed 1.0 -> 0.5 at 30, feed temperature 300 -> 325 at 70"),
	"steady": withForcing(DefaultConfig(),
		"balanced flows with a constant feed; Ca and T settle on the feed values",
		ForcingConfig{
			InletFlow:         forcing.Constant(5.0),
			OutletFlow:        forcing.Constant(5.0),
			FeedConcentration: forcing.Constant(1.0),
			FeedTemperature:   forcing.Constant(300.0),
		}),
	"drain": withVolume(withForcing(DefaultConfig(),
		"outflow exceeds inflow; the tank loses 1 L/min from 20 L",
		ForcingConfig{
			InletFlow:         forcing.Constant(4.0),
			OutletFlow:        forcing.Constant(5.0),
			FeedConcentration: forcing.Constant(1.0),
			FeedTemperature:   forcing.Constant(300.0),
		}), 20.0),
	"heat": withForcing(DefaultConfig(),
		"balanced flows with the feed temperature raised 20 K at indices 25, 50 and 75",
		ForcingConfig{
			InletFlow:         forcing.Constant(5.0),
			OutletFlow:        forcing.Constant(5.0),
			FeedConcentration: forcing.Constant(1.0),
			FeedTemperature: forcing.Signal{Base: 300.0, Steps: []forcing.Step{
				{Index: 25, Value: 320.0},
				{Index: 50, Value: 340.0},
				{Index: 75, Value: 360.0},
			}},
		}),
}

func withDescription(c *Config, desc string) *Config {
	c.Description = desc
	return c
}

func withForcing(c *Config, desc string, f ForcingConfig) *Config {
	c.Description = desc
	c.Forcing = f
	return c
}

func withVolume(c *Config, v float64) *Config {
	c.Initial.Volume = v
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
