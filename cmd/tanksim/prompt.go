package main

import (
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/san-kum/tanksim/internal/config"
)

// promptInitial asks for V0, Ca0 and T0, starting from current. Each field is
// checked as it is typed; the three are range-checked together on submit.
func promptInitial(current config.InitialConfig) (config.InitialConfig, error) {
	v := strconv.FormatFloat(current.Volume, 'g', -1, 64)
	ca := strconv.FormatFloat(current.Concentration, 'g', -1, 64)
	t := strconv.FormatFloat(current.Temperature, 'g', -1, 64)

	field := func(name string) func(string) error {
		return func(s string) error {
			_, err := config.ParseFloat(name, s)
			return err
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Initial volume V0 (L)").
				Value(&v).
				Validate(field("volume")),
			huh.NewInput().
				Title("Initial concentration Ca0 (mol/L)").
				Value(&ca).
				Validate(field("concentration")),
			huh.NewInput().
				Title("Initial temperature T0 (K)").
				Value(&t).
				Validate(field("temperature")),
		),
	)
	if err := form.Run(); err != nil {
		return config.InitialConfig{}, err
	}

	return config.ParseInitial(v, ca, t)
}
