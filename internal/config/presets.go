// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Preset is a named target distribution that requests can refer to instead
// of sending fractions inline.
type Preset struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Fractions   []float64 `yaml:"fractions" json:"fractions"`
}

// presetFile is the on-disk layout of a presets file:
//
//	presets:
//	  - name: parity
//	    description: Two groups, equal share
//	    fractions: [0.5, 0.5]
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Presets is a validated set of presets keyed by name.
type Presets struct {
	byName map[string]Preset
	names  []string
}

// ErrPresetNotFound is returned by Presets.Get for unknown names.
var ErrPresetNotFound = errors.New("preset not found")

// DefaultPresets returns the built-in presets.
func DefaultPresets() *Presets {
	p, err := NewPresets([]Preset{
		{Name: "parity", Description: "Two groups, equal share", Fractions: []float64{0.5, 0.5}},
		{Name: "thirds", Description: "Three groups, equal share", Fractions: []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}},
		{Name: "minority-30", Description: "Protected group holds 30 percent", Fractions: []float64{0.3, 0.7}},
		{Name: "quartiles", Description: "Four groups, equal share", Fractions: []float64{0.25, 0.25, 0.25, 0.25}},
	}, 1e-6)
	if err != nil {
		panic(err) // built-in table is static
	}
	return p
}

// LoadPresets reads presets from a YAML file. An empty path returns the
// built-in presets.
func LoadPresets(path string, tolerance float64) (*Presets, error) {
	if path == "" {
		return DefaultPresets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file %s: %w", path, err)
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse presets file %s: %w", path, err)
	}

	return NewPresets(pf.Presets, tolerance)
}

// NewPresets validates and indexes a list of presets.
func NewPresets(list []Preset, tolerance float64) (*Presets, error) {
	p := &Presets{byName: make(map[string]Preset, len(list))}
	for i, preset := range list {
		if preset.Name == "" {
			return nil, fmt.Errorf("preset %d: name is required", i)
		}
		if _, dup := p.byName[preset.Name]; dup {
			return nil, fmt.Errorf("preset %q: duplicate name", preset.Name)
		}
		if err := validateFractions(preset.Fractions, tolerance); err != nil {
			return nil, fmt.Errorf("preset %q: %w", preset.Name, err)
		}
		preset.Fractions = append([]float64(nil), preset.Fractions...)
		p.byName[preset.Name] = preset
		p.names = append(p.names, preset.Name)
	}
	sort.Strings(p.names)
	return p, nil
}

func validateFractions(fractions []float64, tolerance float64) error {
	if len(fractions) == 0 {
		return errors.New("fractions are required")
	}
	sum := 0.0
	for g, f := range fractions {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return fmt.Errorf("fraction for group %d must be in [0, 1], got %g", g, f)
		}
		sum += f
	}
	if math.Abs(sum-1) > tolerance {
		return fmt.Errorf("fractions sum to %g, want 1", sum)
	}
	return nil
}

// Get returns a copy of the named preset.
func (p *Presets) Get(name string) (Preset, error) {
	preset, ok := p.byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	preset.Fractions = append([]float64(nil), preset.Fractions...)
	return preset, nil
}

// List returns all presets sorted by name.
func (p *Presets) List() []Preset {
	out := make([]Preset, 0, len(p.names))
	for _, name := range p.names {
		preset, _ := p.Get(name)
		out = append(out, preset)
	}
	return out
}

// Len returns the number of presets.
func (p *Presets) Len() int {
	return len(p.names)
}
