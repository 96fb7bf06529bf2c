package main

import (
	"github.com/pthm-cable/sprout/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Bud branching
			{Name: "bud_activation", Path: "growth.bud.activation_threshold", Min: 0.99, Max: 0.9999, Default: 0.999},
			{Name: "leaf_threshold", Path: "growth.bud.leaf_threshold", Min: 0.0, Max: 0.9, Default: 0.3},
			{Name: "leaf_tilt", Path: "growth.bud.leaf_tilt", Min: 0.1, Max: 1.5, Default: 1.0},
			// Segment growth
			{Name: "stem_length_max", Path: "growth.stem.length.max", Min: 0.05, Max: 0.5, Default: 0.1},
			{Name: "stem_length_rate", Path: "growth.stem.length.rate", Min: 0.1, Max: 3.0, Default: 1.0},
			{Name: "stem_radius_max", Path: "growth.stem.radius.max", Min: 0.005, Max: 0.05, Default: 0.02},
			{Name: "leaf_length_max", Path: "growth.leaf.length.max", Min: 0.1, Max: 0.6, Default: 0.3},
			{Name: "leaf_length_rate", Path: "growth.leaf.length.rate", Min: 0.01, Max: 1.0, Default: 0.1},
			// Tunables
			{Name: "sunlight", Path: "tunables.sunlight", Min: 0.2, Max: 2.0, Default: 1.0},
			{Name: "moisture", Path: "tunables.moisture", Min: 0.2, Max: 2.0, Default: 1.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	i := 0
	next := func() float64 { v := c[i]; i++; return v }

	cfg.Growth.Bud.ActivationThreshold = next()
	cfg.Growth.Bud.LeafThreshold = next()
	cfg.Growth.Bud.LeafTilt = next()

	cfg.Growth.Stem.Length.Max = next()
	cfg.Growth.Stem.Length.Rate = next()
	cfg.Growth.Stem.Radius.Max = next()
	cfg.Growth.Leaf.Length.Max = next()
	cfg.Growth.Leaf.Length.Rate = next()

	cfg.Tunables.Sunlight = next()
	cfg.Tunables.Moisture = next()

	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Growth.Bud.ActivationThreshold,
		cfg.Growth.Bud.LeafThreshold,
		cfg.Growth.Bud.LeafTilt,
		cfg.Growth.Stem.Length.Max,
		cfg.Growth.Stem.Length.Rate,
		cfg.Growth.Stem.Radius.Max,
		cfg.Growth.Leaf.Length.Max,
		cfg.Growth.Leaf.Length.Rate,
		cfg.Tunables.Sunlight,
		cfg.Tunables.Moisture,
	}
}
