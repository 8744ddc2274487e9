package main

import (
	"math"

	"github.com/pthm-cable/swarmmind/config"
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
			// Movement blender
			{Name: "avoid_weight", Path: "movement.avoid_weight", Min: 0.1, Max: 1.0, Default: 0.7},
			{Name: "flank_weight", Path: "movement.flank_weight", Min: 0.1, Max: 1.0, Default: 0.6},
			// Grouping
			{Name: "swarm_radius", Path: "swarm.radius", Min: 1.5, Max: 8.0, Default: 4.0},
			// Heat threshold (integer hit count)
			{Name: "hot_intensity", Path: "heatmap.hot_intensity", Min: 1, Max: 8, Default: 3},
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
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Movement.AvoidWeight = clamped[0]
	cfg.Movement.FlankWeight = clamped[1]
	cfg.Swarm.Radius = clamped[2]
	cfg.Heatmap.HotIntensity = int(math.Round(clamped[3]))
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Movement.AvoidWeight,
		cfg.Movement.FlankWeight,
		cfg.Swarm.Radius,
		float64(cfg.Heatmap.HotIntensity),
	}
}
