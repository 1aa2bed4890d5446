// Package main provides CMA-ES optimization for the morph kernel constants.
package main

import (
	"github.com/pthm-cable/pointmorph/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "damping", Path: "kernels.damping", Min: 0.5, Max: 0.99},
			{Name: "attraction", Path: "kernels.attraction", Min: 0.002, Max: 0.2},
			{Name: "max_speed", Path: "kernels.max_speed", Min: 0.005, Max: 0.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
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
	clamped := pv.Clamp(values)
	cfg.Kernels.Damping = clamped[0]
	cfg.Kernels.Attraction = clamped[1]
	cfg.Kernels.MaxSpeed = clamped[2]
}

// ExtractFromConfig extracts current parameter values from a Config struct,
// clamped to the search bounds.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return pv.Clamp([]float64{
		cfg.Kernels.Damping,
		cfg.Kernels.Attraction,
		cfg.Kernels.MaxSpeed,
	})
}
