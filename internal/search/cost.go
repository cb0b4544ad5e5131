package search

import (
	"github.com/signalsfoundry/optical-pce/internal/graph"
	"github.com/signalsfoundry/optical-pce/internal/linkeval"
)

// CostModel prices one link. Path cost is the sum of link costs, so a
// model must be additive and must not return negative values.
type CostModel interface {
	LinkCost(l *graph.Link, m *linkeval.Metrics) float64
}

// WeightedCost charges latency plus a penalty for the OSNR margin a link
// erodes, measured as its linear noise contribution.
type WeightedCost struct {
	LatencyWeight float64 `yaml:"latency_weight" validate:"gte=0"`
	OSNRWeight    float64 `yaml:"osnr_weight" validate:"gte=0"`
}

// noiseScale brings linear noise (around 1e-4 per span) to the order of
// magnitude of a latency in microseconds.
const noiseScale = 1e4

// DefaultWeightedCost weighs latency and noise equally.
func DefaultWeightedCost() WeightedCost {
	return WeightedCost{LatencyWeight: 1, OSNRWeight: 1}
}

// LinkCost implements CostModel.
func (w WeightedCost) LinkCost(_ *graph.Link, m *linkeval.Metrics) float64 {
	c := w.LatencyWeight*m.LatencyUs + w.OSNRWeight*m.NoiseLinear*noiseScale
	if c < 0 {
		return 0
	}
	return c
}

// HopCost charges one unit per link.
type HopCost struct{}

// LinkCost implements CostModel.
func (HopCost) LinkCost(*graph.Link, *linkeval.Metrics) float64 { return 1 }
