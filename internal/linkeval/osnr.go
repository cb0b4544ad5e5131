package linkeval

import "math"

// OSNRModel turns the span loss of one amplified span into the linear
// noise-to-signal ratio it adds. Contributions of consecutive spans are
// summed, so the model must return values that are additive.
type OSNRModel interface {
	NoiseLinear(spanLossDB float64) float64
}

// ASEModel accounts for amplified spontaneous emission of the in-line
// amplifier that compensates the span: OSNR_dB = 58 + P - NF - loss.
type ASEModel struct {
	LaunchPowerDBm float64 `yaml:"launch_power_dbm"`
	NoiseFigureDB  float64 `yaml:"noise_figure_db" validate:"gte=0"`
}

// DefaultASEModel returns 0 dBm launch power and a 5.5 dB noise figure.
func DefaultASEModel() ASEModel {
	return ASEModel{LaunchPowerDBm: 0, NoiseFigureDB: 5.5}
}

// OSNRdB is the OSNR of a single span with the given loss.
func (m ASEModel) OSNRdB(spanLossDB float64) float64 {
	return 58 + m.LaunchPowerDBm - m.NoiseFigureDB - spanLossDB
}

// NoiseLinear implements OSNRModel.
func (m ASEModel) NoiseLinear(spanLossDB float64) float64 {
	return math.Pow(10, -m.OSNRdB(spanLossDB)/10)
}

// OSNRFromNoise converts accumulated linear noise back to dB. Zero noise
// is an infinite OSNR.
func OSNRFromNoise(noise float64) float64 {
	if noise <= 0 {
		return math.Inf(1)
	}
	return -10 * math.Log10(noise)
}
