// ABOUTME: Per-sample phase tracking state for the time-stretch engine
// ABOUTME: Estimates instantaneous frequency and accumulates synthesis phase
package stretch

import "math"

const twoPi = 2 * math.Pi

// phaseState carries one channel's running phase through the frame loop.
// The zero value is the correct starting state for a new conversion.
type phaseState struct {
	lastPhase     float64 // raw phase estimate from the previous sample
	sumPhase      float64 // cumulative synthesis phase
	expectedPhase float64 // cumulative analysis phase at nominal rate
}

// step consumes one input sample and produces one synthesized sample.
//
// The instantaneous phase is estimated from the current sample against the
// previous raw phase, then unwrapped to the nearest multiple of 2pi around
// the expected per-frame advance omega. The deviation yields an
// instantaneous frequency; the synthesis phase advances by that frequency
// scaled by rate, and the output sample is the cosine of the accumulated
// synthesis phase.
func (p *phaseState) step(sample, rate, omega float64) float64 {
	var phase float64
	if sample != 0 || p.lastPhase != 0 {
		phase = math.Atan2(sample, p.lastPhase)
	}

	delta := phase - p.lastPhase - omega
	delta -= twoPi * math.Round(delta/twoPi)

	freq := omega + delta
	if math.IsNaN(freq) || math.IsInf(freq, 0) {
		freq = 0
	}

	p.sumPhase += rate * freq
	p.expectedPhase += omega
	p.lastPhase = phase

	return math.Cos(p.sumPhase)
}
