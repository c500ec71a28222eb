// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Interpolates whole PCM buffers to a target rate
package resample

import (
	"fmt"

	"github.com/Tempo-Audio/tempo-go/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
}

// New creates a new resampler
func New(inputRate, outputRate int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}, nil
}

// Resample converts the buffer to the output sample rate using linear
// interpolation. The input must be at the resampler's input rate; a new
// buffer is returned and the input is never modified.
func (r *Resampler) Resample(buf *audio.Buffer) (*audio.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.SampleRate != r.inputRate {
		return nil, fmt.Errorf("buffer rate %d does not match resampler input rate %d",
			buf.SampleRate, r.inputRate)
	}

	inFrames := buf.FrameCount()
	outFrames := r.OutputFrames(inFrames)
	out := audio.NewBuffer(buf.ChannelCount(), r.outputRate, outFrames)

	for c, ch := range buf.Channels {
		dst := out.Channels[c]
		position := 0.0
		for i := 0; i < outFrames; i++ {
			idx := int(position)
			frac := position - float64(idx)

			// Hold the final sample once interpolation would read past
			// the input's end.
			if idx >= inFrames-1 {
				dst[i] = ch[inFrames-1]
			} else {
				s1 := float64(ch[idx])
				s2 := float64(ch[idx+1])
				dst[i] = float32(s1*(1.0-frac) + s2*frac)
			}
			position += r.ratio
		}
	}
	return out, nil
}

// OutputFrames calculates how many output frames an input of the given
// length produces.
func (r *Resampler) OutputFrames(inputFrames int) int {
	if inputFrames <= 0 {
		return 0
	}
	return int(float64(inputFrames) / r.ratio)
}

// InputFrames calculates how many input frames are needed to produce the
// given number of output frames.
func (r *Resampler) InputFrames(outputFrames int) int {
	if outputFrames <= 0 {
		return 0
	}
	return int(float64(outputFrames) * r.ratio)
}
