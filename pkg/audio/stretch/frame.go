// ABOUTME: Frame scheduling for the time-stretch engine
// ABOUTME: Extracts zero-padded analysis frames and deposits synthesis frames
package stretch

// nextFrame fills frame with consecutive samples from ch starting at cursor.
// Positions past the end of the channel read as zero.
func nextFrame(ch []float32, cursor int, frame []float64) {
	for i := range frame {
		idx := cursor + i
		if idx < len(ch) {
			frame[i] = float64(ch[idx])
		} else {
			frame[i] = 0
		}
	}
}

// depositFrame overwrites accumulator samples starting at writeIndex.
// Writes past the accumulator's end are clipped; the accumulator never
// grows.
func depositFrame(acc []float32, writeIndex int, frame []float64) {
	for i, v := range frame {
		idx := writeIndex + i
		if idx >= len(acc) {
			return
		}
		acc[idx] = float32(v)
	}
}

// depositFrameAdd accumulates weighted samples starting at writeIndex,
// clipped the same way as depositFrame.
func depositFrameAdd(acc []float32, writeIndex int, frame, weights []float64) {
	for i, v := range frame {
		idx := writeIndex + i
		if idx >= len(acc) {
			return
		}
		acc[idx] += float32(v * weights[i])
	}
}
