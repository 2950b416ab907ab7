package audioio

import (
	"github.com/chewxy/math32"
)

// Despike removes spikes from interleaved data in place. If up to n
// successive samples of a channel stick out by more than thresh,
// they are replaced by values interpolated from the two samples
// right before and after the spike.
func Despike(data []float32, channels int, thresh float32, n int) {
	if channels < 1 || n < 1 {
		return
	}
	frames := len(data) / channels
	for c := 0; c < channels; c++ {
		despikeTrace(data[c:], channels, frames, thresh, n)
	}
}

func despikeTrace(x []float32, stride, frames int, thresh float32, n int) {
	at := func(i int) float32 { return x[i*stride] }
	for k := n; k >= 1; k-- {
		for i := 1; i+k < frames; i++ {
			d0 := at(i) - at(i-1)
			d1 := at(i+k-1) - at(i+k)
			if (d0 > thresh && d1 > thresh) || (d0 < -thresh && d1 < -thresh) {
				for j := 0; j < k; j++ {
					x[(i+j)*stride] = (float32(k-j)*at(i-1) +
						float32(1+j)*at(i+k)) / float32(k+1)
				}
			}
		}
	}
}

// Unwrap undoes the wrapping of clipped samples in interleaved data
// in place. Some amplifiers and ADCs fold samples that exceed the
// input range back onto the opposite side. Steps between successive
// samples of a channel larger than thresh times amplMax start an
// unwrap of two times amplMax. The unwrapped data may exceed
// [-amplMax, amplMax].
func Unwrap(data []float32, channels int, thresh, amplMax float32) {
	if channels < 1 {
		return
	}
	frames := len(data) / channels
	thresh *= amplMax
	for c := 0; c < channels; c++ {
		unwrapTrace(data[c:], channels, frames, thresh, amplMax)
	}
}

func unwrapTrace(x []float32, stride, frames int, thresh, amplMax float32) {
	step := float32(0)
	for i := 1; i < frames; i++ {
		cstep := float32(0)
		v := x[i*stride]
		dd := v - x[(i-1)*stride]
		if v >= 0 && math32.Abs(dd-2*amplMax) < math32.Abs(dd) {
			cstep = -2 * amplMax
		}
		if v <= 0 && math32.Abs(dd+2*amplMax) < math32.Abs(dd+cstep) {
			cstep = 2 * amplMax
		}
		if step != cstep && (cstep == 0 || math32.Abs(dd) > thresh) {
			step = cstep
		}
		x[i*stride] += step
	}
}

// Clip limits all samples to [-amplMax, amplMax] in place.
func Clip(data []float32, amplMax float32) {
	for i, v := range data {
		if v > amplMax {
			data[i] = amplMax
		} else if v < -amplMax {
			data[i] = -amplMax
		}
	}
}

// Scale multiplies all samples by fac in place.
func Scale(data []float32, fac float32) {
	for i := range data {
		data[i] *= fac
	}
}

// AdjustChannels converts interleaved data between channel counts.
// Fewer target channels select the first ones, going up from mono
// duplicates it, any other expansion zero-fills the missing
// channels. Same counts return data unchanged.
func AdjustChannels(data []float32, channels, target int) []float32 {
	if channels == target || channels < 1 || target < 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]float32, frames*target)
	switch {
	case target < channels:
		for i := 0; i < frames; i++ {
			copy(out[i*target:(i+1)*target], data[i*channels:i*channels+target])
		}
	case channels == 1:
		for i := 0; i < frames; i++ {
			for c := 0; c < target; c++ {
				out[i*target+c] = data[i]
			}
		}
	default:
		for i := 0; i < frames; i++ {
			copy(out[i*target:], data[i*channels:(i+1)*channels])
		}
	}
	return out
}

// DownMix mixes interleaved data down to target channels by
// averaging groups of input channels. Used ahead of playback devices
// that support fewer channels than the data have.
func DownMix(data []float32, channels, target int) []float32 {
	if channels <= target || target < 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]float32, frames*target)
	group := channels / target
	for i := 0; i < frames; i++ {
		for c := 0; c < target; c++ {
			sum := float32(0)
			n := 0
			for k := c * group; k < channels && (c == target-1 || k < (c+1)*group); k++ {
				sum += data[i*channels+k]
				n++
			}
			out[i*target+c] = sum / float32(n)
		}
	}
	return out
}
