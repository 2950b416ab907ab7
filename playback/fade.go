package playback

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Note2Freq converts a musical note like "a4", "f#3" or "eb5" to its
// frequency. The first character is the note a to g, optionally
// followed by "b" or "#" to lower or raise it by a semitone, and an
// octave number. "a4" maps to a4freq.
func Note2Freq(note string, a4freq float64) (float64, error) {
	if note == "" {
		return 0, fmt.Errorf("no note specified")
	}
	if note[0] < 'a' || note[0] > 'g' {
		return 0, fmt.Errorf("invalid note %q", note)
	}
	tonemap := []int{0, 2, 3, 5, 7, 8, 10}
	tone := tonemap[note[0]-'a']
	index := 1
	flat, sharp := false, false
	if index < len(note) {
		switch note[index] {
		case 'b':
			flat = true
			tone--
			index++
		case '#':
			sharp = true
			tone++
			index++
		}
	}
	octave := 4
	if index < len(note) && note[index] >= '0' && note[index] <= '9' {
		octave = 0
		for index < len(note) && note[index] >= '0' && note[index] <= '9' {
			octave = 10*octave + int(note[index]-'0')
			index++
		}
	}
	if index < len(note) {
		return 0, fmt.Errorf("invalid characters in note %q", note)
	}
	if (tone >= 3 && !sharp) || (tone == 2 && flat) {
		octave--
	}
	tone += 12 * (octave - 4)
	return a4freq * math.Pow(2, float64(tone)/12), nil
}

// FadeIn multiplies the first fadetime seconds of the interleaved
// data with a squared sine ramp in place. fadetime is reduced to
// half the duration of the data when it is longer.
func FadeIn(data []float32, channels int, rate, fadetime float64) {
	frames := len(data) / channels
	if frames < 4 {
		return
	}
	nr := int(fadetime*rate + 0.5)
	if nr > frames/2 {
		nr = frames / 2
	}
	for i := 0; i < nr; i++ {
		x := float32(i) / float32(nr)
		y := math32.Sin(0.5 * math32.Pi * x)
		y *= y
		for c := 0; c < channels; c++ {
			data[i*channels+c] *= y
		}
	}
}

// FadeOut multiplies the last fadetime seconds of the interleaved
// data with a squared sine ramp in place.
func FadeOut(data []float32, channels int, rate, fadetime float64) {
	frames := len(data) / channels
	if frames < 4 {
		return
	}
	nr := int(fadetime*rate + 0.5)
	if nr > frames/2 {
		nr = frames / 2
	}
	for i := 0; i < nr; i++ {
		x := float32(i)/float32(nr) + 1
		y := math32.Sin(0.5 * math32.Pi * x)
		y *= y
		for c := 0; c < channels; c++ {
			data[(frames-nr+i)*channels+c] *= y
		}
	}
}

// Fade fades the interleaved data in and out in place.
func Fade(data []float32, channels int, rate, fadetime float64) {
	FadeIn(data, channels, rate, fadetime)
	FadeOut(data, channels, rate, fadetime)
}
