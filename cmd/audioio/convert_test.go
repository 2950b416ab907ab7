package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bendalab/audioio"
	"github.com/bendalab/audioio/metadata"
)

func init() {
	log = zerolog.Nop()
}

func writeInput(t *testing.T, dir, name string, frames, channels int, markers []metadata.Marker) (string, []float32) {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := 0.8 * float32(math.Sin(2*math.Pi*440*float64(i)/44100))
		for c := 0; c < channels; c++ {
			data[i*channels+c] = v * float32(c+1) / float32(channels)
		}
	}
	require.NoError(t, audioio.Write(path, data, 44100,
		audioio.WithChannels(channels),
		audioio.WithEncoding("FLOAT"),
		audioio.WithMarkers(markers)))
	return path, data
}

func TestConvertGroupConcatenates(t *testing.T) {
	dir := t.TempDir()
	a, dataA := writeInput(t, dir, "a.wav", 400, 1, nil)
	b, dataB := writeInput(t, dir, "b.wav", 300, 1,
		[]metadata.Marker{{Pos: 50, Label: "call"}})
	out := filepath.Join(dir, "out.wav")

	o := convertOpts{scale: 1, encoding: "FLOAT"}
	require.NoError(t, convertGroup([]string{a, b}, out, o))

	d, err := audioio.Load(out)
	require.NoError(t, err)
	assert.Equal(t, int64(700), d.Frames())
	assert.Equal(t, "FLOAT", d.Encoding)
	for i, v := range dataA {
		assert.InDelta(t, v, d.Buffer[i], 1e-7, "sample %d", i)
	}
	for i, v := range dataB {
		assert.InDelta(t, v, d.Buffer[400+i], 1e-7, "sample %d", 400+i)
	}

	// the marker of the second file is shifted by the first file
	require.Len(t, d.Markers, 1)
	assert.Equal(t, int64(450), d.Markers[0].Pos)
	assert.Equal(t, "call", d.Markers[0].Label)

	// conversion is recorded in the coding history
	s, ok := metadata.GetStr(d.Metadata, "BEXT.CodingHistory")
	require.True(t, ok)
	assert.Contains(t, s, "A=FLOAT")
}

func TestConvertGroupChannelsAndScale(t *testing.T) {
	dir := t.TempDir()
	path, data := writeInput(t, dir, "a.wav", 200, 2, nil)
	out := filepath.Join(dir, "out.wav")

	o := convertOpts{scale: 0.5, encoding: "FLOAT", channels: []int{1}, strip: true}
	require.NoError(t, convertGroup([]string{path}, out, o))

	d, err := audioio.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Channels)
	assert.Equal(t, int64(200), d.Frames())
	for i := 0; i < 200; i++ {
		assert.InDelta(t, data[2*i+1]*0.5, d.Buffer[i], 1e-7, "frame %d", i)
	}
	assert.Nil(t, d.Metadata)
}

func TestConvertGroupResamples(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeInput(t, dir, "a.wav", 4410, 1,
		[]metadata.Marker{{Pos: 1000, Span: 100}})
	out := filepath.Join(dir, "out.wav")

	o := convertOpts{scale: 1, encoding: "FLOAT", rate: 88200}
	require.NoError(t, convertGroup([]string{path}, out, o))

	d, err := audioio.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 88200.0, d.Rate)
	assert.InDelta(t, 8820, d.Frames(), 16)
	require.Len(t, d.Markers, 1)
	assert.Equal(t, int64(2000), d.Markers[0].Pos)
	assert.Equal(t, int64(200), d.Markers[0].Span)
}

func TestParseChannels(t *testing.T) {
	channels, err := parseChannels("0,2-4,7")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3, 4, 7}, channels)

	for _, s := range []string{"", "a", "3-1", "-2"} {
		_, err := parseChannels(s)
		assert.Error(t, err, "selection %q", s)
	}
}

func TestOutputPath(t *testing.T) {
	o := convertOpts{format: "WAV"}
	out, err := outputPath("/tmp/rec.mp3", o)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rec.wav", out)

	// same extension would overwrite the input
	_, err = outputPath("/tmp/rec.wav", o)
	assert.Error(t, err)

	o = convertOpts{output: "/data/out"}
	out, err = outputPath("/tmp/rec.wav", o)
	require.NoError(t, err)
	assert.Equal(t, "/data/out/rec.wav", out)

	o = convertOpts{output: "/data/all.wav"}
	out, err = outputPath("/tmp/rec.wav", o)
	require.NoError(t, err)
	assert.Equal(t, "/data/all.wav", out)
}
