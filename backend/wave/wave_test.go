package wave

import (
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
)

// sine returns one channel of a sine wave with the given amplitude.
func sine(frames int, rate, freq float64, ampl float32) []float32 {
	data := make([]float32, frames)
	for i := range data {
		data[i] = ampl * float32(math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return data
}

func writeRead(t *testing.T, data []float32, p backend.WriteParams) backend.Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, write(path, data, p))
	r, err := open(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestWriteReadRoundTrip(t *testing.T) {
	tolerance := map[string]float64{
		"PCM_16": 1.0 / 32768,
		"PCM_24": 1.0 / 8388608,
		"PCM_32": 0,
		"PCM_U8": 1.0 / 128,
		"FLOAT":  0,
		"DOUBLE": 0,
		"ALAW":   0.04,
		"ULAW":   0.04,
	}
	data := sine(441, 44100, 440, 0.8)
	for _, enc := range writeEncodings {
		t.Run(enc, func(t *testing.T) {
			r := writeRead(t, data, backend.WriteParams{
				Rate: 44100, Channels: 1, Encoding: enc,
			})
			assert.Equal(t, 44100.0, r.Rate())
			assert.Equal(t, 1, r.Channels())
			assert.Equal(t, int64(441), r.Frames())
			assert.Equal(t, enc, r.Encoding())

			buf := make([]float32, 441)
			n, err := r.ReadFrames(0, buf)
			require.NoError(t, err)
			require.Equal(t, 441, n)
			tol := tolerance[enc]
			for i := range buf {
				assert.InDelta(t, data[i], buf[i], tol+1e-7, "sample %d", i)
			}
		})
	}
}

func TestRandomAccess(t *testing.T) {
	data := make([]float32, 1000)
	for i := range data {
		data[i] = float32(i) / 32768
	}
	r := writeRead(t, data, backend.WriteParams{Rate: 48000, Channels: 1})

	buf := make([]float32, 10)
	n, err := r.ReadFrames(500, buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	for i := range buf {
		assert.InDelta(t, float32(500+i)/32768, buf[i], 1e-6)
	}

	// reads past the end return a short count, io.EOF and zeros
	n, err = r.ReadFrames(995, buf)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 5, n)
	for i := 5; i < 10; i++ {
		assert.Zero(t, buf[i])
	}

	n, err = r.ReadFrames(2000, buf)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

func TestStereoInterleaving(t *testing.T) {
	frames := 100
	data := make([]float32, 2*frames)
	for i := 0; i < frames; i++ {
		data[2*i] = float32(i) / 1000
		data[2*i+1] = -float32(i) / 1000
	}
	r := writeRead(t, data, backend.WriteParams{Rate: 44100, Channels: 2})
	assert.Equal(t, 2, r.Channels())
	assert.Equal(t, int64(frames), r.Frames())

	buf := make([]float32, 2*frames)
	_, err := r.ReadFrames(0, buf)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		assert.InDelta(t, data[2*i], buf[2*i], 1e-4)
		assert.InDelta(t, data[2*i+1], buf[2*i+1], 1e-4)
	}
}

func TestMetadataAndMarkers(t *testing.T) {
	md := metadata.Metadata{
		"INFO": metadata.Metadata{"Artist": "me"},
	}
	markers := []metadata.Marker{
		{Pos: 10, Span: 5, Label: "a"},
		{Pos: 50, Label: "b"},
	}
	data := sine(200, 44100, 440, 0.5)
	r := writeRead(t, data, backend.WriteParams{
		Rate: 44100, Channels: 1,
		Metadata: md, Markers: markers,
	})

	// the data chunk is still intact after appending metadata
	assert.Equal(t, int64(200), r.Frames())

	mr, ok := r.(interface {
		Metadata() (metadata.Metadata, []metadata.Marker, error)
	})
	require.True(t, ok)
	gotMd, gotMarkers, err := mr.Metadata()
	require.NoError(t, err)
	info, ok := gotMd["INFO"].(metadata.Metadata)
	require.True(t, ok)
	assert.Equal(t, "me", info["Artist"])
	require.Len(t, gotMarkers, 2)
	assert.Equal(t, int64(10), gotMarkers[0].Pos)
	assert.Equal(t, int64(5), gotMarkers[0].Span)
	assert.Equal(t, "a", gotMarkers[0].Label)

	// writing without metadata leaves the file as plain WAVE
	r2 := writeRead(t, data, backend.WriteParams{Rate: 44100, Channels: 1})
	mr2 := r2.(interface {
		Metadata() (metadata.Metadata, []metadata.Marker, error)
	})
	md2, markers2, err := mr2.Metadata()
	require.NoError(t, err)
	assert.Nil(t, md2)
	assert.Empty(t, markers2)
}

func TestSequentialWrite(t *testing.T) {
	// chunked writing yields the same file as a single write call
	data := sine(1000, 44100, 440, 0.8)
	for _, enc := range []string{"PCM_16", "FLOAT", "ULAW"} {
		t.Run(enc, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.wav")
			w, err := openWrite(path, backend.WriteParams{
				Rate: 44100, Channels: 1, Encoding: enc,
			})
			require.NoError(t, err)
			for start := 0; start < len(data); start += 256 {
				end := start + 256
				if end > len(data) {
					end = len(data)
				}
				n, err := w.WriteFrames(data[start:end])
				require.NoError(t, err)
				assert.Equal(t, end-start, n)
			}
			require.NoError(t, w.Close())

			r, err := open(path)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, int64(1000), r.Frames())
			assert.Equal(t, enc, r.Encoding())
			buf := make([]float32, 1000)
			n, err := r.ReadFrames(0, buf)
			require.NoError(t, err)
			require.Equal(t, 1000, n)
			tol := 0.04
			if enc == "FLOAT" {
				tol = 0
			}
			for i := range buf {
				assert.InDelta(t, data[i], buf[i], tol+1e-7, "sample %d", i)
			}
		})
	}
}

func TestSequentialWriteOddLength(t *testing.T) {
	// an odd number of 8-bit samples gets a pad byte, the sizes in
	// the header stay frame accurate
	path := filepath.Join(t.TempDir(), "test.wav")
	w, err := openWrite(path, backend.WriteParams{
		Rate: 8000, Channels: 1, Encoding: "ALAW",
	})
	require.NoError(t, err)
	_, err = w.WriteFrames(sine(333, 8000, 440, 0.5))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(333), r.Frames())
	assert.Equal(t, "ALAW", r.Encoding())
}

func TestSequentialWriteMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	w, err := openWrite(path, backend.WriteParams{
		Rate: 44100, Channels: 1, Encoding: "FLOAT",
		Metadata: metadata.Metadata{
			"INFO": metadata.Metadata{"Artist": "me"},
		},
		Markers: []metadata.Marker{{Pos: 20, Label: "x"}},
	})
	require.NoError(t, err)
	_, err = w.WriteFrames(sine(100, 44100, 440, 0.5))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(100), r.Frames())
	mr := r.(interface {
		Metadata() (metadata.Metadata, []metadata.Marker, error)
	})
	md, markers, err := mr.Metadata()
	require.NoError(t, err)
	info, ok := md["INFO"].(metadata.Metadata)
	require.True(t, ok)
	assert.Equal(t, "me", info["Artist"])
	require.Len(t, markers, 1)
	assert.Equal(t, int64(20), markers[0].Pos)
}

func TestEncodingsAndFormats(t *testing.T) {
	assert.Contains(t, formats(), "WAV")
	assert.Equal(t, writeEncodings, encodings("WAV"))
	assert.Nil(t, encodings("OGG"))
}
