package audioio

import (
	"fmt"
	"io"
	"time"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
)

// ErrNoBackend is returned when no available backend could handle a
// request.
var ErrNoBackend = backend.ErrNoBackend

// Data holds a whole audio recording in memory.
type Data struct {
	// Buffer holds the interleaved samples, frames times channels.
	Buffer []float32
	// Rate is the sampling rate in Hertz.
	Rate float64
	// Channels is the number of channels.
	Channels int
	// Encoding the data had in the file, e.g. "PCM_16".
	Encoding string
	// Backend that decoded the file.
	Backend string
	// Metadata stored in the file, nil when there is none.
	Metadata metadata.Metadata
	// Markers stored in the file, sorted by position.
	Markers []metadata.Marker
}

// Frames returns the number of frames.
func (d *Data) Frames() int64 {
	if d.Channels < 1 {
		return 0
	}
	return int64(len(d.Buffer) / d.Channels)
}

// Duration returns the duration of the recording.
func (d *Data) Duration() time.Duration {
	if d.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(d.Frames()) / d.Rate * float64(time.Second))
}

// At returns the sample of channel c at the given frame.
func (d *Data) At(frame int64, c int) float32 {
	return d.Buffer[frame*int64(d.Channels)+int64(c)]
}

// metadataReader is implemented by backend readers of formats that
// store metadata and markers alongside the samples.
type metadataReader interface {
	Metadata() (metadata.Metadata, []metadata.Marker, error)
}

// Load reads the whole audio file at path into memory. The available
// file backends are tried in order of priority, the error of a total
// failure names every backend tried.
func Load(path string) (*Data, error) {
	r, name, err := backend.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer r.Close()
	d := &Data{
		Rate:     r.Rate(),
		Channels: r.Channels(),
		Encoding: r.Encoding(),
		Backend:  name,
		Buffer:   make([]float32, r.Frames()*int64(r.Channels())),
	}
	if _, err := r.ReadFrames(0, d.Buffer); err != nil && err != io.EOF {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if mr, ok := r.(metadataReader); ok {
		md, markers, err := mr.Metadata()
		if err == nil {
			d.Metadata = md
			d.Markers = markers
		}
	}
	return d, nil
}

// ReadMetadata reads the metadata and markers of an audio file
// without decoding its samples. Formats without metadata support
// return nil.
func ReadMetadata(path string) (metadata.Metadata, []metadata.Marker, error) {
	r, _, err := backend.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	if mr, ok := r.(metadataReader); ok {
		return mr.Metadata()
	}
	return nil, nil, nil
}

// ReadMarkers reads the markers of an audio file, sorted by
// position.
func ReadMarkers(path string) ([]metadata.Marker, error) {
	_, markers, err := ReadMetadata(path)
	return markers, err
}
