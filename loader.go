package audioio

import (
	"fmt"
	"io"
	"time"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
)

// LoaderOptions configure a Loader.
type LoaderOptions struct {
	// BufferDuration is the length of the sliding window.
	BufferDuration time.Duration
	// BackDuration is the part of the window kept before requested
	// ranges.
	BackDuration time.Duration
	// FollowDuration larger than zero makes forward creeping reads
	// slide the window instead of jumping it.
	FollowDuration time.Duration
}

// LoaderOption modifies LoaderOptions.
type LoaderOption func(*LoaderOptions)

// BufferDuration sets the length of the sliding window, default 10s.
func BufferDuration(d time.Duration) LoaderOption {
	return func(o *LoaderOptions) {
		o.BufferDuration = d
	}
}

// BackDuration sets how much of the window is kept before requested
// ranges, default 0.
func BackDuration(d time.Duration) LoaderOption {
	return func(o *LoaderOptions) {
		o.BackDuration = d
	}
}

// FollowDuration turns on follow mode with the given threshold.
func FollowDuration(d time.Duration) LoaderOption {
	return func(o *LoaderOptions) {
		o.FollowDuration = d
	}
}

// Loader provides buffered random access to an audio file of
// arbitrary size. It embeds a BufferedArray whose window is filled
// from the backend that opened the file.
type Loader struct {
	BufferedArray

	r        backend.Reader
	name     string
	path     string
	md       metadata.Metadata
	markers  []metadata.Marker
	mdLoaded bool

	unwrap       bool
	unwrapThresh float32
	unwrapAmpl   float32
	unwrapClips  bool
	unwrapDown   bool
	amplMax      float32
}

// NewLoader opens the audio file at path for buffered reading. The
// available file backends are tried in order of priority.
func NewLoader(path string, opts ...LoaderOption) (*Loader, error) {
	o := LoaderOptions{BufferDuration: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	r, name, err := backend.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	l := &Loader{
		r:       r,
		name:    name,
		path:    path,
		amplMax: 1,
	}
	l.Rate = r.Rate()
	l.Channels = r.Channels()
	l.Frames = r.Frames()
	l.BufferFrames = int64(o.BufferDuration.Seconds() * l.Rate)
	l.BackFrames = int64(o.BackDuration.Seconds() * l.Rate)
	l.Follow = int64(o.FollowDuration.Seconds() * l.Rate)
	l.Load = l.loadBuffer
	l.InitBuffer()
	return l, nil
}

func (l *Loader) loadBuffer(offset int64, buf []float32) error {
	if _, err := l.r.ReadFrames(offset, buf); err != nil && err != io.EOF {
		return err
	}
	if l.unwrap {
		Unwrap(buf, l.Channels, l.unwrapThresh, l.unwrapAmpl)
		if l.unwrapClips {
			Clip(buf, l.unwrapAmpl)
		} else if l.unwrapDown {
			Scale(buf, 0.5)
		}
	}
	return nil
}

// Backend returns the name of the backend that opened the file.
func (l *Loader) Backend() string {
	return l.name
}

// Path returns the path of the open file.
func (l *Loader) Path() string {
	return l.path
}

// Encoding returns the encoding of the file, e.g. "PCM_16".
func (l *Loader) Encoding() string {
	return l.r.Encoding()
}

func (l *Loader) loadMetadata() {
	if l.mdLoaded {
		return
	}
	l.mdLoaded = true
	if mr, ok := l.r.(metadataReader); ok {
		md, markers, err := mr.Metadata()
		if err == nil {
			l.md = md
			l.markers = markers
		}
	}
	if l.md == nil {
		l.md = metadata.Metadata{}
	}
}

// Metadata returns the metadata stored in the file. The returned map
// may be modified, subsequent calls return the same map.
func (l *Loader) Metadata() metadata.Metadata {
	l.loadMetadata()
	return l.md
}

// Markers returns the markers stored in the file, sorted by
// position.
func (l *Loader) Markers() []metadata.Marker {
	l.loadMetadata()
	return l.markers
}

// SetUnwrap applies unwrapping of wrapped clipped samples to all
// subsequent buffer loads. thresh is the step threshold relative to
// the current full amplitude, zero turns unwrapping off. With clips
// the unwrapped samples are clipped at the full amplitude. Otherwise
// downScale halves the data to keep them within [-1, 1], and the
// recorded gain is corrected accordingly; without downScale the full
// amplitude doubles instead. The unwrapping is recorded in the
// metadata. unit names the unit of the data in those entries.
func (l *Loader) SetUnwrap(thresh float32, clips, downScale bool, unit string) {
	l.unwrapThresh = thresh
	l.unwrapAmpl = l.amplMax
	l.unwrapClips = clips
	l.unwrapDown = downScale
	l.unwrap = thresh > 1e-3
	if !l.unwrap {
		return
	}
	md := l.Metadata()
	switch {
	case clips:
		metadata.AddUnwrap(md, thresh*l.unwrapAmpl, l.unwrapAmpl, unit)
	case downScale:
		metadata.UpdateGain(md, 0.5)
		metadata.AddUnwrap(md, 0.5*thresh*l.unwrapAmpl, 0, unit)
	default:
		l.amplMax *= 2
		metadata.AddUnwrap(md, thresh*l.unwrapAmpl, 0, unit)
	}
	l.InitBuffer()
}

// AmplMax returns the maximum amplitude of the data range. It is 1,
// doubled by SetUnwrap without clipping and downscaling.
func (l *Loader) AmplMax() float32 {
	return l.amplMax
}

// Close releases the file handle. The Loader must not be used
// afterwards.
func (l *Loader) Close() error {
	if l.r == nil {
		return nil
	}
	err := l.r.Close()
	l.r = nil
	return err
}
