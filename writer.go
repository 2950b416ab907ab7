package audioio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
)

// WriteOptions configure Write.
type WriteOptions struct {
	// Channels of the interleaved data, default 1.
	Channels int
	// Encoding of the samples, e.g. "PCM_16". Empty selects the
	// backend default.
	Encoding string
	// Format of the file, e.g. "WAV". Empty derives the format from
	// the file name extension.
	Format string
	// Metadata to store in the file.
	Metadata metadata.Metadata
	// Markers to store in the file.
	Markers []metadata.Marker
}

// WriteOption modifies WriteOptions.
type WriteOption func(*WriteOptions)

// WithChannels sets the number of channels of the interleaved data.
func WithChannels(n int) WriteOption {
	return func(o *WriteOptions) {
		o.Channels = n
	}
}

// WithEncoding selects the sample encoding.
func WithEncoding(encoding string) WriteOption {
	return func(o *WriteOptions) {
		o.Encoding = encoding
	}
}

// WithFormat selects the file format regardless of the file name
// extension.
func WithFormat(format string) WriteOption {
	return func(o *WriteOptions) {
		o.Format = format
	}
}

// WithMetadata stores metadata in the file, as far as the format
// supports it.
func WithMetadata(md metadata.Metadata) WriteOption {
	return func(o *WriteOptions) {
		o.Metadata = md
	}
}

// WithMarkers stores markers in the file, as far as the format
// supports it.
func WithMarkers(markers []metadata.Marker) WriteOption {
	return func(o *WriteOptions) {
		o.Markers = markers
	}
}

// formatFromExt maps a file name extension to a format name.
func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return "WAV"
	case ".aif", ".aiff", ".aifc":
		return "AIFF"
	case ".mp3":
		return "MP3"
	case ".ogg", ".oga":
		return "OGG"
	case ".opus":
		return "OPUS"
	}
	return ""
}

func backendWrites(b *backend.Backend, format string) bool {
	if b.Write == nil {
		return false
	}
	if format == "" || b.Formats == nil {
		return true
	}
	for _, f := range b.Formats() {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// Write encodes data into the audio file at path. The format is
// derived from the file name extension unless selected by an
// option. The available file backends claiming the format are tried
// in order of priority.
func Write(path string, data []float32, rate float64, opts ...WriteOption) error {
	o := WriteOptions{Channels: 1}
	for _, opt := range opts {
		opt(&o)
	}
	format := o.Format
	if format == "" {
		format = formatFromExt(path)
	}
	p := backend.WriteParams{
		Rate:     rate,
		Channels: o.Channels,
		Encoding: strings.ToUpper(o.Encoding),
		Metadata: o.Metadata,
		Markers:  o.Markers,
	}
	errs := []error{fmt.Errorf("write %s: %w", path, backend.ErrNoBackend)}
	for _, name := range backend.Available(backend.FileIO) {
		b := backend.Get(name)
		if b == nil || !backendWrites(b, format) {
			continue
		}
		err := b.Write(path, data, p)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// FileWriter writes interleaved frames sequentially to an audio
// file, so large recordings can be encoded without holding them in
// memory. Close finalizes the file.
type FileWriter struct {
	w    backend.Writer
	name string
}

// NewWriter creates the audio file at path for sequential writing.
// The format is derived from the file name extension unless selected
// by an option. The available file backends that support sequential
// writing and claim the format are tried in order of priority.
func NewWriter(path string, rate float64, opts ...WriteOption) (*FileWriter, error) {
	o := WriteOptions{Channels: 1}
	for _, opt := range opts {
		opt(&o)
	}
	format := o.Format
	if format == "" {
		format = formatFromExt(path)
	}
	p := backend.WriteParams{
		Rate:     rate,
		Channels: o.Channels,
		Encoding: strings.ToUpper(o.Encoding),
		Metadata: o.Metadata,
		Markers:  o.Markers,
	}
	errs := []error{fmt.Errorf("write %s: %w", path, backend.ErrNoBackend)}
	for _, name := range backend.Available(backend.FileIO) {
		b := backend.Get(name)
		if b == nil || b.OpenWrite == nil || !backendWrites(b, format) {
			continue
		}
		w, err := b.OpenWrite(path, p)
		if err == nil {
			return &FileWriter{w: w, name: name}, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, errors.Join(errs...)
}

// WriteFrames appends len(data)/channels frames to the file.
func (w *FileWriter) WriteFrames(data []float32) (int, error) {
	return w.w.WriteFrames(data)
}

// Backend returns the name of the backend writing the file.
func (w *FileWriter) Backend() string {
	return w.name
}

// Close finalizes the file headers and stores the metadata.
func (w *FileWriter) Close() error {
	return w.w.Close()
}

// Formats returns the file formats the available backends can write,
// sorted alphabetically.
func Formats() []string {
	seen := make(map[string]bool)
	for _, name := range backend.Available(backend.FileIO) {
		b := backend.Get(name)
		if b == nil || b.Write == nil || b.Formats == nil {
			continue
		}
		for _, f := range b.Formats() {
			seen[f] = true
		}
	}
	formats := make([]string, 0, len(seen))
	for f := range seen {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Encodings returns the encodings the best available backend can
// write for the given format.
func Encodings(format string) []string {
	format = strings.ToUpper(format)
	for _, name := range backend.Available(backend.FileIO) {
		b := backend.Get(name)
		if b == nil || !backendWrites(b, format) || b.Encodings == nil {
			continue
		}
		if encs := b.Encodings(format); len(encs) > 0 {
			return encs
		}
	}
	return nil
}
