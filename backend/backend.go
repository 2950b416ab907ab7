// Package backend manages the audio backends the library delegates
// to. File backends decode and encode audio files, device backends
// play audio on sound hardware. Backends register themselves through
// their package init, so importing a backend package is all it takes
// to make it installed. Whether an installed backend is actually
// usable on the host is determined lazily by probing it.
package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bendalab/audioio/metadata"
)

// Kind tells what a backend can do.
type Kind int

const (
	// FileIO backends read and write audio files.
	FileIO Kind = 1 << iota
	// Device backends play audio on sound hardware.
	Device
)

// WriteCb is called by a playback stream whenever the device needs
// more interleaved float32 frames. The callback fills out completely,
// padding with zeros once the source is exhausted.
type WriteCb func(out []float32)

// DeviceParams describe the playback stream requested from a device
// backend.
type DeviceParams struct {
	Rate     float64
	Channels int
	// FrameSize is the number of frames requested per callback.
	FrameSize int
	// Device names the output device to play on. Empty selects the
	// default output device.
	Device string
	// Latency is the desired output latency. Zero selects the default
	// latency of the device.
	Latency time.Duration
}

// Stream is an open playback stream on a sound device.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Reader provides random access to the frames of an open audio file.
// Frames are interleaved float32 samples normalized to [-1, 1].
type Reader interface {
	// Rate returns the sampling rate in Hertz.
	Rate() float64
	// Channels returns the number of channels.
	Channels() int
	// Frames returns the total number of frames.
	Frames() int64
	// Encoding returns the encoding of the file, e.g. "PCM_16".
	Encoding() string
	// ReadFrames reads len(buf)/Channels() frames starting at frame
	// offset into buf. It returns the number of frames read. Reads
	// beyond the end of the file return a short count and io.EOF.
	ReadFrames(offset int64, buf []float32) (int, error)
	Close() error
}

// Writer writes interleaved frames sequentially to an audio file.
// Close finalizes the file headers and stores the metadata.
type Writer interface {
	// WriteFrames appends len(buf)/channels frames to the file and
	// returns the number of frames written.
	WriteFrames(buf []float32) (int, error)
	Close() error
}

// WriteParams collect everything a file backend needs to encode a
// file besides the data themselves.
type WriteParams struct {
	Rate     float64
	Channels int
	// Encoding selects the sample encoding, e.g. "PCM_16". Empty
	// selects the backend default.
	Encoding string
	Metadata metadata.Metadata
	Markers  []metadata.Marker
}

// Backend describes a registered backend. File backends set Open and
// usually Write, device backends set OpenDevice.
type Backend struct {
	// Name identifies the backend, e.g. "wave".
	Name string
	Kind Kind
	// Priority orders backends when dispatching. Higher is tried
	// first.
	Priority int
	// Probe checks whether the backend is usable on this host. A nil
	// Probe means the backend always works. The result is cached.
	Probe func() error
	// Open opens an audio file for reading.
	Open func(path string) (Reader, error)
	// Formats lists the file formats the backend writes, e.g. "WAV".
	Formats func() []string
	// Encodings lists the encodings the backend writes for a format.
	Encodings func(format string) []string
	// Write encodes data into an audio file.
	Write func(path string, data []float32, p WriteParams) error
	// OpenWrite creates an audio file for sequential writing. Backends
	// that can only encode in a single pass leave it nil.
	OpenWrite func(path string, p WriteParams) (Writer, error)
	// OpenDevice opens a playback stream on the requested output
	// device.
	OpenDevice func(p DeviceParams, cb WriteCb) (Stream, error)
	// Info is a one-line description of the backend.
	Info string
	// Module is the Go module providing the backend.
	Module string
}

type entry struct {
	b        *Backend
	enabled  bool
	probed   bool
	probeErr error
}

var (
	mu      sync.Mutex
	entries = make(map[string]*entry)
)

// Register adds a backend to the registry. Registering a name twice
// panics. Backends call Register from their package init.
func Register(b *Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil || b.Name == "" {
		panic("backend: Register with empty name")
	}
	if _, ok := entries[b.Name]; ok {
		panic("backend: Register called twice for " + b.Name)
	}
	entries[b.Name] = &entry{b: b, enabled: true}
}

// probe runs the backend's Probe once and caches the result.
// Callers hold mu.
func (e *entry) probe() error {
	if !e.probed {
		e.probed = true
		if e.b.Probe != nil {
			e.probeErr = e.b.Probe()
		}
	}
	return e.probeErr
}

// byPriority returns the registered entries of kind, highest
// priority first. Callers hold mu.
func byPriority(kind Kind) []*entry {
	var es []*entry
	for _, e := range entries {
		if kind == 0 || e.b.Kind&kind != 0 {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].b.Priority != es[j].b.Priority {
			return es[i].b.Priority > es[j].b.Priority
		}
		return es[i].b.Name < es[j].b.Name
	})
	return es
}

// Installed returns the names of all compiled-in backends of kind,
// highest priority first. kind zero selects all backends.
func Installed(kind Kind) []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for _, e := range byPriority(kind) {
		names = append(names, e.b.Name)
	}
	return names
}

// Available returns the names of the installed backends of kind that
// are enabled and whose probe succeeded, highest priority first.
func Available(kind Kind) []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for _, e := range byPriority(kind) {
		if e.enabled && e.probe() == nil {
			names = append(names, e.b.Name)
		}
	}
	return names
}

// Unavailable returns the names of the installed backends of kind
// that are disabled or whose probe failed.
func Unavailable(kind Kind) []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for _, e := range byPriority(kind) {
		if !e.enabled || e.probe() != nil {
			names = append(names, e.b.Name)
		}
	}
	return names
}

// IsAvailable reports whether the named backend is installed,
// enabled and probes successfully.
func IsAvailable(name string) bool {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[name]
	return ok && e.enabled && e.probe() == nil
}

// Enable re-enables a previously disabled backend. Enabling an
// unknown backend is a no-op.
func Enable(name string) {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := entries[name]; ok {
		e.enabled = true
	}
}

// Disable takes a backend out of dispatching without unregistering
// it. Use it to test fallbacks or to skip a misbehaving backend.
func Disable(name string) {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := entries[name]; ok {
		e.enabled = false
	}
}

// Select makes name the only enabled backend among the installed
// backends of its kind. It fails when name is not installed or does
// not probe.
func Select(name string) error {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[name]
	if !ok {
		return fmt.Errorf("backend %q is not installed", name)
	}
	if err := e.probe(); err != nil {
		return fmt.Errorf("backend %q is not available: %w", name, err)
	}
	for _, other := range entries {
		if other.b.Kind&e.b.Kind != 0 {
			other.enabled = other == e
		}
	}
	return nil
}

// EnableAll re-enables all installed backends.
func EnableAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, e := range entries {
		e.enabled = true
	}
}

// ErrNoBackend is returned when no available backend could handle a
// request.
var ErrNoBackend = errors.New("no audio backend available")

// OpenFile opens path with the available file backends in order of
// priority and returns the reader of the first backend that
// succeeds, along with the backend's name. When all backends fail,
// the returned error joins the errors of every attempt.
func OpenFile(path string) (Reader, string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, "", err
	}
	errs := []error{ErrNoBackend}
	for _, name := range Available(FileIO) {
		mu.Lock()
		e := entries[name]
		mu.Unlock()
		if e.b.Open == nil {
			continue
		}
		r, err := e.b.Open(path)
		if err == nil {
			return r, name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, "", errors.Join(errs...)
}

// Get returns the named backend, or nil when it is not installed.
func Get(name string) *Backend {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := entries[name]; ok {
		return e.b
	}
	return nil
}

// ProbeError returns the cached probe error of the named backend.
func ProbeError(name string) error {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[name]
	if !ok {
		return fmt.Errorf("backend %q is not installed", name)
	}
	return e.probe()
}

// known describes backends the library supports but that may not be
// compiled into the binary. Missing and InstallInstructions work off
// this table.
type known struct {
	info        string
	module      string
	debPackages []string
	rpmPackages []string
	brewPackage string
	recommended bool
}

var knownBackends = map[string]known{
	"wave": {
		info:        "wave reads and writes RIFF/WAV files with metadata and markers",
		module:      "github.com/go-audio/wav",
		recommended: true,
	},
	"aiffile": {
		info:   "aiffile reads and writes AIFF files",
		module: "github.com/go-audio/aiff",
	},
	"mpeg": {
		info:   "mpeg decodes MP3 files",
		module: "github.com/hajimehoshi/go-mp3",
	},
	"vorbis": {
		info:   "vorbis decodes ogg/vorbis files",
		module: "github.com/jfreymuth/oggvorbis",
	},
	"opusfile": {
		info:        "opusfile decodes ogg/opus files (needs libopus)",
		module:      "gopkg.in/hraban/opus.v2",
		debPackages: []string{"libopus-dev", "libopusfile-dev"},
		rpmPackages: []string{"opus-devel", "opusfile-devel"},
		brewPackage: "opus opusfile",
	},
	"pa": {
		info:        "pa plays audio through PortAudio (needs libportaudio)",
		module:      "github.com/gordonklaus/portaudio",
		debPackages: []string{"portaudio19-dev"},
		rpmPackages: []string{"portaudio-devel"},
		brewPackage: "portaudio",
		recommended: true,
	},
	"mal": {
		info:   "mal plays audio through the miniaudio library",
		module: "github.com/gen2brain/malgo",
	},
}

// Missing returns the names of the recommended backends that are not
// installed or do not probe.
func Missing() []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for name, k := range knownBackends {
		if !k.recommended {
			continue
		}
		e, ok := entries[name]
		if !ok || e.probe() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// onRPM reports whether the host looks like an rpm based Linux.
func onRPM() bool {
	_, err := os.Stat("/etc/redhat-release")
	return err == nil
}

// InstallInstructions returns human readable instructions for making
// the named backend work, tailored to the host platform. It returns
// an empty string for unknown or already working backends.
func InstallInstructions(name string) string {
	k, ok := knownBackends[name]
	if !ok {
		return ""
	}
	if IsAvailable(name) {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", k.info)
	if len(k.debPackages) > 0 || k.brewPackage != "" {
		b.WriteString("Install the required system libraries:\n")
		switch {
		case runtime.GOOS == "darwin" && k.brewPackage != "":
			fmt.Fprintf(&b, "> brew install %s\n", k.brewPackage)
		case runtime.GOOS == "linux" && onRPM() && len(k.rpmPackages) > 0:
			fmt.Fprintf(&b, "> dnf install %s\n", strings.Join(k.rpmPackages, " "))
		case runtime.GOOS == "linux" && len(k.debPackages) > 0:
			fmt.Fprintf(&b, "> sudo apt install %s\n", strings.Join(k.debPackages, " "))
		default:
			fmt.Fprintf(&b, "> install %s for your platform\n", k.module)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Then add the backend to your build:\n> go get %s\n", k.module)
	fmt.Fprintf(&b, "and import it:\n> import _ \"github.com/bendalab/audioio/backend/%s\"\n", name)
	return b.String()
}

// List writes a report of all installed and known backends to w,
// marking for each whether it is available and why not otherwise.
func List(w io.Writer) {
	mu.Lock()
	installed := byPriority(0)
	type row struct {
		name, state, info string
	}
	var rows []row
	seen := make(map[string]bool)
	for _, e := range installed {
		seen[e.b.Name] = true
		state := "available"
		if !e.enabled {
			state = "disabled"
		} else if err := e.probe(); err != nil {
			state = "not available: " + err.Error()
		}
		rows = append(rows, row{e.b.Name, state, e.b.Info})
	}
	mu.Unlock()
	var missing []string
	for name := range knownBackends {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		rows = append(rows, row{name, "not installed", knownBackends[name].info})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s %-14s %s\n", r.name, r.state, r.info)
	}
}
