// Package opusfile decodes ogg/opus files through
// gopkg.in/hraban/opus.v2, which links against libopus and
// libopusfile. The opus stream API cannot seek, random access is
// provided by a sequential reader that skips forward and reopens the
// stream on backward seeks. Channel count and duration are taken
// from the ogg container itself.
//
// Importing the package registers the "opusfile" backend.
package opusfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	opus "gopkg.in/hraban/opus.v2"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:     "opusfile",
		Kind:     backend.FileIO,
		Priority: 40,
		Open:     open,
		Info:     "ogg/opus files (decoding only)",
		Module:   "gopkg.in/hraban/opus.v2",
	})
}

// opus always decodes at 48kHz
const opusRate = 48000

type decoder struct {
	f        *os.File
	s        *opus.Stream
	channels int
}

func (d *decoder) ReadFrames(buf []float32) (int, error) {
	n, err := d.s.ReadFloat32(buf)
	if err != nil {
		if err == io.EOF {
			return n, io.EOF
		}
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (d *decoder) Close() error {
	return d.f.Close()
}

func open(path string) (backend.Reader, error) {
	channels, preskip, err := readHead(path)
	if err != nil {
		return nil, err
	}
	granule, err := lastGranule(path)
	if err != nil {
		return nil, err
	}
	frames := granule - int64(preskip)
	if frames < 0 {
		frames = 0
	}
	openStream := func() (backend.SeqDecoder, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		s, err := opus.NewStream(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &decoder{f: f, s: s, channels: channels}, nil
	}
	return backend.NewSeqReader(openStream, opusRate, channels, frames, "OPUS")
}

// readHead parses the OpusHead packet of the first ogg page for the
// channel count and the pre-skip sample count.
func readHead(path string) (channels, preskip int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return 0, 0, err
	}
	head = head[:n]
	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+12 > len(head) {
		return 0, 0, fmt.Errorf("not an ogg/opus file")
	}
	channels = int(head[i+9])
	preskip = int(binary.LittleEndian.Uint16(head[i+10:]))
	if channels < 1 {
		return 0, 0, fmt.Errorf("invalid channel count in OpusHead")
	}
	return channels, preskip, nil
}

// lastGranule returns the granule position of the last ogg page,
// which is the total number of 48kHz frames including pre-skip.
func lastGranule(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	// ogg pages are at most 64kB, search the tail of the file
	tail := int64(128 * 1024)
	if tail > size {
		tail = size
	}
	buf := make([]byte, tail)
	if _, err := f.ReadAt(buf, size-tail); err != nil && err != io.EOF {
		return 0, err
	}
	i := bytes.LastIndex(buf, []byte("OggS"))
	if i < 0 || i+14 > len(buf) {
		return 0, fmt.Errorf("no ogg page found")
	}
	return int64(binary.LittleEndian.Uint64(buf[i+6:])), nil
}
