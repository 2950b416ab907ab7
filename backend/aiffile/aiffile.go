// Package aiffile reads and writes AIFF files through
// github.com/go-audio/aiff. The whole file is decoded into memory on
// open, AIFF recordings are usually short.
//
// Importing the package registers the "aiffile" backend.
package aiffile

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:      "aiffile",
		Kind:      backend.FileIO,
		Priority:  80,
		Open:      open,
		Formats:   formats,
		Encodings: encodings,
		Write:     write,
		Info:      "AIFF files",
		Module:    "github.com/go-audio/aiff",
	})
}

func formats() []string {
	return []string{"AIFF", "AIFC"}
}

func encodings(format string) []string {
	switch format {
	case "AIFF", "AIFC", "":
		return []string{"PCM_16", "PCM_24", "PCM_32", "PCM_8"}
	}
	return nil
}

type reader struct {
	rate     float64
	channels int
	encoding string
	data     []float32
}

func open(path string) (backend.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not an AIFF file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	bits := int(d.BitDepth)
	if bits == 0 {
		bits = 16
	}
	scale := float32(int64(1) << (bits - 1))
	data := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		data[i] = float32(v) / scale
	}
	return &reader{
		rate:     float64(d.SampleRate),
		channels: int(d.NumChans),
		encoding: fmt.Sprintf("PCM_%d", bits),
		data:     data,
	}, nil
}

func (r *reader) Rate() float64    { return r.rate }
func (r *reader) Channels() int    { return r.channels }
func (r *reader) Frames() int64    { return int64(len(r.data) / r.channels) }
func (r *reader) Encoding() string { return r.encoding }
func (r *reader) Close() error     { return nil }

func (r *reader) ReadFrames(offset int64, buf []float32) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative frame offset %d", offset)
	}
	want := len(buf) / r.channels
	frames := int64(len(r.data)) / int64(r.channels)
	eof := false
	if offset+int64(want) > frames {
		want = int(frames - offset)
		eof = true
		if want <= 0 {
			for i := range buf {
				buf[i] = 0
			}
			return 0, io.EOF
		}
	}
	n := copy(buf, r.data[offset*int64(r.channels):(offset+int64(want))*int64(r.channels)])
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	if eof {
		return want, io.EOF
	}
	return want, nil
}

func write(path string, data []float32, p backend.WriteParams) error {
	bits := 16
	switch p.Encoding {
	case "", "PCM_16":
	case "PCM_24":
		bits = 24
	case "PCM_32":
		bits = 32
	case "PCM_8":
		bits = 8
	default:
		return fmt.Errorf("unsupported encoding %q", p.Encoding)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	e := aiff.NewEncoder(f, int(p.Rate), bits, p.Channels)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: p.Channels,
			SampleRate:  int(p.Rate),
		},
		Data:           make([]int, len(data)),
		SourceBitDepth: bits,
	}
	scale := float64(int64(1) << (bits - 1))
	for i, v := range data {
		s := int(math.Round(float64(v) * scale))
		if s > int(scale)-1 {
			s = int(scale) - 1
		} else if s < -int(scale) {
			s = -int(scale)
		}
		buf.Data[i] = s
	}
	if err := e.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := e.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
