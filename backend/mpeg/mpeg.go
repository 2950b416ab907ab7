// Package mpeg decodes MP3 files through
// github.com/hajimehoshi/go-mp3. The decoder always produces 16-bit
// stereo and supports native seeking, so files are read with random
// access and without decoding them into memory.
//
// Importing the package registers the "mpeg" backend.
package mpeg

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:     "mpeg",
		Kind:     backend.FileIO,
		Priority: 50,
		Open:     open,
		Info:     "MP3 files (decoding only)",
		Module:   "github.com/hajimehoshi/go-mp3",
	})
}

// the decoder emits 2 channels of 16-bit samples
const (
	channels   = 2
	frameBytes = 4
)

type reader struct {
	f      *os.File
	d      *mp3.Decoder
	frames int64
}

func open(path string) (backend.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &reader{f: f, d: d, frames: d.Length() / frameBytes}, nil
}

func (r *reader) Rate() float64    { return float64(r.d.SampleRate()) }
func (r *reader) Channels() int    { return channels }
func (r *reader) Frames() int64    { return r.frames }
func (r *reader) Encoding() string { return "MP3" }
func (r *reader) Close() error     { return r.f.Close() }

func (r *reader) ReadFrames(offset int64, buf []float32) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative frame offset %d", offset)
	}
	want := len(buf) / channels
	eof := false
	if offset+int64(want) > r.frames {
		want = int(r.frames - offset)
		eof = true
		if want <= 0 {
			for i := range buf {
				buf[i] = 0
			}
			return 0, io.EOF
		}
	}
	if _, err := r.d.Seek(offset*frameBytes, io.SeekStart); err != nil {
		return 0, err
	}
	raw := make([]byte, want*frameBytes)
	if _, err := io.ReadFull(r.d, raw); err != nil && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	for i := 0; i < want*channels; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		buf[i] = float32(v) / 32768
	}
	for i := want * channels; i < len(buf); i++ {
		buf[i] = 0
	}
	if eof {
		return want, io.EOF
	}
	return want, nil
}
