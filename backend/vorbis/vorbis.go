// Package vorbis decodes ogg/vorbis files through
// github.com/jfreymuth/oggvorbis. The decoder seeks natively on
// seekable streams.
//
// Importing the package registers the "vorbis" backend.
package vorbis

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/bendalab/audioio/backend"
)

func init() {
	backend.Register(&backend.Backend{
		Name:     "vorbis",
		Kind:     backend.FileIO,
		Priority: 60,
		Open:     open,
		Info:     "ogg/vorbis files (decoding only)",
		Module:   "github.com/jfreymuth/oggvorbis",
	})
}

type reader struct {
	f *os.File
	d *oggvorbis.Reader
}

func open(path string) (backend.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	d, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &reader{f: f, d: d}, nil
}

func (r *reader) Rate() float64    { return float64(r.d.SampleRate()) }
func (r *reader) Channels() int    { return r.d.Channels() }
func (r *reader) Frames() int64    { return r.d.Length() }
func (r *reader) Encoding() string { return "VORBIS" }
func (r *reader) Close() error     { return r.f.Close() }

func (r *reader) ReadFrames(offset int64, buf []float32) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative frame offset %d", offset)
	}
	if err := r.d.SetPosition(offset); err != nil {
		return 0, err
	}
	channels := r.d.Channels()
	done := 0
	want := len(buf) / channels * channels
	for done < want {
		n, err := r.d.Read(buf[done:want])
		done += n
		if err == io.EOF {
			for i := done; i < len(buf); i++ {
				buf[i] = 0
			}
			return done / channels, io.EOF
		}
		if err != nil {
			return done / channels, err
		}
		if n == 0 {
			break
		}
	}
	return done / channels, nil
}
