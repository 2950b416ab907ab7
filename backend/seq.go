package backend

import (
	"fmt"
	"io"
)

// SeqDecoder delivers interleaved float32 frames strictly in order.
type SeqDecoder interface {
	// ReadFrames fills buf and returns the number of frames read.
	// It returns io.EOF once the stream is exhausted.
	ReadFrames(buf []float32) (int, error)
	Close() error
}

// SeqReader adapts a sequential decoder into a random access Reader.
// Forward seeks skip frames by decoding into a scratch buffer,
// backward seeks reopen the decoder from the start. Backends whose
// codecs cannot seek natively wrap their decoders in a SeqReader.
type SeqReader struct {
	open     func() (SeqDecoder, error)
	dec      SeqDecoder
	pos      int64
	rate     float64
	channels int
	frames   int64
	encoding string
	scratch  []float32
}

// NewSeqReader returns a SeqReader over the decoder produced by
// open. open is called immediately and again on every backward seek.
func NewSeqReader(open func() (SeqDecoder, error), rate float64, channels int, frames int64, encoding string) (*SeqReader, error) {
	dec, err := open()
	if err != nil {
		return nil, err
	}
	return &SeqReader{
		open:     open,
		dec:      dec,
		rate:     rate,
		channels: channels,
		frames:   frames,
		encoding: encoding,
	}, nil
}

func (s *SeqReader) Rate() float64    { return s.rate }
func (s *SeqReader) Channels() int    { return s.channels }
func (s *SeqReader) Frames() int64    { return s.frames }
func (s *SeqReader) Encoding() string { return s.encoding }

// skip decodes and discards n frames.
func (s *SeqReader) skip(n int64) error {
	if s.scratch == nil {
		s.scratch = make([]float32, 4096*s.channels)
	}
	for n > 0 {
		want := int64(len(s.scratch) / s.channels)
		if n < want {
			want = n
		}
		got, err := s.dec.ReadFrames(s.scratch[:want*int64(s.channels)])
		s.pos += int64(got)
		n -= int64(got)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if got == 0 {
			return fmt.Errorf("decoder stalled at frame %d", s.pos)
		}
	}
	return nil
}

// ReadFrames implements Reader. Reads past the end of the stream
// return a short count and io.EOF.
func (s *SeqReader) ReadFrames(offset int64, buf []float32) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative frame offset %d", offset)
	}
	if offset < s.pos {
		dec, err := s.open()
		if err != nil {
			return 0, err
		}
		s.dec.Close()
		s.dec = dec
		s.pos = 0
	}
	if offset > s.pos {
		if err := s.skip(offset - s.pos); err != nil {
			return 0, err
		}
		if s.pos < offset {
			return 0, io.EOF
		}
	}
	done := 0
	want := len(buf) / s.channels
	for done < want {
		got, err := s.dec.ReadFrames(buf[done*s.channels : want*s.channels])
		done += got
		s.pos += int64(got)
		if err != nil {
			if err == io.EOF {
				for i := done * s.channels; i < len(buf); i++ {
					buf[i] = 0
				}
				return done, io.EOF
			}
			return done, err
		}
		if got == 0 {
			break
		}
	}
	return done, nil
}

func (s *SeqReader) Close() error {
	if s.dec == nil {
		return nil
	}
	err := s.dec.Close()
	s.dec = nil
	return err
}
