package backend

import (
	"io"
	"testing"
)

// fakeDecoder delivers frames whose sample value equals the frame
// index, one channel.
type fakeDecoder struct {
	pos    int
	frames int
	closed bool
}

func (d *fakeDecoder) ReadFrames(buf []float32) (int, error) {
	if d.pos >= d.frames {
		return 0, io.EOF
	}
	n := len(buf)
	if d.pos+n > d.frames {
		n = d.frames - d.pos
	}
	for i := 0; i < n; i++ {
		buf[i] = float32(d.pos + i)
	}
	d.pos += n
	if d.pos >= d.frames {
		return n, io.EOF
	}
	return n, nil
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

func newSeqTestReader(t *testing.T, frames int) (*SeqReader, *int) {
	t.Helper()
	opens := 0
	s, err := NewSeqReader(func() (SeqDecoder, error) {
		opens++
		return &fakeDecoder{frames: frames}, nil
	}, 48000, 1, int64(frames), "OPUS")
	if err != nil {
		t.Fatal(err)
	}
	return s, &opens
}

func checkFrames(t *testing.T, buf []float32, start, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if buf[i] != float32(start+i) {
			t.Fatalf("frame %d: got %g, want %d", start+i, buf[i], start+i)
		}
	}
}

func TestSeqReaderSequential(t *testing.T) {
	s, opens := newSeqTestReader(t, 1000)
	defer s.Close()

	buf := make([]float32, 100)
	n, err := s.ReadFrames(0, buf)
	if err != nil || n != 100 {
		t.Fatalf("ReadFrames(0) = %d, %v", n, err)
	}
	checkFrames(t, buf, 0, 100)

	n, err = s.ReadFrames(100, buf)
	if err != nil || n != 100 {
		t.Fatalf("ReadFrames(100) = %d, %v", n, err)
	}
	checkFrames(t, buf, 100, 100)

	if *opens != 1 {
		t.Fatalf("decoder opened %d times, want 1", *opens)
	}
}

func TestSeqReaderForwardSkip(t *testing.T) {
	s, opens := newSeqTestReader(t, 20000)
	defer s.Close()

	// skipping forward decodes and discards, no reopen
	buf := make([]float32, 10)
	n, err := s.ReadFrames(10000, buf)
	if err != nil || n != 10 {
		t.Fatalf("ReadFrames(10000) = %d, %v", n, err)
	}
	checkFrames(t, buf, 10000, 10)
	if *opens != 1 {
		t.Fatalf("decoder opened %d times, want 1", *opens)
	}
}

func TestSeqReaderBackwardReopens(t *testing.T) {
	s, opens := newSeqTestReader(t, 1000)
	defer s.Close()

	buf := make([]float32, 10)
	if _, err := s.ReadFrames(500, buf); err != nil {
		t.Fatal(err)
	}
	n, err := s.ReadFrames(100, buf)
	if err != nil || n != 10 {
		t.Fatalf("ReadFrames(100) = %d, %v", n, err)
	}
	checkFrames(t, buf, 100, 10)
	if *opens != 2 {
		t.Fatalf("decoder opened %d times, want 2", *opens)
	}
}

func TestSeqReaderShortReadAtEnd(t *testing.T) {
	s, _ := newSeqTestReader(t, 105)
	defer s.Close()

	buf := make([]float32, 10)
	n, err := s.ReadFrames(100, buf)
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if n != 5 {
		t.Fatalf("read %d frames, want 5", n)
	}
	checkFrames(t, buf, 100, 5)
	for i := 5; i < 10; i++ {
		if buf[i] != 0 {
			t.Fatalf("frame %d not zero padded", i)
		}
	}
}
