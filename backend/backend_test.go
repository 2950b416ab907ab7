package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeReader struct {
	rate     float64
	channels int
	frames   int64
}

func (f *fakeReader) Rate() float64    { return f.rate }
func (f *fakeReader) Channels() int    { return f.channels }
func (f *fakeReader) Frames() int64    { return f.frames }
func (f *fakeReader) Encoding() string { return "PCM_16" }
func (f *fakeReader) Close() error     { return nil }

func (f *fakeReader) ReadFrames(offset int64, buf []float32) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf) / f.channels, nil
}

// pick filters names down to the ones given, keeping their order.
func pick(names []string, mine ...string) []string {
	set := make(map[string]bool)
	for _, n := range mine {
		set[n] = true
	}
	var out []string
	for _, n := range names {
		if set[n] {
			out = append(out, n)
		}
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegistryOrder(t *testing.T) {
	defer EnableAll()
	Register(&Backend{Name: "ord-low", Kind: FileIO, Priority: 10})
	Register(&Backend{Name: "ord-high", Kind: FileIO, Priority: 30})
	Register(&Backend{Name: "ord-mid", Kind: FileIO, Priority: 20})

	got := pick(Installed(FileIO), "ord-low", "ord-mid", "ord-high")
	want := []string{"ord-high", "ord-mid", "ord-low"}
	if !equalNames(got, want) {
		t.Fatalf("Installed(FileIO) = %v, want %v", got, want)
	}

	// a failing probe takes a backend out of Available
	Register(&Backend{Name: "ord-broken", Kind: FileIO, Priority: 40,
		Probe: func() error { return errors.New("no such library") }})
	got = pick(Available(FileIO), "ord-broken", "ord-high")
	if !equalNames(got, []string{"ord-high"}) {
		t.Fatalf("Available(FileIO) = %v, want [ord-high]", got)
	}
	got = pick(Unavailable(FileIO), "ord-broken", "ord-high")
	if !equalNames(got, []string{"ord-broken"}) {
		t.Fatalf("Unavailable(FileIO) = %v, want [ord-broken]", got)
	}
	if IsAvailable("ord-broken") {
		t.Error("ord-broken reported available")
	}
	if err := ProbeError("ord-broken"); err == nil {
		t.Error("ProbeError(ord-broken) = nil")
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering the same name twice did not panic")
		}
	}()
	Register(&Backend{Name: "dup", Kind: FileIO})
	Register(&Backend{Name: "dup", Kind: FileIO})
}

func TestProbeIsCached(t *testing.T) {
	defer EnableAll()
	probes := 0
	Register(&Backend{Name: "cache", Kind: FileIO, Probe: func() error {
		probes++
		return nil
	}})
	IsAvailable("cache")
	IsAvailable("cache")
	Available(FileIO)
	if probes != 1 {
		t.Fatalf("probe ran %d times, want 1", probes)
	}
}

func TestEnableDisableSelect(t *testing.T) {
	defer EnableAll()
	Register(&Backend{Name: "sel-a", Kind: FileIO, Priority: 2})
	Register(&Backend{Name: "sel-b", Kind: FileIO, Priority: 1})

	Disable("sel-a")
	got := pick(Available(FileIO), "sel-a", "sel-b")
	if !equalNames(got, []string{"sel-b"}) {
		t.Fatalf("Available after Disable = %v, want [sel-b]", got)
	}
	Enable("sel-a")
	got = pick(Available(FileIO), "sel-a", "sel-b")
	if !equalNames(got, []string{"sel-a", "sel-b"}) {
		t.Fatalf("Available after Enable = %v, want [sel-a sel-b]", got)
	}

	if err := Select("sel-b"); err != nil {
		t.Fatal(err)
	}
	got = Available(FileIO)
	if !equalNames(got, []string{"sel-b"}) {
		t.Fatalf("Available after Select = %v, want [sel-b]", got)
	}

	if err := Select("no-such-backend"); err == nil {
		t.Error("Select of unknown backend did not fail")
	}
}

func TestOpenFileFallthrough(t *testing.T) {
	defer EnableAll()
	path := filepath.Join(t.TempDir(), "test.dat")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	opened := []string{}
	Register(&Backend{Name: "open-bad", Kind: FileIO, Priority: 200,
		Open: func(p string) (Reader, error) {
			opened = append(opened, "open-bad")
			return nil, fmt.Errorf("cannot decode %s", p)
		}})
	Register(&Backend{Name: "open-good", Kind: FileIO, Priority: 190,
		Open: func(p string) (Reader, error) {
			opened = append(opened, "open-good")
			return &fakeReader{rate: 44100, channels: 1, frames: 8}, nil
		}})

	r, name, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if name != "open-good" {
		t.Fatalf("opened with %q, want open-good", name)
	}
	if !equalNames(opened, []string{"open-bad", "open-good"}) {
		t.Fatalf("backends tried in order %v", opened)
	}

	// all backends failing yields a joined error naming each attempt
	if err := Select("open-bad"); err != nil {
		t.Fatal(err)
	}
	_, _, err = OpenFile(path)
	if err == nil {
		t.Fatal("OpenFile succeeded with only a failing backend")
	}
	if !errors.Is(err, ErrNoBackend) {
		t.Errorf("error does not wrap ErrNoBackend: %v", err)
	}

	// missing files fail before any backend is tried
	if _, _, err := OpenFile(filepath.Join(t.TempDir(), "nothere.wav")); err == nil {
		t.Error("OpenFile of missing file succeeded")
	}
}
