package audioio

import (
	"reflect"
	"testing"
)

// testArray returns a BufferedArray over a synthetic sequence in
// which frame i of channel c holds the value i*10+c, together with
// counters for the number of Load calls and loaded frames.
func testArray(frames int64, channels int, bufferFrames int64) (*BufferedArray, *int, *int64) {
	loads := 0
	loadedFrames := int64(0)
	b := &BufferedArray{
		Rate:         100,
		Channels:     channels,
		Frames:       frames,
		BufferFrames: bufferFrames,
	}
	b.Load = func(offset int64, buf []float32) error {
		loads++
		n := int64(len(buf)) / int64(channels)
		loadedFrames += n
		for i := int64(0); i < n; i++ {
			for c := 0; c < channels; c++ {
				buf[i*int64(channels)+int64(c)] = float32((offset+i)*10 + int64(c))
			}
		}
		return nil
	}
	b.InitBuffer()
	return b, &loads, &loadedFrames
}

func checkValues(t *testing.T, data []float32, start int64, channels int) {
	t.Helper()
	for i := 0; i < len(data)/channels; i++ {
		for c := 0; c < channels; c++ {
			want := float32((start+int64(i))*10 + int64(c))
			if got := data[i*channels+c]; got != want {
				t.Fatalf("frame %d channel %d: got %g, want %g", start+int64(i), c, got, want)
			}
		}
	}
}

func TestBlockRanges(t *testing.T) {
	tests := []struct {
		frames, blockSize, overlap, start, stop int64
		want                                    []Block
	}{
		{20, 6, 2, 0, 0, []Block{{0, 6}, {4, 6}, {8, 6}, {12, 6}, {16, 4}}},
		{10, 10, 0, 0, 0, []Block{{0, 10}}},
		{10, 5, 0, 0, 0, []Block{{0, 5}, {5, 5}}},
		{5, 10, 0, 0, 0, []Block{{0, 5}}},
		{20, 6, 2, 4, 12, []Block{{4, 6}, {8, 4}}},
		{20, 6, 2, 0, 100, []Block{{0, 6}, {4, 6}, {8, 6}, {12, 6}, {16, 4}}},
		{10, 4, 0, 10, 0, nil},
	}
	for _, tt := range tests {
		got, err := BlockRanges(tt.frames, tt.blockSize, tt.overlap, tt.start, tt.stop)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("BlockRanges(%d, %d, %d, %d, %d) = %v, want %v",
				tt.frames, tt.blockSize, tt.overlap, tt.start, tt.stop, got, tt.want)
		}
	}

	if _, err := BlockRanges(10, 4, 4, 0, 0); err == nil {
		t.Error("expected error for overlap >= block size")
	}
	if _, err := BlockRanges(10, 0, 0, 0, 0); err == nil {
		t.Error("expected error for zero block size")
	}
}

func TestSliceValues(t *testing.T) {
	b, _, _ := testArray(1000, 2, 100)

	data, err := b.Slice(0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 50*2 {
		t.Fatalf("got %d values, want %d", len(data), 100)
	}
	checkValues(t, data, 0, 2)

	data, err = b.Slice(500, 550)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 500, 2)

	// stop is clamped to the total number of frames
	data, err = b.Slice(990, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 10*2 {
		t.Fatalf("got %d values, want %d", len(data), 20)
	}
	checkValues(t, data, 990, 2)

	// a range entirely past the end is empty
	data, err = b.Slice(2000, 2100)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("got %d values, want 0", len(data))
	}
	data, err = b.Slice(1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("got %d values, want 0", len(data))
	}

	frame, err := b.At(123)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, frame, 123, 2)

	if _, err := b.At(-1); err == nil {
		t.Error("expected error for negative frame index")
	}
	if _, err := b.At(1000); err == nil {
		t.Error("expected error for frame index past the end")
	}
}

func TestRecycleForward(t *testing.T) {
	b, loads, loadedFrames := testArray(1000, 1, 100)

	if _, err := b.Slice(0, 100); err != nil {
		t.Fatal(err)
	}
	if *loadedFrames != 100 {
		t.Fatalf("loaded %d frames, want 100", *loadedFrames)
	}

	// moving half a window forward loads only the missing half
	data, err := b.Slice(50, 150)
	if err != nil {
		t.Fatal(err)
	}
	if *loads != 2 || *loadedFrames != 150 {
		t.Fatalf("%d loads with %d frames, want 2 loads with 150 frames", *loads, *loadedFrames)
	}
	checkValues(t, data, 50, 1)

	// moving back over the same range reuses the tail
	data, err = b.Slice(0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if *loadedFrames != 200 {
		t.Fatalf("loaded %d frames, want 200", *loadedFrames)
	}
	checkValues(t, data, 0, 1)
}

func TestBufferInsideWindow(t *testing.T) {
	b, loads, _ := testArray(1000, 1, 100)

	if _, err := b.Slice(100, 200); err != nil {
		t.Fatal(err)
	}
	// requests inside the window are served from memory
	for _, r := range [][2]int64{{100, 150}, {150, 200}, {120, 180}} {
		data, err := b.Slice(r[0], r[1])
		if err != nil {
			t.Fatal(err)
		}
		checkValues(t, data, r[0], 1)
	}
	if *loads != 1 {
		t.Fatalf("%d loads, want 1", *loads)
	}
}

func TestBackFrames(t *testing.T) {
	b, _, _ := testArray(1000, 1, 100)
	b.BackFrames = 20

	data, err := b.Slice(200, 210)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 200, 1)
	if b.Offset() != 180 {
		t.Fatalf("window starts at %d, want 180", b.Offset())
	}

	// small movements back stay inside the window
	loads := 0
	load := b.Load
	b.Load = func(offset int64, buf []float32) error {
		loads++
		return load(offset, buf)
	}
	if _, err := b.Slice(190, 200); err != nil {
		t.Fatal(err)
	}
	if loads != 0 {
		t.Fatalf("%d loads, want 0", loads)
	}
}

func TestWindowExpandsAtEnd(t *testing.T) {
	b, loads, _ := testArray(120, 1, 100)

	// a window reaching close to the end covers the rest as well
	data, err := b.Slice(10, 20)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 10, 1)
	if b.Offset() != 10 {
		t.Fatalf("window starts at %d, want 10", b.Offset())
	}
	data, err = b.Slice(115, 120)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 115, 1)
	if *loads != 1 {
		t.Fatalf("%d loads, want 1", *loads)
	}
}

func TestLargeRequestEnlargesWindow(t *testing.T) {
	b, _, _ := testArray(1000, 1, 100)

	data, err := b.Slice(100, 400)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 300 {
		t.Fatalf("got %d frames, want 300", len(data))
	}
	checkValues(t, data, 100, 1)
}

func TestFollowMode(t *testing.T) {
	b, _, loadedFrames := testArray(1000, 1, 100)
	b.BackFrames = 20
	b.Follow = 10

	if _, err := b.Slice(200, 210); err != nil {
		t.Fatal(err)
	}
	if b.Offset() != 180 {
		t.Fatalf("window starts at %d, want 180", b.Offset())
	}

	// creeping forward slides the window without resizing it
	data, err := b.Slice(240, 250)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 240, 1)
	if b.Offset() != 220 {
		t.Fatalf("window starts at %d, want 220", b.Offset())
	}
	if *loadedFrames != 140 {
		t.Fatalf("loaded %d frames, want 140", *loadedFrames)
	}
}

func TestEachBlock(t *testing.T) {
	b, _, _ := testArray(20, 1, 8)

	var offsets []int64
	var lengths []int
	err := b.EachBlock(6, 2, func(offset int64, data []float32) error {
		offsets = append(offsets, offset)
		lengths = append(lengths, len(data))
		checkValues(t, data, offset, 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(offsets, []int64{0, 4, 8, 12, 16}) {
		t.Errorf("block offsets %v, want [0 4 8 12 16]", offsets)
	}
	if !reflect.DeepEqual(lengths, []int{6, 6, 6, 6, 4}) {
		t.Errorf("block lengths %v, want [6 6 6 6 4]", lengths)
	}
}

func TestUpdateTime(t *testing.T) {
	b, _, _ := testArray(1000, 1, 100)

	if err := b.UpdateTime(2.0, 2.5); err != nil {
		t.Fatal(err)
	}
	if b.Offset() > 200 {
		t.Fatalf("window starts at %d, want at most 200", b.Offset())
	}
	data, err := b.Slice(200, 251)
	if err != nil {
		t.Fatal(err)
	}
	checkValues(t, data, 200, 1)
}
