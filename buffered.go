package audioio

import (
	"fmt"
	"time"
)

// Block is the extent of one block of frames.
type Block struct {
	Offset int64
	Length int64
}

// BlockRanges computes the extents of successive blocks of blockSize
// frames with overlap frames of overlap, covering [start, stop) of a
// sequence of frames frames. stop larger than frames or zero is
// clamped to frames. A trailing range shorter than blockSize is
// included, and when the whole range is shorter than blockSize a
// single short range is returned.
func BlockRanges(frames, blockSize, overlap, start, stop int64) ([]Block, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, not %d", blockSize)
	}
	if overlap >= blockSize {
		return nil, fmt.Errorf("overlap %d must be smaller than block size %d", overlap, blockSize)
	}
	if start < 0 {
		start = 0
	}
	if stop <= 0 || stop > frames {
		stop = frames
	}
	if stop <= start {
		return nil, nil
	}
	step := blockSize - overlap
	n := (stop - start - overlap) / step
	if n <= 0 {
		return []Block{{start, stop - start}}, nil
	}
	var blocks []Block
	for k := int64(0); k < n; k++ {
		blocks = append(blocks, Block{start + k*step, blockSize})
	}
	if start+n*step+overlap < stop {
		blocks = append(blocks, Block{start + n*step, stop - start - n*step})
	}
	return blocks, nil
}

// LoadFunc fills buf with len(buf)/channels frames starting at frame
// offset of the underlying sequence.
type LoadFunc func(offset int64, buf []float32) error

// BufferedArray provides random access to a large sequence of
// interleaved frames through a sliding window that is filled on
// demand. Requests inside the window are served from memory,
// requests outside move the window, recycling overlapping content so
// that only missing frames are loaded.
type BufferedArray struct {
	// Rate is the sampling rate in Hertz.
	Rate float64
	// Channels is the number of channels per frame.
	Channels int
	// Frames is the total number of frames of the sequence.
	Frames int64
	// BufferFrames is the number of frames the window holds.
	BufferFrames int64
	// BackFrames is the number of frames kept before a requested
	// range, for cheap movements back.
	BackFrames int64
	// Follow larger than zero turns on follow mode: requests that
	// moved at least Follow frames away from the window start slide
	// the window without resizing it. Good for reads that creep
	// forward in small steps.
	Follow int64
	// Load fills a part of the window from the underlying source.
	Load LoadFunc

	buffer []float32
	offset int64
}

// Len returns the total number of frames.
func (b *BufferedArray) Len() int64 {
	return b.Frames
}

// Duration returns the duration of the whole sequence.
func (b *BufferedArray) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames) / b.Rate * float64(time.Second))
}

// bufferLen returns the number of frames in the window.
func (b *BufferedArray) bufferLen() int64 {
	if b.Channels < 1 {
		return 0
	}
	return int64(len(b.buffer) / b.Channels)
}

// Offset returns the index of the first frame in the window.
func (b *BufferedArray) Offset() int64 {
	return b.offset
}

// InitBuffer discards the window. The next access allocates and
// fills it. Call after changing Frames, Channels or BufferFrames.
func (b *BufferedArray) InitBuffer() {
	if b.BufferFrames > b.Frames {
		b.BufferFrames = b.Frames
		b.BackFrames = 0
	}
	b.buffer = nil
	b.offset = 0
}

func (b *BufferedArray) allocateBuffer(nframes int64) {
	if nframes != b.bufferLen() {
		b.buffer = make([]float32, nframes*int64(b.Channels))
	}
}

// ReloadBuffer fills the window anew from the source, keeping its
// position and size.
func (b *BufferedArray) ReloadBuffer() error {
	if len(b.buffer) == 0 {
		return nil
	}
	return b.Load(b.offset, b.buffer)
}

// UpdateBuffer makes sure the window covers the frame range
// [start, stop).
func (b *BufferedArray) UpdateBuffer(start, stop int64) error {
	offset, nframes := b.bufferPosition(start, stop)
	return b.MoveBuffer(offset, nframes)
}

// UpdateTime makes sure the window covers the time range
// [t0, t1] given in seconds.
func (b *BufferedArray) UpdateTime(t0, t1 float64) error {
	return b.UpdateBuffer(int64(t0*b.Rate), int64(t1*b.Rate)+1)
}

// MoveBuffer moves and resizes the window so that it starts at frame
// offset and holds nframes frames, loading whatever content cannot
// be recycled.
func (b *BufferedArray) MoveBuffer(offset, nframes int64) error {
	if offset < 0 {
		offset = 0
	}
	if offset+nframes > b.Frames {
		nframes = b.Frames - offset
	}
	if offset == b.offset && nframes == b.bufferLen() {
		return nil
	}
	rOffset, rFrames := b.recycleBuffer(offset, nframes)
	b.offset = offset
	if rFrames > 0 {
		ch := int64(b.Channels)
		i := (rOffset - b.offset) * ch
		if err := b.Load(rOffset, b.buffer[i:i+rFrames*ch]); err != nil {
			return err
		}
	}
	return nil
}

// bufferPosition computes the window placement that accommodates the
// frame range [start, stop), honoring BufferFrames, BackFrames and
// Follow.
func (b *BufferedArray) bufferPosition(start, stop int64) (int64, int64) {
	if start < 0 {
		start = 0
	}
	if stop > b.Frames {
		stop = b.Frames
	}
	offset := start
	nframes := stop - start
	buflen := b.bufferLen()
	switch {
	case start < b.offset || stop > b.offset+buflen:
		if nframes < b.BufferFrames {
			// place the requested range with BackFrames before it:
			back := b.BackFrames
			if b.BufferFrames-nframes < 2*back {
				back = (b.BufferFrames - nframes) / 2
			}
			offset -= back
			nframes = b.BufferFrames
			if offset < 0 {
				offset = 0
			}
			if offset+nframes > b.Frames {
				offset = b.Frames - nframes
				if offset < 0 {
					offset = 0
					nframes = b.Frames
				}
			} else if b.Frames-offset-nframes < b.BufferFrames/2 {
				// expand towards a nearby end of the sequence:
				nframes = b.Frames - offset
			} else if offset < b.BufferFrames/2 {
				nframes += offset
				offset = 0
			}
		}
		return offset, nframes
	case b.Follow > 0 && nframes < buflen &&
		abs64(start-b.offset-b.BackFrames) >= b.Follow:
		offset = start - b.BackFrames
		nframes = buflen
		if offset < 0 {
			offset = 0
		}
		if offset+nframes > b.Frames {
			offset = b.Frames - nframes
			if offset < 0 {
				offset = 0
				nframes = b.Frames
			}
		} else if b.Frames-offset-nframes < b.BufferFrames/2 {
			nframes = b.Frames - offset
		} else if offset < b.BufferFrames/2 {
			nframes += offset
			offset = 0
		}
		return offset, nframes
	}
	// the window already covers the range:
	return b.offset, buflen
}

// recycleBuffer moves the window to its new place, keeping
// overlapping content, and returns the extent that still needs to be
// loaded.
func (b *BufferedArray) recycleBuffer(offset, nframes int64) (int64, int64) {
	ch := int64(b.Channels)
	rOffset := offset
	rFrames := nframes
	old := b.buffer
	oldOffset := b.offset
	oldFrames := b.bufferLen()
	switch {
	case offset >= oldOffset && offset < oldOffset+oldFrames:
		// keep overlapping content at the front of the new window:
		i := offset - oldOffset
		n := oldFrames - i
		if n > nframes {
			n = nframes
		}
		b.allocateBuffer(nframes)
		copy(b.buffer[:n*ch], old[i*ch:(i+n)*ch])
		rOffset += n
		rFrames -= n
	case offset+nframes > oldOffset && offset+nframes <= oldOffset+oldFrames:
		// keep overlapping content at the end of the new window:
		n := offset + nframes - oldOffset
		b.allocateBuffer(nframes)
		copy(b.buffer[(nframes-n)*ch:], old[:n*ch])
		rFrames -= n
	default:
		b.allocateBuffer(nframes)
	}
	return rOffset, rFrames
}

// Slice returns the frames of the range [start, stop) as a view into
// the window. The view is valid until the next access that moves the
// window. start and stop are clamped to the total number of frames,
// a range entirely past the end yields an empty slice.
func (b *BufferedArray) Slice(start, stop int64) ([]float32, error) {
	if start < 0 {
		return nil, fmt.Errorf("negative frame index %d", start)
	}
	if start > b.Frames {
		start = b.Frames
	}
	if stop > b.Frames {
		stop = b.Frames
	}
	if stop < start {
		stop = start
	}
	if err := b.UpdateBuffer(start, stop); err != nil {
		return nil, err
	}
	ch := int64(b.Channels)
	return b.buffer[(start-b.offset)*ch : (stop-b.offset)*ch], nil
}

// At returns the single frame at the given index as a view into the
// window.
func (b *BufferedArray) At(frame int64) ([]float32, error) {
	if frame < 0 || frame >= b.Frames {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", frame, b.Frames)
	}
	return b.Slice(frame, frame+1)
}

// Blocks computes the extents of successive blocks of blockSize
// frames with overlap frames of overlap over the range [start, stop).
// Pass the extents to Slice to get the block data.
func (b *BufferedArray) Blocks(blockSize, overlap, start, stop int64) ([]Block, error) {
	return BlockRanges(b.Frames, blockSize, overlap, start, stop)
}

// EachBlock calls fn for every block of blockSize frames with overlap
// frames of overlap over the whole sequence. The data slice passed to
// fn is only valid during the call.
func (b *BufferedArray) EachBlock(blockSize, overlap int64, fn func(offset int64, data []float32) error) error {
	blocks, err := b.Blocks(blockSize, overlap, 0, b.Frames)
	if err != nil {
		return err
	}
	for _, bl := range blocks {
		data, err := b.Slice(bl.Offset, bl.Offset+bl.Length)
		if err != nil {
			return err
		}
		if err := fn(bl.Offset, data); err != nil {
			return err
		}
	}
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
