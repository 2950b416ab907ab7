// Package wave reads and writes RIFF/WAVE files. Reading decodes
// integer PCM, IEEE float and G.711 encoded data with random access
// directly from the file. Writing goes through github.com/go-audio/wav
// for the integer encodings and encodes float and G.711 data
// itself. Metadata and markers are handled by the riffmeta package.
//
// Importing the package registers the "wave" backend.
package wave

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zaf/g711"

	"github.com/bendalab/audioio/backend"
	"github.com/bendalab/audioio/metadata"
	"github.com/bendalab/audioio/metadata/riffmeta"
)

func init() {
	backend.Register(&backend.Backend{
		Name:      "wave",
		Kind:      backend.FileIO,
		Priority:  100,
		Open:      open,
		Formats:   formats,
		Encodings: encodings,
		Write:     write,
		OpenWrite: openWrite,
		Info:      "RIFF/WAVE files with metadata and markers",
		Module:    "github.com/go-audio/wav",
	})
}

func formats() []string {
	return []string{"WAV", "WAVE", "RIFF"}
}

var writeEncodings = []string{
	"PCM_16", "PCM_24", "PCM_32", "PCM_U8",
	"FLOAT", "DOUBLE", "ALAW", "ULAW",
}

func encodings(format string) []string {
	switch format {
	case "WAV", "WAVE", "RIFF", "":
		return writeEncodings
	}
	return nil
}

// wave format codes of the fmt chunk.
const (
	fmtPCM        = 1
	fmtIEEEFloat  = 3
	fmtALaw       = 6
	fmtMULaw      = 7
	fmtExtensible = 0xfffe
)

type reader struct {
	f        *os.File
	path     string
	rate     float64
	channels int
	frames   int64
	encoding string
	bytes    int // bytes per sample
	format   int
	dataPos  int64
}

func open(path string) (backend.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &reader{f: f, path: path}
	if err := r.parseHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *reader) parseHeader() error {
	var header [12]byte
	if _, err := r.f.ReadAt(header[:], 0); err != nil {
		return err
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return fmt.Errorf("not a RIFF/WAVE file")
	}
	fileSize := int64(binary.LittleEndian.Uint32(header[4:8])) + 8
	pos := int64(12)
	var head [8]byte
	var dataSize int64
	haveFmt := false
	for pos < fileSize-8 {
		if _, err := r.f.ReadAt(head[:], pos); err != nil {
			break
		}
		id := string(head[:4])
		size := int64(binary.LittleEndian.Uint32(head[4:8]))
		switch id {
		case "fmt ":
			fm := make([]byte, size)
			if _, err := r.f.ReadAt(fm, pos+8); err != nil {
				return err
			}
			if len(fm) < 16 {
				return fmt.Errorf("truncated fmt chunk")
			}
			r.format = int(binary.LittleEndian.Uint16(fm[0:2]))
			r.channels = int(binary.LittleEndian.Uint16(fm[2:4]))
			r.rate = float64(binary.LittleEndian.Uint32(fm[4:8]))
			bits := int(binary.LittleEndian.Uint16(fm[14:16]))
			if r.format == fmtExtensible && len(fm) >= 26 {
				r.format = int(binary.LittleEndian.Uint16(fm[24:26]))
			}
			r.bytes = (bits + 7) / 8
			switch r.format {
			case fmtPCM:
				r.encoding = fmt.Sprintf("PCM_%d", bits)
				if bits == 8 {
					r.encoding = "PCM_U8"
				}
			case fmtIEEEFloat:
				if bits == 64 {
					r.encoding = "DOUBLE"
				} else {
					r.encoding = "FLOAT"
				}
			case fmtALaw:
				r.encoding = "ALAW"
			case fmtMULaw:
				r.encoding = "ULAW"
			default:
				return fmt.Errorf("unsupported wave format code %d", r.format)
			}
			haveFmt = true
		case "data":
			r.dataPos = pos + 8
			dataSize = size
		}
		pos += 8 + size + size%2
	}
	if !haveFmt || r.dataPos == 0 {
		return fmt.Errorf("missing fmt or data chunk")
	}
	if r.channels < 1 || r.bytes < 1 {
		return fmt.Errorf("invalid fmt chunk")
	}
	r.frames = dataSize / int64(r.channels*r.bytes)
	return nil
}

func (r *reader) Rate() float64    { return r.rate }
func (r *reader) Channels() int    { return r.channels }
func (r *reader) Frames() int64    { return r.frames }
func (r *reader) Encoding() string { return r.encoding }

func (r *reader) ReadFrames(offset int64, buf []float32) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative frame offset %d", offset)
	}
	want := len(buf) / r.channels
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
	blockAlign := r.channels * r.bytes
	raw := make([]byte, want*blockAlign)
	if _, err := r.f.ReadAt(raw, r.dataPos+offset*int64(blockAlign)); err != nil {
		return 0, err
	}
	n := want * r.channels
	switch r.format {
	case fmtPCM:
		switch r.bytes {
		case 1:
			for i := 0; i < n; i++ {
				buf[i] = (float32(raw[i]) - 128) / 128
			}
		case 2:
			for i := 0; i < n; i++ {
				v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
				buf[i] = float32(v) / 32768
			}
		case 3:
			for i := 0; i < n; i++ {
				v := int32(raw[3*i]) | int32(raw[3*i+1])<<8 | int32(raw[3*i+2])<<16
				v = v << 8 >> 8
				buf[i] = float32(v) / 8388608
			}
		case 4:
			for i := 0; i < n; i++ {
				v := int32(binary.LittleEndian.Uint32(raw[4*i:]))
				buf[i] = float32(float64(v) / 2147483648)
			}
		default:
			return 0, fmt.Errorf("unsupported sample size %d", 8*r.bytes)
		}
	case fmtIEEEFloat:
		switch r.bytes {
		case 4:
			for i := 0; i < n; i++ {
				buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
			}
		case 8:
			for i := 0; i < n; i++ {
				buf[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
			}
		default:
			return 0, fmt.Errorf("unsupported sample size %d", 8*r.bytes)
		}
	case fmtALaw:
		for i := 0; i < n; i++ {
			buf[i] = float32(g711.DecodeAlawFrame(raw[i])) / 32768
		}
	case fmtMULaw:
		for i := 0; i < n; i++ {
			buf[i] = float32(g711.DecodeUlawFrame(raw[i])) / 32768
		}
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	if eof {
		return want, io.EOF
	}
	return want, nil
}

func (r *reader) Close() error {
	return r.f.Close()
}

// Metadata returns the metadata and markers stored in the file.
func (r *reader) Metadata() (metadata.Metadata, []metadata.Marker, error) {
	return riffmeta.ReadFile(r.path)
}

func write(path string, data []float32, p backend.WriteParams) error {
	w, err := openWrite(path, p)
	if err != nil {
		return err
	}
	if _, err := w.WriteFrames(data); err != nil {
		w.(*writer).f.Close()
		return err
	}
	return w.Close()
}

// writer encodes frames incrementally. Integer PCM goes through the
// go-audio wav encoder, float and G.711 data get a hand written
// header whose sizes are patched on Close, since the wav encoder only
// handles integer PCM.
type writer struct {
	f      *os.File
	path   string
	p      backend.WriteParams
	format int
	bits   int
	e      *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int64
}

// offsets of the size fields of the hand written raw header.
const (
	rawRiffSizePos = 4
	rawFactPos     = 44
	rawDataSizePos = 52
	rawHeaderSize  = 56
)

func openWrite(path string, p backend.WriteParams) (backend.Writer, error) {
	enc := p.Encoding
	if enc == "" {
		enc = "PCM_16"
	}
	if p.Channels < 1 {
		p.Channels = 1
	}
	p.Encoding = enc
	w := &writer{path: path, p: p}
	switch enc {
	case "PCM_16":
		w.format, w.bits = fmtPCM, 16
	case "PCM_24":
		w.format, w.bits = fmtPCM, 24
	case "PCM_32":
		w.format, w.bits = fmtPCM, 32
	case "PCM_U8":
		w.format, w.bits = fmtPCM, 8
	case "FLOAT":
		w.format, w.bits = fmtIEEEFloat, 32
	case "DOUBLE":
		w.format, w.bits = fmtIEEEFloat, 64
	case "ALAW":
		w.format, w.bits = fmtALaw, 8
	case "ULAW":
		w.format, w.bits = fmtMULaw, 8
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w.f = f
	if w.format == fmtPCM {
		w.e = wav.NewEncoder(f, int(p.Rate), w.bits, p.Channels, fmtPCM)
		w.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: p.Channels,
				SampleRate:  int(p.Rate),
			},
			SourceBitDepth: w.bits,
		}
	} else if err := w.writeRawHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// writeRawHeader writes the RIFF header with fmt, fact and data
// chunks. The size fields are zero until Close patches them.
func (w *writer) writeRawHeader() error {
	blockAlign := w.p.Channels * w.bits / 8
	var hdr []byte
	hdr = append(hdr, "RIFF"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)
	hdr = append(hdr, "WAVE"...)
	hdr = append(hdr, "fmt "...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 16)
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(w.format))
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(w.p.Channels))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(w.p.Rate))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(int(w.p.Rate)*blockAlign))
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(blockAlign))
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(w.bits))
	hdr = append(hdr, "fact"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 4)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)
	hdr = append(hdr, "data"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)
	_, err := w.f.Write(hdr)
	return err
}

func (w *writer) WriteFrames(data []float32) (int, error) {
	frames := len(data) / w.p.Channels
	if frames == 0 {
		return 0, nil
	}
	if w.e != nil {
		if len(w.buf.Data) != len(data) {
			w.buf.Data = make([]int, len(data))
		}
		scale := float64(int64(1) << (w.bits - 1))
		for i, v := range data {
			s := int(math.Round(float64(v) * scale))
			if s > int(scale)-1 {
				s = int(scale) - 1
			} else if s < -int(scale) {
				s = -int(scale)
			}
			if w.bits == 8 {
				s += 128
			}
			w.buf.Data[i] = s
		}
		if err := w.e.Write(w.buf); err != nil {
			return 0, err
		}
		w.frames += int64(frames)
		return frames, nil
	}
	body := make([]byte, len(data)*w.bits/8)
	switch {
	case w.format == fmtIEEEFloat && w.bits == 32:
		for i, v := range data {
			binary.LittleEndian.PutUint32(body[4*i:], math.Float32bits(v))
		}
	case w.format == fmtIEEEFloat && w.bits == 64:
		for i, v := range data {
			binary.LittleEndian.PutUint64(body[8*i:], math.Float64bits(float64(v)))
		}
	case w.format == fmtALaw:
		for i, v := range data {
			body[i] = g711.EncodeAlawFrame(clamp16(v))
		}
	case w.format == fmtMULaw:
		for i, v := range data {
			body[i] = g711.EncodeUlawFrame(clamp16(v))
		}
	}
	if _, err := w.f.Write(body); err != nil {
		return 0, err
	}
	w.frames += int64(frames)
	return frames, nil
}

func (w *writer) Close() error {
	if w.e != nil {
		if err := w.e.Close(); err != nil {
			w.f.Close()
			return err
		}
	} else if err := w.patchRawSizes(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	return riffmeta.AppendToFile(w.path, w.p.Metadata, w.p.Markers)
}

// patchRawSizes pads the data chunk to even size and fills in the
// size fields of the header.
func (w *writer) patchRawSizes() error {
	dataSize := w.frames * int64(w.p.Channels) * int64(w.bits) / 8
	padded := dataSize + dataSize%2
	if dataSize%2 == 1 {
		if _, err := w.f.Write([]byte{0}); err != nil {
			return err
		}
	}
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(rawHeaderSize+padded-8))
	if _, err := w.f.WriteAt(n[:], rawRiffSizePos); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(n[:], uint32(w.frames))
	if _, err := w.f.WriteAt(n[:], rawFactPos); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(n[:], uint32(dataSize))
	_, err := w.f.WriteAt(n[:], rawDataSizePos)
	return err
}

func clamp16(v float32) int16 {
	s := float64(v) * 32768
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}
