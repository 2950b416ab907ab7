package riffmeta

import (
	"encoding/binary"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	dateRe    = regexp.MustCompile(`[123][0-9][0-9][0-9]-[01][0-9]-[0123][0-9]`)
	plainDate = regexp.MustCompile(`[123][0-9][0-9][0-9][01][0-9][0123][0-9]`)
	timeRe    = regexp.MustCompile(`[012][0-9]:[0-5][0-9]:[0-5][0-9]`)
	plainTime = regexp.MustCompile(`[012][0-9][0-5][0-9][0-5][0-9]`)
)

// ParseDatetime extracts a date and a time from s. Dates may be
// given as "2006-01-02" or "20060102", times as "15:04:05" or
// "150405". A date without a time and vice versa is fine.
func ParseDatetime(s string) (time.Time, bool) {
	date := ""
	timePos := 0
	if loc := dateRe.FindStringIndex(s); loc != nil {
		date = s[loc[0]:loc[1]]
		timePos = loc[1]
	} else if loc := plainDate.FindStringIndex(s); loc != nil {
		d := s[loc[0]:loc[1]]
		date = d[:4] + "-" + d[4:6] + "-" + d[6:]
		timePos = loc[1]
	}
	clock := ""
	if loc := timeRe.FindStringIndex(s[timePos:]); loc != nil {
		clock = s[timePos+loc[0] : timePos+loc[1]]
	} else if loc := plainTime.FindStringIndex(s[timePos:]); loc != nil {
		c := s[timePos+loc[0] : timePos+loc[1]]
		clock = c[:2] + ":" + c[2:4] + ":" + c[4:]
	}
	if date == "" && clock == "" {
		return time.Time{}, false
	}
	if date == "" {
		date = "0001-01-01"
	}
	if clock == "" {
		clock = "00:00:00"
	}
	t, err := time.Parse("2006-01-02T15:04:05", date+"T"+clock)
	return t, err == nil
}

// ReplaceDatetime replaces the date and the time contained in s by
// t, keeping the formatting and the length of s. Strings without a
// date or time are returned unchanged.
func ReplaceDatetime(s string, t time.Time) string {
	timePos := 0
	if loc := dateRe.FindStringIndex(s); loc != nil {
		s = dateRe.ReplaceAllString(s, t.Format("2006-01-02"))
		timePos = loc[1]
	} else if loc := plainDate.FindStringIndex(s); loc != nil {
		s = plainDate.ReplaceAllString(s, t.Format("20060102"))
		timePos = loc[1]
	}
	rest := s[timePos:]
	if timeRe.MatchString(rest) {
		s = s[:timePos] + timeRe.ReplaceAllString(rest, t.Format("15:04:05"))
	} else if plainTime.MatchString(rest) {
		s = s[:timePos] + plainTime.ReplaceAllString(rest, t.Format("150405"))
	}
	return s
}

// chunkPos is the file position and size of the body of a chunk.
type chunkPos struct {
	id   string
	pos  int64
	size int64
}

func scanChunks(f *os.File) ([]chunkPos, error) {
	var header [12]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return nil, err
	}
	if string(header[:4]) != "RIFF" {
		return nil, fmt.Errorf("not a RIFF file")
	}
	fsize := int64(binary.LittleEndian.Uint32(header[4:8])) + 8
	var chunks []chunkPos
	pos := int64(12)
	var head [8]byte
	for pos < fsize-8 {
		if _, err := f.ReadAt(head[:], pos); err != nil {
			break
		}
		id := strings.ToUpper(strings.TrimRight(string(head[:4]), " \x00"))
		size := int64(binary.LittleEndian.Uint32(head[4:8]))
		chunks = append(chunks, chunkPos{id, pos + 8, size})
		pos += 8 + size + size%2
	}
	return chunks, nil
}

// PatchTimes sets all time stamps in the metadata chunks of the
// RIFF/WAVE file at path to start. The chunks are patched in place,
// replaced date and time strings keep their length. It returns the
// duration of the audio data and the original time stamp found in
// the metadata, which is the zero time when there was none.
func PatchTimes(path string, start time.Time) (time.Duration, time.Time, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer f.Close()
	chunks, err := scanChunks(f)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%s: %w", path, err)
	}
	var duration time.Duration
	var orig time.Time
	channels, rate, bits := 0, 0.0, 0
	for _, ch := range chunks {
		if ch.id == "FMT" {
			sec := make([]byte, ch.size)
			if _, err := f.ReadAt(sec, ch.pos); err != nil {
				return 0, time.Time{}, err
			}
			channels = int(binary.LittleEndian.Uint16(sec[2:4]))
			rate = float64(binary.LittleEndian.Uint32(sec[4:8]))
			bits = int(binary.LittleEndian.Uint16(sec[14:16]))
		}
	}
	for _, ch := range chunks {
		switch ch.id {
		case "DATA":
			if channels > 0 && rate > 0 && bits > 0 {
				frames := ch.size / int64(channels*((bits+7)/8))
				duration = time.Duration(float64(frames) / rate * float64(time.Second))
			}
		case "LIST", "BEXT", "IXML", "GUAN":
			bs := make([]byte, ch.size)
			if _, err := f.ReadAt(bs, ch.pos); err != nil {
				return 0, time.Time{}, err
			}
			if ch.id == "LIST" && (len(bs) < 4 ||
				!strings.EqualFold(string(bs[:4]), "INFO")) {
				continue
			}
			if orig.IsZero() {
				if t, ok := ParseDatetime(string(bs)); ok {
					orig = t
				}
			}
			patched := []byte(ReplaceDatetime(string(bs), start))
			if len(patched) != len(bs) {
				return 0, time.Time{}, fmt.Errorf("%s: time stamp patch changed size of %s chunk", path, ch.id)
			}
			if _, err := f.WriteAt(patched, ch.pos); err != nil {
				return 0, time.Time{}, err
			}
		}
	}
	return duration, orig, nil
}
