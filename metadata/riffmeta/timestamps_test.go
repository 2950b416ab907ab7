package riffmeta

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bendalab/audioio/metadata"
)

func TestParseDatetime(t *testing.T) {
	tests := []struct {
		s    string
		want string
		ok   bool
	}{
		{"rec-2024-06-01T10:20:30.wav", "2024-06-01T10:20:30", true},
		{"rec_20240601_102030.wav", "2024-06-01T10:20:30", true},
		{"2024-06-01", "2024-06-01T00:00:00", true},
		{"only 10:20:30 given", "0001-01-01T10:20:30", true},
		{"no time stamp here", "", false},
	}
	for _, tt := range tests {
		ts, ok := ParseDatetime(tt.s)
		assert.Equal(t, tt.ok, ok, tt.s)
		if tt.ok {
			assert.Equal(t, tt.want, ts.Format("2006-01-02T15:04:05"), tt.s)
		}
	}
}

func TestReplaceDatetime(t *testing.T) {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	s := ReplaceDatetime("rec-2024-06-01T10:20:30.wav", ts)
	assert.Equal(t, "rec-2025-02-03T04:05:06.wav", s)

	// plain digit formats keep their formatting
	s = ReplaceDatetime("rec_20240601_102030.wav", ts)
	assert.Equal(t, "rec_20250203_040506.wav", s)

	// strings without a time stamp are returned unchanged
	s = ReplaceDatetime("recording.wav", ts)
	assert.Equal(t, "recording.wav", s)

	// length is always preserved
	for _, name := range []string{"a20240601b.wav", "10:20:30", "x2024-06-01 10:20:30y"} {
		assert.Len(t, ReplaceDatetime(name, ts), len(name), name)
	}
}

func TestPatchTimes(t *testing.T) {
	md := metadata.Metadata{
		"BEXT": metadata.Metadata{
			"OriginationDate": "2024-06-01",
			"OriginationTime": "10:20:30",
		},
	}
	// one second of 16 bit mono audio
	wav := buildWave(44100, make([]byte, 2*44100), MetadataChunks(md))
	path := filepath.Join(t.TempDir(), "rec-20240601T102030.wav")
	require.NoError(t, os.WriteFile(path, wav, 0644))

	start := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	duration, orig, err := PatchTimes(path, start)
	require.NoError(t, err)
	assert.Equal(t, time.Second, duration)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 20, 30, 0, time.UTC), orig)

	patched, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, patched, len(wav))
	assert.False(t, bytes.Contains(patched, []byte("2024-06-01")))

	got, _, err := ReadFile(path)
	require.NoError(t, err)
	bext := got["BEXT"].(metadata.Metadata)
	assert.Equal(t, "2025-02-03", bext["OriginationDate"])
	assert.Equal(t, "04:05:06", bext["OriginationTime"])
}
