package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGain(t *testing.T) {
	md := Metadata{"INFO": Metadata{"Gain": "20mV/V"}}
	v, unit, ok := Gain(md)
	require.True(t, ok)
	assert.Equal(t, 20.0, v)
	assert.Equal(t, "mV", unit)

	_, _, ok = Gain(Metadata{})
	assert.False(t, ok)
}

func TestUpdateGain(t *testing.T) {
	md := Metadata{"INFO": Metadata{"Gain": "20.0mV"}}
	require.True(t, UpdateGain(md, 2))
	s, _ := GetStr(md, "gain")
	assert.Equal(t, "10.00mV", s)

	md = Metadata{"Gain": 4.0}
	require.True(t, UpdateGain(md, 0.5))
	assert.Equal(t, 8.0, md["Gain"])

	assert.False(t, UpdateGain(Metadata{}, 2))
	assert.False(t, UpdateGain(md, 0))
}

func TestAddUnwrap(t *testing.T) {
	md := Metadata{"INFO": Metadata{"Artist": "me"}}
	AddUnwrap(md, 0.6, 1.0, "V")
	s, ok := GetStr(md, "INFO.UnwrapThreshold")
	require.True(t, ok)
	assert.Equal(t, "0.60V", s)
	s, _ = GetStr(md, "INFO.UnwrapClippedAmplitude")
	assert.Equal(t, "1.00V", s)

	// without an INFO section the entries go to the top level
	md = Metadata{}
	AddUnwrap(md, 0.4, 0, "")
	s, _ = GetStr(md, "UnwrapThreshold")
	assert.Equal(t, "0.40", s)
	_, ok = GetStr(md, "UnwrapClippedAmplitude")
	assert.False(t, ok)
}

func TestStartTime(t *testing.T) {
	md := Metadata{
		"BEXT": Metadata{
			"OriginationDate": "2024-06-01",
			"OriginationTime": "10:20:30",
		},
	}
	ts, ok := StartTime(md)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 20, 30, 0, time.UTC), ts)

	md = Metadata{"DateTimeOriginal": "2024-06-01T10:20:30"}
	ts, ok = StartTime(md)
	require.True(t, ok)
	assert.Equal(t, 10, ts.Hour())

	_, ok = StartTime(Metadata{})
	assert.False(t, ok)
}

func TestShiftStartTime(t *testing.T) {
	md := Metadata{
		"BEXT": Metadata{
			"OriginationDate": "2024-06-01",
			"OriginationTime": "10:20:30",
			"TimeReference":   int64(44100),
		},
	}
	require.True(t, ShiftStartTime(md, 90*time.Second, 44100))
	s, _ := GetStr(md, "OriginationTime")
	assert.Equal(t, "10:22:00", s)
	s, _ = GetStr(md, "OriginationDate")
	assert.Equal(t, "2024-06-01", s)
	ref, _ := GetInt(md, "TimeReference")
	assert.Equal(t, int64(44100+90*44100), ref)
}

func TestBextHistory(t *testing.T) {
	h := BextHistory("PCM_16", 44100, 2, "audioio")
	assert.Equal(t, "A=PCM,F=44100,W=16,M=stereo,T=audioio", h)

	h = BextHistory("", 48000, 1, "")
	assert.Equal(t, "A=PCM,F=48000,M=mono", h)
}

func TestAddHistory(t *testing.T) {
	md := Metadata{}
	AddHistory(md, "A=PCM,F=44100")
	s, ok := GetStr(md, "BEXT.CodingHistory")
	require.True(t, ok)
	assert.Equal(t, "A=PCM,F=44100", s)

	AddHistory(md, "A=PCM,F=48000")
	s, _ = GetStr(md, "CodingHistory")
	assert.Equal(t, "A=PCM,F=44100\r\nA=PCM,F=48000", s)
}
