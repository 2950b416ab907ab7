package metadata

import (
	"fmt"
	"strings"
	"time"
)

// GainKeys are the metadata keys searched for gain settings.
var GainKeys = []string{"gain"}

// StartTimeKeys are the metadata key combinations that hold the
// start of the recording. Date and time may be split over two keys,
// given as "datekey|timekey".
var StartTimeKeys = []string{
	"DateTimeOriginal",
	"OriginationDate|OriginationTime",
	"Location_Time",
	"Timestamp",
}

// TimeRefKeys are the metadata keys holding integer sample-count time
// references.
var TimeRefKeys = []string{"TimeReference"}

// Gain returns the gain factor and its unit stored in the metadata.
func Gain(md Metadata) (float64, string, bool) {
	for _, gk := range GainKeys {
		m, k, found := Find(md, gk)
		if !found {
			continue
		}
		switch v := m[k].(type) {
		case int:
			return float64(v), "", true
		case float64:
			return v, "", true
		case string:
			if val, unit, _, ok := ParseNumber(v); ok {
				// fix TeeGrid gains like "20mV/V":
				unit = strings.TrimSuffix(unit, "/V")
				return val, unit, true
			}
		}
	}
	return 0, "", false
}

// UpdateGain divides the gain in the metadata by fac, e.g. after the
// data have been scaled by fac. Reports whether a gain was found.
func UpdateGain(md Metadata, fac float64) bool {
	if md == nil || fac == 0 {
		return false
	}
	for _, gk := range GainKeys {
		m, k, found := Find(md, gk)
		if !found {
			continue
		}
		switch v := m[k].(type) {
		case int:
			m[k] = float64(v) / fac
			return true
		case float64:
			m[k] = v / fac
			return true
		case string:
			val, unit, decimals, ok := ParseNumber(v)
			if !ok {
				continue
			}
			unit = strings.TrimSuffix(unit, "/V")
			m[k] = fmt.Sprintf("%.*f%s", decimals+1, val/fac, unit)
			return true
		}
	}
	return false
}

// AddUnwrap records that the data have been unwrapped with threshold
// thresh. clip larger than zero records the level at which unwrapped
// data have been clipped. The entries go into the INFO section when
// there is one.
func AddUnwrap(md Metadata, thresh, clip float32, unit string) {
	if md == nil {
		return
	}
	target := md
	for k := range md {
		if strings.ToUpper(strings.TrimSpace(k)) == "INFO" {
			if sub, ok := md[k].(Metadata); ok {
				target = sub
			}
			break
		}
	}
	target["UnwrapThreshold"] = fmt.Sprintf("%.2f%s", thresh, unit)
	if clip > 0 {
		target["UnwrapClippedAmplitude"] = fmt.Sprintf("%.2f%s", clip, unit)
	}
}

// timeLayouts are tried in turn when parsing start times from
// metadata values.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006:01:02 15:04:05",
}

// StartTime returns the start of the recording stored in the
// metadata.
func StartTime(md Metadata) (time.Time, bool) {
	for _, key := range StartTimeKeys {
		dk, tk, split := strings.Cut(key, "|")
		ds, ok := GetStr(md, dk)
		if !ok {
			continue
		}
		if split {
			ts, ok := GetStr(md, tk)
			if !ok {
				continue
			}
			ds = ds + "T" + ts
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, ds); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// SetStartTime stores t in all start-time fields present in the
// metadata. Reports whether any field was set.
func SetStartTime(md Metadata, t time.Time) bool {
	done := false
	for _, key := range StartTimeKeys {
		dk, tk, split := strings.Cut(key, "|")
		if split {
			if m, k, found := Find(md, dk); found {
				m[k] = t.Format("2006-01-02")
				done = true
			}
			if m, k, found := Find(md, tk); found {
				m[k] = t.Format("15:04:05")
				done = true
			}
			continue
		}
		if m, k, found := Find(md, dk); found {
			m[k] = t.Format("2006-01-02T15:04:05")
			done = true
		}
	}
	return done
}

// ShiftStartTime adds delta to all start-time fields and, given a
// sampling rate, to the integer TimeReference fields. Reports whether
// any field was changed.
func ShiftStartTime(md Metadata, delta time.Duration, rate float64) bool {
	done := false
	if t, ok := StartTime(md); ok {
		done = SetStartTime(md, t.Add(delta))
	}
	if rate > 0 {
		for _, key := range TimeRefKeys {
			m, k, found := Find(md, key)
			if !found {
				continue
			}
			if ref, ok := GetInt(md, key); ok {
				m[k] = ref + int64(delta.Seconds()*rate)
				done = true
			}
		}
	}
	return done
}

// HistoryKeys are the metadata keys that hold processing histories.
var HistoryKeys = []string{
	"History",
	"CodingHistory",
	"BWF_CODING_HISTORY",
}

// BextHistory assembles a CodingHistory line following EBU R98-1999,
// e.g. "A=PCM,F=44100,W=16,M=stereo,T=audioio".
func BextHistory(encoding string, rate float64, channels int, text string) string {
	mode := ""
	switch channels {
	case 1:
		mode = "mono"
	case 2:
		mode = "stereo"
	}
	if encoding == "" {
		encoding = "PCM"
	}
	algo, _, _ := strings.Cut(encoding, "_")
	depth := ""
	if _, rest, ok := strings.Cut(encoding, "_"); ok {
		depth = rest
	}
	s := fmt.Sprintf("A=%s,F=%.0f", algo, rate)
	if depth != "" {
		s += ",W=" + depth
	}
	if mode != "" {
		s += ",M=" + mode
	}
	if text != "" {
		s += ",T=" + text
	}
	return s
}

// AddHistory appends history to the first history field found in the
// metadata, creating a CodingHistory entry in the BEXT section when
// none exists.
func AddHistory(md Metadata, history string) {
	if md == nil || history == "" {
		return
	}
	for _, key := range HistoryKeys {
		m, k, found := Find(md, key)
		if !found {
			continue
		}
		if prev, ok := m[k].(string); ok && prev != "" {
			m[k] = prev + "\r\n" + history
		} else {
			m[k] = history
		}
		return
	}
	bext, ok := md["BEXT"].(Metadata)
	if !ok {
		bext = Metadata{}
		md["BEXT"] = bext
	}
	bext["CodingHistory"] = history
}
