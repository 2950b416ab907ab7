// Package metadata handles hierarchical key-value metadata of audio
// recordings. Metadata are nested string-keyed maps, as they come out
// of RIFF INFO lists, broadcast-audio extension chunks, iXML, or GUANO
// blobs. Sections are values that are themselves Metadata.
package metadata

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Metadata is a hierarchy of key-value pairs. Values are strings,
// numbers, or nested Metadata sections.
type Metadata map[string]any

// Marker is a labeled position within a recording. Span is the number
// of frames the marker extends over, zero for point markers.
type Marker struct {
	Pos   int64
	Span  int64
	Label string
	Text  string
}

// SortMarkers orders markers by position, point markers before
// spanning ones at the same position.
func SortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].Pos != markers[j].Pos {
			return markers[i].Pos < markers[j].Pos
		}
		return markers[i].Span < markers[j].Span
	})
}

// Flatten collapses the metadata hierarchy into a flat map. With
// keepSections the keys of nested sections are prefixed with the
// section names, joined by sep.
func Flatten(md Metadata, keepSections bool, sep string) Metadata {
	flat := Metadata{}
	var walk func(cd Metadata, section string)
	walk = func(cd Metadata, section string) {
		for _, k := range sortedKeys(cd) {
			if sub, ok := cd[k].(Metadata); ok {
				walk(sub, section+k+sep)
				continue
			}
			if keepSections {
				flat[section+k] = cd[k]
			} else {
				flat[k] = cd[k]
			}
		}
	}
	walk(md, "")
	return flat
}

// Unflatten rebuilds a metadata hierarchy from a flat map whose keys
// contain section names separated by sep.
func Unflatten(flat Metadata, sep string) Metadata {
	md := Metadata{}
	for _, k := range sortedKeys(flat) {
		parts := strings.Split(k, sep)
		cd := md
		for _, s := range parts[:len(parts)-1] {
			sub, ok := cd[s].(Metadata)
			if !ok {
				sub = Metadata{}
				cd[s] = sub
			}
			cd = sub
		}
		cd[parts[len(parts)-1]] = flat[k]
	}
	return md
}

// Find locates the section containing key in the metadata hierarchy.
// The key is matched case insensitively and may contain section names
// separated by dots, i.e. "aaa.bbb.ccc" searches for "ccc" within
// section "bbb" of section "aaa". Find returns the innermost section
// together with the matched key. When nothing matches, found is false
// and the top-level metadata with the unmodified key are returned, so
// that an assignment through them creates the entry.
func Find(md Metadata, key string) (Metadata, string, bool) {
	if md == nil {
		return nil, key, false
	}
	parts := strings.Split(strings.TrimSpace(key), ".")
	var search func(cd Metadata, keys []string) (Metadata, string, bool)
	search = func(cd Metadata, keys []string) (Metadata, string, bool) {
		want := strings.ToUpper(strings.TrimSpace(keys[0]))
		for _, k := range sortedKeys(cd) {
			if strings.ToUpper(k) != want {
				continue
			}
			if len(keys) == 1 {
				return cd, k, true
			}
			if sub, ok := cd[k].(Metadata); ok {
				return search(sub, keys[1:])
			}
		}
		for _, k := range sortedKeys(cd) {
			if sub, ok := cd[k].(Metadata); ok {
				if m, kk, found := search(sub, keys); found {
					return m, kk, true
				}
			}
		}
		return cd, strings.Join(keys, "."), false
	}
	m, k, found := search(md, parts)
	if !found {
		return md, key, false
	}
	return m, k, true
}

// GetStr returns the first of keys found in the metadata, as a string.
func GetStr(md Metadata, keys ...string) (string, bool) {
	for _, key := range keys {
		if m, k, found := Find(md, key); found {
			if _, isSection := m[k].(Metadata); !isSection {
				return fmt.Sprintf("%v", m[k]), true
			}
		}
	}
	return "", false
}

// GetInt returns the first of keys found in the metadata, parsed as an
// integer. Values with trailing units parse their number part.
func GetInt(md Metadata, keys ...string) (int64, bool) {
	for _, key := range keys {
		m, k, found := Find(md, key)
		if !found {
			continue
		}
		switch v := m[k].(type) {
		case int:
			return int64(v), true
		case int64:
			return v, true
		case uint64:
			return int64(v), true
		case float64:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// GetBool returns the first of keys found in the metadata as a bool.
// The strings "true", "yes", and "1" parse as true, "false", "no",
// and "0" as false.
func GetBool(md Metadata, keys ...string) (bool, bool) {
	for _, key := range keys {
		m, k, found := Find(md, key)
		if !found {
			continue
		}
		switch v := m[k].(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "1":
				return true, true
			case "false", "no", "0":
				return false, true
			}
		}
	}
	return false, false
}

// ParseNumber splits a string into its leading number, the trailing
// unit, and the number of decimals the number was given with.
func ParseNumber(s string) (val float64, unit string, decimals int, ok bool) {
	s = strings.TrimSpace(s)
	n := 0
	for n < len(s) {
		c := s[n]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' ||
			((c == 'e' || c == 'E') && n+1 < len(s) &&
				(s[n+1] == '-' || s[n+1] == '+' || (s[n+1] >= '0' && s[n+1] <= '9'))) {
			if c == 'e' || c == 'E' {
				n++ // take the exponent sign along
			}
			n++
			continue
		}
		break
	}
	if n == 0 {
		return 0, s, 0, false
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, s, 0, false
	}
	if i := strings.Index(s[:n], "."); i >= 0 {
		decimals = n - i - 1
	}
	return v, strings.TrimSpace(s[n:]), decimals, true
}

// GetNumber returns the first of keys found in the metadata as a
// number with its unit.
func GetNumber(md Metadata, keys ...string) (float64, string, bool) {
	for _, key := range keys {
		m, k, found := Find(md, key)
		if !found {
			continue
		}
		switch v := m[k].(type) {
		case int:
			return float64(v), "", true
		case int64:
			return float64(v), "", true
		case float64:
			return v, "", true
		case string:
			if val, unit, _, ok := ParseNumber(v); ok {
				return val, unit, true
			}
		}
	}
	return 0, "", false
}

// Set assigns value to the first matching key in the metadata
// hierarchy, or inserts it at the top level when the key is unknown.
// Keys may contain section names separated by dots.
func Set(md Metadata, key string, value any) {
	if md == nil {
		return
	}
	m, k, found := Find(md, key)
	if found {
		m[k] = value
		return
	}
	parts := strings.Split(key, ".")
	cd := md
	for _, s := range parts[:len(parts)-1] {
		sub, ok := cd[s].(Metadata)
		if !ok {
			sub = Metadata{}
			cd[s] = sub
		}
		cd = sub
	}
	cd[parts[len(parts)-1]] = value
}

// Remove deletes the first matching key from the metadata hierarchy.
func Remove(md Metadata, key string) bool {
	m, k, found := Find(md, key)
	if !found {
		return false
	}
	delete(m, k)
	return true
}

// Cleanup removes empty values and empty sections.
func Cleanup(md Metadata) {
	for k, v := range md {
		if sub, ok := v.(Metadata); ok {
			Cleanup(sub)
			if len(sub) == 0 {
				delete(md, k)
			}
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(md, k)
		}
	}
}

// ParseKeyValues turns "key=value" strings, with dotted section names
// in the keys, into a metadata hierarchy.
func ParseKeyValues(kvs []string) Metadata {
	flat := Metadata{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		flat[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return Unflatten(flat, ".")
}

// WriteText prints the metadata hierarchy with indented sections and
// aligned values.
func WriteText(w io.Writer, md Metadata, prefix string, indent int) {
	width := 0
	for _, k := range sortedKeys(md) {
		if _, ok := md[k].(Metadata); !ok && len(k) > width {
			width = len(k)
		}
	}
	for _, k := range sortedKeys(md) {
		if sub, ok := md[k].(Metadata); ok {
			fmt.Fprintf(w, "%s%s:\n", prefix, k)
			WriteText(w, sub, prefix+strings.Repeat(" ", indent), indent)
			continue
		}
		v := fmt.Sprintf("%v", md[k])
		if strings.Contains(v, "\n") {
			v = strings.ReplaceAll(v, "\n", "\n"+prefix+strings.Repeat(" ", width+2))
		}
		fmt.Fprintf(w, "%s%-*s: %s\n", prefix, width, k, v)
	}
}

// WriteMarkerTable prints markers as a table with positions, spans,
// labels, and texts.
func WriteMarkerTable(w io.Writer, markers []Marker, rate float64) {
	if len(markers) == 0 {
		return
	}
	hasText := false
	for _, m := range markers {
		if m.Text != "" {
			hasText = true
			break
		}
	}
	fmt.Fprintf(w, "%10s %8s %-10s", "position", "span", "label")
	if hasText {
		fmt.Fprintf(w, " %s", "text")
	}
	fmt.Fprintln(w)
	for _, m := range markers {
		fmt.Fprintf(w, "%10d %8d %-10s", m.Pos, m.Span, m.Label)
		if hasText {
			fmt.Fprintf(w, " %s", m.Text)
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys(md Metadata) []string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
