// Package riffmeta reads and writes metadata and marker chunks of
// RIFF based files like WAVE. Metadata come from LIST INFO, BEXT,
// IXML and GUANO chunks and are returned as nested
// metadata.Metadata. Markers come from CUE, PLST and LIST adtl
// chunks.
package riffmeta

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/youpy/go-riff"

	"github.com/bendalab/audioio/metadata"
)

// ReadFile reads metadata and markers from a RIFF/WAVE file.
func ReadFile(path string) (metadata.Metadata, []metadata.Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read reads metadata and markers from the RIFF stream r.
func Read(r riff.RIFFReader) (metadata.Metadata, []metadata.Marker, error) {
	rc, err := riff.NewReader(r).Read()
	if err != nil {
		return nil, nil, err
	}
	md := metadata.Metadata{}
	var cues []cuePoint
	var rate float64
	// spans and labels refer to cue points by id, but their chunks
	// may precede the cue chunk, so they are applied after the walk
	var adtl, plst [][]byte
	for _, ch := range rc.Chunks {
		id := chunkID(ch)
		switch id {
		case "FMT":
			if _, r, _, err := parseFormat(ch); err == nil {
				rate = r
			}
		case "LIST":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			if len(bs) < 4 {
				continue
			}
			switch strings.ToUpper(string(bs[:4])) {
			case "INFO":
				if info := parseInfo(bs[4:]); len(info) > 0 {
					md["INFO"] = info
				}
			case "ADTL":
				adtl = append(adtl, bs[4:])
			}
		case "BEXT":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			if bext := parseBext(bs); len(bext) > 0 {
				md["BEXT"] = bext
			}
		case "IXML":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			ixml, err := parseIXML(bs)
			if err == nil && len(ixml) > 0 {
				md["IXML"] = ixml
			}
		case "GUAN":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			for k, v := range parseGuano(bs) {
				md[k] = v
			}
		case "CUE":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			cues = parseCue(bs)
		case "PLST":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			plst = append(plst, bs)
		case "LBL":
			bs, err := io.ReadAll(ch)
			if err != nil {
				return nil, nil, err
			}
			cues = parseLbl(bs, rate)
		}
	}
	for _, bs := range plst {
		parsePlaylist(bs, cues)
	}
	for _, bs := range adtl {
		parseAdtl(bs, cues)
	}
	markers := make([]metadata.Marker, 0, len(cues))
	for _, c := range cues {
		markers = append(markers, c.Marker)
	}
	metadata.SortMarkers(markers)
	if len(md) == 0 {
		md = nil
	}
	return md, markers, nil
}

// Rate returns the sampling rate stored in the format chunk of the
// RIFF stream r.
func Rate(r riff.RIFFReader) (float64, error) {
	rc, err := riff.NewReader(r).Read()
	if err != nil {
		return 0, err
	}
	for _, ch := range rc.Chunks {
		if chunkID(ch) == "FMT" {
			_, rate, _, err := parseFormat(ch)
			return rate, err
		}
	}
	return 0, fmt.Errorf("no format chunk")
}

func chunkID(ch *riff.Chunk) string {
	return strings.ToUpper(strings.TrimRight(string(ch.ChunkID[:]), " \x00"))
}

func parseFormat(r io.Reader) (channels int, rate float64, bits int, err error) {
	var fm struct {
		Format     uint16
		Channels   uint16
		Rate       uint32
		ByteRate   uint32
		BlockAlign uint16
		Bits       uint16
	}
	if err = binary.Read(r, binary.LittleEndian, &fm); err != nil {
		return
	}
	return int(fm.Channels), float64(fm.Rate), int(fm.Bits), nil
}

// trimValue removes the padding some writers put after string values.
func trimValue(s string) string {
	return strings.TrimRight(s, " \x00\x02\r\n")
}

// parseInfo reads the key-value pairs of a LIST INFO chunk. Four
// character tags are translated to readable names via InfoTags.
func parseInfo(bs []byte) metadata.Metadata {
	md := metadata.Metadata{}
	for len(bs) >= 8 {
		key := strings.TrimRight(string(bs[:4]), " \x00")
		size := int(binary.LittleEndian.Uint32(bs[4:8]))
		size += size % 2
		bs = bs[8:]
		if size > len(bs) {
			size = len(bs)
		}
		value := trimValue(string(bs[:size]))
		bs = bs[size:]
		if name, ok := InfoTags[key]; ok {
			key = name
		}
		if value != "" {
			md[key] = value
		}
	}
	return md
}

// parseBext reads the fixed layout broadcast-audio extension chunk.
func parseBext(bs []byte) metadata.Metadata {
	md := metadata.Metadata{}
	str := func(n int) string {
		if n > len(bs) {
			n = len(bs)
		}
		s := strings.Trim(string(bs[:n]), " \x00")
		bs = bs[n:]
		return s
	}
	setStr := func(key string, n int) {
		if s := str(n); s != "" {
			md[key] = s
		}
	}
	setStr("Description", 256)
	setStr("Originator", 32)
	setStr("OriginatorReference", 32)
	setStr("OriginationDate", 10)
	setStr("OriginationTime", 8)
	if len(bs) >= 10 {
		if ref := binary.LittleEndian.Uint64(bs); ref > 0 {
			md["TimeReference"] = int64(ref)
		}
		if version := binary.LittleEndian.Uint16(bs[8:]); version > 0 {
			md["Version"] = int(version)
		}
		bs = bs[10:]
	}
	setStr("UMID", 64)
	loudness := []string{"LoudnessValue", "LoudnessRange",
		"MaxTruePeakLevel", "MaxMomentaryLoudness", "MaxShortTermLoudness"}
	for _, key := range loudness {
		if len(bs) < 2 {
			break
		}
		if v := int16(binary.LittleEndian.Uint16(bs)); v > 0 {
			md[key] = int(v)
		}
		bs = bs[2:]
	}
	setStr("Reserved", 180)
	if s := trimValue(strings.Trim(string(bs), " \x00")); s != "" {
		md["CodingHistory"] = s
	}
	return md
}

// parseIXML reads an iXML chunk into nested metadata. A sole BWFXML
// root is dropped.
func parseIXML(bs []byte) (metadata.Metadata, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimRight(bs, " \x00")))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		md, _, err := parseElements(dec)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(start.Name.Local, "BWFXML") {
			return md, nil
		}
		return metadata.Metadata{start.Name.Local: md}, nil
	}
}

func parseElements(dec *xml.Decoder) (metadata.Metadata, string, error) {
	md := metadata.Metadata{}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sub, txt, err := parseElements(dec)
			if err != nil {
				return nil, "", err
			}
			if len(sub) > 0 {
				md[t.Name.Local] = sub
			} else if txt != "" {
				md[t.Name.Local] = txt
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return md, strings.TrimSpace(text.String()), nil
		}
	}
}

// parseGuano reads a GUANO chunk. Each line holds a key-value pair
// separated by a colon, nested sections are separated by "|" within
// the key.
func parseGuano(bs []byte) metadata.Metadata {
	flat := metadata.Metadata{}
	for _, line := range strings.Split(string(bs), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.ReplaceAll(strings.TrimSpace(value), `\n`, "\n")
		flat[strings.TrimSpace(key)] = value
	}
	return metadata.Unflatten(flat, "|")
}

type cuePoint struct {
	id uint32
	metadata.Marker
}

func findCue(cues []cuePoint, id uint32) *cuePoint {
	for i := range cues {
		if cues[i].id == id {
			return &cues[i]
		}
	}
	return nil
}

// parseCue reads marker positions from a cue chunk. Only cue points
// referring to the data chunk are kept.
func parseCue(bs []byte) []cuePoint {
	if len(bs) < 4 {
		return nil
	}
	n := int(binary.LittleEndian.Uint32(bs))
	bs = bs[4:]
	var cues []cuePoint
	for i := 0; i < n && len(bs) >= 24; i++ {
		id := binary.LittleEndian.Uint32(bs)
		pos := binary.LittleEndian.Uint32(bs[4:])
		dataID := strings.ToUpper(strings.TrimRight(string(bs[8:12]), " \x00"))
		bs = bs[24:]
		if dataID == "DATA" {
			cues = append(cues, cuePoint{id: id,
				Marker: metadata.Marker{Pos: int64(pos)}})
		}
	}
	return cues
}

// parsePlaylist reads marker spans from a playlist chunk into the
// matching cue points.
func parsePlaylist(bs []byte, cues []cuePoint) {
	if len(bs) < 4 {
		return
	}
	n := int(binary.LittleEndian.Uint32(bs))
	bs = bs[4:]
	for i := 0; i < n && len(bs) >= 12; i++ {
		id := binary.LittleEndian.Uint32(bs)
		length := binary.LittleEndian.Uint32(bs[4:])
		bs = bs[12:]
		if c := findCue(cues, id); c != nil {
			c.Span = int64(length)
		}
	}
}

// parseAdtl reads labl, note and ltxt entries of an associated data
// list into the matching cue points.
func parseAdtl(bs []byte, cues []cuePoint) {
	for len(bs) >= 12 {
		key := strings.ToUpper(strings.TrimRight(string(bs[:4]), " \x00"))
		size := int(binary.LittleEndian.Uint32(bs[4:8]))
		size += size % 2
		id := binary.LittleEndian.Uint32(bs[8:12])
		bs = bs[12:]
		body := size - 4
		if body < 0 {
			break
		}
		if body > len(bs) {
			body = len(bs)
		}
		switch key {
		case "LABL", "NOTE":
			label := trimValue(string(bs[:body]))
			if c := findCue(cues, id); c != nil && label != "" {
				if c.Label != "" {
					c.Label += "|" + label
				} else {
					c.Label = label
				}
			}
		case "LTXT":
			if body >= 16 {
				length := binary.LittleEndian.Uint32(bs)
				text := trimValue(string(bs[16:body]))
				if c := findCue(cues, id); c != nil {
					if text != "" {
						if c.Text != "" {
							c.Text += "|" + text
						} else {
							c.Text = text
						}
					}
					c.Span = int64(length)
				}
			}
		}
		bs = bs[body:]
	}
}

// parseLbl reads the proprietary LBL chunk written by AviSoft
// products. Entries are lines of 65 bytes with tab separated start
// time, end time, text and label. Times are in seconds.
func parseLbl(bs []byte, rate float64) []cuePoint {
	var cues []cuePoint
	for len(bs) >= 65 {
		line := string(bs[:65])
		bs = bs[65:]
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			// the first entry is a title for the whole file
			continue
		}
		start, _, _, ok0 := metadata.ParseNumber(strings.Trim(fields[0], "\x00 "))
		end, _, _, ok1 := metadata.ParseNumber(strings.Trim(fields[1], "\x00 "))
		if !ok0 || !ok1 {
			continue
		}
		label := strings.TrimSpace(strings.Trim(fields[3], "\x00\r\n"))
		c := cuePoint{id: uint32(len(cues)),
			Marker: metadata.Marker{
				Pos:   int64(start*rate + 0.5),
				Label: label,
				Text:  strings.TrimSpace(fields[2]),
			}}
		if len(label) > 0 && strings.ContainsRune("MNOP", rune(label[0])) {
			c.Span = int64(end*rate+0.5) - c.Pos
		}
		cues = append(cues, c)
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Pos < cues[j].Pos })
	return cues
}
