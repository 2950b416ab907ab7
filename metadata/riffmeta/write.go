package riffmeta

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bendalab/audioio/metadata"
)

// MetadataChunks encodes md into RIFF metadata chunks. Keys that fit
// the LIST INFO chunk go there first, then a BEXT chunk, then an iXML
// chunk. Everything left over is serialized into a GUANO chunk, so no
// metadata are lost.
func MetadataChunks(md metadata.Metadata) []byte {
	if len(md) == 0 {
		return nil
	}
	var buf bytes.Buffer
	var written []string
	written = append(written, appendInfo(&buf, md)...)
	written = append(written, appendBext(&buf, md)...)
	written = append(written, appendIXML(&buf, md, written)...)
	appendGuano(&buf, md, written)
	return buf.Bytes()
}

// MarkerChunks encodes markers into CUE, plst and LIST adtl chunks.
func MarkerChunks(markers []metadata.Marker) []byte {
	if len(markers) == 0 {
		return nil
	}
	ms := make([]metadata.Marker, len(markers))
	copy(ms, markers)
	metadata.SortMarkers(ms)
	var buf bytes.Buffer
	appendCue(&buf, ms)
	appendPlaylist(&buf, ms)
	appendAdtl(&buf, ms)
	return buf.Bytes()
}

// AppendToFile appends metadata and marker chunks to an existing
// RIFF file and updates the file size in the RIFF header.
func AppendToFile(path string, md metadata.Metadata, markers []metadata.Marker) error {
	chunks := append(MetadataChunks(md), MarkerChunks(markers)...)
	if len(chunks) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	var header [4]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return err
	}
	if string(header[:]) != "RIFF" {
		return fmt.Errorf("%s is not a RIFF file", path)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := f.Write(chunks); err != nil {
		return err
	}
	size += int64(len(chunks))
	var sizeField [4]byte
	binary.LittleEndian.PutUint32(sizeField[:], uint32(size-8))
	_, err = f.WriteAt(sizeField[:], 4)
	return err
}

func sortedKeys(md metadata.Metadata) []string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func writeChunk(buf *bytes.Buffer, id string, body []byte) {
	if len(body)%2 == 1 {
		body = append(body, 0)
	}
	buf.WriteString(id)
	binary.Write(buf, binary.LittleEndian, uint32(len(body)))
	buf.Write(body)
}

// appendInfo writes a LIST INFO chunk when the metadata under the
// INFO key, or the whole metadata, translate to valid four character
// tags. It returns the top-level keys consumed.
func appendInfo(buf *bytes.Buffer, md metadata.Metadata) []string {
	info := md
	isInfo := false
	if sub, ok := md["INFO"].(metadata.Metadata); ok {
		info = sub
		isInfo = true
	}
	keys := sortedKeys(info)
	for _, k := range keys {
		tag, ok := infoKeys[k]
		if !ok {
			tag = k
		}
		if len(tag) > 4 {
			return nil
		}
		if _, ok := info[k].(metadata.Metadata); ok {
			return nil
		}
	}
	var body bytes.Buffer
	body.WriteString("INFO")
	for _, k := range keys {
		tag, ok := infoKeys[k]
		if !ok {
			tag = k
		}
		v := valueString(info[k])
		if len(v)%2 == 1 {
			v += " "
		}
		fmt.Fprintf(&body, "%-4s", tag)
		binary.Write(&body, binary.LittleEndian, uint32(len(v)))
		body.WriteString(v)
	}
	writeChunk(buf, "LIST", body.Bytes())
	if isInfo {
		return []string{"INFO"}
	}
	return keys
}

// appendBext writes a broadcast-audio extension chunk when the
// metadata have a BEXT section with valid BEXT fields only.
func appendBext(buf *bytes.Buffer, md metadata.Metadata) []string {
	bext, ok := md["BEXT"].(metadata.Metadata)
	if !ok {
		return nil
	}
	for k := range bext {
		if !isBextTag(k) {
			return nil
		}
	}
	var body bytes.Buffer
	for _, f := range bextFields {
		v := ""
		if raw, ok := bext[f.name]; ok {
			v = valueString(raw)
		}
		switch {
		case f.name == "TimeReference":
			ref, _ := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			binary.Write(&body, binary.LittleEndian, ref)
		case f.size == 2:
			n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
			binary.Write(&body, binary.LittleEndian, uint16(n))
		case f.size == 0:
			ch := v
			if len(ch) > 0 && !strings.HasSuffix(ch, "\r\n") {
				ch += "\r\n"
			}
			if len(ch)%2 == 1 {
				ch += "\x00"
			}
			body.WriteString(ch)
		default:
			bs := make([]byte, f.size)
			copy(bs, v)
			body.Write(bs)
		}
	}
	writeChunk(buf, "BEXT", body.Bytes())
	return []string{"BEXT"}
}

func checkIXML(md metadata.Metadata) bool {
	for k, v := range md {
		if !ixmlTags[strings.ToUpper(k)] {
			return false
		}
		if sub, ok := v.(metadata.Metadata); ok {
			if !checkIXML(sub) {
				return false
			}
		}
	}
	return true
}

func buildXML(b *bytes.Buffer, md metadata.Metadata) {
	for _, k := range sortedKeys(md) {
		fmt.Fprintf(b, "<%s>", k)
		if sub, ok := md[k].(metadata.Metadata); ok {
			buildXML(b, sub)
		} else {
			xml.EscapeText(b, []byte(valueString(md[k])))
		}
		fmt.Fprintf(b, "</%s>", k)
	}
}

// appendIXML writes an iXML chunk from the IXML section, or from the
// remaining metadata when all their keys are valid iXML tags.
func appendIXML(buf *bytes.Buffer, md metadata.Metadata, written []string) []string {
	rest := metadata.Metadata{}
	for k, v := range md {
		skip := false
		for _, w := range written {
			if w == k {
				skip = true
				break
			}
		}
		if !skip {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return nil
	}
	hasIXML := false
	if sub, ok := rest["IXML"].(metadata.Metadata); ok && checkIXML(sub) {
		rest = sub
		hasIXML = true
	} else if !checkIXML(rest) {
		return nil
	}
	var body bytes.Buffer
	body.WriteString(xml.Header)
	body.WriteString("<BWFXML>")
	buildXML(&body, rest)
	body.WriteString("</BWFXML>")
	writeChunk(buf, "IXML", body.Bytes())
	if hasIXML {
		return []string{"IXML"}
	}
	return sortedKeys(rest)
}

// appendGuano serializes all metadata not yet written into a GUANO
// chunk. Nested sections are flattened with "|" separated keys,
// newlines in values are escaped.
func appendGuano(buf *bytes.Buffer, md metadata.Metadata, written []string) {
	rest := metadata.Metadata{}
	for k, v := range md {
		skip := false
		for _, w := range written {
			if w == k {
				skip = true
				break
			}
		}
		if !skip {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return
	}
	flat := metadata.Flatten(rest, true, "|")
	var body bytes.Buffer
	if _, _, found := metadata.Find(rest, "GUANO.Version"); !found {
		body.WriteString("GUANO|Version:1.0\n")
	}
	for _, k := range sortedKeys(flat) {
		v := strings.ReplaceAll(valueString(flat[k]), "\n", `\n`)
		fmt.Fprintf(&body, "%s:%s\n", k, v)
	}
	bs := body.Bytes()
	if len(bs)%2 == 1 {
		bs = append(bs, ' ')
	}
	buf.WriteString("guan")
	binary.Write(buf, binary.LittleEndian, uint32(len(bs)))
	buf.Write(bs)
}

func appendCue(buf *bytes.Buffer, markers []metadata.Marker) {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint32(len(markers)))
	for i, m := range markers {
		binary.Write(&body, binary.LittleEndian, uint32(i))
		binary.Write(&body, binary.LittleEndian, uint32(m.Pos))
		body.WriteString("data")
		binary.Write(&body, binary.LittleEndian, [3]uint32{})
	}
	writeChunk(buf, "CUE ", body.Bytes())
}

func appendPlaylist(buf *bytes.Buffer, markers []metadata.Marker) {
	n := 0
	for _, m := range markers {
		if m.Span > 0 {
			n++
		}
	}
	if n == 0 {
		return
	}
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint32(n))
	for i, m := range markers {
		if m.Span > 0 {
			binary.Write(&body, binary.LittleEndian, uint32(i))
			binary.Write(&body, binary.LittleEndian, uint32(m.Span))
			binary.Write(&body, binary.LittleEndian, uint32(1))
		}
	}
	writeChunk(buf, "plst", body.Bytes())
}

func appendAdtl(buf *bytes.Buffer, markers []metadata.Marker) {
	labeled := false
	for _, m := range markers {
		if m.Label != "" || m.Text != "" {
			labeled = true
			break
		}
	}
	if !labeled {
		return
	}
	var body bytes.Buffer
	body.WriteString("adtl")
	for i, m := range markers {
		if m.Label != "" {
			l := m.Label
			if len(l)%2 == 1 {
				l += " "
			}
			body.WriteString("labl")
			binary.Write(&body, binary.LittleEndian, uint32(4+len(l)))
			binary.Write(&body, binary.LittleEndian, uint32(i))
			body.WriteString(l)
		}
		if m.Text != "" {
			t := m.Text
			if len(t)%2 == 1 {
				t += " "
			}
			body.WriteString("ltxt")
			binary.Write(&body, binary.LittleEndian, uint32(20+len(t)))
			binary.Write(&body, binary.LittleEndian, uint32(i))
			binary.Write(&body, binary.LittleEndian, uint32(m.Span))
			binary.Write(&body, binary.LittleEndian, uint32(0))
			binary.Write(&body, binary.LittleEndian, [4]uint16{})
			body.WriteString(t)
		}
	}
	writeChunk(buf, "LIST", body.Bytes())
}
