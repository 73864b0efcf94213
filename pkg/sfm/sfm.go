// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sfm splits Standard Format Marker text into records of
// marker/content fields and puts them back together byte for byte.
//
// A field starts on a line beginning with a backslash followed by the marker
// name (e.g. `\lx`, `\de`). Everything up to the next field start belongs to
// the field's content, embedded newlines included. A record starts at every
// field whose marker is the record marker; anything before the first record
// is kept verbatim as the document header.
package sfm

import (
	"strings"
)

// separator remembers how a parsed field was laid out when it differs from the
// default layout, so that String reproduces the input exactly.
type separator uint8

const (
	sepDefault separator = iota
	sepNone
	sepSpace
)

// Field is a single marker/content pair.
type Field struct {
	Marker  string
	Content string

	sep separator
}

// NewField creates a field that serializes with the default layout.
func NewField(marker, content string) Field {
	return Field{Marker: marker, Content: content}
}

// defaultSpaced reports whether the default layout puts a space between the
// marker and the content.
func defaultSpaced(content string) bool {
	return !strings.HasPrefix(content, "\n")
}

func (f Field) spaced() bool {
	switch f.sep {
	case sepNone:
		return false
	case sepSpace:
		return true
	default:
		return defaultSpaced(f.Content)
	}
}

func (f Field) writeTo(b *strings.Builder) {
	b.WriteByte('\\')
	b.WriteString(f.Marker)
	if f.spaced() {
		b.WriteByte(' ')
	}
	b.WriteString(f.Content)
}

// String returns the field as it appears in a document.
func (f Field) String() string {
	var b strings.Builder
	f.writeTo(&b)
	return b.String()
}

// Record is an ordered list of fields. Fields is mutable in place.
type Record struct {
	Fields []Field
}

// NewRecord creates a record from the given fields.
func NewRecord(fields ...Field) *Record {
	return &Record{Fields: fields}
}

// Marker returns the marker of the first field, or "" for an empty record.
func (r *Record) Marker() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0].Marker
}

// String serializes the record back to text.
func (r *Record) String() string {
	var b strings.Builder
	for _, f := range r.Fields {
		f.writeTo(&b)
	}
	return b.String()
}

// Document is a header followed by records.
type Document struct {
	Header  string
	Records []*Record
}

// String serializes the whole document.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString(d.Header)
	for _, r := range d.Records {
		for _, f := range r.Fields {
			f.writeTo(&b)
		}
	}
	return b.String()
}

// Codec turns document text into records.
type Codec interface {
	Parse(text, recordMarker string) *Document
}

type codec struct{}

// NewCodec returns the default Codec.
func NewCodec() Codec {
	return codec{}
}

func (codec) Parse(text, recordMarker string) *Document {
	return Parse(text, recordMarker)
}

// Parse splits text into a header and records. A record begins at each field
// whose marker equals recordMarker. Parse never fails: text without any record
// marker is returned entirely as the header.
func Parse(text, recordMarker string) *Document {
	doc := &Document{}

	var (
		header   strings.Builder
		cur      *Record
		hadSpace bool
	)

	finish := func() {
		if cur == nil || len(cur.Fields) == 0 {
			return
		}
		f := &cur.Fields[len(cur.Fields)-1]
		f.sep = layoutFor(f.Content, hadSpace)
	}

	for _, line := range splitLines(text) {
		marker, rest, spaced, ok := fieldStart(line)
		if ok && (cur != nil || marker == recordMarker) {
			finish()
			if marker == recordMarker {
				cur = &Record{}
				doc.Records = append(doc.Records, cur)
			}
			cur.Fields = append(cur.Fields, Field{Marker: marker, Content: rest})
			hadSpace = spaced
			continue
		}

		if cur == nil {
			header.WriteString(line)
			continue
		}
		cur.Fields[len(cur.Fields)-1].Content += line
	}
	finish()

	doc.Header = header.String()
	return doc
}

func layoutFor(content string, hadSpace bool) separator {
	switch {
	case hadSpace == defaultSpaced(content):
		return sepDefault
	case hadSpace:
		return sepSpace
	default:
		return sepNone
	}
}

// fieldStart reports whether line opens a new field and splits it into the
// marker and the rest of the line. A single space after the marker is the
// separator and is not part of the content.
func fieldStart(line string) (marker, rest string, spaced, ok bool) {
	if !strings.HasPrefix(line, `\`) {
		return "", "", false, false
	}
	i := 1
	for i < len(line) && !isSpace(line[i]) {
		i++
	}
	if i == 1 {
		return "", "", false, false
	}
	marker, rest = line[1:i], line[i:]
	if strings.HasPrefix(rest, " ") {
		return marker, rest[1:], true, true
	}
	return marker, rest, false, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// splitLines splits text after every newline, keeping the newlines.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
