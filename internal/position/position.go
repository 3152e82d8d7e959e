// Package position translates between byte offsets, row/column points and
// LSP positions for one document snapshot.
package position

import (
	"sort"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Point is a zero-based row/column location. Column counts bytes, the same
// unit as offsets.
type Point struct {
	Row    int
	Column int
}

// Delta describes one text change in the coordinates of the text it was
// applied to.
type Delta struct {
	StartIndex  int
	OldEndIndex int
	NewEndIndex int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Index translates between offsets and points for one snapshot of a document.
type Index struct {
	text  string
	lines []int // byte offset of each line start
}

// NewIndex builds the line table for text.
func NewIndex(text string) *Index {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Index{text: text, lines: lines}
}

func (ix *Index) Text() string {
	return ix.text
}

func (ix *Index) LineCount() int {
	return len(ix.lines)
}

// lineEnd returns the offset of the newline terminating row, or len(text).
func (ix *Index) lineEnd(row int) int {
	if row+1 < len(ix.lines) {
		return ix.lines[row+1] - 1
	}
	return len(ix.text)
}

func (ix *Index) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(ix.text) {
		return len(ix.text)
	}
	return offset
}

func (ix *Index) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= len(ix.lines) {
		return len(ix.lines) - 1
	}
	return row
}

// Point converts an offset into a row/column pair. Offsets past the end of
// the text are clamped.
func (ix *Index) Point(offset int) Point {
	offset = ix.clampOffset(offset)
	row := sort.Search(len(ix.lines), func(i int) bool { return ix.lines[i] > offset }) - 1
	return Point{Row: row, Column: offset - ix.lines[row]}
}

// Offset converts a point back into an offset. Columns past the end of the
// line are clamped to the line end.
func (ix *Index) Offset(p Point) int {
	row := ix.clampRow(p.Row)
	start := ix.lines[row]
	end := ix.lineEnd(row)
	col := p.Column
	if col < 0 {
		col = 0
	}
	if start+col > end {
		return end
	}
	return start + col
}

// OffsetAt converts an LSP position, whose character counts UTF-16 code
// units, into a byte offset.
func (ix *Index) OffsetAt(pos protocol.Position) int {
	offset, _ := ix.resolve(pos)
	return offset
}

func (ix *Index) resolve(pos protocol.Position) (int, Point) {
	if int(pos.Line) >= len(ix.lines) {
		// past the last line means the end of the document
		end := len(ix.text)
		return end, ix.Point(end)
	}
	row := int(pos.Line)
	start := ix.lines[row]
	line := ix.text[start:ix.lineEnd(row)]

	var units, bytes int
	for _, r := range line {
		n := 1
		if r > 0xFFFF {
			n = 2
		}
		if uint32(units+n) > pos.Character {
			break
		}
		units += n
		bytes += utf8.RuneLen(r)
	}
	return start + bytes, Point{Row: row, Column: bytes}
}

// Position converts a byte offset into an LSP position.
func (ix *Index) Position(offset int) protocol.Position {
	return ix.PointPosition(ix.Point(offset))
}

// PointPosition converts a byte-column point into an LSP position.
func (ix *Index) PointPosition(p Point) protocol.Position {
	row := ix.clampRow(p.Row)
	start := ix.lines[row]
	end := ix.lineEnd(row)
	col := p.Column
	if col < 0 {
		col = 0
	}
	if start+col > end {
		col = end - start
	}
	return protocol.Position{
		Line:      uint32(row),
		Character: uint32(UTF16Len(ix.text[start : start+col])),
	}
}

// Range converts a byte span into an LSP range.
func (ix *Index) Range(start, end int) protocol.Range {
	return protocol.Range{Start: ix.Position(start), End: ix.Position(end)}
}

// UTF16Len counts the UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// EndPoint computes the point reached after inserting text at start.
func EndPoint(start Point, text string) Point {
	rows := strings.Count(text, "\n")
	if rows == 0 {
		return Point{Row: start.Row, Column: start.Column + len(text)}
	}
	return Point{Row: start.Row + rows, Column: len(text) - strings.LastIndexByte(text, '\n') - 1}
}

// Change computes the delta for replacing rng with newText and returns the
// resulting text.
func Change(text string, rng protocol.Range, newText string) (Delta, string) {
	ix := NewIndex(text)
	start, startPoint := ix.resolve(rng.Start)
	end, endPoint := ix.resolve(rng.End)
	if end < start {
		start, end = end, start
		startPoint, endPoint = endPoint, startPoint
	}

	delta := Delta{
		StartIndex:  start,
		OldEndIndex: end,
		NewEndIndex: start + len(newText),
		StartPoint:  startPoint,
		OldEndPoint: endPoint,
		NewEndPoint: EndPoint(startPoint, newText),
	}
	return delta, text[:start] + newText + text[end:]
}

// Replace computes the delta for replacing the whole of text with newText.
func Replace(text, newText string) Delta {
	ix := NewIndex(text)
	return Delta{
		StartIndex:  0,
		OldEndIndex: len(text),
		NewEndIndex: len(newText),
		StartPoint:  Point{},
		OldEndPoint: ix.Point(len(text)),
		NewEndPoint: EndPoint(Point{}, newText),
	}
}

// Shift moves p, which lies at or after the delta's old end, into the
// post-edit coordinate system.
func (d Delta) Shift(p Point) Point {
	if p.Row == d.OldEndPoint.Row {
		return Point{Row: d.NewEndPoint.Row, Column: d.NewEndPoint.Column + p.Column - d.OldEndPoint.Column}
	}
	return Point{Row: p.Row + d.NewEndPoint.Row - d.OldEndPoint.Row, Column: p.Column}
}
