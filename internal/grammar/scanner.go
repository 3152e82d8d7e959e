package grammar

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"

	"surface/internal/syntax"
)

// Elements whose body is not markup.
var rawTextElements = map[string]bool{
	"style":  true,
	"script": true,
}

// Elements that never have a body or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

type scanner struct {
	text string
	pos  int
	b    *syntax.Builder
	open []string // names of the enclosing elements, innermost last
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.text)
}

func (s *scanner) at(prefix string) bool {
	return strings.HasPrefix(s.text[s.pos:], prefix)
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.text) && isSpace(s.text[s.pos]) {
		s.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isNameStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '#' || c == ':'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9') || c == '-' || c == '_' || c == '.'
}

func isAttributeNameChar(c byte) bool {
	if isSpace(c) || c < 0x20 {
		return false
	}
	return !strings.ContainsRune(`"'<>/={}`, rune(c))
}

// isComponentName reports whether an element name refers to a component:
// components are capitalised, optionally behind a `#` macro marker.
func isComponentName(name string) bool {
	name = strings.TrimPrefix(name, "#")
	return name != "" && 'A' <= name[0] && name[0] <= 'Z'
}

func (s *scanner) byteAt(i int) byte {
	if i < len(s.text) {
		return s.text[i]
	}
	return 0
}

// markupAt reports whether a `<` at i opens a comment, a start tag or an end
// tag rather than being plain text.
func (s *scanner) markupAt(i int) bool {
	if s.text[i] != '<' {
		return false
	}
	rest := s.text[i:]
	switch {
	case strings.HasPrefix(rest, "<!--"):
		return true
	case strings.HasPrefix(rest, "</"):
		return isNameStart(s.byteAt(i + 2))
	}
	return isNameStart(s.byteAt(i + 1))
}

func (s *scanner) nameAt(i int) string {
	j := i
	for j < len(s.text) && isNameChar(s.text[j]) {
		j++
	}
	return s.text[i:j]
}

func (s *scanner) isOpen(name string) bool {
	for _, n := range s.open {
		if n == name {
			return true
		}
	}
	return false
}

// atEndTag reports whether the scanner sits on `</name` followed by a
// character that cannot continue the name.
func (s *scanner) atEndTag(name string) bool {
	return s.at("</"+name) && !isNameChar(s.byteAt(s.pos+2+len(name)))
}

// content scans siblings until the end of the text or an end tag closing one
// of the enclosing elements.
func (s *scanner) content(ctx context.Context) error {
	for {
		if len(s.open) == 0 {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
		}
		s.skipSpace()
		if s.eof() {
			return nil
		}

		switch {
		case s.at("<!--"):
			s.comment("<!--", "-->")
		case s.at("{!--"):
			s.comment("{!--", "--}")
		case s.at("</") && isNameStart(s.byteAt(s.pos+2)):
			if s.isOpen(s.nameAt(s.pos + 2)) {
				return nil
			}
			s.strayEndTag()
		case s.markupAt(s.pos):
			if err := s.element(ctx); err != nil {
				return err
			}
		case s.text[s.pos] == '{':
			s.expression()
		default:
			s.textRun()
		}
	}
}

func (s *scanner) comment(open, close string) {
	start := s.pos
	end := strings.Index(s.text[start+len(open):], close)
	if end < 0 {
		s.pos = len(s.text)
	} else {
		s.pos = start + len(open) + end + len(close)
	}
	s.b.Leaf(syntax.KindComment, start, s.pos)
}

// textRun emits a text node from the current position up to the next markup
// or expression, without trailing whitespace.
func (s *scanner) textRun() {
	start := s.pos
	i := start
	for i < len(s.text) {
		c := s.text[i]
		if c == '{' || (c == '<' && s.markupAt(i)) {
			break
		}
		i++
	}
	end := i
	for end > start && isSpace(s.text[end-1]) {
		end--
	}
	s.b.Leaf(syntax.KindText, start, end)
	s.pos = i
}

func (s *scanner) element(ctx context.Context) error {
	start := s.pos
	s.b.Open(start)

	name := s.nameAt(start + 1)
	component := isComponentName(name)
	nameKind, startKind, endKind, kind := syntax.KindTagName, syntax.KindStartTag, syntax.KindEndTag, syntax.KindTag
	if component {
		nameKind, startKind, endKind, kind = syntax.KindComponentName, syntax.KindStartComponent, syntax.KindEndComponent, syntax.KindComponent
	}

	s.b.Open(start)
	s.b.Leaf(syntax.KindLess, start, start+1)
	s.b.Leaf(nameKind, start+1, start+1+len(name))
	s.pos = start + 1 + len(name)
	closed, selfClosing := s.attributes()
	s.b.Close(startKind, s.b.Extent())

	switch {
	case !closed:
		s.b.Close(syntax.KindError, s.b.Extent())
		return nil
	case selfClosing, !component && voidElements[name]:
		s.b.Close(kind, s.b.Extent())
		return nil
	case !component && rawTextElements[name]:
		s.rawText(name)
	default:
		s.open = append(s.open, name)
		err := s.content(ctx)
		s.open = s.open[:len(s.open)-1]
		if err != nil {
			return err
		}
	}

	if !s.atEndTag(name) {
		s.b.Close(syntax.KindError, s.b.Extent())
		return nil
	}
	s.endTag(name, nameKind, endKind)
	s.b.Close(kind, s.b.Extent())
	return nil
}

// rawText emits the body of a style or script element as a single trimmed
// text node and stops on its end tag, or at the end of the text.
func (s *scanner) rawText(name string) {
	start := s.pos
	end := len(s.text)
	for i := start; i < len(s.text); {
		j := strings.Index(s.text[i:], "</"+name)
		if j < 0 {
			break
		}
		if !isNameChar(s.byteAt(i + j + 2 + len(name))) {
			end = i + j
			break
		}
		i += j + 2
	}

	lo, hi := start, end
	for lo < hi && isSpace(s.text[lo]) {
		lo++
	}
	for hi > lo && isSpace(s.text[hi-1]) {
		hi--
	}
	if lo < hi {
		s.b.Leaf(syntax.KindText, lo, hi)
	}
	s.pos = end
}

// attributes scans the inside of a start tag. It reports whether the tag was
// terminated and whether it was terminated by `/>`.
func (s *scanner) attributes() (closed, selfClosing bool) {
	for {
		s.skipSpace()
		if s.eof() {
			return false, false
		}
		c := s.text[s.pos]
		switch {
		case c == '>':
			s.b.Leaf(syntax.KindGreater, s.pos, s.pos+1)
			s.pos++
			return true, false
		case s.at("/>"):
			s.b.Leaf(syntax.KindSlashGreater, s.pos, s.pos+2)
			s.pos += 2
			return true, true
		case c == '<':
			return false, false
		case c == '{':
			s.expression()
		case isAttributeNameChar(c):
			s.attribute()
		default:
			s.b.Leaf(syntax.KindError, s.pos, s.pos+1)
			s.pos++
		}
	}
}

func (s *scanner) attribute() {
	start := s.pos
	s.b.Open(start)
	for s.pos < len(s.text) && isAttributeNameChar(s.text[s.pos]) {
		s.pos++
	}
	s.b.Leaf(syntax.KindAttributeName, start, s.pos)

	save := s.pos
	s.skipSpace()
	if s.eof() || s.text[s.pos] != '=' {
		s.pos = save
		s.b.Close(syntax.KindAttribute, s.b.Extent())
		return
	}
	s.b.Leaf(syntax.KindEqual, s.pos, s.pos+1)
	s.pos++
	s.skipSpace()
	s.attributeValue()
	s.b.Close(syntax.KindAttribute, s.b.Extent())
}

func (s *scanner) attributeValue() {
	if s.eof() {
		return
	}
	start := s.pos
	switch c := s.text[start]; {
	case c == '"' || c == '\'':
		end := strings.IndexByte(s.text[start+1:], c)
		if end < 0 {
			// unterminated, give up at the end of the tag
			stop := strings.IndexByte(s.text[start:], '>')
			if stop < 0 {
				stop = len(s.text) - start
			}
			s.pos = start + stop
			s.b.Leaf(syntax.KindError, start, s.pos)
			return
		}
		s.pos = start + 1 + end + 1
		s.b.Leaf(syntax.KindQuotedAttributeValue, start, s.pos)
	case c == '{':
		s.expression()
	case c == '<' || c == '>':
	default:
		for s.pos < len(s.text) {
			c := s.text[s.pos]
			if isSpace(c) || c == '>' || c == '<' || c == '"' || c == '\'' || s.at("/>") {
				break
			}
			s.pos++
		}
		s.b.Leaf(syntax.KindAttributeValue, start, s.pos)
	}
}

// expression scans `{ ... }` honouring nested braces and quoted strings.
// An unterminated expression becomes an ERROR node running to the end.
func (s *scanner) expression() {
	start := s.pos
	s.b.Open(start)
	s.b.Leaf(syntax.KindLeftBrace, start, start+1)

	valueStart := start + 1
	depth := 0
	i := valueStart
	closing := -1
scan:
	for i < len(s.text) {
		switch c := s.text[i]; c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				closing = i
				break scan
			}
			depth--
		case '"', '\'':
			i = s.skipString(i, c)
			continue
		}
		i++
	}

	if closing < 0 {
		if valueStart < len(s.text) {
			s.b.Leaf(syntax.KindExpressionValue, valueStart, len(s.text))
		}
		s.pos = len(s.text)
		s.b.Close(syntax.KindError, s.pos)
		return
	}
	if closing > valueStart {
		s.b.Leaf(syntax.KindExpressionValue, valueStart, closing)
	}
	s.b.Leaf(syntax.KindRightBrace, closing, closing+1)
	s.pos = closing + 1
	s.b.Close(syntax.KindExpression, s.pos)
}

// skipString returns the index just past the string literal opened at i.
func (s *scanner) skipString(i int, quote byte) int {
	for j := i + 1; j < len(s.text); j++ {
		switch s.text[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s.text)
}

func (s *scanner) endTag(name string, nameKind, kind syntax.Kind) {
	start := s.pos
	s.b.Open(start)
	s.b.Leaf(syntax.KindLessSlash, start, start+2)
	s.b.Leaf(nameKind, start+2, start+2+len(name))
	s.pos = start + 2 + len(name)
	s.closeAngle()
	s.b.Close(kind, s.b.Extent())
}

// strayEndTag wraps an end tag that closes nothing in an ERROR node.
func (s *scanner) strayEndTag() {
	start := s.pos
	name := s.nameAt(start + 2)
	nameKind := syntax.KindTagName
	if isComponentName(name) {
		nameKind = syntax.KindComponentName
	}
	s.b.Open(start)
	s.b.Leaf(syntax.KindLessSlash, start, start+2)
	s.b.Leaf(nameKind, start+2, start+2+len(name))
	s.pos = start + 2 + len(name)
	s.closeAngle()
	s.b.Close(syntax.KindError, s.b.Extent())
}

// closeAngle consumes an optional `>`, possibly preceded by whitespace.
func (s *scanner) closeAngle() {
	save := s.pos
	s.skipSpace()
	if !s.eof() && s.text[s.pos] == '>' {
		s.b.Leaf(syntax.KindGreater, s.pos, s.pos+1)
		s.pos++
		return
	}
	s.pos = save
}
