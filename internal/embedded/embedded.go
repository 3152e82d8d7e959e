// Package embedded slices the bodies of top-level style and script elements
// out of a Surface document without moving them: everything else is blanked
// so rows and columns in the result match the original document.
package embedded

import (
	"strings"

	"surface/internal/position"
	"surface/internal/syntax"
)

// Extract returns the bodies of the top-level tags named tag, each placed at
// its original row, with blank lines in between. When a body starts on the
// same row as its opening tag it is indented to its original column, counted
// in UTF-16 code units. Trailing whitespace is trimmed. Nested occurrences are
// ignored.
func Extract(tree *syntax.Tree, text, tag string) string {
	var sb strings.Builder
	row := 0

	for _, n := range tree.RootNode().Children() {
		if !n.Is(syntax.KindTag) || n.FirstDescendantOfKind(syntax.KindTagName).Text() != tag {
			continue
		}

		if pad := n.StartPoint().Row - row; pad > 0 {
			sb.WriteString(strings.Repeat("\n", pad))
		}

		open, closing := n.FirstChild(), n.LastChild()
		content := ""
		if n.ChildCount() > 1 && open.EndIndex() <= closing.StartIndex() && closing.StartIndex() <= len(text) {
			content = text[open.EndIndex():closing.StartIndex()]
		}

		if n.ChildCount() > 1 && n.StartPoint().Row == n.Child(1).StartPoint().Row && strings.TrimSpace(content) != "" {
			lineStart := open.EndIndex() - open.EndPoint().Column
			sb.WriteString(strings.Repeat(" ", position.UTF16Len(text[lineStart:open.EndIndex()])))
		}

		row = n.EndPoint().Row
		sb.WriteString(content)
	}

	return strings.TrimRight(sb.String(), " \t\r\n\f\v")
}
