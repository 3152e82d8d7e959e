package cursor

import "surface/internal/syntax"

// rule is one entry of the classification table. Rules are tried in order
// and the first one that applies wins, so boundary cases such as `<div|>`
// must come before the containment rules that would otherwise swallow them.
type rule struct {
	name  string
	apply func(n syntax.Node, offset int) (Context, bool)
}

var rules = []rule{
	// <d|iv>
	{"tag_name", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindTagName) {
			return Context{}, false
		}
		return surface(ScopeTagName, n.Text()), true
	}},

	// <div| >
	{"tag_name_before_space", func(n syntax.Node, offset int) (Context, bool) {
		if !n.Is(syntax.KindStartTag) {
			return Context{}, false
		}
		name := n.FirstDescendantOfKind(syntax.KindTagName)
		if name.IsNull() || name.EndIndex() != offset {
			return Context{}, false
		}
		return surface(ScopeTagName, name.Text()), true
	}},

	// <div|>
	{"tag_name_before_close", func(n syntax.Node, _ int) (Context, bool) {
		prev, ok := adjacentPrev(n)
		if !ok || !prev.Is(syntax.KindTagName) {
			return Context{}, false
		}
		return surface(ScopeTagName, prev.Text()), true
	}},

	// <div cla|ss>
	{"attribute_name", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindAttributeName) {
			return Context{}, false
		}
		ctx := surface(ScopeAttributeName, n.Text())
		name := n.Parent().Parent().FirstChild().NextSibling()
		ctx.Tag = name.Text()
		ctx.Type = TypeTag
		if name.Is(syntax.KindComponentName) {
			ctx.Type = TypeComponent
		}
		return ctx, true
	}},

	// <div class|>
	{"attribute_name_before_close", func(n syntax.Node, _ int) (Context, bool) {
		if !isClose(n) {
			return Context{}, false
		}
		prev := n.PrevSibling()
		last := prev.LastChild()
		if !prev.Is(syntax.KindAttribute) || !last.Is(syntax.KindAttributeName) || last.EndIndex() != n.StartIndex() {
			return Context{}, false
		}
		return surface(ScopeAttributeName, last.Text()), true
	}},

	// <div class| >
	{"attribute_name_before_space", func(n syntax.Node, offset int) (Context, bool) {
		if !n.Is(syntax.KindStartTag) {
			return Context{}, false
		}
		attr := n.FirstChildForIndex(offset - 1)
		last := attr.LastChild()
		if !attr.Is(syntax.KindAttribute) || !last.Is(syntax.KindAttributeName) {
			return Context{}, false
		}
		return surface(ScopeAttributeName, last.Text()), true
	}},

	// <For|m>
	{"component_name", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindComponentName) {
			return Context{}, false
		}
		return surface(ScopeComponentName, n.Text()), true
	}},

	// <Form|>
	{"component_name_before_close", func(n syntax.Node, _ int) (Context, bool) {
		prev, ok := adjacentPrev(n)
		if !ok || !prev.Is(syntax.KindComponentName) {
			return Context{}, false
		}
		return surface(ScopeComponentName, prev.Text()), true
	}},

	// <Form| >
	{"component_name_before_space", func(n syntax.Node, offset int) (Context, bool) {
		if !n.Is(syntax.KindStartComponent) {
			return Context{}, false
		}
		name := n.FirstDescendantOfKind(syntax.KindComponentName)
		if name.IsNull() || name.EndIndex() != offset {
			return Context{}, false
		}
		return surface(ScopeComponentName, name.Text()), true
	}},

	// <div | >
	{"tag_attributes", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindStartTag) {
			return Context{}, false
		}
		return attributes(ScopeTagAttributes, n, syntax.KindTagName), true
	}},

	// <div |>
	{"tag_attributes_before_close", func(n syntax.Node, _ int) (Context, bool) {
		if !gapBeforeClose(n, syntax.KindStartTag) {
			return Context{}, false
		}
		return attributes(ScopeTagAttributes, n.Parent(), syntax.KindTagName), true
	}},

	// <Form | >
	{"component_attributes", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindStartComponent) {
			return Context{}, false
		}
		return attributes(ScopeComponentAttributes, n, syntax.KindComponentName), true
	}},

	// <Form |>
	{"component_attributes_before_close", func(n syntax.Node, _ int) (Context, bool) {
		if !gapBeforeClose(n, syntax.KindStartComponent) {
			return Context{}, false
		}
		return attributes(ScopeComponentAttributes, n.Parent(), syntax.KindComponentName), true
	}},

	// anything inside <style>
	{"style", func(n syntax.Node, _ int) (Context, bool) {
		if rootTagName(n) != "style" {
			return Context{}, false
		}
		return Context{Lang: LangCSS}, true
	}},

	// anything inside <script>
	{"script", func(n syntax.Node, _ int) (Context, bool) {
		if rootTagName(n) != "script" {
			return Context{}, false
		}
		return Context{Lang: LangJavaScript}, true
	}},

	// <div>\n|\n</div>
	{"tag_body", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindTag, syntax.KindComponent) {
			return Context{}, false
		}
		return body(n), true
	}},

	// |<span>, <div>|</div>, |{@id}
	{"tag_body_before_token", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindLess, syntax.KindLessSlash, syntax.KindLeftBrace) {
			return Context{}, false
		}
		from := n.Parent()
		if n.Is(syntax.KindLess) {
			// `<` sits in a start tag inside its own element
			from = from.Parent().Parent()
		}
		for el := from; !el.IsNull(); el = el.Parent() {
			if el.Is(syntax.KindTag, syntax.KindComponent) {
				return body(el), true
			}
		}
		return Context{}, false
	}},

	// |Hello!
	{"tag_body_text", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindText) || !n.Parent().Is(syntax.KindTag, syntax.KindComponent) {
			return Context{}, false
		}
		return body(n.Parent()), true
	}},

	// {@us|er}
	{"expression", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindExpressionValue) {
			return Context{}, false
		}
		return surface(ScopeExpression, n.Text()), true
	}},

	// {@user|}
	{"expression_before_close", func(n syntax.Node, _ int) (Context, bool) {
		if !n.Is(syntax.KindRightBrace) || !n.Parent().Is(syntax.KindExpression) {
			return Context{}, false
		}
		value := ""
		if prev := n.PrevSibling(); prev.Is(syntax.KindExpressionValue) {
			value = prev.Text()
		}
		return surface(ScopeExpression, value), true
	}},
}

func surface(scope Scope, value string) Context {
	return Context{Lang: LangSurface, Scope: scope, Value: value}
}

// isClose reports whether n terminates a start node. `/>` behaves like `>`.
func isClose(n syntax.Node) bool {
	return n.Is(syntax.KindGreater, syntax.KindSlashGreater)
}

// adjacentPrev returns the previous sibling of a closing `>` when it ends
// exactly where the `>` starts.
func adjacentPrev(n syntax.Node) (syntax.Node, bool) {
	if !isClose(n) {
		return syntax.Node{}, false
	}
	prev := n.PrevSibling()
	if prev.IsNull() || prev.EndIndex() != n.StartIndex() {
		return syntax.Node{}, false
	}
	return prev, true
}

// gapBeforeClose reports whether n is the `>` of a start node of the given
// kind with whitespace between it and the previous token.
func gapBeforeClose(n syntax.Node, start syntax.Kind) bool {
	if !isClose(n) || !n.Parent().Is(start) {
		return false
	}
	prev := n.PrevSibling()
	return !prev.IsNull() && prev.EndIndex() < n.StartIndex()
}

// attributes builds an attribute-list context for the start node start,
// naming the element after the enclosing node's first name descendant.
func attributes(scope Scope, start syntax.Node, nameKind syntax.Kind) Context {
	ctx := Context{Lang: LangSurface, Scope: scope}
	name := start.Parent().FirstDescendantOfKind(nameKind)
	if name.IsNull() {
		name = start.FirstDescendantOfKind(nameKind)
	}
	ctx.Tag = name.Text()
	return ctx
}

func body(el syntax.Node) Context {
	ctx := Context{Lang: LangSurface, Scope: ScopeTagBody, Type: TypeTag}
	nameKind := syntax.KindTagName
	if el.Is(syntax.KindComponent) {
		ctx.Type = TypeComponent
		nameKind = syntax.KindComponentName
	}
	ctx.Tag = el.FirstDescendantOfKind(nameKind).Text()
	return ctx
}

// rootTagName returns the name of the outermost tag enclosing n, n included.
func rootTagName(n syntax.Node) string {
	var root syntax.Node
	for ; !n.IsNull(); n = n.Parent() {
		if n.Is(syntax.KindTag) {
			root = n
		}
	}
	return root.FirstDescendantOfKind(syntax.KindTagName).Text()
}
