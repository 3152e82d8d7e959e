// Package cursor classifies a byte offset in a Surface document into the
// language and structural role found there.
package cursor

import (
	"github.com/tliron/commonlog"

	"surface/internal/syntax"
)

var log = commonlog.GetLogger("surface.cursor")

type Lang string

const (
	LangNone       Lang = ""
	LangSurface    Lang = "surface"
	LangCSS        Lang = "css"
	LangJavaScript Lang = "javascript"
)

type Scope string

const (
	ScopeNone                Scope = ""
	ScopeTagName             Scope = "tag_name"
	ScopeAttributeName       Scope = "attribute_name"
	ScopeComponentName       Scope = "component_name"
	ScopeTagAttributes       Scope = "tag_attributes"
	ScopeComponentAttributes Scope = "component_attributes"
	ScopeTagBody             Scope = "tag_body"
	ScopeExpression          Scope = "expression"
)

// ElementType tells tags and components apart.
type ElementType string

const (
	TypeNone      ElementType = ""
	TypeTag       ElementType = "tag"
	TypeComponent ElementType = "component"
)

// Context is the classification of one cursor offset.
type Context struct {
	Lang  Lang        `json:"lang,omitempty"`
	Scope Scope       `json:"scope,omitempty"`
	Value string      `json:"value,omitempty"`
	Tag   string      `json:"tag,omitempty"`
	Type  ElementType `json:"type,omitempty"`

	// Rule names the rule that matched, empty when none did.
	Rule string `json:"rule,omitempty"`
	// Node is the S-expression of the node found at the offset.
	Node string `json:"node,omitempty"`
}

// Resolve classifies offset within tree. It never fails: anything it cannot
// classify resolves to LangNone.
func Resolve(tree *syntax.Tree, offset int) Context {
	root := tree.RootNode()
	if root.IsNull() {
		return Context{}
	}
	node := root.DescendantForIndex(offset)

	for _, r := range rules {
		ctx, ok := r.apply(node, offset)
		if !ok {
			continue
		}
		ctx.Rule = r.name
		ctx.Node = node.String()
		log.Debugf("offset %d: %s matched %s", offset, node.Kind(), r.name)
		return ctx
	}
	return Context{Node: node.String()}
}
