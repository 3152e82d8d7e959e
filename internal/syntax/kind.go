package syntax

// Kind is the closed set of node kinds a Surface syntax tree can contain.
type Kind uint8

const (
	KindOther Kind = iota
	KindFragment
	KindTag
	KindComponent
	KindStartTag
	KindStartComponent
	KindEndTag
	KindEndComponent
	KindTagName
	KindComponentName
	KindAttribute
	KindAttributeName
	KindAttributeValue
	KindQuotedAttributeValue
	KindExpression
	KindExpressionValue
	KindText
	KindComment
	KindLess         // <
	KindLessSlash    // </
	KindGreater      // >
	KindSlashGreater // />
	KindEqual        // =
	KindLeftBrace    // {
	KindRightBrace   // }
	KindError
)

var kindNames = [...]string{
	KindOther:                "other",
	KindFragment:             "fragment",
	KindTag:                  "tag",
	KindComponent:            "component",
	KindStartTag:             "start_tag",
	KindStartComponent:       "start_component",
	KindEndTag:               "end_tag",
	KindEndComponent:         "end_component",
	KindTagName:              "tag_name",
	KindComponentName:        "component_name",
	KindAttribute:            "attribute",
	KindAttributeName:        "attribute_name",
	KindAttributeValue:       "attribute_value",
	KindQuotedAttributeValue: "quoted_attribute_value",
	KindExpression:           "expression",
	KindExpressionValue:      "expression_value",
	KindText:                 "text",
	KindComment:              "comment",
	KindLess:                 "<",
	KindLessSlash:            "</",
	KindGreater:              ">",
	KindSlashGreater:         "/>",
	KindEqual:                "=",
	KindLeftBrace:            "{",
	KindRightBrace:           "}",
	KindError:                "ERROR",
}

var kindsByName map[string]Kind

func init() {
	kindsByName = make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		kindsByName[name] = Kind(k)
	}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindOther]
}

// Named reports whether nodes of this kind show up in S-expressions.
// Punctuation kinds are anonymous.
func (k Kind) Named() bool {
	switch k {
	case KindLess, KindLessSlash, KindGreater, KindSlashGreater, KindEqual, KindLeftBrace, KindRightBrace:
		return false
	}
	return true
}

// ParseKind maps a grammar node type onto a Kind. Unknown names map to
// KindOther.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindOther
}
