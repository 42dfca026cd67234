package parse

import (
	"strings"
	"unicode"

	"github.com/jward/lumberjack/internal/tree"
)

// HiddenName replaces a function's own name when names are hidden, so the
// label cannot be read off the tree.
const HiddenName = "METHOD_NAME"

// functionTypes are the node types that start a function or method across
// the supported grammars.
var functionTypes = map[string]bool{
	"function_definition":     true, // python, c, cpp, php
	"function_declaration":    true, // go, javascript, typescript
	"method_declaration":      true, // go, java, php
	"constructor_declaration": true, // java
	"method_definition":       true, // javascript, typescript
	"function_item":           true, // rust
	"method":                  true, // ruby
}

// nameTypes are the leaf types that may carry a function's name.
var nameTypes = map[string]bool{
	"identifier":          true,
	"field_identifier":    true,
	"property_identifier": true,
	"name":                true,
}

// Function is a function subtree detached from its file, labeled by its name.
type Function struct {
	Root  *tree.Node
	Label string
}

// Functions detaches every outermost function in root and returns them in
// source order. Nested functions stay inside their enclosing function. Each
// label is the function name split into lower-cased subtokens joined by "|".
// With hideNames the name leaf's token becomes HiddenName. Functions whose
// name cannot be found are skipped and left in place.
func Functions(root *tree.Node, hideNames bool) []Function {
	var found []*tree.Node
	root.Walk(func(n *tree.Node) bool {
		if functionTypes[n.Type] {
			found = append(found, n)
			return false
		}
		return true
	})

	var out []Function
	for _, fn := range found {
		name := functionName(fn)
		if name == nil {
			continue
		}
		label := strings.Join(SplitSubtokens(name.Token), "|")
		if hideNames {
			name.Token = HiddenName
		}
		if p := fn.Parent(); p != nil {
			p.RemoveChild(fn)
		}
		out = append(out, Function{Root: fn, Label: label})
	}
	return out
}

// functionName finds the name leaf among fn's children, looking one level
// into declarators for C-family grammars.
func functionName(fn *tree.Node) *tree.Node {
	for _, ch := range fn.Children() {
		if nameTypes[ch.Type] && ch.Token != "" {
			return ch
		}
	}
	for _, ch := range fn.Children() {
		if !strings.HasSuffix(ch.Type, "declarator") {
			continue
		}
		for _, gc := range ch.Children() {
			if nameTypes[gc.Type] && gc.Token != "" {
				return gc
			}
		}
	}
	return nil
}

// SplitSubtokens splits an identifier at underscores, digits, whitespace and
// camel-case boundaries and lower-cases the parts: "getHTTPResponse_v2"
// becomes [get http response v].
func SplitSubtokens(s string) []string {
	runes := []rune(strings.TrimSpace(s))
	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || unicode.IsDigit(r) || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		if unicode.IsLetter(r) {
			cur = append(cur, r)
		}
	}
	flush()
	return parts
}
