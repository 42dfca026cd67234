package tree

import "regexp"

// TokenNodeType is the type of the leaf nodes MoveTokensToLeaves creates.
const TokenNodeType = "TOKEN_NODE"

// Source is the capability a parser-backed tree must expose to be converted
// into a Node tree.
type Source interface {
	SourceType() string
	SourceToken() string
	SourceChildren() []Source
}

// KeepFunc decides whether src becomes a node under parent (nil for the
// root). Rejected sources are dropped with their whole subtree.
type KeepFunc func(src Source, parent *Node) bool

// FromSource converts src into a Node tree. It returns nil when keep rejects
// the root. A nil keep accepts everything.
func FromSource(src Source, keep KeepFunc) *Node {
	if keep != nil && !keep(src, nil) {
		return nil
	}
	type frame struct {
		src  Source
		node *Node
	}
	root := New(src.SourceToken(), src.SourceType(), nil)
	stack := []frame{{src, root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, cs := range f.src.SourceChildren() {
			if keep != nil && !keep(cs, f.node) {
				continue
			}
			child := New(cs.SourceToken(), cs.SourceType(), f.node)
			stack = append(stack, frame{cs, child})
		}
	}
	return root
}

// MoveTokensToLeaves gives every node with a token a new first child of type
// TokenNodeType carrying that token, so path extractors see tokens only at
// leaves. The original node keeps its token.
func MoveTokensToLeaves(root *Node) {
	var withTokens []*Node
	root.Walk(func(n *Node) bool {
		if n.Token != "" {
			withTokens = append(withTokens, n)
		}
		return true
	})
	for _, n := range withTokens {
		leaf := &Node{Type: TokenNodeType, Token: n.Token, parent: n}
		n.children = append([]*Node{leaf}, n.children...)
	}
}

// DefaultTypePattern accepts node types made only of letters and underscores,
// which drops punctuation and operator nodes such as "(" or "+=".
const DefaultTypePattern = `^[_a-zA-Z]+$`

// SyntaxFilter returns a KeepFunc that drops nodes whose type does not match
// pattern and, when dropDocstrings is set, python docstring statements: an
// expression_statement starting with a string directly inside the body block
// of a function_definition. A nil pattern accepts every type.
func SyntaxFilter(pattern *regexp.Regexp, dropDocstrings bool) KeepFunc {
	return func(src Source, parent *Node) bool {
		typ := src.SourceType()
		if pattern != nil && !pattern.MatchString(typ) {
			return false
		}
		if dropDocstrings && isDocstring(src, parent) {
			return false
		}
		return true
	}
}

func isDocstring(src Source, parent *Node) bool {
	if src.SourceType() != "expression_statement" || parent == nil || parent.Type != "block" {
		return false
	}
	if gp := parent.Parent(); gp == nil || gp.Type != "function_definition" {
		return false
	}
	children := src.SourceChildren()
	return len(children) > 0 && children[0].SourceType() == "string"
}
