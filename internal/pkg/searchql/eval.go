package searchql

import (
	"fmt"
	"strings"
)

// Eval reports whether haystack satisfies node. haystack must already be
// lowercase. A nil node matches everything.
func Eval(node Node, haystack string) bool {
	if node == nil {
		return true
	}

	switch n := node.(type) {
	case TermExpr:
		return n.Text == "" || strings.Contains(haystack, n.Text)
	case NotExpr:
		return !Eval(n.Expr, haystack)
	case AndExpr:
		return Eval(n.Left, haystack) && Eval(n.Right, haystack)
	case OrExpr:
		return Eval(n.Left, haystack) || Eval(n.Right, haystack)
	default:
		panic(fmt.Sprintf("searchql: unknown node type %T", node))
	}
}
