package searchql

import "strconv"

// Node is the interface implemented by all AST nodes. The set of
// implementations is closed: TermExpr, NotExpr, AndExpr and OrExpr.
type Node interface {
	node() // marker method
	String() string
}

// TermExpr matches when Text is a substring of the haystack. An empty Text
// matches everything.
type TermExpr struct {
	Text string
}

func (TermExpr) node() {}

func (e TermExpr) String() string { return strconv.Quote(e.Text) }

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}

func (e NotExpr) String() string { return "NOT " + e.Expr.String() }

// AndExpr matches when both sides match.
type AndExpr struct {
	Left  Node
	Right Node
}

func (AndExpr) node() {}

func (e AndExpr) String() string {
	return "(" + e.Left.String() + " AND " + e.Right.String() + ")"
}

// OrExpr matches when either side matches.
type OrExpr struct {
	Left  Node
	Right Node
}

func (OrExpr) node() {}

func (e OrExpr) String() string {
	return "(" + e.Left.String() + " OR " + e.Right.String() + ")"
}
