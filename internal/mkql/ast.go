// Package mkql implements the domain query language: a PEG-style grammar
// (C7), its AST, a compiler to parameterized SQL (C8), consumed by the
// executor in package query (C9).
package mkql

// Value is a literal appearing in a comparison, IN list, or function
// argument. Exactly one of the typed fields is meaningful per Kind.
type Value struct {
	Kind   string // "string", "float", "integer", "boolean", "null"
	Str    string
	Num    float64
	Int    int64
	Bool   bool
}

// SelectField is one projected column, optionally aliased.
type SelectField struct {
	Name  string
	Alias string
}

// SelectClause is either "*" or an explicit field list.
type SelectClause struct {
	Star   bool
	Fields []SelectField
}

// Expr is any node appearing in a WHERE clause.
type Expr interface{ exprNode() }

// OrExpr is a disjunction of and_expr clauses.
type OrExpr struct{ Clauses []Expr }

// AndExpr is a conjunction of not_expr clauses.
type AndExpr struct{ Clauses []Expr }

// NotExpr negates its inner atom.
type NotExpr struct{ Inner Expr }

// Comparison is `ident comp_op value`.
type Comparison struct {
	Field string
	Op    string
	Value Value
}

// InPred is `ident IN (value, ...)`.
type InPred struct {
	Field  string
	Values []Value
}

// LikePred is `ident LIKE string`.
type LikePred struct {
	Field   string
	Pattern string
}

// BodyContains is `BODY CONTAINS string`.
type BodyContains struct{ Text string }

// TemporalFn covers FRESH/STALE/EXPIRED/CURRENT/LATEST/AS_OF.
type TemporalFn struct {
	Name string // "FRESH", "STALE", "EXPIRED", "CURRENT", "LATEST", "AS_OF"
	Arg  string // duration literal (FRESH/STALE) or timestamp literal (AS_OF); empty otherwise
}

// EffConfidence is `EFF_CONFIDENCE(op float)`.
type EffConfidence struct {
	Op    string
	Value float64
}

// LinkedFn covers LINKED('rel'[,'target']) and LINKED(REVERSE,'rel'[,'source']).
type LinkedFn struct {
	Reverse bool
	Rel     string
	Other   string // optional target (forward) or source (reverse); empty if absent
	HasOther bool
}

// NearFn is `NEAR(text, tau)`, the semantic pre-filter trigger.
type NearFn struct {
	Text string
	Tau  float64
}

// ParenExpr wraps a parenthesized or_expr; kept distinct from its inner
// expression only for round-trippable debugging, never for compilation
// (the compiler treats it transparently).
type ParenExpr struct{ Inner Expr }

func (OrExpr) exprNode()        {}
func (AndExpr) exprNode()       {}
func (NotExpr) exprNode()       {}
func (Comparison) exprNode()    {}
func (InPred) exprNode()        {}
func (LikePred) exprNode()      {}
func (BodyContains) exprNode()  {}
func (TemporalFn) exprNode()    {}
func (EffConfidence) exprNode() {}
func (LinkedFn) exprNode()      {}
func (NearFn) exprNode()        {}
func (ParenExpr) exprNode()     {}

// OrderItem is one `ident ASC|DESC` term.
type OrderItem struct {
	Field string
	Desc  bool
}

// MkqlQuery is the AST root produced by Parse.
type MkqlQuery struct {
	Select  SelectClause
	From    string
	Where   Expr // nil if no WHERE clause
	OrderBy []OrderItem
	Limit   *int
	Offset  *int
}
