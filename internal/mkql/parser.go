package mkql

import (
	"fmt"
	"strconv"

	"github.com/mkb-project/mkb/internal/mkberr"
)

type parser struct {
	toks []token
	pos  int
}

// Parse parses an MKQL query string into an AST. Invalid input always
// returns a *mkberr.MkqlParseError; it never panics, even on adversarial or
// truncated byte sequences.
func Parse(input string) (q MkqlQuery, err error) {
	defer func() {
		if r := recover(); r != nil {
			q = MkqlQuery{}
			err = mkberr.NewMkqlParseError(fmt.Sprintf("internal parser error: %v", r), 0)
		}
	}()

	toks, lexErr := newLexer(input).tokens()
	if lexErr != nil {
		if le, ok := lexErr.(*lexError); ok {
			return MkqlQuery{}, mkberr.NewMkqlParseError(le.msg, le.offset)
		}
		return MkqlQuery{}, mkberr.NewMkqlParseError(lexErr.Error(), 0)
	}

	p := &parser{toks: toks}
	query, perr := p.parseQuery()
	if perr != nil {
		return MkqlQuery{}, perr
	}
	if !p.atEOF() {
		return MkqlQuery{}, mkberr.NewMkqlParseError("unexpected trailing input", p.cur().offset)
	}
	return query, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errf(format string, args ...interface{}) error {
	return mkberr.NewMkqlParseError(fmt.Sprintf(format, args...), p.cur().offset)
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur().kind == tokIdent && p.cur().upper() == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errf("expected %q", kw)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur().kind != tokIdent {
		return "", p.errf("expected identifier")
	}
	t := p.advance()
	return t.text, nil
}

func (p *parser) expectString() (string, error) {
	if p.cur().kind != tokString {
		return "", p.errf("expected string literal")
	}
	return p.advance().text, nil
}

func (p *parser) expectSymbol(sym string) error {
	if p.cur().kind != tokSymbol || p.cur().text != sym {
		return p.errf("expected %q", sym)
	}
	p.advance()
	return nil
}

func (p *parser) expectInteger() (int, error) {
	if p.cur().kind != tokNumber {
		return 0, p.errf("expected integer literal")
	}
	t := p.advance()
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, mkberr.NewMkqlParseError("expected integer literal", t.offset)
	}
	return n, nil
}

func (p *parser) expectFloat() (float64, error) {
	if p.cur().kind != tokNumber {
		return 0, p.errf("expected numeric literal")
	}
	t := p.advance()
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, mkberr.NewMkqlParseError("expected numeric literal", t.offset)
	}
	return f, nil
}

func (p *parser) parseQuery() (MkqlQuery, error) {
	var q MkqlQuery

	sel, err := p.parseSelectClause()
	if err != nil {
		return q, err
	}
	q.Select = sel

	if err := p.expectKeyword("FROM"); err != nil {
		return q, err
	}
	from, err := p.expectIdent()
	if err != nil {
		return q, err
	}
	q.From = from

	if p.isKeyword("WHERE") {
		p.advance()
		where, err := p.parseOrExpr()
		if err != nil {
			return q, err
		}
		q.Where = where
	}

	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return q, err
		}
		items, err := p.parseOrderByList()
		if err != nil {
			return q, err
		}
		q.OrderBy = items
	}

	if p.isKeyword("LIMIT") {
		p.advance()
		n, err := p.expectInteger()
		if err != nil {
			return q, err
		}
		q.Limit = &n
	}

	if p.isKeyword("OFFSET") {
		p.advance()
		n, err := p.expectInteger()
		if err != nil {
			return q, err
		}
		q.Offset = &n
	}

	return q, nil
}

func (p *parser) parseSelectClause() (SelectClause, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return SelectClause{}, err
	}
	if p.cur().kind == tokSymbol && p.cur().text == "*" {
		p.advance()
		return SelectClause{Star: true}, nil
	}
	var fields []SelectField
	for {
		name, err := p.expectIdent()
		if err != nil {
			return SelectClause{}, err
		}
		field := SelectField{Name: name}
		if p.isKeyword("AS") {
			p.advance()
			alias, err := p.expectIdent()
			if err != nil {
				return SelectClause{}, err
			}
			field.Alias = alias
		}
		fields = append(fields, field)
		if p.cur().kind == tokSymbol && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	return SelectClause{Fields: fields}, nil
}

func (p *parser) parseOrderByList() ([]OrderItem, error) {
	var items []OrderItem
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Field: name}
		if p.isKeyword("ASC") {
			p.advance()
		} else if p.isKeyword("DESC") {
			p.advance()
			item.Desc = true
		}
		items = append(items, item)
		if p.cur().kind == tokSymbol && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseOrExpr() (Expr, error) {
	first, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	clauses := []Expr{first}
	for p.isKeyword("OR") {
		p.advance()
		next, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, next)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return OrExpr{Clauses: clauses}, nil
}

func (p *parser) parseAndExpr() (Expr, error) {
	first, err := p.parseNotExpr()
	if err != nil {
		return nil, err
	}
	clauses := []Expr{first}
	for p.isKeyword("AND") {
		p.advance()
		next, err := p.parseNotExpr()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, next)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return AndExpr{Clauses: clauses}, nil
}

func (p *parser) parseNotExpr() (Expr, error) {
	if p.isKeyword("NOT") {
		p.advance()
		inner, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return NotExpr{Inner: inner}, nil
	}
	return p.parseAtom()
}

var compOps = map[string]bool{"=": true, "!=": true, "<=": true, ">=": true, "<": true, ">": true}

func (p *parser) parseAtom() (Expr, error) {
	if p.cur().kind == tokSymbol && p.cur().text == "(" {
		p.advance()
		inner, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return ParenExpr{Inner: inner}, nil
	}

	if p.cur().kind != tokIdent {
		return nil, p.errf("expected an expression")
	}

	switch p.cur().upper() {
	case "FRESH", "STALE", "AS_OF":
		return p.parseTemporalWithArg()
	case "EXPIRED", "CURRENT", "LATEST":
		return p.parseTemporalNoArg()
	case "EFF_CONFIDENCE":
		return p.parseEffConfidence()
	case "LINKED":
		return p.parseLinked()
	case "NEAR":
		return p.parseNear()
	case "BODY":
		return p.parseBodyContains()
	}

	ident, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if p.isKeyword("IN") {
		p.advance()
		return p.parseInPred(ident)
	}
	if p.isKeyword("LIKE") {
		p.advance()
		pattern, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return LikePred{Field: ident, Pattern: pattern}, nil
	}

	if p.cur().kind != tokSymbol || !compOps[p.cur().text] {
		return nil, p.errf("expected a comparison operator")
	}
	op := p.advance().text
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return Comparison{Field: ident, Op: op, Value: val}, nil
}

func (p *parser) parseValue() (Value, error) {
	t := p.cur()
	switch {
	case t.kind == tokString:
		p.advance()
		return Value{Kind: "string", Str: t.text}, nil
	case t.kind == tokNumber:
		p.advance()
		return parseNumberLiteral(t.text), nil
	case t.kind == tokIdent && t.upper() == "TRUE":
		p.advance()
		return Value{Kind: "boolean", Bool: true}, nil
	case t.kind == tokIdent && t.upper() == "FALSE":
		p.advance()
		return Value{Kind: "boolean", Bool: false}, nil
	case t.kind == tokIdent && t.upper() == "NULL":
		p.advance()
		return Value{Kind: "null"}, nil
	default:
		return Value{}, p.errf("expected a value")
	}
}

func (p *parser) parseInPred(field string) (Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var values []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.cur().kind == tokSymbol && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return InPred{Field: field, Values: values}, nil
}

func (p *parser) parseBodyContains() (Expr, error) {
	if err := p.expectKeyword("BODY"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("CONTAINS"); err != nil {
		return nil, err
	}
	text, err := p.expectString()
	if err != nil {
		return nil, err
	}
	return BodyContains{Text: text}, nil
}

func (p *parser) parseTemporalWithArg() (Expr, error) {
	name := p.advance().upper()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	arg, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return TemporalFn{Name: name, Arg: arg}, nil
}

func (p *parser) parseTemporalNoArg() (Expr, error) {
	name := p.advance().upper()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return TemporalFn{Name: name}, nil
}

func (p *parser) parseEffConfidence() (Expr, error) {
	p.advance() // EFF_CONFIDENCE
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if p.cur().kind != tokSymbol || !compOps[p.cur().text] {
		return nil, p.errf("expected a comparison operator")
	}
	op := p.advance().text
	f, err := p.expectFloat()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return EffConfidence{Op: op, Value: f}, nil
}

func (p *parser) parseLinked() (Expr, error) {
	p.advance() // LINKED
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	reverse := false
	if p.isKeyword("REVERSE") {
		p.advance()
		if err := p.expectSymbol(","); err != nil {
			return nil, err
		}
		reverse = true
	}
	rel, err := p.expectString()
	if err != nil {
		return nil, err
	}
	link := LinkedFn{Reverse: reverse, Rel: rel}
	if p.cur().kind == tokSymbol && p.cur().text == "," {
		p.advance()
		other, err := p.expectString()
		if err != nil {
			return nil, err
		}
		link.Other = other
		link.HasOther = true
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return link, nil
}

func (p *parser) parseNear() (Expr, error) {
	p.advance() // NEAR
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	text, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(","); err != nil {
		return nil, err
	}
	tau, err := p.expectFloat()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return NearFn{Text: text, Tau: tau}, nil
}
