/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqlparser

import (
	"strings"

	"github.com/vtplan/vtplan/go/vt/vterrors"
)

// Parse parses the SQL in full and returns a Statement, which
// is the AST representation of the query. A single trailing
// semicolon is allowed.
func Parse(sql string) (Statement, error) {
	p, err := newParser(sql)
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.accept(';')
	if p.peek().typ != 0 {
		return nil, p.syntaxError()
	}
	return stmt, nil
}

// ParseExpr parses a single expression.
func ParseExpr(sql string) (Expr, error) {
	p, err := newParser(sql)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != 0 {
		return nil, p.syntaxError()
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func newParser(sql string) (*parser, error) {
	tokens, err := NewStringTokenizer(sql).tokenize()
	if err != nil {
		return nil, vterrors.New(vterrors.InvalidArgument, err.Error())
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) peek() token {
	return p.peekN(0)
}

func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() token {
	t := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// accept consumes the next token if it is of type typ.
func (p *parser) accept(typ int) bool {
	if p.peek().typ == typ {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(typ int) error {
	if !p.accept(typ) {
		return p.syntaxError()
	}
	return nil
}

// isKeyword returns true if the next token is the bare word kw.
func (p *parser) isKeyword(kw string) bool {
	return p.peek().lowered() == kw
}

func (p *parser) isKeywordN(n int, kw string) bool {
	return p.peekN(n).lowered() == kw
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

// acceptKeywords consumes the sequence of words only if all of them match.
func (p *parser) acceptKeywords(kws ...string) bool {
	for i, kw := range kws {
		if !p.isKeywordN(i, kw) {
			return false
		}
	}
	p.pos += len(kws)
	return true
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.syntaxError()
	}
	return nil
}

func (p *parser) syntaxError() error {
	t := p.peek()
	if t.typ == 0 {
		return vterrors.Errorf(vterrors.InvalidArgument, "syntax error at position %d", t.pos)
	}
	return vterrors.Errorf(vterrors.InvalidArgument, "syntax error at position %d near '%s'", t.pos, tokenName(t))
}

// comments returns the comments that precede the next token.
func (p *parser) comments() Comments {
	t := p.peek()
	if len(t.comments) == 0 {
		return nil
	}
	return Comments(t.comments)
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.isKeyword("select"), p.peek().typ == '(':
		return p.parseSelectStatement()
	case p.isKeyword("insert"), p.isKeyword("replace"):
		return p.parseInsert()
	case p.isKeyword("update"):
		return p.parseUpdate()
	case p.isKeyword("delete"):
		return p.parseDelete()
	case p.isKeyword("set"):
		return p.parseSet()
	}
	return nil, p.syntaxError()
}

// parseSelectStatement parses a select or a chain of unions
// followed by the trailing order by, limit and lock clauses.
func (p *parser) parseSelectStatement() (SelectStatement, error) {
	stmt, err := p.parseUnionArm()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("union") {
		p.advance()
		typ := UnionStr
		switch {
		case p.acceptKeyword("all"):
			typ = UnionAllStr
		case p.acceptKeyword("distinct"):
			typ = UnionDistinctStr
		}
		right, err := p.parseUnionArm()
		if err != nil {
			return nil, err
		}
		stmt = &Union{Type: typ, Left: stmt, Right: right}
	}

	orderBy, err := p.parseOrderByOpt()
	if err != nil {
		return nil, err
	}
	limit, err := p.parseLimitOpt()
	if err != nil {
		return nil, err
	}
	lock := p.parseLockOpt()

	switch stmt := stmt.(type) {
	case *Select:
		stmt.OrderBy, stmt.Limit, stmt.Lock = orderBy, limit, lock
	case *Union:
		stmt.OrderBy, stmt.Limit, stmt.Lock = orderBy, limit, lock
	case *ParenSelect:
		if orderBy != nil || limit != nil || lock != "" {
			return nil, p.syntaxError()
		}
	}
	return stmt, nil
}

func (p *parser) parseUnionArm() (SelectStatement, error) {
	if p.accept('(') {
		sel, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &ParenSelect{Select: sel}, nil
	}
	return p.parseBaseSelect()
}

func (p *parser) parseBaseSelect() (*Select, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	sel := &Select{Comments: p.comments()}
	for {
		switch {
		case p.acceptKeyword("distinct"):
			sel.Distinct = DistinctStr
		case p.acceptKeyword("all"):
		case p.acceptKeyword("straight_join"):
			sel.Hints = StraightJoinHint
		case p.acceptKeyword("sql_calc_found_rows"):
			sel.Hints += SQLCalcFoundRowsStr
		case p.acceptKeyword("sql_no_cache"), p.acceptKeyword("sql_cache"):
		default:
			goto exprs
		}
	}
exprs:
	selectExprs, err := p.parseSelectExprs()
	if err != nil {
		return nil, err
	}
	sel.SelectExprs = selectExprs

	if p.acceptKeyword("from") {
		from, err := p.parseTableExprs()
		if err != nil {
			return nil, err
		}
		sel.From = from
	} else {
		sel.From = TableExprs{&AliasedTableExpr{Expr: TableName{Name: NewTableIdent("dual")}}}
	}

	if sel.Where, err = p.parseWhereOpt(WhereStr); err != nil {
		return nil, err
	}
	if p.acceptKeywords("group", "by") {
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = GroupBy(exprs)
	}
	if sel.Having, err = p.parseWhereOpt(HavingStr); err != nil {
		return nil, err
	}
	return sel, nil
}

func (p *parser) parseWhereOpt(typ string) (*Where, error) {
	if !p.acceptKeyword(typ) {
		return nil, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return NewWhere(typ, expr), nil
}

func (p *parser) parseOrderByOpt() (OrderBy, error) {
	if !p.acceptKeywords("order", "by") {
		return nil, nil
	}
	var orderBy OrderBy
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		order := &Order{Expr: expr, Direction: AscScr}
		switch {
		case p.acceptKeyword("asc"):
		case p.acceptKeyword("desc"):
			order.Direction = DescScr
		}
		orderBy = append(orderBy, order)
		if !p.accept(',') {
			return orderBy, nil
		}
	}
}

func (p *parser) parseLimitOpt() (*Limit, error) {
	if !p.acceptKeyword("limit") {
		return nil, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch {
	case p.accept(','):
		second, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Limit{Offset: first, Rowcount: second}, nil
	case p.acceptKeyword("offset"):
		second, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Limit{Offset: second, Rowcount: first}, nil
	}
	return &Limit{Rowcount: first}, nil
}

func (p *parser) parseLockOpt() string {
	switch {
	case p.acceptKeywords("for", "update"):
		return ForUpdateStr
	case p.acceptKeywords("lock", "in", "share", "mode"):
		return ShareModeStr
	}
	return ""
}

func (p *parser) parseSelectExprs() (SelectExprs, error) {
	var exprs SelectExprs
	for {
		expr, err := p.parseSelectExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.accept(',') {
			return exprs, nil
		}
	}
}

func (p *parser) parseSelectExpr() (SelectExpr, error) {
	if p.accept('*') {
		return &StarExpr{}, nil
	}
	// t.* and ks.t.*
	if isIdentToken(p.peek()) && p.peekN(1).typ == '.' {
		if p.peekN(2).typ == '*' {
			name := p.advance()
			p.pos += 2
			return &StarExpr{TableName: TableName{Name: NewTableIdent(string(name.val))}}, nil
		}
		if isIdentToken(p.peekN(2)) && p.peekN(3).typ == '.' && p.peekN(4).typ == '*' {
			qual := p.advance()
			p.advance()
			name := p.advance()
			p.pos += 2
			return &StarExpr{TableName: TableName{Qualifier: NewTableIdent(string(qual.val)), Name: NewTableIdent(string(name.val))}}, nil
		}
	}
	if p.isKeyword("next") {
		switch {
		case p.isKeywordN(1, "value") && !p.isKeywordN(2, "values"):
			p.pos += 2
			return Nextval{Expr: NewIntVal([]byte("1"))}, nil
		case (p.peekN(1).typ == INTEGRAL || p.peekN(1).typ == VALUE_ARG) && p.isKeywordN(2, "values"):
			p.advance()
			val := p.advance()
			p.advance()
			if val.typ == INTEGRAL {
				return Nextval{Expr: NewIntVal(val.val)}, nil
			}
			return Nextval{Expr: NewValArg(val.val)}, nil
		}
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	as, err := p.parseColumnAliasOpt()
	if err != nil {
		return nil, err
	}
	return &AliasedExpr{Expr: expr, As: as}, nil
}

func (p *parser) parseColumnAliasOpt() (ColIdent, error) {
	explicit := p.acceptKeyword("as")
	t := p.peek()
	switch {
	case t.typ == STRING, t.typ == QUOTED_ID:
		p.advance()
		return NewColIdent(string(t.val)), nil
	case t.typ == ID && !IsReserved(string(t.val)):
		p.advance()
		return NewColIdent(string(t.val)), nil
	}
	if explicit {
		return ColIdent{}, p.syntaxError()
	}
	return ColIdent{}, nil
}

func (p *parser) parseTableAliasOpt() (TableIdent, error) {
	explicit := p.acceptKeyword("as")
	t := p.peek()
	switch {
	case t.typ == QUOTED_ID, t.typ == STRING && explicit:
		p.advance()
		return NewTableIdent(string(t.val)), nil
	case t.typ == ID && !IsReserved(string(t.val)):
		p.advance()
		return NewTableIdent(string(t.val)), nil
	}
	if explicit {
		return TableIdent{}, p.syntaxError()
	}
	return TableIdent{}, nil
}

func (p *parser) parseTableExprs() (TableExprs, error) {
	var exprs TableExprs
	for {
		expr, err := p.parseTableReference()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.accept(',') {
			return exprs, nil
		}
	}
}

func (p *parser) parseTableReference() (TableExpr, error) {
	left, err := p.parseTableFactor()
	if err != nil {
		return nil, err
	}
	for {
		join, ok := p.parseJoinType()
		if !ok {
			return left, nil
		}
		right, err := p.parseTableFactor()
		if err != nil {
			return nil, err
		}
		jte := &JoinTableExpr{LeftExpr: left, Join: join, RightExpr: right}
		switch {
		case p.acceptKeyword("on"):
			on, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			jte.Condition.On = on
		case p.acceptKeyword("using"):
			cols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			jte.Condition.Using = cols
		case join == LeftJoinStr || join == RightJoinStr:
			// Outer joins require a join condition.
			return nil, p.syntaxError()
		}
		left = jte
	}
}

func (p *parser) parseJoinType() (string, bool) {
	switch {
	case p.acceptKeyword("join"),
		p.acceptKeywords("inner", "join"),
		p.acceptKeywords("cross", "join"):
		return JoinStr, true
	case p.acceptKeyword("straight_join"):
		return StraightJoinStr, true
	case p.acceptKeywords("left", "join"), p.acceptKeywords("left", "outer", "join"):
		return LeftJoinStr, true
	case p.acceptKeywords("right", "join"), p.acceptKeywords("right", "outer", "join"):
		return RightJoinStr, true
	case p.acceptKeywords("natural", "join"):
		return NaturalJoinStr, true
	case p.acceptKeywords("natural", "left", "join"), p.acceptKeywords("natural", "left", "outer", "join"):
		return NaturalLeftJoinStr, true
	case p.acceptKeywords("natural", "right", "join"), p.acceptKeywords("natural", "right", "outer", "join"):
		return NaturalRightJoinStr, true
	}
	return "", false
}

func (p *parser) parseTableFactor() (TableExpr, error) {
	if p.accept('(') {
		if p.isKeyword("select") || p.peek().typ == '(' && p.isKeywordN(1, "select") {
			sel, err := p.parseSelectStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			as, err := p.parseTableAliasOpt()
			if err != nil {
				return nil, err
			}
			if as.IsEmpty() {
				return nil, vterrors.New(vterrors.InvalidArgument, "Every derived table must have its own alias")
			}
			return &AliasedTableExpr{Expr: &Subquery{Select: sel}, As: as}, nil
		}
		exprs, err := p.parseTableExprs()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &ParenTableExpr{Exprs: exprs}, nil
	}

	name, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	ate := &AliasedTableExpr{Expr: name}
	if ate.As, err = p.parseTableAliasOpt(); err != nil {
		return nil, err
	}
	if ate.Hints, err = p.parseIndexHintsOpt(); err != nil {
		return nil, err
	}
	return ate, nil
}

func (p *parser) parseTableName() (TableName, error) {
	first, err := p.parseTableIdent()
	if err != nil {
		return TableName{}, err
	}
	if !p.accept('.') {
		return TableName{Name: first}, nil
	}
	second, err := p.parseTableIdent()
	if err != nil {
		return TableName{}, err
	}
	return TableName{Qualifier: first, Name: second}, nil
}

func (p *parser) parseTableIdent() (TableIdent, error) {
	t := p.peek()
	switch {
	case t.typ == QUOTED_ID:
		p.advance()
		return NewTableIdent(string(t.val)), nil
	case t.typ == ID && !IsReserved(string(t.val)):
		p.advance()
		return NewTableIdent(string(t.val)), nil
	}
	return TableIdent{}, p.syntaxError()
}

func (p *parser) parseIndexHintsOpt() (*IndexHints, error) {
	var typ string
	switch {
	case p.isKeyword("use"):
		typ = UseStr
	case p.isKeyword("ignore"):
		typ = IgnoreStr
	case p.isKeyword("force"):
		typ = ForceStr
	default:
		return nil, nil
	}
	p.advance()
	if !p.acceptKeyword("index") && !p.acceptKeyword("key") {
		return nil, p.syntaxError()
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	hints := &IndexHints{Type: typ}
	if p.accept(')') {
		return hints, nil
	}
	for {
		id, err := p.parseColIdent()
		if err != nil {
			return nil, err
		}
		hints.Indexes = append(hints.Indexes, id)
		if !p.accept(',') {
			break
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return hints, nil
}

func (p *parser) parseColIdent() (ColIdent, error) {
	t := p.peek()
	if isIdentToken(t) {
		p.advance()
		return NewColIdent(string(t.val)), nil
	}
	return ColIdent{}, p.syntaxError()
}

func (p *parser) parseColumnList() (Columns, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var cols Columns
	for {
		id, err := p.parseColIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, id)
		if !p.accept(',') {
			break
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return cols, nil
}

func (p *parser) parseInsert() (Statement, error) {
	ins := &Insert{Action: InsertStr}
	if p.advance().lowered() == ReplaceStr {
		ins.Action = ReplaceStr
	}
	ins.Comments = p.comments()
	if ins.Action == InsertStr && p.acceptKeyword("ignore") {
		ins.Ignore = "ignore "
	}
	p.acceptKeyword("into")
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	ins.Table = table

	if p.acceptKeyword("set") {
		exprs, err := p.parseUpdateList()
		if err != nil {
			return nil, err
		}
		row := make(ValTuple, 0, len(exprs))
		for _, expr := range exprs {
			ins.Columns = append(ins.Columns, expr.Name.Name)
			row = append(row, expr.Expr)
		}
		ins.Rows = Values{row}
	} else {
		if p.peek().typ == '(' && !p.isKeywordN(1, "select") {
			if ins.Columns, err = p.parseColumnList(); err != nil {
				return nil, err
			}
		}
		switch {
		case p.acceptKeyword("values"), p.acceptKeyword("value"):
			values, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			ins.Rows = values
		case p.isKeyword("select"), p.peek().typ == '(':
			sel, err := p.parseSelectStatement()
			if err != nil {
				return nil, err
			}
			ins.Rows = sel
		default:
			return nil, p.syntaxError()
		}
	}

	if p.acceptKeywords("on", "duplicate", "key", "update") {
		exprs, err := p.parseUpdateList()
		if err != nil {
			return nil, err
		}
		ins.OnDup = OnDup(exprs)
	}
	return ins, nil
}

func (p *parser) parseValues() (Values, error) {
	var values Values
	for {
		if err := p.expect('('); err != nil {
			return nil, err
		}
		var row ValTuple
		if !p.accept(')') {
			exprs, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			row = ValTuple(exprs)
			if err := p.expect(')'); err != nil {
				return nil, err
			}
		}
		values = append(values, row)
		if !p.accept(',') {
			return values, nil
		}
	}
}

func (p *parser) parseUpdateList() (UpdateExprs, error) {
	var exprs UpdateExprs
	for {
		col, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		if err := p.expect('='); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, &UpdateExpr{Name: col, Expr: expr})
		if !p.accept(',') {
			return exprs, nil
		}
	}
}

func (p *parser) parseUpdate() (Statement, error) {
	p.advance()
	upd := &Update{Comments: p.comments()}
	var err error
	if upd.TableExprs, err = p.parseTableExprs(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("set"); err != nil {
		return nil, err
	}
	if upd.Exprs, err = p.parseUpdateList(); err != nil {
		return nil, err
	}
	if upd.Where, err = p.parseWhereOpt(WhereStr); err != nil {
		return nil, err
	}
	if upd.OrderBy, err = p.parseOrderByOpt(); err != nil {
		return nil, err
	}
	if upd.Limit, err = p.parseLimitOpt(); err != nil {
		return nil, err
	}
	return upd, nil
}

func (p *parser) parseDelete() (Statement, error) {
	p.advance()
	del := &Delete{Comments: p.comments()}
	if !p.isKeyword("from") {
		for {
			name, err := p.parseTableName()
			if err != nil {
				return nil, err
			}
			del.Targets = append(del.Targets, name)
			if !p.accept(',') {
				break
			}
		}
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	var err error
	if del.TableExprs, err = p.parseTableExprs(); err != nil {
		return nil, err
	}
	if del.Where, err = p.parseWhereOpt(WhereStr); err != nil {
		return nil, err
	}
	if del.OrderBy, err = p.parseOrderByOpt(); err != nil {
		return nil, err
	}
	if del.Limit, err = p.parseLimitOpt(); err != nil {
		return nil, err
	}
	return del, nil
}

func (p *parser) parseSet() (Statement, error) {
	p.advance()
	set := &Set{Comments: p.comments()}
	switch {
	case p.acceptKeyword("global"):
		set.Scope = GlobalStr
	case p.acceptKeyword("session"), p.acceptKeyword("local"):
		set.Scope = SessionStr
	}
	for {
		expr, err := p.parseSetExpr()
		if err != nil {
			return nil, err
		}
		set.Exprs = append(set.Exprs, expr)
		if !p.accept(',') {
			return set, nil
		}
	}
}

func (p *parser) parseSetExpr() (*SetExpr, error) {
	if p.isKeyword("names") || p.isKeyword("charset") {
		name := p.advance().lowered()
		p.accept('=')
		t := p.advance()
		if t.typ != STRING && t.typ != ID {
			return nil, p.syntaxError()
		}
		return &SetExpr{Name: NewColIdent(name), Expr: NewStrVal(t.val)}, nil
	}
	t := p.peek()
	if !isIdentToken(t) {
		return nil, p.syntaxError()
	}
	p.advance()
	name := string(t.val)
	// session.autocommit or global.autocommit
	for p.peek().typ == '.' && isIdentToken(p.peekN(1)) {
		p.advance()
		name += "." + string(p.advance().val)
	}
	if !p.accept('=') && !p.accept(ASSIGN) {
		return nil, p.syntaxError()
	}
	if p.isKeyword("on") {
		p.advance()
		return &SetExpr{Name: NewColIdent(name), Expr: NewStrVal([]byte("on"))}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &SetExpr{Name: NewColIdent(name), Expr: expr}, nil
}

func (p *parser) parseExprList() (Exprs, error) {
	var exprs Exprs
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.accept(',') {
			return exprs, nil
		}
	}
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("or") || p.accept(OR_OR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("and") || p.accept(AND_AND) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.acceptKeyword("not") {
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: expr}, nil
	}
	return p.parsePredicate()
}

var comparisonOps = map[int]string{
	'=':             EqualStr,
	'<':             LessThanStr,
	'>':             GreaterThanStr,
	LE:              LessEqualStr,
	GE:              GreaterEqualStr,
	NE:              NotEqualStr,
	NULL_SAFE_EQUAL: NullSafeEqualStr,
}

func (p *parser) parsePredicate() (Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := comparisonOps[p.peek().typ]; ok {
			p.advance()
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ComparisonExpr{Operator: op, Left: left, Right: right}
			continue
		}
		if p.acceptKeyword("is") {
			not := p.acceptKeyword("not")
			var op string
			switch {
			case p.acceptKeyword("null"):
				op = IsNullStr
			case p.acceptKeyword("true"):
				op = IsTrueStr
			case p.acceptKeyword("false"):
				op = IsFalseStr
			default:
				return nil, p.syntaxError()
			}
			if not {
				op = strings.Replace(op, "is ", "is not ", 1)
			}
			left = &IsExpr{Operator: op, Expr: left}
			continue
		}

		not := false
		if p.isKeyword("not") && (p.isKeywordN(1, "in") || p.isKeywordN(1, "like") ||
			p.isKeywordN(1, "regexp") || p.isKeywordN(1, "rlike") || p.isKeywordN(1, "between")) {
			p.advance()
			not = true
		}
		switch {
		case p.acceptKeyword("in"):
			right, err := p.parseColTuple()
			if err != nil {
				return nil, err
			}
			op := InStr
			if not {
				op = NotInStr
			}
			left = &ComparisonExpr{Operator: op, Left: left, Right: right}
		case p.acceptKeyword("like"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			op := LikeStr
			if not {
				op = NotLikeStr
			}
			cmp := &ComparisonExpr{Operator: op, Left: left, Right: right}
			if p.acceptKeyword("escape") {
				if cmp.Escape, err = p.parseBitOr(); err != nil {
					return nil, err
				}
			}
			left = cmp
		case p.acceptKeyword("regexp"), p.acceptKeyword("rlike"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			op := RegexpStr
			if not {
				op = NotRegexpStr
			}
			left = &ComparisonExpr{Operator: op, Left: left, Right: right}
		case p.acceptKeyword("between"):
			from, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("and"); err != nil {
				return nil, err
			}
			to, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			op := BetweenStr
			if not {
				op = NotBetweenStr
			}
			left = &RangeCond{Operator: op, Left: left, From: from, To: to}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseColTuple() (ColTuple, error) {
	if p.peek().typ == LIST_ARG {
		return ListArg(p.advance().val), nil
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	if p.isKeyword("select") {
		sel, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &Subquery{Select: sel}, nil
	}
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return ValTuple(exprs), nil
}

type binaryLevel struct {
	ops  map[int]string
	kws  map[string]string
	next func(p *parser) (Expr, error)
}

func (p *parser) parseBinary(level binaryLevel) (Expr, error) {
	left, err := level.next(p)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := level.ops[p.peek().typ]
		if !ok {
			op, ok = level.kws[p.peek().lowered()]
		}
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := level.next(p)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Operator: op, Left: left, Right: right}
	}
}

func (p *parser) parseBitOr() (Expr, error) {
	return p.parseBinary(binaryLevel{ops: map[int]string{'|': BitOrStr}, next: (*parser).parseBitAnd})
}

func (p *parser) parseBitAnd() (Expr, error) {
	return p.parseBinary(binaryLevel{ops: map[int]string{'&': BitAndStr}, next: (*parser).parseShift})
}

func (p *parser) parseShift() (Expr, error) {
	return p.parseBinary(binaryLevel{
		ops:  map[int]string{SHIFT_LEFT: ShiftLeftStr, SHIFT_RIGHT: ShiftRightStr},
		next: (*parser).parseAdditive,
	})
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinary(binaryLevel{
		ops:  map[int]string{'+': PlusStr, '-': MinusStr},
		next: (*parser).parseMultiplicative,
	})
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(binaryLevel{
		ops:  map[int]string{'*': MultStr, '/': DivStr, '%': ModStr},
		kws:  map[string]string{"div": IntDivStr, "mod": ModStr},
		next: (*parser).parseBitXor,
	})
}

func (p *parser) parseBitXor() (Expr, error) {
	return p.parseBinary(binaryLevel{ops: map[int]string{'^': BitXorStr}, next: (*parser).parseUnary})
}

func (p *parser) parseUnary() (Expr, error) {
	var op string
	switch {
	case p.accept('-'):
		op = UMinusStr
	case p.accept('+'):
		op = UPlusStr
	case p.accept('~'):
		op = TildaStr
	case p.accept('!'):
		op = BangStr
	case p.acceptKeyword("binary"):
		op = BinaryStr
	case p.isKeyword("_binary"):
		p.advance()
		op = UBinaryStr
	default:
		return p.parseCollate()
	}
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if op == UMinusStr {
		// Fold the sign into numeric literals, but keep
		// a double negative as an explicit operator.
		if num, ok := expr.(*SQLVal); ok && (num.Type == IntVal || num.Type == FloatVal) && num.Val[0] != '-' {
			return &SQLVal{Type: num.Type, Val: append([]byte("-"), num.Val...)}, nil
		}
	}
	if op == UPlusStr {
		return expr, nil
	}
	return &UnaryExpr{Operator: op, Expr: expr}, nil
}

func (p *parser) parseCollate() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("collate") {
		t := p.advance()
		if t.typ != ID && t.typ != STRING && t.typ != QUOTED_ID {
			return nil, p.syntaxError()
		}
		expr = &CollateExpr{Expr: expr, Charset: string(t.val)}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.typ {
	case '(':
		p.advance()
		if p.isKeyword("select") {
			sel, err := p.parseSelectStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			return &Subquery{Select: sel}, nil
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if len(exprs) == 1 {
			return &ParenExpr{Expr: exprs[0]}, nil
		}
		return ValTuple(exprs), nil
	case STRING:
		p.advance()
		return NewStrVal(t.val), nil
	case INTEGRAL:
		p.advance()
		return NewIntVal(t.val), nil
	case FLOAT:
		p.advance()
		return NewFloatVal(t.val), nil
	case HEXNUM:
		p.advance()
		return NewHexNum(t.val), nil
	case HEX:
		p.advance()
		return NewHexVal(t.val), nil
	case BIT_LITERAL:
		p.advance()
		return NewBitVal(t.val), nil
	case VALUE_ARG:
		p.advance()
		return NewValArg(t.val), nil
	case LIST_ARG:
		p.advance()
		return ListArg(t.val), nil
	case QUOTED_ID:
		return p.parseColumnOrFunc()
	case ID:
	default:
		return nil, p.syntaxError()
	}

	switch t.lowered() {
	case "null":
		p.advance()
		return &NullVal{}, nil
	case "true":
		p.advance()
		return BoolVal(true), nil
	case "false":
		p.advance()
		return BoolVal(false), nil
	case "exists":
		p.advance()
		if err := p.expect('('); err != nil {
			return nil, err
		}
		sel, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &ExistsExpr{Subquery: &Subquery{Select: sel}}, nil
	case "case":
		return p.parseCase()
	case "default":
		p.advance()
		if !p.accept('(') {
			return &Default{}, nil
		}
		id, err := p.parseColIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &Default{ColName: id.String()}, nil
	case "values":
		p.advance()
		if err := p.expect('('); err != nil {
			return nil, err
		}
		col, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return &ValuesFuncExpr{Name: col}, nil
	case "group_concat":
		if p.peekN(1).typ == '(' {
			return p.parseGroupConcat()
		}
	}
	return p.parseColumnOrFunc()
}

func (p *parser) parseCase() (Expr, error) {
	p.advance()
	ce := &CaseExpr{}
	if !p.isKeyword("when") {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Expr = expr
	}
	for p.acceptKeyword("when") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, &When{Cond: cond, Val: val})
	}
	if len(ce.Whens) == 0 {
		return nil, p.syntaxError()
	}
	if p.acceptKeyword("else") {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = expr
	}
	if err := p.expectKeyword("end"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseGroupConcat() (Expr, error) {
	p.pos += 2
	gc := &GroupConcatExpr{}
	if p.acceptKeyword("distinct") {
		gc.Distinct = DistinctStr
	}
	exprs, err := p.parseSelectExprs()
	if err != nil {
		return nil, err
	}
	gc.Exprs = exprs
	if gc.OrderBy, err = p.parseOrderByOpt(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("separator") {
		t := p.advance()
		if t.typ != STRING {
			return nil, p.syntaxError()
		}
		gc.Separator = " separator " + String(NewStrVal(t.val))
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return gc, nil
}

// parseColumnOrFunc parses a column reference or a function call.
func (p *parser) parseColumnOrFunc() (Expr, error) {
	first := p.advance()
	if first.typ == ID && IsReserved(string(first.val)) && !isFuncKeyword(first.lowered()) {
		p.pos--
		return nil, p.syntaxError()
	}
	if p.peek().typ == '(' {
		return p.parseFuncArgs(TableIdent{}, NewColIdent(string(first.val)))
	}
	if p.peek().typ != '.' {
		return &ColName{Name: NewColIdent(string(first.val))}, nil
	}
	p.advance()
	second := p.advance()
	if !isIdentToken(second) {
		p.pos--
		return nil, p.syntaxError()
	}
	if p.peek().typ == '(' {
		return p.parseFuncArgs(NewTableIdent(string(first.val)), NewColIdent(string(second.val)))
	}
	if p.peek().typ != '.' {
		return &ColName{
			Name:      NewColIdent(string(second.val)),
			Qualifier: TableName{Name: NewTableIdent(string(first.val))},
		}, nil
	}
	p.advance()
	third := p.advance()
	if !isIdentToken(third) {
		p.pos--
		return nil, p.syntaxError()
	}
	return &ColName{
		Name: NewColIdent(string(third.val)),
		Qualifier: TableName{
			Qualifier: NewTableIdent(string(first.val)),
			Name:      NewTableIdent(string(second.val)),
		},
	}, nil
}

func (p *parser) parseFuncArgs(qualifier TableIdent, name ColIdent) (Expr, error) {
	p.advance()
	fn := &FuncExpr{Qualifier: qualifier, Name: name}
	if p.accept(')') {
		return fn, nil
	}
	if p.acceptKeyword("distinct") {
		fn.Distinct = true
	}
	exprs, err := p.parseSelectExprs()
	if err != nil {
		return nil, err
	}
	fn.Exprs = exprs
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return fn, nil
}

// parseColumnName parses an optionally qualified column reference.
func (p *parser) parseColumnName() (*ColName, error) {
	expr, err := p.parseColumnOrFunc()
	if err != nil {
		return nil, err
	}
	col, ok := expr.(*ColName)
	if !ok {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "syntax error: expecting column name, got %s", String(expr))
	}
	return col, nil
}

// isFuncKeyword returns true for reserved words that are
// also valid function names when followed by '('.
func isFuncKeyword(word string) bool {
	switch word {
	case "if", "left", "right", "replace", "mod", "insert", "convert":
		return true
	}
	return false
}

func isIdentToken(t token) bool {
	return t.typ == QUOTED_ID || t.typ == ID && !IsReserved(string(t.val))
}

// SplitStatementToPieces splits a blob that may contain multiple
// statements separated by semicolons into the text of each statement.
// Semicolons inside quoted strings and comments don't split.
func SplitStatementToPieces(blob string) (pieces []string, err error) {
	pieces = make([]string, 0, 16)
	tokenizer := NewStringTokenizer(blob)

	stmtBegin := 0
	for {
		typ, val := tokenizer.Scan()
		if typ == 0 {
			break
		}
		if typ == LEX_ERROR {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "syntax error at position %d near '%s'", tokenizer.Position, val)
		}
		if typ != ';' {
			continue
		}
		// Position is one past the character after the semicolon.
		stmtEnd := tokenizer.Position - 2
		if stmt := strings.TrimSpace(blob[stmtBegin:stmtEnd]); stmt != "" {
			pieces = append(pieces, stmt)
		}
		stmtBegin = stmtEnd + 1
	}
	if stmtBegin < len(blob) {
		if stmt := strings.TrimSpace(blob[stmtBegin:]); stmt != "" {
			pieces = append(pieces, stmt)
		}
	}
	return pieces, nil
}
