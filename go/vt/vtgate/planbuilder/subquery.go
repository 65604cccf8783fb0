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

package planbuilder

import (
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

var _ builder = (*subquery)(nil)

// subquery is a builder that wraps a subquery.
// This primitive wraps any subquery that results
// in something that's not a route. It builds a
// 'table' for the subquery allowing higher level
// constructs to reference its columns. If a subquery
// results in a route primitive, we instead build
// a new route that keeps the subquery in the FROM
// clause, because a route is more versatile than
// a subquery.
type subquery struct {
	order         int
	resultColumns []*resultColumn
	weightStrings map[int]int
	input         builder
	esubquery     *engine.Subquery
}

// newSubquery builds a new subquery.
func newSubquery(alias sqlparser.TableIdent, bldr builder) (*subquery, *symtab, error) {
	sq := &subquery{
		order:         bldr.Order() + 1,
		weightStrings: make(map[int]int),
		input:         bldr,
		esubquery:     &engine.Subquery{},
	}

	// Create a 'table' that represents the subquery.
	t := &table{
		alias:  sqlparser.TableName{Name: alias},
		origin: sq,
	}

	// Create column symbols based on the result column names.
	for _, rc := range bldr.ResultColumns() {
		if _, ok := t.columns[rc.alias.Lowered()]; ok {
			return nil, nil, vterrors.Errorf(vterrors.InvalidArgument, "duplicate column names in subquery: %s", sqlparser.String(rc.alias))
		}
		t.addColumn(rc.alias, &column{origin: sq, typ: rc.column.typ})
	}
	t.isAuthoritative = true
	st := newSymtab()
	// AddTable will not fail because symtab is empty.
	_ = st.AddTable(t)
	return sq, st, nil
}

// Order satisfies the builder interface.
func (sq *subquery) Order() int {
	return sq.order
}

// Reorder satisfies the builder interface.
func (sq *subquery) Reorder(order int) {
	sq.input.Reorder(order)
	sq.order = sq.input.Order() + 1
}

// Primitive satisfies the builder interface.
func (sq *subquery) Primitive() engine.Primitive {
	sq.esubquery.Subquery = sq.input.Primitive()
	return sq.esubquery
}

// First satisfies the builder interface.
func (sq *subquery) First() builder {
	return sq
}

// ResultColumns satisfies the builder interface.
func (sq *subquery) ResultColumns() []*resultColumn {
	return sq.resultColumns
}

// PushFilter satisfies the builder interface.
func (sq *subquery) PushFilter(_ *primitiveBuilder, _ sqlparser.Expr, whereType string, _ builder) error {
	return unsupportedf("filtering on results of cross-shard subquery")
}

// PushSelect satisfies the builder interface.
func (sq *subquery) PushSelect(_ *primitiveBuilder, expr *sqlparser.AliasedExpr, _ builder) (rc *resultColumn, colNumber int, err error) {
	col, ok := expr.Expr.(*sqlparser.ColName)
	if !ok {
		return nil, 0, unsupportedf("expression on results of a cross-shard subquery")
	}

	// colNumber should already be set for subquery columns.
	inner := col.Metadata.(*column).colNumber
	sq.esubquery.Cols = append(sq.esubquery.Cols, inner)

	// Build a new column reference to represent the result column.
	rc = newResultColumn(expr, sq)
	sq.resultColumns = append(sq.resultColumns, rc)

	return rc, len(sq.resultColumns) - 1, nil
}

// MakeDistinct satisfies the builder interface.
func (sq *subquery) MakeDistinct() error {
	return unsupportedf("distinct on cross-shard subquery")
}

// PushGroupBy satisfies the builder interface.
func (sq *subquery) PushGroupBy(groupBy sqlparser.GroupBy) error {
	if len(groupBy) == 0 {
		return nil
	}
	return unsupportedf("group by on cross-shard subquery")
}

// PushOrderBy satisfies the builder interface.
func (sq *subquery) PushOrderBy(orderBy sqlparser.OrderBy) (builder, error) {
	if len(orderBy) == 0 {
		return sq, nil
	}
	return newMemorySort(sq, orderBy)
}

// SetUpperLimit satisfies the builder interface.
// For now, the call is ignored.
func (sq *subquery) SetUpperLimit(_ *sqlparser.SQLVal) {
}

// PushMisc satisfies the builder interface.
func (sq *subquery) PushMisc(sel *sqlparser.Select) {
	sq.input.PushMisc(sel)
}

// Wireup satisfies the builder interface.
// The subquery is the root of its own tree: it can't
// reference columns of the outer query.
func (sq *subquery) Wireup(bldr builder, jt *jointab) error {
	return sq.input.Wireup(sq.input, jt)
}

// SupplyVar satisfies the builder interface.
func (sq *subquery) SupplyVar(from, to int, col *sqlparser.ColName, varname string) {
	if from <= sq.input.Order() {
		sq.input.SupplyVar(from, to, col, varname)
		return
	}
	// At this point, the only possibility is that the subquery
	// itself is the source, which can't supply vars.
	panicBug("subquery cannot supply vars")
}

// SupplyCol satisfies the builder interface.
func (sq *subquery) SupplyCol(col *sqlparser.ColName) (rc *resultColumn, colNumber int) {
	c := col.Metadata.(*column)
	for i, rc := range sq.resultColumns {
		if rc.column == c {
			return rc, i
		}
	}

	// columns that reference subqueries will have their colNumber set.
	// Let's use it here.
	sq.esubquery.Cols = append(sq.esubquery.Cols, c.colNumber)
	rc = &resultColumn{column: c}
	sq.resultColumns = append(sq.resultColumns, rc)
	return rc, len(sq.resultColumns) - 1
}

// SupplyWeightString satisfies the builder interface.
// The weight_string is requested from the input for the
// underlying column, and exposed as a new result column.
func (sq *subquery) SupplyWeightString(colNumber int) (weightcolNumber int, err error) {
	if weightcolNumber, ok := sq.weightStrings[colNumber]; ok {
		return weightcolNumber, nil
	}
	inner, err := sq.input.SupplyWeightString(sq.esubquery.Cols[colNumber])
	if err != nil {
		return 0, err
	}
	sq.esubquery.Cols = append(sq.esubquery.Cols, inner)
	sq.resultColumns = append(sq.resultColumns, &resultColumn{column: &column{origin: sq}})
	weightcolNumber = len(sq.resultColumns) - 1
	sq.weightStrings[colNumber] = weightcolNumber
	return weightcolNumber, nil
}
