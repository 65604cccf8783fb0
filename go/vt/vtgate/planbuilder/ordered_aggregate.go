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
	"errors"
	"strconv"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

var _ builder = (*orderedAggregate)(nil)

// orderedAggregate is the builder for engine.OrderedAggregate.
// This gets built if there are aggregations on a SelectScatter
// route. The primitive requests the underlying route to order
// the results by the grouping columns. This will allow the
// engine code to aggregate the results as they come.
// For example: 'select col1, col2, count(*) from t group by col1, col2'
// will be sent to the scatter route as:
// 'select col1, col2, count(*) from t group by col1, col2 order by col1, col2`
// The orderAggregate primitive built for this will be:
//    &engine.OrderedAggregate {
//      // Aggregates has one column. It computes the count
//      // using column 2 of the underlying route.
//      Aggregates: []AggregateParams{{
//        Opcode: AggregateCount,
//        Col: 2,
//      }},
//
//      // Keys has the two group by values for col1 and col2.
//      // The column numbers are from the underlying route.
//      // These values will be used to perform the grouping
//      // of the ordered results as they come from the underlying
//      // route.
//      Keys: []int{0, 1},
//      Input: (Scatter Route with the order by request),
//    }
type orderedAggregate struct {
	resultsBuilder
	extraDistinct *sqlparser.ColName
	eaggr         *engine.OrderedAggregate
}

// checkAggregates analyzes the select expression for aggregates. If it determines
// that a primitive is needed to handle the aggregation, it builds an orderedAggregate
// primitive and makes it the current builder.
func (pb *primitiveBuilder) checkAggregates(sel *sqlparser.Select) error {
	rb, isRoute := pb.bldr.(*route)
	if isRoute && rb.isSingleShard() {
		return nil
	}

	// Check if we can allow aggregates.
	hasAggregates := false
	if sel.Distinct != "" {
		hasAggregates = true
	} else {
		hasAggregates = nodeHasAggregates(sel.SelectExprs)
	}
	if len(sel.GroupBy) > 0 {
		hasAggregates = true
	}
	if !hasAggregates {
		return nil
	}

	// The query has aggregates. We can proceed only
	// if the underlying primitive is a route because
	// we need the ability to push down group by and
	// order by clauses.
	if !isRoute {
		return unsupportedf("cross-shard query with aggregates")
	}

	// If there is a distinct clause, we can check the select list
	// to see if it has a unique vindex reference. For example,
	// if the query was 'select distinct id, col from t' (with id
	// as a unique vindex), then the distinct operation can be
	// safely pushed down because the unique vindex guarantees
	// that each id can only be in a single shard. Without the
	// unique vindex property, the id could come from multiple
	// shards, which will require us to perform the grouping
	// at the vtgate level.
	if sel.Distinct != "" {
		for _, selectExpr := range sel.SelectExprs {
			switch selectExpr := selectExpr.(type) {
			case *sqlparser.AliasedExpr:
				if pb.st.IsUnique(selectExpr.Expr, rb) {
					return nil
				}
			}
		}
	}

	// The group by clause could also reference a unique vindex. The above
	// example could itself have been written as
	// 'select id, col from t group by id, col', or a query could be like
	// 'select id, count(*) from t group by id'. In the above cases,
	// the grouping can be done at the shard level, which allows the entire query
	// to be pushed down. In order to perform this analysis, we're going to look
	// ahead at the group by clause to see if it references a unique vindex.
	if pb.groupByHasUniqueVindex(sel, rb) {
		return nil
	}

	// We need an aggregator primitive.
	oa := &orderedAggregate{}
	oa.resultsBuilder = newResultsBuilder(rb, oa)
	oa.eaggr = &engine.OrderedAggregate{}
	pb.bldr = oa
	return nil
}

// groupByHasUniqueVindex looks ahead at the group by expression to see if
// it references a unique vindex.
//
// The vitess parser allows group by to contain an expression, a number or
// an alias. However, the group by clause has not been analyzed yet.
// So, it checks each of these cases. An expression is matched against
// the select list, a number is looked up by position, and an alias is
// first searched in the select list.
func (pb *primitiveBuilder) groupByHasUniqueVindex(sel *sqlparser.Select, rb *route) bool {
	for _, expr := range sel.GroupBy {
		var matchedExpr sqlparser.Expr
		switch node := expr.(type) {
		case *sqlparser.ColName:
			if expr := findAlias(node, sel.SelectExprs); expr != nil {
				matchedExpr = expr
			} else {
				matchedExpr = node
			}
		case *sqlparser.SQLVal:
			if node.Type != sqlparser.IntVal {
				continue
			}
			num, err := strconv.ParseInt(string(node.Val), 0, 64)
			if err != nil {
				continue
			}
			if num < 1 || num > int64(len(sel.SelectExprs)) {
				continue
			}
			expr, ok := sel.SelectExprs[num-1].(*sqlparser.AliasedExpr)
			if !ok {
				continue
			}
			matchedExpr = expr.Expr
		default:
			continue
		}
		if pb.st.IsUnique(matchedExpr, rb) {
			return true
		}
	}
	return false
}

func findAlias(colname *sqlparser.ColName, selects sqlparser.SelectExprs) sqlparser.Expr {
	// Qualified column names cannot match an (unqualified) alias.
	if !colname.Qualifier.IsEmpty() {
		return nil
	}
	// See if this references an alias.
	for _, selectExpr := range selects {
		selectExpr, ok := selectExpr.(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		if colname.Name.Equal(selectExpr.As) {
			return selectExpr.Expr
		}
	}
	return nil
}

func nodeHasAggregates(node sqlparser.SQLNode) bool {
	hasAggregates := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (kontinue bool, err error) {
		switch node := node.(type) {
		case *sqlparser.FuncExpr:
			if node.IsAggregate() {
				hasAggregates = true
				return false, errors.New("dummy")
			}
		case *sqlparser.GroupConcatExpr:
			hasAggregates = true
			return false, errors.New("dummy")
		case *sqlparser.Subquery:
			// Subqueries are analyzed by themselves.
			return false, nil
		}
		return true, nil
	}, node)
	return hasAggregates
}

// Primitive satisfies the builder interface.
func (oa *orderedAggregate) Primitive() engine.Primitive {
	oa.eaggr.Input = oa.input.Primitive()
	return oa.eaggr
}

// SetTruncateColumnCount satisfies the truncater interface.
func (oa *orderedAggregate) SetTruncateColumnCount(count int) {
	oa.eaggr.TruncateColumnCount = count
}

// PushFilter satisfies the builder interface.
func (oa *orderedAggregate) PushFilter(_ *primitiveBuilder, _ sqlparser.Expr, whereType string, _ builder) error {
	return unsupportedf("filtering on results of aggregates")
}

// PushSelect satisfies the builder interface.
func (oa *orderedAggregate) PushSelect(pb *primitiveBuilder, expr *sqlparser.AliasedExpr, origin builder) (rc *resultColumn, colNumber int, err error) {
	if inner, ok := expr.Expr.(*sqlparser.FuncExpr); ok {
		if _, ok := engine.SupportedAggregates[inner.Name.Lowered()]; ok {
			return oa.pushAggr(pb, expr, origin)
		}
	}

	// Ensure that there are no aggregates in the expression.
	if nodeHasAggregates(expr.Expr) {
		return nil, 0, unsupportedf("in scatter query: complex aggregate expression")
	}

	innerRC, _, err := oa.input.PushSelect(pb, expr, origin)
	if err != nil {
		return nil, 0, err
	}
	oa.resultColumns = append(oa.resultColumns, innerRC)
	return innerRC, len(oa.resultColumns) - 1, nil
}

func (oa *orderedAggregate) pushAggr(pb *primitiveBuilder, expr *sqlparser.AliasedExpr, origin builder) (rc *resultColumn, colNumber int, err error) {
	funcExpr := expr.Expr.(*sqlparser.FuncExpr)
	opcode := engine.SupportedAggregates[funcExpr.Name.Lowered()]
	if len(funcExpr.Exprs) != 1 {
		return nil, 0, unsupportedf("only one expression allowed inside aggregates: %s", sqlparser.String(funcExpr))
	}
	handleDistinct, innerAliased, err := oa.needDistinctHandling(pb, funcExpr, opcode)
	if err != nil {
		return nil, 0, err
	}
	if handleDistinct {
		if oa.extraDistinct != nil {
			return nil, 0, unsupportedf("only one distinct aggregation allowed in a select: %s", sqlparser.String(funcExpr))
		}
		// Push the expression that's inside the aggregate.
		// The column will eventually get added to the group by and order by clauses.
		_, innerCol, err := oa.input.PushSelect(pb, innerAliased, origin)
		if err != nil {
			return nil, 0, err
		}
		col, err := BuildColName(oa.input.ResultColumns(), innerCol)
		if err != nil {
			return nil, 0, err
		}
		oa.extraDistinct = col
		oa.eaggr.HasDistinct = true
		var alias string
		if expr.As.IsEmpty() {
			alias = sqlparser.String(funcExpr)
		} else {
			alias = expr.As.String()
		}
		switch opcode {
		case engine.AggregateCount:
			opcode = engine.AggregateCountDistinct
		case engine.AggregateSum:
			opcode = engine.AggregateSumDistinct
		}
		oa.eaggr.Aggregates = append(oa.eaggr.Aggregates, engine.AggregateParams{
			Opcode: opcode,
			Col:    innerCol,
			Alias:  alias,
		})
	} else {
		_, innerCol, err := oa.input.PushSelect(pb, expr, origin)
		if err != nil {
			return nil, 0, err
		}
		oa.eaggr.Aggregates = append(oa.eaggr.Aggregates, engine.AggregateParams{
			Opcode: opcode,
			Col:    innerCol,
		})
	}

	// Build a new rc with oa as origin because it's semantically different
	// from the expression we pushed down.
	rc = newResultColumn(expr, oa)
	oa.resultColumns = append(oa.resultColumns, rc)
	return rc, len(oa.resultColumns) - 1, nil
}

// needDistinctHandling returns true if oa needs to handle the distinct clause.
// If true, it will also return the aliased expression that needs to be pushed
// down into the underlying route.
func (oa *orderedAggregate) needDistinctHandling(pb *primitiveBuilder, funcExpr *sqlparser.FuncExpr, opcode engine.AggregateOpcode) (bool, *sqlparser.AliasedExpr, error) {
	if !funcExpr.Distinct {
		return false, nil, nil
	}
	if opcode != engine.AggregateCount && opcode != engine.AggregateSum {
		return false, nil, nil
	}
	innerAliased, ok := funcExpr.Exprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return false, nil, vterrors.Errorf(vterrors.InvalidArgument, "syntax error: %s", sqlparser.String(funcExpr))
	}
	rb, ok := oa.input.(*route)
	if !ok {
		// Unreachable
		return true, innerAliased, nil
	}
	if pb.st.IsUnique(innerAliased.Expr, rb) {
		return false, nil, nil
	}
	return true, innerAliased, nil
}

// MakeDistinct satisfies the builder interface.
func (oa *orderedAggregate) MakeDistinct() error {
	for i, rc := range oa.resultColumns {
		// If the column origin is oa (and not the underlying route),
		// it means that it's an aggregate function supplied by oa.
		// So, the distinct 'operator' cannot be pushed down into the
		// route.
		if rc.column.Origin() == oa {
			return unsupportedf("distinct cannot be combined with aggregate functions")
		}
		oa.eaggr.Keys = append(oa.eaggr.Keys, i)
	}
	return oa.input.MakeDistinct()
}

// PushGroupBy satisfies the builder interface.
func (oa *orderedAggregate) PushGroupBy(groupBy sqlparser.GroupBy) error {
	for _, expr := range groupBy {
		colNumber := -1
		switch node := expr.(type) {
		case *sqlparser.ColName:
			c := node.Metadata.(*column)
			if c.Origin() == oa {
				return vterrors.Errorf(vterrors.InvalidArgument, "group by expression cannot reference an aggregate function: %v", sqlparser.String(node))
			}
			for i, rc := range oa.resultColumns {
				if rc.column == c {
					colNumber = i
					break
				}
			}
			if colNumber == -1 {
				return unsupportedf("in scatter query: group by column must reference column in SELECT list")
			}
		case *sqlparser.SQLVal:
			num, err := ResultFromNumber(oa.resultColumns, node)
			if err != nil {
				return err
			}
			colNumber = num
		default:
			return unsupportedf("in scatter query: only simple references allowed")
		}
		oa.eaggr.Keys = append(oa.eaggr.Keys, colNumber)
	}
	// Append the distinct aggregate if any.
	if oa.extraDistinct != nil {
		groupBy = append(groupBy, oa.extraDistinct)
	}

	return oa.input.PushGroupBy(groupBy)
}

// PushOrderBy pushes the order by expression into the primitive.
// The requested order must be such that the ordering can be done
// before the group by, which will allow us to push it down to the
// route. This is actually true in most use cases, except for situations
// where ordering is requested on values of an aggregate result.
// Such constructs are not supported. Ordering on a column that is not
// a grouping key is performed by a memory sort above the aggregate.
func (oa *orderedAggregate) PushOrderBy(orderBy sqlparser.OrderBy) (builder, error) {
	if len(orderBy) == 1 {
		if _, ok := orderBy[0].Expr.(*sqlparser.NullVal); ok {
			// ignore.
			return oa, nil
		}
	}

	// referenced tracks the keys referenced by the order by clause.
	referenced := make([]bool, len(oa.eaggr.Keys))
	postSort := false
	selOrderBy := make(sqlparser.OrderBy, 0, len(orderBy))
	for _, order := range orderBy {
		// Identify the order by column.
		var orderByCol *column
		switch expr := order.Expr.(type) {
		case *sqlparser.SQLVal:
			num, err := ResultFromNumber(oa.resultColumns, expr)
			if err != nil {
				return nil, err
			}
			orderByCol = oa.resultColumns[num].column
		case *sqlparser.ColName:
			orderByCol = expr.Metadata.(*column)
		default:
			return nil, unsupportedf("in scatter query: complex order by expression: %v", sqlparser.String(expr))
		}
		if orderByCol.Origin() == oa {
			return nil, unsupportedf("in scatter query: order by on an aggregate function: %v", sqlparser.String(order))
		}

		// Match orderByCol against the group by columns.
		found := false
		for j, key := range oa.eaggr.Keys {
			if oa.resultColumns[key].column != orderByCol {
				continue
			}

			found = true
			referenced[j] = true
			selOrderBy = append(selOrderBy, order)
			break
		}
		if !found {
			postSort = true
		}
	}

	// Append any unreferenced keys at the end of the order by.
	for i, key := range oa.eaggr.Keys {
		if referenced[i] {
			continue
		}
		// Build a brand new reference for the key.
		col, err := BuildColName(oa.input.ResultColumns(), key)
		if err != nil {
			return nil, vterrors.Wrapf(err, "generating order by clause")
		}
		selOrderBy = append(selOrderBy, &sqlparser.Order{Expr: col, Direction: sqlparser.AscScr})
	}

	// Append the distinct aggregate if any.
	if oa.extraDistinct != nil {
		selOrderBy = append(selOrderBy, &sqlparser.Order{Expr: oa.extraDistinct, Direction: sqlparser.AscScr})
	}

	// Push down the order by.
	// It's ok to push the original AST down because all references
	// should point to the route. Only aggregate functions are originated
	// by oa, and we don't allow the ORDER BY to reference them.
	bldr, err := oa.input.PushOrderBy(selOrderBy)
	if err != nil {
		return nil, err
	}
	oa.input = bldr
	if postSort {
		return newMemorySort(oa, orderBy)
	}
	return oa, nil
}

// SetUpperLimit satisfies the builder interface.
// The limit applies to the groups, not to the rows returned
// by the input. So, it can't be pushed down.
func (oa *orderedAggregate) SetUpperLimit(_ *sqlparser.SQLVal) {
}

// Wireup satisfies the builder interface.
// If text columns are detected in the keys, then the function modifies
// the primitive to pull a corresponding weight_string from mysql and
// compare those instead. This is because we currently don't have the
// ability to mimic mysql's collation behavior.
func (oa *orderedAggregate) Wireup(bldr builder, jt *jointab) error {
	for i, colNumber := range oa.eaggr.Keys {
		rc := oa.resultColumns[colNumber]
		if sqltypes.IsText(rc.column.typ) {
			weightcolNumber, err := oa.weightString(colNumber)
			if err != nil {
				return err
			}
			oa.eaggr.Keys[i] = weightcolNumber
		}
	}
	return oa.input.Wireup(bldr, jt)
}
