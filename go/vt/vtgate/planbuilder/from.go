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
	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// This file has functions to analyze the FROM clause.

// binaryVindex is the vindex used to address pinned tables.
// It's the identity function for keyspace ids.
var binaryVindex vindexes.SingleColumn

func init() {
	vindex, _ := vindexes.NewBinary("binary", nil)
	binaryVindex = vindex.(vindexes.SingleColumn)
}

// processDMLTable analyzes the FROM clause for DMLs and returns a route.
func (pb *primitiveBuilder) processDMLTable(tableExprs sqlparser.TableExprs) (*route, error) {
	if err := pb.processTableExprs(tableExprs); err != nil {
		return nil, err
	}
	rb, ok := pb.bldr.(*route)
	if !ok {
		return nil, unsupportedf("multi-shard or vindex write statement")
	}
	for _, sub := range rb.substitutions {
		*sub.oldExpr = *sub.newExpr
	}
	return rb, nil
}

// processTableExprs analyzes the FROM clause. It produces a builder
// with all the routes identified.
func (pb *primitiveBuilder) processTableExprs(tableExprs sqlparser.TableExprs) error {
	if len(tableExprs) == 1 {
		return pb.processTableExpr(tableExprs[0])
	}

	if err := pb.processTableExpr(tableExprs[0]); err != nil {
		return err
	}
	rpb := newPrimitiveBuilder(pb.vschema, pb.jt)
	rpb.where = pb.where
	if err := rpb.processTableExprs(tableExprs[1:]); err != nil {
		return err
	}
	return pb.join(rpb, nil)
}

// processTableExpr produces a builder subtree for the given TableExpr.
func (pb *primitiveBuilder) processTableExpr(tableExpr sqlparser.TableExpr) error {
	switch tableExpr := tableExpr.(type) {
	case *sqlparser.AliasedTableExpr:
		return pb.processAliasedTable(tableExpr)
	case *sqlparser.ParenTableExpr:
		err := pb.processTableExprs(tableExpr.Exprs)
		// If it's a route, preserve the parenthesis so things
		// don't associate differently when more things are pushed
		// into it. FROM a, (b, c) should not become FROM a, b, c.
		if rb, ok := pb.bldr.(*route); ok {
			sel, ok := rb.Select.(*sqlparser.Select)
			if !ok {
				return bugf("unexpected SELECT type: %T", rb.Select)
			}
			sel.From = sqlparser.TableExprs{tableExpr}
		}
		return err
	case *sqlparser.JoinTableExpr:
		return pb.processJoin(tableExpr)
	}
	return bugf("unexpected table expression type: %T", tableExpr)
}

// processAliasedTable produces a builder subtree for the given AliasedTableExpr.
// If the expression is a subquery, then the primitive will create a table
// for it in the symtab. If the subquery is a route, then we build a route
// primitive with the subquery in the FROM clause, because a route is more
// versatile than a subquery. If a subquery becomes a route, then any result
// columns that represent underlying vindex columns are also exposed as
// vindex columns.
func (pb *primitiveBuilder) processAliasedTable(tableExpr *sqlparser.AliasedTableExpr) error {
	switch expr := tableExpr.Expr.(type) {
	case sqlparser.TableName:
		return pb.buildTablePrimitive(tableExpr, expr)
	case *sqlparser.Subquery:
		spb := newPrimitiveBuilder(pb.vschema, pb.jt)
		switch stmt := expr.Select.(type) {
		case *sqlparser.Select:
			if err := spb.processSelect(stmt, nil); err != nil {
				return err
			}
		case *sqlparser.Union:
			if err := spb.processUnion(stmt, nil); err != nil {
				return err
			}
		case *sqlparser.ParenSelect:
			if err := spb.processPart(stmt, nil); err != nil {
				return err
			}
		default:
			return bugf("unexpected SELECT type: %T", stmt)
		}

		subroute, ok := spb.bldr.(*route)
		if !ok {
			var err error
			pb.bldr, pb.st, err = newSubquery(tableExpr.As, spb.bldr)
			return err
		}

		// The subquery needs to be represented as a new logical table in the symtab.
		// The new route inherits the routing of the underlying subquery.
		// The vschema table built for it re-exposes the vindex columns of the
		// subquery under their aliases.
		vschemaTable := &vindexes.Table{
			Keyspace: subroute.eroute.Keyspace,
		}
		for _, rc := range subroute.ResultColumns() {
			if rc.column.typ != sqltypes.Null && !rc.alias.IsEmpty() {
				vschemaTable.Columns = append(vschemaTable.Columns, vindexes.Column{Name: rc.alias, Type: rc.column.typ})
			}
			if rc.column.vindex == nil {
				continue
			}
			// Check if a colvindex of the same name already exists.
			// Dups are not allowed in subqueries in this situation.
			for _, colVindex := range vschemaTable.ColumnVindexes {
				if colVindex.Columns[0].Equal(rc.alias) {
					return vterrors.Errorf(vterrors.InvalidArgument, "duplicate column aliases: %v", rc.alias)
				}
			}
			vschemaTable.ColumnVindexes = append(vschemaTable.ColumnVindexes, &vindexes.ColumnVindex{
				Columns: []sqlparser.ColIdent{rc.alias},
				Vindex:  rc.column.vindex,
			})
		}

		rb, st := newRoute(&sqlparser.Select{From: []sqlparser.TableExpr{tableExpr}}, subroute.eroute, subroute.condition)
		if err := st.AddVindexTable(sqlparser.TableName{Name: tableExpr.As}, vschemaTable, rb); err != nil {
			return err
		}
		rb.substitutions = subroute.substitutions
		rb.split = subroute.split
		subroute.Redirect = rb
		pb.bldr, pb.st = rb, st
		return nil
	}
	return bugf("unexpected table expression type: %T", tableExpr.Expr)
}

// buildTablePrimitive builds a primitive based on the table name.
func (pb *primitiveBuilder) buildTablePrimitive(tableExpr *sqlparser.AliasedTableExpr, tableName sqlparser.TableName) error {
	alias := tableName
	if !tableExpr.As.IsEmpty() {
		alias = sqlparser.TableName{Name: tableExpr.As}
	}
	sel := &sqlparser.Select{From: sqlparser.TableExprs([]sqlparser.TableExpr{tableExpr})}

	if systemTable(tableName.Qualifier.String()) {
		ks, err := pb.vschema.DefaultKeyspace()
		if err != nil {
			return err
		}
		rb, st := newRoute(sel, engine.NewSimpleRoute(engine.SelectDBA, ks), nil)
		pb.bldr, pb.st = rb, st
		return nil
	}

	vschemaTable, vindex, err := pb.vschema.FindTableOrVindex(tableName)
	if err != nil {
		return err
	}
	if vindex != nil {
		return unsupportedf("vindex %s used as a table", sqlparser.String(tableName))
	}

	var eroute *engine.Route
	var condition sqlparser.Expr
	switch {
	case vschemaTable.Type == vindexes.TypeSequence:
		eroute = engine.NewSimpleRoute(engine.SelectNext, vschemaTable.Keyspace)
	case vschemaTable.Type == vindexes.TypeReference:
		eroute = engine.NewSimpleRoute(engine.SelectReference, vschemaTable.Keyspace)
	case !vschemaTable.Keyspace.Sharded:
		eroute = engine.NewSimpleRoute(engine.SelectUnsharded, vschemaTable.Keyspace)
	case vschemaTable.Pinned == nil:
		eroute = engine.NewSimpleRoute(engine.SelectScatter, vschemaTable.Keyspace)
	default:
		// Pinned tables have their keyspace ids already assigned.
		// Use the Binary vindex, which is the identity function
		// for keyspace id.
		eroute = engine.NewSimpleRoute(engine.SelectEqualUnique, vschemaTable.Keyspace)
		eroute.Vindex = binaryVindex
		condition = pinnedKeyspaceID(vschemaTable)
	}
	eroute.TableName = vschemaTable.Name.String()

	rb, st := newRoute(sel, eroute, condition)
	if err := st.AddVindexTable(alias, vschemaTable, rb); err != nil {
		return err
	}

	// The physical name of the table may differ from the name used
	// in the query. If so, the name is substituted at wire-up time.
	if !vschemaTable.Name.IsEmpty() && vschemaTable.Name.String() != tableName.Name.String() {
		newExpr := &sqlparser.AliasedTableExpr{
			Expr:  sqlparser.TableName{Name: vschemaTable.Name},
			As:    alias.Name,
			Hints: tableExpr.Hints,
		}
		rb.substitutions = append(rb.substitutions, &tableSubstitution{newExpr: newExpr, oldExpr: tableExpr})
	}

	if vschemaTable.Split != nil {
		rb.split = newSplitTableRoute(vschemaTable)
	}
	pb.bldr, pb.st = rb, st
	return nil
}

// processJoin produces a builder subtree for the given Join.
// If the left and right nodes can be part of the same route,
// then it's a route. Otherwise, it's a join.
func (pb *primitiveBuilder) processJoin(ajoin *sqlparser.JoinTableExpr) error {
	switch ajoin.Join {
	case sqlparser.JoinStr, sqlparser.StraightJoinStr, sqlparser.LeftJoinStr:
	case sqlparser.RightJoinStr:
		convertToLeftJoin(ajoin)
	default:
		return unsupportedf("%s", ajoin.Join)
	}
	if err := pb.processTableExpr(ajoin.LeftExpr); err != nil {
		return err
	}
	rpb := newPrimitiveBuilder(pb.vschema, pb.jt)
	if err := rpb.processTableExpr(ajoin.RightExpr); err != nil {
		return err
	}
	return pb.join(rpb, ajoin)
}

// hasJoinEquality returns true if the ON clause of ajoin is absent,
// or if one of its conjuncts equates a column of lRoute with a
// column of rRoute.
func (pb *primitiveBuilder) hasJoinEquality(lRoute, rRoute *route, ajoin *sqlparser.JoinTableExpr) bool {
	if ajoin == nil || ajoin.Condition.On == nil {
		return true
	}
	for _, filter := range sqlparser.SplitAndExpression(nil, ajoin.Condition.On) {
		comparison, ok := filter.(*sqlparser.ComparisonExpr)
		if !ok || comparison.Operator != sqlparser.EqualStr {
			continue
		}
		left, ok := comparison.Left.(*sqlparser.ColName)
		if !ok {
			continue
		}
		right, ok := comparison.Right.(*sqlparser.ColName)
		if !ok {
			continue
		}
		lOrigin, _, err := pb.st.Find(left)
		if err != nil {
			continue
		}
		rOrigin, _, err := pb.st.Find(right)
		if err != nil {
			continue
		}
		if (lOrigin == lRoute && rOrigin == rRoute) || (lOrigin == rRoute && rOrigin == lRoute) {
			return true
		}
	}
	return false
}

// convertToLeftJoin converts a right join into a left join.
func convertToLeftJoin(ajoin *sqlparser.JoinTableExpr) {
	newRHS := ajoin.LeftExpr
	// If the LHS is a join, we have to parenthesize it.
	// Otherwise, it can be used as is.
	if _, ok := newRHS.(*sqlparser.JoinTableExpr); ok {
		newRHS = &sqlparser.ParenTableExpr{
			Exprs: sqlparser.TableExprs{newRHS},
		}
	}
	ajoin.LeftExpr, ajoin.RightExpr = ajoin.RightExpr, newRHS
	ajoin.Join = sqlparser.LeftJoinStr
}

// join combines the builder of rpb into pb. If both sides are
// routes that can be merged, the result is a single route.
// Otherwise, a join primitive is built.
func (pb *primitiveBuilder) join(rpb *primitiveBuilder, ajoin *sqlparser.JoinTableExpr) error {
	// Merge the symbol tables. In the case of a left join, we have to
	// ideally create new symbols that originate from the join primitive.
	// However, this is not worth it for now, because the Push functions
	// verify that only valid constructs are passed through in case of left join.
	if err := pb.st.Merge(rpb.st); err != nil {
		return err
	}

	lRoute, leftIsRoute := pb.bldr.(*route)
	rRoute, rightIsRoute := rpb.bldr.(*route)
	if !leftIsRoute || !rightIsRoute || !lRoute.JoinCanMerge(pb, rRoute, ajoin, pb.where) {
		if leftIsRoute && rightIsRoute && lRoute.isSharded() && rRoute.isSharded() && !pb.hasJoinEquality(lRoute, rRoute, ajoin) {
			return unsupportedf("cross-shard join with non-equality condition")
		}
		return newJoin(pb, rpb, ajoin)
	}

	if ajoin != nil && ajoin.Condition.Using != nil {
		return unsupportedf("join with USING(column_list) clause")
	}

	// Merge the AST.
	sel, ok := lRoute.Select.(*sqlparser.Select)
	if !ok {
		return bugf("unexpected SELECT type: %T", lRoute.Select)
	}
	if ajoin == nil {
		rhsSel, ok := rRoute.Select.(*sqlparser.Select)
		if !ok {
			return bugf("unexpected SELECT type: %T", rRoute.Select)
		}
		sel.From = append(sel.From, rhsSel.From...)
	} else {
		sel.From = sqlparser.TableExprs{ajoin}
		if ajoin.Join == sqlparser.LeftJoinStr {
			rpb.st.ClearVindexes()
		}
	}

	// If the lhs is a reference table, the merged route takes
	// over the routing of the rhs.
	if lRoute.eroute.Opcode == engine.SelectReference {
		lRoute.condition, rRoute.condition = rRoute.condition, lRoute.condition
		lRoute.eroute, rRoute.eroute = rRoute.eroute, lRoute.eroute
	}
	lRoute.substitutions = append(lRoute.substitutions, rRoute.substitutions...)
	rRoute.Redirect = lRoute
	// The merged tables now all originate from lRoute.
	pb.st.singleRoute = lRoute

	if ajoin == nil {
		return nil
	}
	pullouts, _, expr, err := pb.findOrigin(ajoin.Condition.On)
	if err != nil {
		return err
	}
	ajoin.Condition.On = expr
	pb.addPullouts(pullouts)
	if ajoin.Join == sqlparser.LeftJoinStr {
		// The ON clause of a left join does not restrict the rows
		// of the lhs. So, it cannot improve the routing.
		return nil
	}
	for _, filter := range sqlparser.SplitAndExpression(nil, ajoin.Condition.On) {
		lRoute.UpdatePlan(pb, filter)
	}
	return nil
}
