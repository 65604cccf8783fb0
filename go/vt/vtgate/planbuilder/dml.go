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
	"encoding/hex"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// This file has the functions shared by the insert, update
// and delete planners.

// dmlTable returns the vschema table of the only table of the DML.
func (pb *primitiveBuilder) dmlTable(stmtType string) (*vindexes.Table, error) {
	if len(pb.st.tables) != 1 {
		return nil, unsupportedf("multi-table %s statement in sharded keyspace", stmtType)
	}
	var vschemaTable *vindexes.Table
	for _, t := range pb.st.tables {
		// There is only one table.
		vschemaTable = t.vindexTable
	}
	if vschemaTable == nil {
		return nil, unsupportedf("%s on a derived table", stmtType)
	}
	return vschemaTable, nil
}

// validateShardedDMLTable verifies that rows of the table can be
// located through its vindexes.
func validateShardedDMLTable(rb *route, vschemaTable *vindexes.Table, stmtType string) error {
	switch {
	case rb.eroute.Opcode == engine.SelectDBA:
		return unsupportedf("%s on a system table", stmtType)
	case vschemaTable.Type == vindexes.TypeReference:
		return unsupportedf("%s on a reference table in a sharded keyspace", stmtType)
	case vschemaTable.Type == vindexes.TypeSequence:
		return unsupportedf("%s on a sequence table", stmtType)
	case vschemaTable.Split != nil:
		return unsupportedf("%s on a split table", stmtType)
	case vschemaTable.Pinned == nil && len(vschemaTable.ColumnVindexes) == 0:
		return vterrors.Errorf(vterrors.FailedPrecondition, "table '%s' does not have a primary vindex", vschemaTable.Name)
	}
	return nil
}

// getDMLRouting returns the vindex and values for the DML,
// if the WHERE clause pins a unique vindex to a value. If not,
// the DML is a scatter.
func getDMLRouting(where *sqlparser.Where, table *vindexes.Table) (engine.DMLOpcode, vindexes.SingleColumn, []sqltypes.PlanValue) {
	if table.Pinned != nil {
		return engine.Equal, binaryVindex, []sqltypes.PlanValue{{Value: sqltypes.MakeTrusted(sqltypes.VarBinary, table.Pinned)}}
	}
	if where == nil {
		return engine.Scatter, nil, nil
	}
	for _, index := range table.Ordered {
		if !index.Vindex.IsUnique() {
			continue
		}
		single, ok := index.Vindex.(vindexes.SingleColumn)
		if !ok {
			continue
		}
		if pv, ok := getMatch(where.Expr, index.Columns[0]); ok {
			return engine.Equal, single, []sqltypes.PlanValue{pv}
		}
	}
	return engine.Scatter, nil, nil
}

// getMatch returns the value the column is compared with for
// equality, if one of the top level AND conditions does that.
func getMatch(node sqlparser.Expr, col sqlparser.ColIdent) (pv sqltypes.PlanValue, ok bool) {
	for _, filter := range sqlparser.SplitAndExpression(nil, node) {
		for {
			paren, ok := filter.(*sqlparser.ParenExpr)
			if !ok {
				break
			}
			filter = paren.Expr
		}
		comparison, ok := filter.(*sqlparser.ComparisonExpr)
		if !ok || comparison.Operator != sqlparser.EqualStr {
			continue
		}
		left, right := comparison.Left, comparison.Right
		if !nameMatch(left, col) {
			left, right = right, left
		}
		if !nameMatch(left, col) || !sqlparser.IsValue(right) {
			continue
		}
		pv, err := sqlparser.NewPlanValue(right)
		if err != nil {
			continue
		}
		return pv, true
	}
	return sqltypes.PlanValue{}, false
}

func nameMatch(node sqlparser.Expr, col sqlparser.ColIdent) bool {
	colname, ok := node.(*sqlparser.ColName)
	return ok && colname.Name.Equal(col)
}

// generateQuery generates the query of a DML.
func generateQuery(statement sqlparser.SQLNode) string {
	buf := sqlparser.NewTrackedBuffer(dmlFormatter)
	statement.Format(buf)
	return buf.String()
}

// dmlFormatter strips out keyspace name from dmls.
func dmlFormatter(buf *sqlparser.TrackedBuffer, node sqlparser.SQLNode) {
	switch node := node.(type) {
	case sqlparser.TableName:
		if !systemTable(node.Qualifier.String()) {
			node.Name.Format(buf)
			return
		}
	}
	node.Format(buf)
}

// generateDMLSubquery generates the query that fetches the keyspace
// id column and the columns of the owned vindexes of the rows
// affected by a DML. It returns an empty string if the table
// doesn't own any vindex.
func generateDMLSubquery(where *sqlparser.Where, orderBy sqlparser.OrderBy, limit *sqlparser.Limit, table *vindexes.Table) string {
	if len(table.Owned) == 0 || len(table.ColumnVindexes) == 0 {
		return ""
	}
	buf := sqlparser.NewTrackedBuffer(dmlFormatter)
	for idx, col := range table.ColumnVindexes[0].Columns {
		if idx == 0 {
			buf.Myprintf("select %v", col)
		} else {
			buf.Myprintf(", %v", col)
		}
	}
	for _, cv := range table.Owned {
		for _, column := range cv.Columns {
			buf.Myprintf(", %v", column)
		}
	}
	buf.Myprintf(" from %v%v%v%v for update", table.Name, where, orderBy, limit)
	return buf.String()
}

// finalizeUnshardedDMLSubqueries verifies that the subqueries of
// an unsharded DML can be sent along with it: they must all be
// routes of the same keyspace. The table substitutions of the
// subqueries are applied.
func (pb *primitiveBuilder) finalizeUnshardedDMLSubqueries(nodes ...sqlparser.SQLNode) error {
	rb, ok := pb.bldr.(*route)
	if !ok {
		return bugf("unsharded DML is not a route")
	}
	keyspace := rb.eroute.Keyspace.Name
	for _, node := range nodes {
		err := sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
			sq, ok := node.(*sqlparser.Subquery)
			if !ok {
				return true, nil
			}
			return false, pb.finalizeUnshardedPart(sq.Select, keyspace)
		}, node)
		if err != nil {
			return err
		}
	}
	return nil
}

func (pb *primitiveBuilder) finalizeUnshardedPart(part sqlparser.SelectStatement, keyspace string) error {
	spb := newPrimitiveBuilder(pb.vschema, pb.jt)
	if err := spb.processPart(part, pb.st); err != nil {
		return err
	}
	innerRoute, ok := spb.bldr.(*route)
	if !ok || innerRoute.eroute.Keyspace.Name != keyspace {
		return unsupportedf("sharded subqueries in DML")
	}
	for _, sub := range innerRoute.substitutions {
		*sub.oldExpr = *sub.newExpr
	}
	return nil
}

// pinnedKeyspaceID returns the keyspace id of a pinned table as
// an expression.
func pinnedKeyspaceID(table *vindexes.Table) sqlparser.Expr {
	return sqlparser.NewHexVal([]byte(hex.EncodeToString(table.Pinned)))
}
