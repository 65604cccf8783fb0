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
	"fmt"
	"strconv"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// buildInsertPlan builds the route for an INSERT statement.
func buildInsertPlan(ins *sqlparser.Insert, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	pb := newPrimitiveBuilder(vschema, jt)
	exprs := sqlparser.TableExprs{&sqlparser.AliasedTableExpr{Expr: ins.Table}}
	rb, err := pb.processDMLTable(exprs)
	if err != nil {
		return nil, err
	}
	// The table might have been substituted with a different one.
	ins.Table = exprs[0].(*sqlparser.AliasedTableExpr).Expr.(sqlparser.TableName)
	if rb.eroute.Opcode == engine.SelectDBA {
		return nil, unsupportedf("insert on a system table")
	}
	vschemaTable, err := pb.dmlTable("insert")
	if err != nil {
		return nil, err
	}
	if !rb.eroute.Keyspace.Sharded {
		if err := pb.finalizeUnshardedInsertRows(ins); err != nil {
			return nil, err
		}
		return buildInsertUnshardedPlan(ins, vschemaTable)
	}
	if ins.Action == sqlparser.ReplaceStr {
		return nil, unsupportedf("REPLACE INTO with sharded schema")
	}
	if err := validateShardedDMLTable(rb, vschemaTable, "insert"); err != nil {
		return nil, err
	}
	return buildInsertShardedPlan(ins, vschemaTable)
}

// finalizeUnshardedInsertRows verifies that a SELECT feeding the
// rows, or the subqueries of the VALUES, stay in the keyspace of
// the insert.
func (pb *primitiveBuilder) finalizeUnshardedInsertRows(ins *sqlparser.Insert) error {
	rb := pb.bldr.(*route)
	switch rows := ins.Rows.(type) {
	case *sqlparser.Select:
		return pb.finalizeUnshardedPart(rows, rb.eroute.Keyspace.Name)
	case *sqlparser.Union:
		return pb.finalizeUnshardedPart(rows, rb.eroute.Keyspace.Name)
	case *sqlparser.ParenSelect:
		return pb.finalizeUnshardedPart(rows, rb.eroute.Keyspace.Name)
	case sqlparser.Values:
		return pb.finalizeUnshardedDMLSubqueries(rows, ins.OnDup)
	}
	return bugf("unexpected construct in insert: %T", ins.Rows)
}

func buildInsertUnshardedPlan(ins *sqlparser.Insert, table *vindexes.Table) (*engine.Insert, error) {
	eins := &engine.Insert{
		Opcode:   engine.InsertUnsharded,
		Table:    table,
		Keyspace: table.Keyspace,
	}
	var rows sqlparser.Values
	switch insertValues := ins.Rows.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		if eins.Table.AutoIncrement != nil {
			return nil, unsupportedf("auto-inc and select in insert")
		}
		eins.Query = generateQuery(ins)
		return eins, nil
	case sqlparser.Values:
		rows = insertValues
	default:
		return nil, bugf("unexpected construct in insert: %T", insertValues)
	}
	if eins.Table.AutoIncrement == nil {
		eins.Query = generateQuery(ins)
		return eins, nil
	}

	// Table has auto-inc and has a VALUES clause.
	if len(ins.Columns) == 0 {
		if !table.ColumnListAuthoritative {
			return nil, vterrors.New(vterrors.InvalidArgument, "column list required for tables with auto-inc columns")
		}
		populateInsertColumnlist(ins, table)
	}
	for _, row := range rows {
		if len(ins.Columns) != len(row) {
			return nil, vterrors.New(vterrors.InvalidArgument, "column list doesn't match values")
		}
	}
	if err := modifyForAutoinc(ins, eins); err != nil {
		return nil, err
	}
	eins.Query = generateQuery(ins)
	return eins, nil
}

func buildInsertShardedPlan(ins *sqlparser.Insert, table *vindexes.Table) (*engine.Insert, error) {
	eins := &engine.Insert{
		Opcode:   engine.InsertSharded,
		Table:    table,
		Keyspace: table.Keyspace,
	}
	if len(table.ColumnVindexes) == 0 {
		return nil, vterrors.Errorf(vterrors.FailedPrecondition, "table '%s' does not have a primary vindex", table.Name)
	}
	if ins.Ignore != "" {
		eins.Opcode = engine.InsertShardedIgnore
	}
	if ins.OnDup != nil {
		if isVindexChanging(sqlparser.UpdateExprs(ins.OnDup), eins.Table.ColumnVindexes) {
			return nil, unsupportedf("DML cannot change vindex column")
		}
		eins.Opcode = engine.InsertShardedIgnore
	}
	if len(ins.Columns) == 0 && table.ColumnListAuthoritative {
		populateInsertColumnlist(ins, table)
	}

	directives := sqlparser.ExtractCommentDirectives(ins.Comments)
	if directives.IsSet(sqlparser.DirectiveMultiShardAutocommit) {
		eins.MultiShardAutocommit = true
	}

	var rows sqlparser.Values
	switch insertValues := ins.Rows.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return nil, unsupportedf("insert into select")
	case sqlparser.Values:
		rows = insertValues
		if hasSubquery(rows) {
			return nil, unsupportedf("subquery in insert values")
		}
	default:
		return nil, bugf("unexpected construct in insert: %T", insertValues)
	}
	for _, value := range rows {
		if len(ins.Columns) != len(value) {
			return nil, vterrors.New(vterrors.InvalidArgument, "column list doesn't match values")
		}
	}

	if eins.Table.AutoIncrement != nil {
		if err := modifyForAutoinc(ins, eins); err != nil {
			return nil, err
		}
	}

	// Fill out the 3-d Values structure: the values of each
	// column of each vindex, for every row.
	routeValues := make([]sqltypes.PlanValue, len(eins.Table.ColumnVindexes))
	for vIdx, colVindex := range eins.Table.ColumnVindexes {
		routeValues[vIdx].Values = make([]sqltypes.PlanValue, len(colVindex.Columns))
		for colIdx, col := range colVindex.Columns {
			routeValues[vIdx].Values[colIdx].Values = make([]sqltypes.PlanValue, len(rows))
			colNum := findOrAddColumn(ins, col)
			for rowNum, row := range rows {
				innerpv, err := sqlparser.NewPlanValue(row[colNum])
				if err != nil {
					return nil, vterrors.Wrapf(err, "could not compute value for vindex or auto-inc column")
				}
				routeValues[vIdx].Values[colIdx].Values[rowNum] = innerpv
			}
		}
	}
	for _, colVindex := range eins.Table.ColumnVindexes {
		for _, col := range colVindex.Columns {
			colNum := findOrAddColumn(ins, col)
			for rowNum, row := range rows {
				name := ":" + engine.InsertVarName(col, rowNum)
				row[colNum] = sqlparser.NewValArg([]byte(name))
			}
		}
	}
	eins.VindexValues = routeValues
	eins.Query = generateQuery(ins)
	generateInsertShardedQuery(ins, eins, rows)
	return eins, nil
}

// generateInsertShardedQuery splits the query of a sharded insert
// into a prefix, one value tuple per row, and a suffix. The rows
// are regrouped per shard at execution time.
func generateInsertShardedQuery(node *sqlparser.Insert, eins *engine.Insert, valueTuples sqlparser.Values) {
	prefixBuf := sqlparser.NewTrackedBuffer(dmlFormatter)
	prefixBuf.Myprintf("insert %v%sinto %v%v values ",
		node.Comments, node.Ignore,
		node.Table, node.Columns)
	eins.Prefix = prefixBuf.String()
	eins.Mid = make([]string, len(valueTuples))
	for rowNum, val := range valueTuples {
		midBuf := sqlparser.NewTrackedBuffer(dmlFormatter)
		midBuf.Myprintf("%v", val)
		eins.Mid[rowNum] = midBuf.String()
	}
	suffixBuf := sqlparser.NewTrackedBuffer(dmlFormatter)
	suffixBuf.Myprintf("%v", node.OnDup)
	eins.Suffix = suffixBuf.String()
}

// modifyForAutoinc modifies the AST and the plan to generate
// necessary autoinc values. It must be called only if eins.Table.AutoIncrement
// is set.
func modifyForAutoinc(ins *sqlparser.Insert, eins *engine.Insert) error {
	colNum := findOrAddColumn(ins, eins.Table.AutoIncrement.Column)
	autoIncValues := sqltypes.PlanValue{}
	for rowNum, row := range ins.Rows.(sqlparser.Values) {
		// Support the DEFAULT keyword by treating it as null
		if _, ok := row[colNum].(*sqlparser.Default); ok {
			row[colNum] = &sqlparser.NullVal{}
		}
		pv, err := sqlparser.NewPlanValue(row[colNum])
		if err != nil {
			return vterrors.Wrapf(err, "could not compute value for vindex or auto-inc column")
		}
		autoIncValues.Values = append(autoIncValues.Values, pv)
		row[colNum] = sqlparser.NewValArg([]byte(":" + engine.SeqVarName + strconv.Itoa(rowNum)))
	}

	eins.Generate = &engine.Generate{
		Keyspace: eins.Table.AutoIncrement.Sequence.Keyspace,
		Query:    fmt.Sprintf("select next :n values from %s", sqlparser.String(eins.Table.AutoIncrement.Sequence.Name)),
		Values:   autoIncValues,
	}
	return nil
}

// findOrAddColumn finds the position of a column in the insert. If it's
// absent, it's appended to the column list with NULL values,
// and that position is returned.
func findOrAddColumn(ins *sqlparser.Insert, col sqlparser.ColIdent) int {
	colNum := ins.Columns.FindColumn(col)
	if colNum >= 0 {
		return colNum
	}
	colOffset := len(ins.Columns)
	ins.Columns = append(ins.Columns, col)
	if rows, ok := ins.Rows.(sqlparser.Values); ok {
		for i := range rows {
			rows[i] = append(rows[i], &sqlparser.NullVal{})
		}
	}
	return colOffset
}

// populateInsertColumnlist sets the column list of an insert to
// the authoritative column list of the table.
func populateInsertColumnlist(ins *sqlparser.Insert, table *vindexes.Table) {
	cols := make(sqlparser.Columns, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, c.Name)
	}
	ins.Columns = cols
}

// isVindexChanging returns true if any of the update
// expressions modify a vindex column.
func isVindexChanging(setClauses sqlparser.UpdateExprs, colVindexes []*vindexes.ColumnVindex) bool {
	for _, assignment := range setClauses {
		for _, vcol := range colVindexes {
			for _, col := range vcol.Columns {
				if !col.Equal(assignment.Name.Name) {
					continue
				}
				valueExpr, isValuesFuncExpr := assignment.Expr.(*sqlparser.ValuesFuncExpr)
				if !isValuesFuncExpr {
					return true
				}
				// update on duplicate key is changing the vindex column, not supported.
				if !valueExpr.Name.Name.Equal(assignment.Name.Name) {
					return true
				}
			}
		}
	}
	return false
}
