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

// buildUpdatePlan builds the instructions for an UPDATE statement.
func buildUpdatePlan(upd *sqlparser.Update, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	eupd := &engine.Update{}
	pb := newPrimitiveBuilder(vschema, jt)
	rb, err := pb.processDMLTable(upd.TableExprs)
	if err != nil {
		return nil, err
	}
	eupd.Keyspace = rb.eroute.Keyspace
	if !eupd.Keyspace.Sharded {
		// We only validate non-table subexpressions because the previous analysis has already validated them.
		if err := pb.finalizeUnshardedDMLSubqueries(upd.Exprs, upd.Where, upd.OrderBy, upd.Limit); err != nil {
			return nil, err
		}
		eupd.Opcode = engine.Unsharded
		// Generate query after all the analysis. Otherwise table name substitutions
		// won't happen.
		eupd.Query = generateQuery(upd)
		return eupd, nil
	}

	if hasSubquery(upd) {
		return nil, unsupportedf("subqueries in sharded DML")
	}
	if eupd.Table, err = pb.dmlTable("update"); err != nil {
		return nil, err
	}
	if err := validateShardedDMLTable(rb, eupd.Table, "update"); err != nil {
		return nil, err
	}
	eupd.Query = generateQuery(upd)

	directives := sqlparser.ExtractCommentDirectives(upd.Comments)
	if directives.IsSet(sqlparser.DirectiveMultiShardAutocommit) {
		eupd.MultiShardAutocommit = true
	}
	eupd.QueryTimeout = queryTimeout(directives)

	eupd.Opcode, eupd.Vindex, eupd.Values = getDMLRouting(upd.Where, eupd.Table)
	if eupd.Opcode == engine.Scatter && upd.Limit != nil {
		return nil, unsupportedf("multi shard update with limit")
	}

	if eupd.ChangedVindexValues, err = buildChangedVindexesValues(upd, eupd.Table.ColumnVindexes); err != nil {
		return nil, err
	}
	if len(eupd.ChangedVindexValues) != 0 {
		eupd.OwnedVindexQuery = generateDMLSubquery(upd.Where, upd.OrderBy, upd.Limit, eupd.Table)
	}
	return eupd, nil
}

// buildChangedVindexesValues adds to the plan all the lookup vindexes that are changing.
// Updates can only be performed to secondary lookup vindexes with no complex expressions
// in the set clause.
func buildChangedVindexesValues(update *sqlparser.Update, colVindexes []*vindexes.ColumnVindex) (map[string][]sqltypes.PlanValue, error) {
	changedVindexes := make(map[string][]sqltypes.PlanValue)
	for i, vindex := range colVindexes {
		var vindexValues []sqltypes.PlanValue
		for _, vcol := range vindex.Columns {
			// Searching in order of columns in colvindex.
			found := false
			for _, assignment := range update.Exprs {
				if !vcol.Equal(assignment.Name.Name) {
					continue
				}
				if found {
					return nil, vterrors.Errorf(vterrors.InvalidArgument, "column has duplicate set values: '%v'", assignment.Name.Name)
				}
				found = true
				pv, err := extractValueFromUpdate(assignment)
				if err != nil {
					return nil, err
				}
				vindexValues = append(vindexValues, pv)
			}
		}
		if len(vindexValues) == 0 {
			// Vindex not changing, continue
			continue
		}
		if i == 0 {
			return nil, unsupportedf("You can't update primary vindex columns. Invalid update on vindex: %v", vindex.Name)
		}
		if len(vindexValues) != len(vindex.Columns) {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "update does not have values for all the columns in vindex (%s)", vindex.Name)
		}
		if update.Limit != nil && len(update.OrderBy) == 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "Need to provide order by clause when using limit. Invalid update on vindex: %v", vindex.Name)
		}
		if _, ok := vindex.Vindex.(vindexes.Lookup); !ok {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "You can only update lookup vindexes. Invalid update on vindex: %v", vindex.Name)
		}
		if !vindex.Owned {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "You can only update owned vindexes. Invalid update on vindex: %v", vindex.Name)
		}
		changedVindexes[vindex.Name] = vindexValues
	}
	return changedVindexes, nil
}

// extractValueFromUpdate given an UpdateExpr attempts to extracts the Value
// it's holding. At the moment it only supports: StrVal, HexVal, IntVal, ValArg.
// If a complex expression is provided (e.g set name = name + 1), the update will be rejected.
func extractValueFromUpdate(upd *sqlparser.UpdateExpr) (pv sqltypes.PlanValue, err error) {
	if !sqlparser.IsValue(upd.Expr) && !sqlparser.IsNull(upd.Expr) {
		return pv, vterrors.Errorf(vterrors.InvalidArgument, "only values are supported: invalid update on column: %v", upd.Name.Name)
	}
	return sqlparser.NewPlanValue(upd.Expr)
}
