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
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

// buildDeletePlan builds the instructions for a DELETE statement.
func buildDeletePlan(del *sqlparser.Delete, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	edel := &engine.Delete{}
	pb := newPrimitiveBuilder(vschema, jt)
	rb, err := pb.processDMLTable(del.TableExprs)
	if err != nil {
		return nil, err
	}
	edel.Keyspace = rb.eroute.Keyspace
	if !edel.Keyspace.Sharded {
		// We only validate non-table subexpressions because the previous analysis has already validated them.
		if err := pb.finalizeUnshardedDMLSubqueries(del.Targets, del.Where, del.OrderBy, del.Limit); err != nil {
			return nil, err
		}
		edel.Opcode = engine.Unsharded
		// Generate query after all the analysis. Otherwise table name substitutions
		// won't happen.
		edel.Query = generateQuery(del)
		return edel, nil
	}
	if del.Targets != nil {
		return nil, unsupportedf("multi-table delete statement in sharded keyspace")
	}
	if hasSubquery(del) {
		return nil, unsupportedf("subqueries in sharded DML")
	}
	if edel.Table, err = pb.dmlTable("delete"); err != nil {
		return nil, err
	}
	if err := validateShardedDMLTable(rb, edel.Table, "delete"); err != nil {
		return nil, err
	}
	edel.Query = generateQuery(del)

	directives := sqlparser.ExtractCommentDirectives(del.Comments)
	if directives.IsSet(sqlparser.DirectiveMultiShardAutocommit) {
		edel.MultiShardAutocommit = true
	}
	edel.QueryTimeout = queryTimeout(directives)

	edel.Opcode, edel.Vindex, edel.Values = getDMLRouting(del.Where, edel.Table)
	if edel.Opcode == engine.Scatter && del.Limit != nil {
		return nil, unsupportedf("multi shard delete with limit")
	}
	edel.OwnedVindexQuery = generateDMLSubquery(del.Where, del.OrderBy, del.Limit, edel.Table)
	return edel, nil
}
