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
	"time"

	"github.com/google/uuid"

	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// builder defines the interface that a primitive must
// satisfy.
type builder interface {
	// Order is the execution order of the primitive. If there are subprimitives,
	// the order is one above the order of the subprimitives.
	// This is because the primitive executes its subprimitives first and
	// processes their results to generate its own values.
	// Please copy code from an existing primitive to define this function.
	Order() int

	// Reorder reassigns order for the primitive and its sub-primitives.
	// The input is the order of the previous primitive that should
	// execute before this one.
	Reorder(int)

	// First returns the first builder of the tree,
	// which is usually the left most.
	First() builder

	// ResultColumns returns the list of result columns the
	// primitive returns.
	// Please copy code from an existing primitive to define this function.
	ResultColumns() []*resultColumn

	// PushFilter pushes a WHERE or HAVING clause expression
	// to the specified origin.
	PushFilter(pb *primitiveBuilder, filter sqlparser.Expr, whereType string, origin builder) error

	// PushSelect pushes the select expression to the specified
	// originator. If successful, the originator must create
	// a resultColumn entry and return it. The top level caller
	// must accumulate these result columns and set the symtab
	// after analysis.
	PushSelect(pb *primitiveBuilder, expr *sqlparser.AliasedExpr, origin builder) (rc *resultColumn, colNumber int, err error)

	// MakeDistinct makes the primitive handle the distinct clause.
	MakeDistinct() error
	// PushGroupBy makes the primitive handle the GROUP BY clause.
	PushGroupBy(sqlparser.GroupBy) error

	// PushOrderBy pushes the ORDER BY clause. It returns the
	// the current primitive or a replacement if a new one was
	// created.
	PushOrderBy(sqlparser.OrderBy) (builder, error)

	// SetUpperLimit is an optimization hint that tells that primitive
	// that it does not need to return more than the specified number of rows.
	// A primitive that cannot perform this can ignore the request.
	SetUpperLimit(count *sqlparser.SQLVal)

	// PushMisc pushes miscelleaneous constructs to all the primitives.
	PushMisc(sel *sqlparser.Select)

	// Wireup performs the wire-up work. Nodes should be traversed
	// from right to left because the rhs nodes can request vars from
	// the lhs nodes.
	Wireup(bldr builder, jt *jointab) error

	// SupplyVar finds the common root between from and to. If it's
	// the common root, it supplies the requested var to the rhs tree.
	// If the primitive already has the column in its list, it should
	// just supply it to the 'to' node. Otherwise, it should request
	// for it by calling SupplyCol on the 'from' sub-tree to request the
	// column, and then supply it to the 'to' node.
	SupplyVar(from, to int, col *sqlparser.ColName, varname string)

	// SupplyCol is meant to be used for the wire-up process. This function
	// changes the primitive to supply the requested column and returns
	// the resultColumn and column number of the result. SupplyCol
	// is different from PushSelect because it may reuse an existing
	// resultColumn, whereas PushSelect guarantees the addition of a new
	// result column and returns a distinct symbol for it.
	SupplyCol(col *sqlparser.ColName) (rc *resultColumn, colNumber int)

	// SupplyWeightString must supply a weight_string expression of the
	// specified column.
	SupplyWeightString(colNumber int) (weightcolNumber int, err error)

	// Primitive returns the underlying primitive.
	// This function should only be called after Wireup is finished.
	Primitive() engine.Primitive
}

// ContextVSchema defines the interface for this package to fetch
// info about tables.
type ContextVSchema interface {
	FindTable(tablename sqlparser.TableName) (*vindexes.Table, error)
	FindTableOrVindex(tablename sqlparser.TableName) (*vindexes.Table, vindexes.Vindex, error)
	DefaultKeyspace() (*vindexes.Keyspace, error)
	TargetString() string
	Destination() key.Destination
}

// Build builds a plan for a query based on the specified vschema.
// It's the main entry point for this package.
func Build(query string, vschema ContextVSchema) (*engine.Plan, error) {
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return nil, err
	}
	return BuildFromStmt(query, stmt, vschema)
}

// BuildFromStmt builds a plan based on the AST provided.
// The AST is modified in place. A failure never returns a
// partial plan.
func BuildFromStmt(query string, stmt sqlparser.Statement, vschema ContextVSchema) (plan *engine.Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			plan = nil
			err = vterrors.Errorf(vterrors.Internal, "%v", r)
		}
	}()

	start := time.Now()
	plan = &engine.Plan{
		Type:     sqlparser.StmtType(sqlparser.Preview(query)),
		Original: query,
	}
	jt := newJointab(sqlparser.GetBindvars(stmt))
	plan.Instructions, err = buildPrimitive(stmt, vschema, jt)
	if err != nil {
		return nil, err
	}
	plan.SetVars(jt.generated)
	log.V(2).Infof("plan %s: %q built in %v as %s", uuid.NewString(), query, time.Since(start), plan.Instructions.RouteType())
	return plan, nil
}

func buildPrimitive(stmt sqlparser.Statement, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	if dest := vschema.Destination(); dest != nil {
		return buildPlanForBypass(stmt, vschema, dest)
	}
	switch stmt := stmt.(type) {
	case *sqlparser.Select:
		return buildSelectPlan(stmt, vschema, jt)
	case *sqlparser.Union:
		return buildUnionPlan(stmt, vschema, jt)
	case *sqlparser.ParenSelect:
		return buildParenSelectPlan(stmt, vschema, jt)
	case *sqlparser.Insert:
		return buildInsertPlan(stmt, vschema, jt)
	case *sqlparser.Update:
		return buildUpdatePlan(stmt, vschema, jt)
	case *sqlparser.Delete:
		return buildDeletePlan(stmt, vschema, jt)
	case *sqlparser.Set:
		return buildSetPlan(stmt, vschema)
	}
	return nil, vterrors.Errorf(vterrors.Internal, "BUG: unexpected statement type: %T", stmt)
}

// buildPlanForBypass sends the statement verbatim to the destination
// named by the target. No analysis is performed.
func buildPlanForBypass(stmt sqlparser.Statement, vschema ContextVSchema, dest key.Destination) (engine.Primitive, error) {
	keyspace, err := vschema.DefaultKeyspace()
	if err != nil {
		return nil, err
	}
	send := &engine.Send{
		Keyspace:          keyspace,
		TargetDestination: dest,
		Query:             sqlparser.String(stmt),
	}
	switch stmt.(type) {
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		send.IsDML = true
	}
	return send, nil
}

// unsupportedf builds the error returned for query shapes the
// planner cannot handle.
func unsupportedf(format string, args ...any) error {
	return vterrors.Errorf(vterrors.Unimplemented, "unsupported: "+format, args...)
}

// bugf builds the error returned when an internal invariant is broken.
func bugf(format string, args ...any) error {
	return vterrors.Errorf(vterrors.Internal, "BUG: "+format, args...)
}

// panicBug is used where the builder contract has no error return.
// The panic is recovered by BuildFromStmt.
func panicBug(format string, args ...any) {
	panic(fmt.Sprintf("BUG: "+format, args...))
}
