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

// buildUnionPlan builds the plan for a UNION statement.
func buildUnionPlan(union *sqlparser.Union, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	// For unions, create a pb with anonymous scope.
	pb := newPrimitiveBuilder(vschema, jt)
	if err := pb.processUnion(union, nil); err != nil {
		return nil, err
	}
	if err := pb.bldr.Wireup(pb.bldr, pb.jt); err != nil {
		return nil, err
	}
	return pb.bldr.Primitive(), nil
}

// buildParenSelectPlan builds the plan for a parenthesized SELECT.
func buildParenSelectPlan(sel *sqlparser.ParenSelect, vschema ContextVSchema, jt *jointab) (engine.Primitive, error) {
	pb := newPrimitiveBuilder(vschema, jt)
	if err := pb.processPart(sel, nil); err != nil {
		return nil, err
	}
	if err := pb.bldr.Wireup(pb.bldr, pb.jt); err != nil {
		return nil, err
	}
	return pb.bldr.Primitive(), nil
}

func (pb *primitiveBuilder) processUnion(union *sqlparser.Union, outer *symtab) error {
	lpb := newPrimitiveBuilder(pb.vschema, pb.jt)
	if err := lpb.processPart(union.Left, outer); err != nil {
		return err
	}
	rpb := newPrimitiveBuilder(pb.vschema, pb.jt)
	if err := rpb.processPart(union.Right, outer); err != nil {
		return err
	}

	if err := unionRouteMerge(union, lpb.bldr, rpb.bldr); err != nil {
		if union.Type != sqlparser.UnionAllStr {
			return err
		}
		// A UNION ALL doesn't need the rows of the parts to be
		// compared, so the parts can be executed independently.
		if len(lpb.bldr.ResultColumns()) != len(rpb.bldr.ResultColumns()) {
			return unsupportedf("The used SELECT statements have a different number of columns")
		}
		pb.bldr = newConcatenate(lpb.bldr, rpb.bldr)
	} else {
		pb.bldr = lpb.bldr
	}
	pb.st = lpb.st

	if err := pb.pushOrderBy(union.OrderBy); err != nil {
		return err
	}
	return pb.pushLimit(union.Limit)
}

// processPart processes one side of a UNION.
func (pb *primitiveBuilder) processPart(part sqlparser.SelectStatement, outer *symtab) error {
	switch part := part.(type) {
	case *sqlparser.Union:
		return pb.processUnion(part, outer)
	case *sqlparser.Select:
		return pb.processSelect(part, outer)
	case *sqlparser.ParenSelect:
		if err := pb.processPart(part.Select, outer); err != nil {
			return err
		}
		// If the result is a route, the parenthesis is preserved.
		// This keeps the ORDER BY and LIMIT of the part attached
		// to it.
		if rb, ok := pb.bldr.(*route); ok {
			rb.Select = &sqlparser.ParenSelect{Select: rb.Select}
		}
		return nil
	}
	return bugf("unexpected SELECT type: %T", part)
}

// unionRouteMerge merges the routes of both sides of a UNION
// into the left one.
func unionRouteMerge(union *sqlparser.Union, left, right builder) error {
	lroute, ok := left.(*route)
	if !ok {
		return unsupportedf("SELECT of UNION is non-trivial")
	}
	rroute, ok := right.(*route)
	if !ok {
		return unsupportedf("SELECT of UNION is non-trivial")
	}
	if !lroute.MergeUnion(rroute) {
		return unsupportedf("UNION cannot be executed as a single route")
	}
	lroute.Select = &sqlparser.Union{Type: union.Type, Left: lroute.Select, Right: rroute.Select, Lock: union.Lock}
	return nil
}
