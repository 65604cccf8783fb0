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
	"strings"

	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

// buildSetPlan builds the plan for a SET statement. User defined
// variables are set in the session. Changes to system variables
// are accepted and ignored.
func buildSetPlan(stmt *sqlparser.Set, vschema ContextVSchema) (engine.Primitive, error) {
	if stmt.Scope == sqlparser.GlobalStr {
		return nil, unsupportedf("in set: global")
	}
	var setOps []engine.SetOp
	for _, expr := range stmt.Exprs {
		if err := checkSetValue(expr.Expr); err != nil {
			return nil, err
		}
		value := sqlparser.String(expr.Expr)
		name := expr.Name.Lowered()
		switch {
		case strings.HasPrefix(name, "@@"):
			name = strings.TrimPrefix(name, "@@")
			if strings.HasPrefix(name, "global.") {
				return nil, unsupportedf("in set: global")
			}
			name = strings.TrimPrefix(strings.TrimPrefix(name, "session."), "local.")
			setOps = append(setOps, &engine.SysVarIgnore{Name: name, Expr: value})
		case strings.HasPrefix(name, "@"):
			setOps = append(setOps, &engine.UserDefinedVariable{Name: strings.TrimPrefix(name, "@"), Expr: value})
		default:
			setOps = append(setOps, &engine.SysVarIgnore{Name: name, Expr: value})
		}
	}
	return &engine.Set{
		Ops:   setOps,
		Input: &engine.SingleRow{},
	}, nil
}

// checkSetValue verifies that the value of a SET can be
// evaluated without a table.
func checkSetValue(expr sqlparser.Expr) error {
	return sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node.(type) {
		case *sqlparser.ColName:
			return false, unsupportedf("column reference in set: %s", sqlparser.String(expr))
		case *sqlparser.Subquery:
			return false, unsupportedf("subquery in set: %s", sqlparser.String(expr))
		}
		return true, nil
	}, expr)
}
