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

	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

// findOrigin identifies the right-most origin referenced by expr. In situations where
// the expression references columns from multiple origins, the expression will be
// pushed to the right-most origin, and the executor will use the results of
// the previous origins to feed the necessary values to the primitives on the right.
//
// If the expression contains a subquery, the right-most origin identification
// also follows the same rules of a normal expression. This is achieved by
// looking at the Externs field of its symbol table that contains the list of
// external references.
//
// Once the target origin is identified, we have to verify that the subquery's
// route can be merged with it. If it cannot, we fail the query. This is because
// we don't have the ability to wire up subqueries through expression evaluation
// primitives. Consequently, if the plan for a subquery comes out as a Join,
// we can immediately error out.
//
// Since findOrigin can itself be called from within a subquery, it has to assume
// that some of the external references may actually be pointing to an outer
// query. The isLocal response from the symtab is used to make sure that we
// only analyze symbols that point to the current symtab.
//
// If an expression has no references to the current query, then the left-most
// origin is chosen as the default.
func (pb *primitiveBuilder) findOrigin(expr sqlparser.Expr) (pullouts []*pulloutSubquery, origin builder, pushExpr sqlparser.Expr, err error) {
	// highestOrigin tracks the highest origin referenced by the expression.
	// Default is the First.
	highestOrigin := pb.bldr.First()

	// subqueries tracks the list of subqueries encountered.
	type subqueryInfo struct {
		ast        *sqlparser.Subquery
		bldr       builder
		correlated bool
	}
	var subqueries []subqueryInfo

	// constructsMap maps a subquery to the IN, NOT IN or EXISTS
	// construct that contains it.
	constructsMap := make(map[*sqlparser.Subquery]sqlparser.Expr)

	err = sqlparser.Walk(func(node sqlparser.SQLNode) (kontinue bool, err error) {
		switch node := node.(type) {
		case *sqlparser.ColName:
			newOrigin, isLocal, err := pb.st.Find(node)
			if err != nil {
				return false, err
			}
			if isLocal && newOrigin.Order() > highestOrigin.Order() {
				highestOrigin = newOrigin
			}
		case *sqlparser.ComparisonExpr:
			if node.Operator == sqlparser.InStr || node.Operator == sqlparser.NotInStr {
				if sq, ok := node.Right.(*sqlparser.Subquery); ok {
					constructsMap[sq] = node
				}
			}
		case *sqlparser.ExistsExpr:
			constructsMap[node.Subquery] = node
		case *sqlparser.Subquery:
			spb := newPrimitiveBuilder(pb.vschema, pb.jt)
			switch stmt := node.Select.(type) {
			case *sqlparser.Select:
				if err := spb.processSelect(stmt, pb.st); err != nil {
					return false, err
				}
			case *sqlparser.Union:
				if err := spb.processUnion(stmt, pb.st); err != nil {
					return false, err
				}
			case *sqlparser.ParenSelect:
				if err := spb.processPart(stmt, pb.st); err != nil {
					return false, err
				}
			default:
				return false, bugf("unexpected SELECT type: %T", node)
			}
			sqi := subqueryInfo{
				ast:        node,
				bldr:       spb.bldr,
				correlated: len(spb.st.Externs) != 0,
			}
			for _, extern := range spb.st.Externs {
				// If outer route is set, it means that the subquery is correlated.
				newOrigin, isLocal, err := pb.st.Find(extern)
				if err != nil {
					return false, err
				}
				if isLocal && newOrigin.Order() > highestOrigin.Order() {
					highestOrigin = newOrigin
				}
			}
			subqueries = append(subqueries, sqi)
			return false, nil
		}
		return true, nil
	}, expr)
	if err != nil {
		return nil, nil, nil, err
	}

	highestRoute, _ := highestOrigin.(*route)
	for _, sqi := range subqueries {
		subroute, _ := sqi.bldr.(*route)
		if highestRoute != nil && subroute != nil && highestRoute.MergeSubquery(pb, subroute) {
			continue
		}
		if sqi.correlated {
			return nil, nil, nil, unsupportedf("cross-shard correlated subquery")
		}

		sqName, hasValues := pb.jt.GenerateSubqueryVars()
		construct, ok := constructsMap[sqi.ast]
		if !ok {
			// (subquery) -> :__sq
			expr = sqlparser.ReplaceExpr(expr, sqi.ast, sqlparser.NewValArg([]byte(":"+sqName)))
			pullouts = append(pullouts, newPulloutSubquery(engine.PulloutValue, sqName, hasValues, sqi.bldr))
			continue
		}
		switch construct := construct.(type) {
		case *sqlparser.ComparisonExpr:
			if construct.Operator == sqlparser.InStr {
				// a in (subquery) -> (:__sq_has_values = 1 and (a in ::__sq))
				newExpr := &sqlparser.AndExpr{
					Left: &sqlparser.ComparisonExpr{
						Left:     sqlparser.NewValArg([]byte(":" + hasValues)),
						Operator: sqlparser.EqualStr,
						Right:    sqlparser.NewIntVal([]byte("1")),
					},
					Right: sqlparser.ReplaceExpr(construct, sqi.ast, sqlparser.ListArg([]byte("::"+sqName))),
				}
				expr = replaceConstruct(expr, construct, newExpr)
				pullouts = append(pullouts, newPulloutSubquery(engine.PulloutIn, sqName, hasValues, sqi.bldr))
			} else {
				// a not in (subquery) -> (:__sq_has_values = 0 or (a not in ::__sq))
				newExpr := &sqlparser.OrExpr{
					Left: &sqlparser.ComparisonExpr{
						Left:     sqlparser.NewValArg([]byte(":" + hasValues)),
						Operator: sqlparser.EqualStr,
						Right:    sqlparser.NewIntVal([]byte("0")),
					},
					Right: sqlparser.ReplaceExpr(construct, sqi.ast, sqlparser.ListArg([]byte("::"+sqName))),
				}
				expr = replaceConstruct(expr, construct, newExpr)
				pullouts = append(pullouts, newPulloutSubquery(engine.PulloutNotIn, sqName, hasValues, sqi.bldr))
			}
		case *sqlparser.ExistsExpr:
			// exists (subquery) -> :__sq_has_values
			expr = sqlparser.ReplaceExpr(expr, construct, sqlparser.NewValArg([]byte(":"+hasValues)))
			pullouts = append(pullouts, newPulloutSubquery(engine.PulloutExists, sqName, hasValues, sqi.bldr))
		}
	}
	return pullouts, highestOrigin, expr, nil
}

// replaceConstruct replaces construct with newExpr. If construct is
// nested inside expr, the replacement is parenthesized so that it
// binds the same way the original construct did.
func replaceConstruct(expr, construct, newExpr sqlparser.Expr) sqlparser.Expr {
	if expr == construct {
		return newExpr
	}
	return sqlparser.ReplaceExpr(expr, construct, &sqlparser.ParenExpr{Expr: newExpr})
}

var errSubqueryFound = errors.New("subquery found")

func hasSubquery(node sqlparser.SQLNode) bool {
	has := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (kontinue bool, err error) {
		if _, ok := node.(*sqlparser.Subquery); ok {
			has = true
			return false, errSubqueryFound
		}
		return true, nil
	}, node)
	return has
}
