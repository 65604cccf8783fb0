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

var _ builder = (*concatenate)(nil)

// concatenate is the builder for engine.Concatenate.
// It's built for a UNION ALL whose parts cannot be
// merged into a single route. The results of the
// parts are returned one after the other.
type concatenate struct {
	order    int
	lhs, rhs builder
}

func newConcatenate(lhs, rhs builder) *concatenate {
	c := &concatenate{
		lhs: lhs,
		rhs: rhs,
	}
	c.Reorder(0)
	return c
}

// Order satisfies the builder interface.
func (c *concatenate) Order() int {
	return c.order
}

// Reorder satisfies the builder interface.
func (c *concatenate) Reorder(order int) {
	c.lhs.Reorder(order)
	c.rhs.Reorder(c.lhs.Order())
	c.order = c.rhs.Order() + 1
}

// Primitive satisfies the builder interface.
// Nested concatenations are flattened into one list of sources.
func (c *concatenate) Primitive() engine.Primitive {
	var sources []engine.Primitive
	for _, bldr := range []builder{c.lhs, c.rhs} {
		prim := bldr.Primitive()
		if nested, ok := prim.(*engine.Concatenate); ok {
			sources = append(sources, nested.Sources...)
			continue
		}
		sources = append(sources, prim)
	}
	return &engine.Concatenate{Sources: sources}
}

// First satisfies the builder interface.
func (c *concatenate) First() builder {
	return c.lhs.First()
}

// ResultColumns satisfies the builder interface.
// The column names of a union are the ones of its first part.
func (c *concatenate) ResultColumns() []*resultColumn {
	return c.lhs.ResultColumns()
}

// PushFilter satisfies the builder interface.
func (c *concatenate) PushFilter(_ *primitiveBuilder, _ sqlparser.Expr, _ string, _ builder) error {
	return bugf("concatenate.PushFilter: unreachable")
}

// PushSelect satisfies the builder interface.
func (c *concatenate) PushSelect(_ *primitiveBuilder, _ *sqlparser.AliasedExpr, _ builder) (rc *resultColumn, colNumber int, err error) {
	return nil, 0, bugf("concatenate.PushSelect: unreachable")
}

// MakeDistinct satisfies the builder interface.
func (c *concatenate) MakeDistinct() error {
	return bugf("concatenate.MakeDistinct: unreachable")
}

// PushGroupBy satisfies the builder interface.
func (c *concatenate) PushGroupBy(groupBy sqlparser.GroupBy) error {
	if len(groupBy) != 0 {
		return bugf("concatenate.PushGroupBy: unreachable")
	}
	return nil
}

// PushOrderBy satisfies the builder interface.
func (c *concatenate) PushOrderBy(orderBy sqlparser.OrderBy) (builder, error) {
	if len(orderBy) != 0 {
		return nil, unsupportedf("ORDER BY on top of a cross-shard UNION ALL")
	}
	return c, nil
}

// SetUpperLimit satisfies the builder interface.
// The parts can't be limited individually, because
// the limit applies to the combined result.
func (c *concatenate) SetUpperLimit(_ *sqlparser.SQLVal) {
}

// PushMisc satisfies the builder interface.
func (c *concatenate) PushMisc(sel *sqlparser.Select) {
	c.lhs.PushMisc(sel)
	c.rhs.PushMisc(sel)
}

// Wireup satisfies the builder interface.
func (c *concatenate) Wireup(bldr builder, jt *jointab) error {
	if err := c.rhs.Wireup(bldr, jt); err != nil {
		return err
	}
	return c.lhs.Wireup(bldr, jt)
}

// SupplyVar satisfies the builder interface.
func (c *concatenate) SupplyVar(from, to int, col *sqlparser.ColName, varname string) {
	if from <= c.lhs.Order() {
		c.lhs.SupplyVar(from, to, col, varname)
		return
	}
	c.rhs.SupplyVar(from, to, col, varname)
}

// SupplyCol satisfies the builder interface.
// A column supplied by one part would have to be
// supplied by all of them.
func (c *concatenate) SupplyCol(col *sqlparser.ColName) (rc *resultColumn, colNumber int) {
	panicBug("concatenate cannot supply columns")
	return nil, 0
}

// SupplyWeightString satisfies the builder interface.
func (c *concatenate) SupplyWeightString(colNumber int) (weightcolNumber int, err error) {
	return 0, unsupportedf("weight_string on a cross-shard UNION ALL")
}
