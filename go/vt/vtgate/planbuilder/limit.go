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
	"strconv"

	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

var _ builder = (*limit)(nil)

// upperLimitVar is the bind variable the engine sets to
// count+offset of the limit for the primitives below it.
const upperLimitVar = "__upper_limit"

// limit is the builder for engine.Limit. It's built when
// the rows of a multi-shard tree have to be counted in the
// routing tier. A limit is the last construct of a SELECT,
// so nothing can be pushed through it.
type limit struct {
	builderCommon
	elimit *engine.Limit
}

func newLimit(bldr builder) *limit {
	return &limit{
		builderCommon: newBuilderCommon(bldr),
		elimit:        &engine.Limit{},
	}
}

// Primitive satisfies the builder interface.
func (l *limit) Primitive() engine.Primitive {
	l.elimit.Input = l.input.Primitive()
	return l.elimit
}

// PushFilter satisfies the builder interface.
func (l *limit) PushFilter(_ *primitiveBuilder, _ sqlparser.Expr, _ string, _ builder) error {
	return bugf("limit.PushFilter: unreachable")
}

// PushSelect satisfies the builder interface.
func (l *limit) PushSelect(_ *primitiveBuilder, _ *sqlparser.AliasedExpr, _ builder) (rc *resultColumn, colNumber int, err error) {
	return nil, 0, bugf("limit.PushSelect: unreachable")
}

// MakeDistinct satisfies the builder interface.
func (l *limit) MakeDistinct() error {
	return bugf("limit.MakeDistinct: unreachable")
}

// PushGroupBy satisfies the builder interface.
func (l *limit) PushGroupBy(_ sqlparser.GroupBy) error {
	return bugf("limit.PushGroupBy: unreachable")
}

// PushOrderBy satisfies the builder interface.
func (l *limit) PushOrderBy(_ sqlparser.OrderBy) (builder, error) {
	return nil, bugf("limit.PushOrderBy: unreachable")
}

// SetLimit records the row count and offset of the primitive, and
// tells the input it won't need more than count+offset rows. If both
// are literals, the hint is the computed sum. Otherwise, the input is
// limited by upperLimitVar, and usesVar is returned as true.
func (l *limit) SetLimit(limit *sqlparser.Limit) (usesVar bool, err error) {
	count, err := limitValue(limit.Rowcount, "LIMIT")
	if err != nil {
		return false, err
	}
	l.elimit.Count, err = sqlparser.NewPlanValue(count)
	if err != nil {
		return false, vterrors.Wrap(err, "unexpected expression in LIMIT")
	}

	upper := count
	if limit.Offset != nil {
		offset, err := limitValue(limit.Offset, "OFFSET")
		if err != nil {
			return false, err
		}
		l.elimit.Offset, err = sqlparser.NewPlanValue(offset)
		if err != nil {
			return false, vterrors.Wrap(err, "unexpected expression in OFFSET")
		}
		upper = nil
		if count.Type == sqlparser.IntVal && offset.Type == sqlparser.IntVal {
			upper, err = addIntVals(count, offset)
			if err != nil {
				return false, err
			}
		}
	}
	if upper == nil || upper.Type != sqlparser.IntVal {
		upper = sqlparser.NewValArg([]byte(":" + upperLimitVar))
		usesVar = true
	}
	l.input.SetUpperLimit(upper)
	return usesVar, nil
}

// SetUpperLimit satisfies the builder interface.
// This is a no-op because SetLimit is called for this primitive.
func (l *limit) SetUpperLimit(_ *sqlparser.SQLVal) {
}

// limitValue returns expr if it's an integer or a bind variable.
func limitValue(expr sqlparser.Expr, clause string) (*sqlparser.SQLVal, error) {
	if val, ok := expr.(*sqlparser.SQLVal); ok {
		switch val.Type {
		case sqlparser.IntVal, sqlparser.ValArg:
			return val, nil
		}
	}
	return nil, unsupportedf("%s must be an integer or a bind variable: %s", clause, sqlparser.String(expr))
}

func addIntVals(a, b *sqlparser.SQLVal) (*sqlparser.SQLVal, error) {
	x, err := strconv.ParseUint(string(a.Val), 10, 64)
	if err != nil {
		return nil, vterrors.Wrapf(err, "unexpected value in LIMIT: %s", a.Val)
	}
	y, err := strconv.ParseUint(string(b.Val), 10, 64)
	if err != nil {
		return nil, vterrors.Wrapf(err, "unexpected value in OFFSET: %s", b.Val)
	}
	if x+y < x {
		// The sum overflows. There's no useful hint to give.
		return nil, nil
	}
	return sqlparser.NewIntVal([]byte(strconv.FormatUint(x+y, 10))), nil
}
