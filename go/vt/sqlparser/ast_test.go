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

package sqlparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
)

func TestWalk(t *testing.T) {
	stmt, err := Parse("select a, t.b from t where c = (select d from u where e = 1) order by f")
	require.NoError(t, err)
	var cols []string
	err = Walk(func(node SQLNode) (bool, error) {
		if col, ok := node.(*ColName); ok {
			cols = append(cols, String(col))
		}
		return true, nil
	}, stmt)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "t.b", "c", "d", "e", "f"}, cols)

	// Returning false must not descend into subqueries.
	cols = nil
	err = Walk(func(node SQLNode) (bool, error) {
		switch node := node.(type) {
		case *Subquery:
			return false, nil
		case *ColName:
			cols = append(cols, String(node))
		}
		return true, nil
	}, stmt)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "t.b", "c", "f"}, cols)
}

func TestReplaceExpr(t *testing.T) {
	stmt, err := Parse("select * from t where a = (select b from u) and c in (select d from v)")
	require.NoError(t, err)
	sel := stmt.(*Select)
	var subqueries []*Subquery
	_ = Walk(func(node SQLNode) (bool, error) {
		if sq, ok := node.(*Subquery); ok {
			subqueries = append(subqueries, sq)
			return false, nil
		}
		return true, nil
	}, sel.Where.Expr)
	require.Len(t, subqueries, 2)

	sel.Where.Expr = ReplaceExpr(sel.Where.Expr, subqueries[0], NewValArg([]byte(":__sq1")))
	sel.Where.Expr = ReplaceExpr(sel.Where.Expr, subqueries[1], ListArg("::__sq2"))
	assert.Equal(t, "select * from t where a = :__sq1 and c in ::__sq2", String(sel))

	// The root itself can be replaced.
	col := NewColName("a")
	assert.Equal(t, "b", String(ReplaceExpr(col, col, NewColName("b"))))
}

func TestColNameEqual(t *testing.T) {
	var c1, c2 *ColName
	assert.False(t, c1.Equal(c2))
	c1 = &ColName{Name: NewColIdent("aa")}
	c2 = &ColName{Name: NewColIdent("bb")}
	assert.False(t, c1.Equal(c2))
	c2.Name = NewColIdent("AA")
	assert.True(t, c1.Equal(c2))
}

func TestColIdent(t *testing.T) {
	str := NewColIdent("Ab")
	assert.Equal(t, "Ab", str.String())
	assert.Equal(t, "ab", str.Lowered())
	assert.True(t, str.EqualString("aB"))
	assert.False(t, str.IsEmpty())
	assert.True(t, NewColIdent("").IsEmpty())
	assert.Equal(t, "a_b_c", NewColIdent("a b.c").CompliantName())
}

func TestIsAggregate(t *testing.T) {
	f := FuncExpr{Name: NewColIdent("avg")}
	assert.True(t, f.IsAggregate())
	f = FuncExpr{Name: NewColIdent("Avg")}
	assert.True(t, f.IsAggregate())
	f = FuncExpr{Name: NewColIdent("foo")}
	assert.False(t, f.IsAggregate())
}

func TestIsImpossible(t *testing.T) {
	cmp := &ComparisonExpr{
		Operator: NotEqualStr,
		Left:     NewIntVal([]byte("1")),
		Right:    NewIntVal([]byte("1")),
	}
	assert.True(t, cmp.IsImpossible())
	cmp.Operator = EqualStr
	assert.False(t, cmp.IsImpossible())
}

func TestFormatImpossibleQuery(t *testing.T) {
	testcases := []struct {
		in, out string
	}{{
		in:  "select a, b from t where c = 1 order by a limit 1",
		out: "select a, b from t where 1 != 1",
	}, {
		in:  "select a, count(*) from t group by a",
		out: "select a, count(*) from t where 1 != 1 group by a",
	}, {
		in:  "select t.a from t left join u on t.b = u.b",
		out: "select t.a from t left join u on 1 != 1 where 1 != 1",
	}, {
		in:  "select t.a from t join u on t.b = u.b",
		out: "select t.a from t join u where 1 != 1",
	}}
	for _, tc := range testcases {
		stmt, err := Parse(tc.in)
		require.NoError(t, err)
		buf := NewTrackedBuffer(FormatImpossibleQuery)
		buf.Myprintf("%v", stmt)
		assert.Equal(t, tc.out, buf.String(), tc.in)
	}
}

func TestParsedQuery(t *testing.T) {
	stmt, err := Parse("select * from t where a = :a and b in ::b and c = 'x'")
	require.NoError(t, err)
	pq := NewParsedQuery(stmt)
	assert.Equal(t, []string{":a", "::b"}, pq.BindLocations())

	got, err := pq.GenerateQuery(map[string]*sqltypes.BindVariable{
		"a": sqltypes.ValueBindVariable(sqltypes.NewVarBinary("it's")),
		"b": sqltypes.TupleBindVariable([]sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewInt64(2)}),
	})
	require.NoError(t, err)
	assert.Equal(t, "select * from t where a = 'it\\'s' and b in (1, 2) and c = 'x'", got)

	_, err = pq.GenerateQuery(map[string]*sqltypes.BindVariable{
		"a": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
	})
	assert.EqualError(t, err, "missing bind var b")

	_, err = pq.GenerateQuery(map[string]*sqltypes.BindVariable{
		"a": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
		"b": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
	})
	assert.EqualError(t, err, "unexpected list arg type (INT64) for key b")

	_, err = pq.GenerateQuery(map[string]*sqltypes.BindVariable{
		"a": sqltypes.TupleBindVariable([]sqltypes.Value{sqltypes.NewInt64(1)}),
		"b": sqltypes.TupleBindVariable([]sqltypes.Value{sqltypes.NewInt64(1)}),
	})
	assert.EqualError(t, err, "unexpected arg type (TUPLE) for non-list key a")

	assert.False(t, NewTrackedBuffer(nil).WriteNode(NewColName("a")).HasBindVars())
	assert.True(t, NewTrackedBuffer(nil).WriteNode(NewValArg([]byte(":a"))).HasBindVars())
}

func TestTruncateForUI(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	out := TruncateForUI(string(long))
	assert.Len(t, out, 512)
	assert.Equal(t, "abc", TruncateForUI("abc"))
}
