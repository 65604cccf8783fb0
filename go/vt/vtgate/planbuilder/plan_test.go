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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

func locateFile(name string) string {
	return filepath.Join("testdata", name)
}

func loadSchema(t *testing.T, filename string) *vindexes.VSchema {
	t.Helper()
	data, err := os.ReadFile(locateFile(filename))
	require.NoError(t, err)
	source, err := vindexes.ParseSrvVSchema(data)
	require.NoError(t, err)
	vschema, err := vindexes.BuildVSchema(source)
	require.NoError(t, err)
	for name, ks := range vschema.Keyspaces {
		require.NoError(t, ks.Error, "keyspace %s", name)
	}
	return vschema
}

func newTestContext(t *testing.T, target string) *VSchemaContext {
	t.Helper()
	vc, err := NewVSchemaContext(loadSchema(t, "schema_test.json"), target)
	require.NoError(t, err)
	return vc
}

func buildPlan(t *testing.T, query string) *engine.Plan {
	t.Helper()
	plan, err := Build(query, newTestContext(t, ""))
	require.NoError(t, err, query)
	return plan
}

func asRoute(t *testing.T, prim engine.Primitive) *engine.Route {
	t.Helper()
	route, ok := prim.(*engine.Route)
	require.True(t, ok, "expected *engine.Route, got %T", prim)
	return route
}

func TestSelectRouting(t *testing.T) {
	testcases := []struct {
		query      string
		opcode     engine.RouteOpcode
		keyspace   string
		vindex     string
		out        string
		fieldQuery string
	}{{
		query:      "select id from user",
		opcode:     engine.SelectScatter,
		keyspace:   "user",
		out:        "select id from user",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where id = 5",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where id = 5",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where 5 = id",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where id = 5",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where name = 'foo'",
		opcode:     engine.SelectEqual,
		keyspace:   "user",
		vindex:     "name_user_map",
		out:        "select id from user where name = 'foo'",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where name = 'foo' and id = 5",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where name = 'foo' and id = 5",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where id in (1, 2)",
		opcode:     engine.SelectIN,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where id in ::__vals",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from user where id is null",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where id is null",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select id from customer where email = 'a@b.c'",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "email_md5",
		out:        "select id from customer where email = 'a@b.c'",
		fieldQuery: "select id from customer where 1 != 1",
	}, {
		query:      "select a from unsharded",
		opcode:     engine.SelectUnsharded,
		keyspace:   "main",
		out:        "select a from unsharded",
		fieldQuery: "select a from unsharded where 1 != 1",
	}, {
		query:      "select * from ref",
		opcode:     engine.SelectReference,
		keyspace:   "user",
		out:        "select * from ref",
		fieldQuery: "select * from ref where 1 != 1",
	}, {
		query:      "select next 2 values from seq",
		opcode:     engine.SelectNext,
		keyspace:   "main",
		out:        "select next 2 values from seq",
		fieldQuery: "select next 2 values from seq where 1 != 1",
	}, {
		query:      "select user.col from user join user_extra on user.id = user_extra.user_id",
		opcode:     engine.SelectScatter,
		keyspace:   "user",
		out:        "select user.col from user join user_extra on user.id = user_extra.user_id",
		fieldQuery: "select user.col from user join user_extra where 1 != 1",
	}, {
		query:      "select user.col from user, user_extra where user.id = user_extra.user_id",
		opcode:     engine.SelectScatter,
		keyspace:   "user",
		out:        "select user.col from user, user_extra where user.id = user_extra.user_id",
		fieldQuery: "select user.col from user, user_extra where 1 != 1",
	}, {
		query:      "select user.col from user, user_extra where user_extra.user_id = user.id and user.id = 5",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select user.col from user, user_extra where user_extra.user_id = user.id and user.id = 5",
		fieldQuery: "select user.col from user, user_extra where 1 != 1",
	}, {
		query:      "select user.col from user join ref",
		opcode:     engine.SelectScatter,
		keyspace:   "user",
		out:        "select user.col from user join ref",
		fieldQuery: "select user.col from user join ref where 1 != 1",
	}, {
		query:      "select id from user where id = 5 and col in (select col from user_extra where user_extra.user_id = 5)",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select id from user where id = 5 and col in (select col from user_extra where user_extra.user_id = 5)",
		fieldQuery: "select id from user where 1 != 1",
	}, {
		query:      "select u.id from user as u where u.id = 5",
		opcode:     engine.SelectEqualUnique,
		keyspace:   "user",
		vindex:     "user_index",
		out:        "select u.id from user as u where u.id = 5",
		fieldQuery: "select u.id from user as u where 1 != 1",
	}}
	for _, tcase := range testcases {
		t.Run(tcase.query, func(t *testing.T) {
			plan := buildPlan(t, tcase.query)
			route := asRoute(t, plan.Instructions)
			assert.Equal(t, tcase.opcode, route.Opcode)
			assert.Equal(t, tcase.keyspace, route.Keyspace.Name)
			if tcase.vindex == "" {
				assert.Nil(t, route.Vindex)
			} else {
				require.NotNil(t, route.Vindex)
				assert.Equal(t, tcase.vindex, route.Vindex.String())
			}
			assert.Equal(t, tcase.out, route.Query)
			assert.Equal(t, tcase.fieldQuery, route.FieldQuery)
		})
	}
}

func TestSelectRouteValues(t *testing.T) {
	plan := buildPlan(t, "select id from user where id = 5")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, []sqltypes.PlanValue{{Value: sqltypes.NewInt64(5)}}, route.Values)
	assert.Equal(t, "user", route.TableName)

	plan = buildPlan(t, "select id from user where id in (1, 2)")
	route = asRoute(t, plan.Instructions)
	want := []sqltypes.PlanValue{{
		Values: []sqltypes.PlanValue{
			{Value: sqltypes.NewInt64(1)},
			{Value: sqltypes.NewInt64(2)},
		},
	}}
	assert.Equal(t, want, route.Values)
	assert.Equal(t, []string{"__vals"}, plan.Vars)

	plan = buildPlan(t, "select id from customer where email = 'a@b.c'")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, []sqltypes.PlanValue{{Value: sqltypes.MakeTrusted(sqltypes.VarBinary, []byte("a@b.c"))}}, route.Values)

	plan = buildPlan(t, "select * from pin_test")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, engine.SelectEqualUnique, route.Opcode)
	assert.Equal(t, "binary", route.Vindex.String())
	assert.Equal(t, []sqltypes.PlanValue{{Value: sqltypes.MakeTrusted(sqltypes.VarBinary, []byte{0x80})}}, route.Values)
	assert.Equal(t, "select * from pin_test", route.Query)
}

func TestSelectNone(t *testing.T) {
	testcases := []string{
		"select id from user where id = null",
		"select id from user where null = id",
		"select id from user where id = 5 and id = null",
		"select id from user where id = null and id = 5",
		"select id from user where id in (null)",
		"select id from user where col not in (1, null)",
		"select id from user where id in (1, 2) and col not in (null)",
	}
	for _, query := range testcases {
		t.Run(query, func(t *testing.T) {
			route := asRoute(t, buildPlan(t, query).Instructions)
			assert.Equal(t, engine.SelectNone, route.Opcode)
			assert.Nil(t, route.Vindex)
			assert.Empty(t, route.Values)
		})
	}

	// A NULL among other values is not a routable value.
	route := asRoute(t, buildPlan(t, "select id from user where id in (1, null)").Instructions)
	assert.Equal(t, engine.SelectScatter, route.Opcode)
	route = asRoute(t, buildPlan(t, "select id from user where col not in (1, 2)").Instructions)
	assert.Equal(t, engine.SelectScatter, route.Opcode)
}

// permutations returns every ordering of filters.
func permutations(filters []string) [][]string {
	if len(filters) <= 1 {
		return [][]string{filters}
	}
	var out [][]string
	for i := range filters {
		rest := make([]string, 0, len(filters)-1)
		rest = append(rest, filters[:i]...)
		rest = append(rest, filters[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{filters[i]}, p...))
		}
	}
	return out
}

func TestRoutePlanFilterOrder(t *testing.T) {
	testcases := []struct {
		table   string
		filters []string
		opcode  engine.RouteOpcode
		vindex  string
	}{{
		table:   "user",
		filters: []string{"id = 5", "name = 'a'", "col = 1"},
		opcode:  engine.SelectEqualUnique,
		vindex:  "user_index",
	}, {
		table:   "user",
		filters: []string{"id in (1, 2)", "name = 'a'"},
		opcode:  engine.SelectEqual,
		vindex:  "name_user_map",
	}, {
		table:   "user",
		filters: []string{"id in (1, 2)", "name in ('a', 'b')", "col = 1"},
		opcode:  engine.SelectIN,
		vindex:  "user_index",
	}, {
		table:   "music",
		filters: []string{"id = 2", "user_id = 1"},
		opcode:  engine.SelectEqualUnique,
		vindex:  "user_index",
	}, {
		table:   "user",
		filters: []string{"id = 5", "id = null", "name = 'a'"},
		opcode:  engine.SelectNone,
	}, {
		table:   "user",
		filters: []string{"id in (1, 2)", "col not in (1, null)"},
		opcode:  engine.SelectNone,
	}}
	for _, tcase := range testcases {
		for _, filters := range permutations(tcase.filters) {
			query := "select id from " + tcase.table + " where " + strings.Join(filters, " and ")
			t.Run(query, func(t *testing.T) {
				route := asRoute(t, buildPlan(t, query).Instructions)
				assert.Equal(t, tcase.opcode, route.Opcode)
				if tcase.vindex == "" {
					assert.Nil(t, route.Vindex)
					return
				}
				require.NotNil(t, route.Vindex)
				assert.Equal(t, tcase.vindex, route.Vindex.String())
			})
		}
	}
}

func TestSelectDirectives(t *testing.T) {
	plan := buildPlan(t, "select /*vt+ QUERY_TIMEOUT_MS=1000 SCATTER_ERRORS_AS_WARNINGS */ id from user")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, 1000, route.QueryTimeout)
	assert.True(t, route.ScatterErrorsAsWarnings)
	assert.Equal(t, "select /*vt+ QUERY_TIMEOUT_MS=1000 SCATTER_ERRORS_AS_WARNINGS */ id from user", route.Query)
}

func TestSelectSystemTable(t *testing.T) {
	plan, err := Build("select * from information_schema.tables", newTestContext(t, "main"))
	require.NoError(t, err)
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, engine.SelectDBA, route.Opcode)
	assert.Equal(t, "main", route.Keyspace.Name)
	assert.Equal(t, "select * from information_schema.tables", route.Query)

	_, err = Build("select * from information_schema.tables", newTestContext(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no keyspace in database name specified")
}

func TestJoin(t *testing.T) {
	plan := buildPlan(t, "select user.col, user_extra.id from user join user_extra on user.col = user_extra.col")
	join, ok := plan.Instructions.(*engine.Join)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.NormalJoin, join.Opcode)
	assert.Equal(t, []int{-1, 1}, join.Cols)
	assert.Equal(t, map[string]int{"user_col": 0}, join.Vars)

	left := asRoute(t, join.Left)
	assert.Equal(t, engine.SelectScatter, left.Opcode)
	assert.Equal(t, "select user.col from user", left.Query)
	assert.Equal(t, "select user.col from user where 1 != 1", left.FieldQuery)

	right := asRoute(t, join.Right)
	assert.Equal(t, engine.SelectScatter, right.Opcode)
	assert.Equal(t, "select user_extra.id from user_extra where user_extra.col = :user_col", right.Query)
	assert.Equal(t, "select user_extra.id from user_extra where 1 != 1", right.FieldQuery)
}

func TestJoinVarRouting(t *testing.T) {
	plan := buildPlan(t, "select user.id, user_extra.col from user join user_extra on user.col = user_extra.user_id")
	join, ok := plan.Instructions.(*engine.Join)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, []int{-1, 1}, join.Cols)
	assert.Equal(t, map[string]int{"user_col": 1}, join.Vars)

	left := asRoute(t, join.Left)
	assert.Equal(t, "select user.id, user.col from user", left.Query)

	// The join var improves the routing of the RHS.
	right := asRoute(t, join.Right)
	assert.Equal(t, engine.SelectEqualUnique, right.Opcode)
	assert.Equal(t, "user_index", right.Vindex.String())
	assert.Equal(t, []sqltypes.PlanValue{{Key: "user_col"}}, right.Values)
	assert.Equal(t, "select user_extra.col from user_extra where user_extra.user_id = :user_col", right.Query)
}

func TestJoinVarCollision(t *testing.T) {
	plan := buildPlan(t, "select user.id from user join user_extra on user.col = user_extra.col where user_extra.id = :user_col")
	join, ok := plan.Instructions.(*engine.Join)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, map[string]int{"user_col1": 1}, join.Vars)
	right := asRoute(t, join.Right)
	assert.Equal(t, "select 1 from user_extra where user_extra.col = :user_col1 and user_extra.id = :user_col", right.Query)
	assert.Equal(t, []string{"user_col1"}, plan.Vars)
}

func TestLeftJoin(t *testing.T) {
	plan := buildPlan(t, "select user.id, user_extra.id from user left join user_extra on user.col = user_extra.col")
	join, ok := plan.Instructions.(*engine.Join)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.LeftJoin, join.Opcode)
	right := asRoute(t, join.Right)
	assert.Equal(t, "select user_extra.id from user_extra where user_extra.col = :user_col", right.Query)

	plan = buildPlan(t, "select user.id from user left join user_extra on user.id = user_extra.user_id")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, "select user.id from user left join user_extra on user.id = user_extra.user_id", route.Query)
}

func TestPulloutSubquery(t *testing.T) {
	plan := buildPlan(t, "select id from user where id in (select col from user_extra)")
	ps, ok := plan.Instructions.(*engine.PulloutSubquery)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.PulloutIn, ps.Opcode)
	assert.Equal(t, "__sq1", ps.SubqueryResult)
	assert.Equal(t, "__sq_has_values1", ps.HasValues)

	sub := asRoute(t, ps.Subquery)
	assert.Equal(t, "select col from user_extra", sub.Query)

	under := asRoute(t, ps.Underlying)
	assert.Equal(t, engine.SelectIN, under.Opcode)
	assert.Equal(t, "select id from user where :__sq_has_values1 = 1 and id in ::__vals", under.Query)
	assert.Equal(t, []sqltypes.PlanValue{{ListKey: "__sq1"}}, under.Values)
}

func TestPulloutValue(t *testing.T) {
	plan := buildPlan(t, "select id from user where id = (select col from user_extra)")
	ps, ok := plan.Instructions.(*engine.PulloutSubquery)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.PulloutValue, ps.Opcode)
	under := asRoute(t, ps.Underlying)
	assert.Equal(t, engine.SelectEqualUnique, under.Opcode)
	assert.Equal(t, "select id from user where id = :__sq1", under.Query)
	assert.Equal(t, []sqltypes.PlanValue{{Key: "__sq1"}}, under.Values)
}

func TestMergedSubquery(t *testing.T) {
	plan := buildPlan(t, "select id from unsharded where a in (select b from unsharded)")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, engine.SelectUnsharded, route.Opcode)
	assert.Equal(t, "select id from unsharded where a in (select b from unsharded)", route.Query)
}

func TestUnion(t *testing.T) {
	plan := buildPlan(t, "select id from unsharded union select id from unsharded")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, "select id from unsharded union select id from unsharded", route.Query)

	plan = buildPlan(t, "select id from user union all select id from user_extra")
	concat, ok := plan.Instructions.(*engine.Concatenate)
	require.True(t, ok, "%T", plan.Instructions)
	require.Len(t, concat.Sources, 2)
	assert.Equal(t, "select id from user", asRoute(t, concat.Sources[0]).Query)
	assert.Equal(t, "select id from user_extra", asRoute(t, concat.Sources[1]).Query)

	plan = buildPlan(t, "select id from user union all select id from user_extra union all select a from unsharded")
	concat, ok = plan.Instructions.(*engine.Concatenate)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Len(t, concat.Sources, 3)
}

func TestAggregates(t *testing.T) {
	plan := buildPlan(t, "select count(*) from user")
	oa, ok := plan.Instructions.(*engine.OrderedAggregate)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, []engine.AggregateParams{{Opcode: engine.AggregateCount, Col: 0}}, oa.Aggregates)
	assert.Empty(t, oa.Keys)
	assert.Equal(t, "select count(*) from user", asRoute(t, oa.Input).Query)

	plan = buildPlan(t, "select col, count(*) from user group by col")
	oa, ok = plan.Instructions.(*engine.OrderedAggregate)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, []int{0}, oa.Keys)
	assert.Equal(t, []engine.AggregateParams{{Opcode: engine.AggregateCount, Col: 1}}, oa.Aggregates)
	route := asRoute(t, oa.Input)
	assert.Equal(t, "select col, count(*) from user group by col order by col asc", route.Query)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: -1}}, route.OrderBy)

	// A single shard query handles the aggregation.
	plan = buildPlan(t, "select count(*) from user where id = 5")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, "select count(*) from user where id = 5", route.Query)

	// Grouping by a unique vindex makes the aggregation local to each shard.
	plan = buildPlan(t, "select id, count(*) from user group by id")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, "select id, count(*) from user group by id", route.Query)
}

func TestAggregateTextColumn(t *testing.T) {
	plan := buildPlan(t, "select col1, count(*) from authoritative group by col1")
	oa, ok := plan.Instructions.(*engine.OrderedAggregate)
	require.True(t, ok, "%T", plan.Instructions)
	// The grouping key is compared by its weight string.
	assert.Equal(t, []int{2}, oa.Keys)
	route := asRoute(t, oa.Input)
	assert.Equal(t, "select col1, count(*), weight_string(col1) from authoritative group by col1 order by col1 asc", route.Query)
	// The weight string is pulled from mysql but not returned to the caller.
	assert.Equal(t, 2, oa.TruncateColumnCount)
	assert.Equal(t, 0, route.TruncateColumnCount)
}

func TestOrderByTextColumn(t *testing.T) {
	plan := buildPlan(t, "select col1 from authoritative order by col1")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, "select col1, weight_string(col1) from authoritative order by col1 asc", route.Query)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: 1}}, route.OrderBy)
	assert.Equal(t, 1, route.TruncateColumnCount)

	// Sorting twice on the same column reuses the weight string.
	plan = buildPlan(t, "select col1 from authoritative order by col1, col1 desc")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, "select col1, weight_string(col1) from authoritative order by col1 asc, col1 desc", route.Query)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: 1}, {Col: 0, WeightStringCol: 1, Desc: true}}, route.OrderBy)
	assert.Equal(t, 1, route.TruncateColumnCount)

	// A single shard query needs no merge and keeps its columns as is.
	plan = buildPlan(t, "select col1 from authoritative where user_id = 1 order by col1")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, "select col1 from authoritative where user_id = 1 order by col1 asc", route.Query)
	assert.Equal(t, 0, route.TruncateColumnCount)
}

func TestDerivedTableColumnType(t *testing.T) {
	// Column types survive a derived table that merges into a route.
	plan := buildPlan(t, "select t.col1 from (select col1 from authoritative) as t order by t.col1")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, "select t.col1, weight_string(t.col1) from (select col1 from authoritative) as t order by t.col1 asc", route.Query)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: 1}}, route.OrderBy)
	assert.Equal(t, 1, route.TruncateColumnCount)

	// They also survive a cross-shard derived table.
	plan = buildPlan(t, "select t.col1 from (select authoritative.col1 from authoritative join user_extra on authoritative.col1 = user_extra.col) as t order by t.col1")
	ms, ok := plan.Instructions.(*engine.MemorySort)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: 1}}, ms.OrderBy)
	assert.Equal(t, 1, ms.TruncateColumnCount)
	sq, ok := ms.Input.(*engine.Subquery)
	require.True(t, ok, "%T", ms.Input)
	assert.Equal(t, []int{0, 1}, sq.Cols)
	join, ok := sq.Subquery.(*engine.Join)
	require.True(t, ok, "%T", sq.Subquery)
	assert.Equal(t, []int{-1, -2}, join.Cols)
	assert.Contains(t, asRoute(t, join.Left).Query, "weight_string(authoritative.col1)")
}

func TestOrderByAndLimit(t *testing.T) {
	plan := buildPlan(t, "select id from user order by id desc")
	route := asRoute(t, plan.Instructions)
	assert.Equal(t, "select id from user order by id desc", route.Query)
	assert.Equal(t, []engine.OrderbyParams{{Col: 0, WeightStringCol: -1, Desc: true}}, route.OrderBy)

	plan = buildPlan(t, "select id from user limit 5")
	limit, ok := plan.Instructions.(*engine.Limit)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, sqltypes.PlanValue{Value: sqltypes.NewInt64(5)}, limit.Count)
	assert.True(t, limit.Offset.IsNull())
	assert.Equal(t, "select id from user limit 5", asRoute(t, limit.Input).Query)
	assert.Empty(t, plan.Vars)

	// The shards return enough rows to skip the offset.
	plan = buildPlan(t, "select id from user limit 10, 5")
	limit, ok = plan.Instructions.(*engine.Limit)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, sqltypes.PlanValue{Value: sqltypes.NewInt64(5)}, limit.Count)
	assert.Equal(t, sqltypes.PlanValue{Value: sqltypes.NewInt64(10)}, limit.Offset)
	assert.Equal(t, "select id from user limit 15", asRoute(t, limit.Input).Query)

	// Bind variables are only known at execution time.
	plan = buildPlan(t, "select id from user limit :a, 5")
	limit, ok = plan.Instructions.(*engine.Limit)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, sqltypes.PlanValue{Key: "a"}, limit.Offset)
	assert.Equal(t, "select id from user limit :__upper_limit", asRoute(t, limit.Input).Query)
	assert.Equal(t, []string{"__upper_limit"}, plan.Vars)

	// A sort keeps the upper limit and doesn't pass it down.
	plan = buildPlan(t, "select user.col, user_extra.id from user join user_extra on user.col = user_extra.col order by user_extra.id limit 3")
	limit, ok = plan.Instructions.(*engine.Limit)
	require.True(t, ok, "%T", plan.Instructions)
	ms, ok := limit.Input.(*engine.MemorySort)
	require.True(t, ok, "%T", limit.Input)
	assert.Equal(t, sqltypes.PlanValue{Value: sqltypes.NewInt64(3)}, ms.UpperLimit)

	plan = buildPlan(t, "select id from user where id = 5 order by id limit 5")
	route = asRoute(t, plan.Instructions)
	assert.Equal(t, "select id from user where id = 5 order by id asc limit 5", route.Query)
}

func TestSplitTable(t *testing.T) {
	testcases := []struct {
		query      string
		partitions []int
		queries    []string
	}{{
		query:      "select id from orders where id = 5",
		partitions: []int{1},
		queries:    []string{"select id from orders_0001 where id = 5"},
	}, {
		query:      "select id from orders where id in (1, 2)",
		partitions: []int{1, 2},
		queries: []string{
			"select id from orders_0001 where id in (1, 2)",
			"select id from orders_0002 where id in (1, 2)",
		},
	}, {
		query:      "select id from orders",
		partitions: []int{0, 1, 2, 3},
		queries: []string{
			"select id from orders_0000",
			"select id from orders_0001",
			"select id from orders_0002",
			"select id from orders_0003",
		},
	}}
	for _, tcase := range testcases {
		t.Run(tcase.query, func(t *testing.T) {
			plan := buildPlan(t, tcase.query)
			split, ok := plan.Instructions.(*engine.SplitTableRoute)
			require.True(t, ok, "%T", plan.Instructions)
			assert.Equal(t, "orders", split.Table)
			assert.Equal(t, "id", split.Column)
			assert.Equal(t, 4, split.Count)
			assert.Equal(t, tcase.partitions, split.Partitions)
			assert.Equal(t, tcase.queries, split.Queries)
			assert.Equal(t, engine.SelectScatter, split.Route.Opcode)
		})
	}
}

func TestInsertSharded(t *testing.T) {
	plan := buildPlan(t, "insert into user(id, name) values (1, 'a')")
	ins, ok := plan.Instructions.(*engine.Insert)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.InsertSharded, ins.Opcode)
	assert.Equal(t, "user", ins.Keyspace.Name)
	assert.Equal(t, "insert into user(id, name) values (:_id0, :_name0)", ins.Query)
	assert.Equal(t, "insert into user(id, name) values ", ins.Prefix)
	assert.Equal(t, []string{"(:_id0, :_name0)"}, ins.Mid)
	assert.Equal(t, "", ins.Suffix)

	require.NotNil(t, ins.Generate)
	assert.Equal(t, "main", ins.Generate.Keyspace.Name)
	assert.Equal(t, "select next :n values from seq", ins.Generate.Query)
	assert.Equal(t, sqltypes.PlanValue{Values: []sqltypes.PlanValue{{Value: sqltypes.NewInt64(1)}}}, ins.Generate.Values)

	want := []sqltypes.PlanValue{{
		Values: []sqltypes.PlanValue{{
			Values: []sqltypes.PlanValue{{Key: "__seq0"}},
		}},
	}, {
		Values: []sqltypes.PlanValue{{
			Values: []sqltypes.PlanValue{{Value: sqltypes.MakeTrusted(sqltypes.VarBinary, []byte("a"))}},
		}},
	}}
	assert.Equal(t, want, ins.VindexValues)
}

func TestInsertUnsharded(t *testing.T) {
	plan := buildPlan(t, "insert into unsharded(a) values (1)")
	ins, ok := plan.Instructions.(*engine.Insert)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.InsertUnsharded, ins.Opcode)
	assert.Equal(t, "insert into unsharded(a) values (1)", ins.Query)
	assert.Nil(t, ins.Generate)

	plan = buildPlan(t, "insert into unsharded_auto(id, val) values (null, 'a')")
	ins, ok = plan.Instructions.(*engine.Insert)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, "insert into unsharded_auto(id, val) values (:__seq0, 'a')", ins.Query)
	require.NotNil(t, ins.Generate)
	assert.Equal(t, sqltypes.PlanValue{Values: []sqltypes.PlanValue{{}}}, ins.Generate.Values)
}

func TestDelete(t *testing.T) {
	plan := buildPlan(t, "delete from user where id = 1")
	del, ok := plan.Instructions.(*engine.Delete)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.Equal, del.Opcode)
	assert.Equal(t, "user_index", del.Vindex.String())
	assert.Equal(t, []sqltypes.PlanValue{{Value: sqltypes.NewInt64(1)}}, del.Values)
	assert.Equal(t, "delete from user where id = 1", del.Query)
	assert.Equal(t, "select id, name from user where id = 1 for update", del.OwnedVindexQuery)

	plan = buildPlan(t, "delete from user_extra where user_id = 1")
	del, ok = plan.Instructions.(*engine.Delete)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.Equal, del.Opcode)
	assert.Equal(t, "", del.OwnedVindexQuery)

	plan = buildPlan(t, "delete from unsharded where a = 1")
	del, ok = plan.Instructions.(*engine.Delete)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.Unsharded, del.Opcode)
	assert.Equal(t, "delete from unsharded where a = 1", del.Query)
}

func TestUpdate(t *testing.T) {
	plan := buildPlan(t, "update user set name = 'foo' where id = 1")
	upd, ok := plan.Instructions.(*engine.Update)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.Equal, upd.Opcode)
	assert.Equal(t, "update user set name = 'foo' where id = 1", upd.Query)
	want := map[string][]sqltypes.PlanValue{
		"name_user_map": {{Value: sqltypes.MakeTrusted(sqltypes.VarBinary, []byte("foo"))}},
	}
	assert.Equal(t, want, upd.ChangedVindexValues)
	assert.Equal(t, "select id, name from user where id = 1 for update", upd.OwnedVindexQuery)

	plan = buildPlan(t, "update user_extra set col = 2")
	upd, ok = plan.Instructions.(*engine.Update)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, engine.Scatter, upd.Opcode)
	assert.Empty(t, upd.ChangedVindexValues)
	assert.Equal(t, "", upd.OwnedVindexQuery)

	plan = buildPlan(t, "update /*vt+ MULTI_SHARD_AUTOCOMMIT=1 */ user_extra set col = 2")
	upd, ok = plan.Instructions.(*engine.Update)
	require.True(t, ok, "%T", plan.Instructions)
	assert.True(t, upd.MultiShardAutocommit)
}

func TestSet(t *testing.T) {
	plan := buildPlan(t, "set @foo = 42, autocommit = 1")
	set, ok := plan.Instructions.(*engine.Set)
	require.True(t, ok, "%T", plan.Instructions)
	want := []engine.SetOp{
		&engine.UserDefinedVariable{Name: "foo", Expr: "42"},
		&engine.SysVarIgnore{Name: "autocommit", Expr: "1"},
	}
	assert.Equal(t, want, set.Ops)
	// The values are evaluated without touching any shard.
	assert.Equal(t, &engine.SingleRow{}, set.Input)
	assert.Equal(t, "SingleRow", set.Input.RouteType())
	assert.Empty(t, set.Input.Inputs())
}

func TestBypass(t *testing.T) {
	vc := newTestContext(t, "user:-80")
	plan, err := Build("select * from user where id = 1", vc)
	require.NoError(t, err)
	send, ok := plan.Instructions.(*engine.Send)
	require.True(t, ok, "%T", plan.Instructions)
	assert.Equal(t, "user", send.Keyspace.Name)
	assert.Equal(t, key.DestinationShard("-80"), send.TargetDestination)
	assert.Equal(t, "select * from user where id = 1", send.Query)
	assert.False(t, send.IsDML)

	plan, err = Build("delete from user", vc)
	require.NoError(t, err)
	send, ok = plan.Instructions.(*engine.Send)
	require.True(t, ok, "%T", plan.Instructions)
	assert.True(t, send.IsDML)
}

func TestUnsupported(t *testing.T) {
	testcases := []struct {
		query string
		err   string
	}{{
		query: "select * from user natural join user_extra",
		err:   "unsupported: natural join",
	}, {
		query: "select id from user union select id from user_extra",
		err:   "unsupported: UNION cannot be executed as a single route",
	}, {
		query: "select user.col from user join user_extra group by user.col",
		err:   "unsupported: cross-shard query with aggregates",
	}, {
		query: "select distinct user.col from user join user_extra",
		err:   "unsupported: cross-shard query with aggregates",
	}, {
		query: "select * from user join user_extra",
		err:   "unsupported: '*' expression in cross-shard query",
	}, {
		query: "select user.id from user left join user_extra on user.col = user_extra.col where user_extra.id = 5",
		err:   "unsupported: cross-shard left join and where clause",
	}, {
		query: "select id from user where id in (select col from user_extra where user_extra.id = user.col)",
		err:   "unsupported: cross-shard correlated subquery",
	}, {
		query: "select user.col, user_extra.id from user join user_extra on user.id < user_extra.user_id",
		err:   "unsupported: cross-shard join with non-equality condition",
	}, {
		query: "select user.col from user join user_extra on user.id = 5",
		err:   "unsupported: cross-shard join with non-equality condition",
	}, {
		query: "select id from user limit 'a'",
		err:   "unsupported: LIMIT must be an integer or a bind variable: 'a'",
	}, {
		query: "select * from user_index",
		err:   "unsupported: vindex user_index used as a table",
	}, {
		query: "select col2 from authoritative",
		err:   "",
	}, {
		query: "select col3 from authoritative",
		err:   "symbol col3 not found in table or subquery",
	}, {
		query: "select id from user order by col + 1",
		err:   "unsupported: in scatter query: complex order by expression: col + 1",
	}, {
		query: "update user set id = 2 where id = 1",
		err:   "unsupported: You can't update primary vindex columns. Invalid update on vindex: user_index",
	}, {
		query: "update music set id = 2 where user_id = 1",
		err:   "",
	}, {
		query: "update user set name = 'a' where id = 1 limit 1",
		err:   "Need to provide order by clause when using limit. Invalid update on vindex: name_user_map",
	}, {
		query: "update user set name = 'a', name = 'b' where id = 1",
		err:   "column has duplicate set values: 'name'",
	}, {
		query: "update user set name = concat(name, 'a') where id = 1",
		err:   "only values are supported: invalid update on column: name",
	}, {
		query: "update user_extra set col = 1 limit 5",
		err:   "unsupported: multi shard update with limit",
	}, {
		query: "delete from user_extra limit 5",
		err:   "unsupported: multi shard delete with limit",
	}, {
		query: "delete from user where id in (select col from user_extra)",
		err:   "unsupported: subqueries in sharded DML",
	}, {
		query: "delete from ref",
		err:   "unsupported: delete on a reference table in a sharded keyspace",
	}, {
		query: "delete from orders where id = 1",
		err:   "unsupported: delete on a split table",
	}, {
		query: "insert into user(id) select id from user_extra",
		err:   "unsupported: insert into select",
	}, {
		query: "replace into user(id) values (1)",
		err:   "unsupported: REPLACE INTO with sharded schema",
	}, {
		query: "insert into user(id, name) values (1)",
		err:   "column list doesn't match values",
	}, {
		query: "insert into unsharded_auto values (1, 2)",
		err:   "column list required for tables with auto-inc columns",
	}, {
		query: "set global autocommit = 1",
		err:   "unsupported: in set: global",
	}, {
		query: "set @x = (select 1 from dual)",
		err:   "unsupported: subquery in set: (select 1 from dual)",
	}, {
		query: "select id from nosuchtable",
		err:   "table nosuchtable not found",
	}}
	for _, tcase := range testcases {
		t.Run(tcase.query, func(t *testing.T) {
			_, err := Build(tcase.query, newTestContext(t, ""))
			if tcase.err == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tcase.err)
		})
	}
}

func TestUnsupportedCode(t *testing.T) {
	_, err := Build("select * from user natural join user_extra", newTestContext(t, ""))
	require.Error(t, err)
	assert.Equal(t, vterrors.Unimplemented, vterrors.Code(err))

	_, err = Build("select col3 from authoritative", newTestContext(t, ""))
	require.Error(t, err)
	assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err))
}

func TestPlanMetadata(t *testing.T) {
	plan := buildPlan(t, "select id from user where id = 5")
	assert.Equal(t, "select id from user where id = 5", plan.Original)
	assert.Equal(t, "SELECT", plan.Type)
	assert.Empty(t, plan.Vars)
}

// titles flattens a description tree into indented titles.
func titles(pd engine.PrimitiveDescription, depth int) []string {
	out := []string{strings.Repeat("  ", depth) + pd.Title()}
	for _, input := range pd.Inputs {
		out = append(out, titles(input, depth+1)...)
	}
	return out
}

func TestPlanShape(t *testing.T) {
	testcases := []struct {
		query string
		want  []string
	}{{
		query: "select user.col, user_extra.id from user join user_extra on user.col = user_extra.col",
		want: []string{
			"Join Join",
			"  Route SelectScatter [user]",
			"  Route SelectScatter [user]",
		},
	}, {
		query: "select id from user where id in (select col from user_extra)",
		want: []string{
			"Subquery PulloutIn",
			"  Route SelectScatter [user]",
			"  Route SelectIN [user]",
		},
	}, {
		query: "select id from user where id = 5",
		want: []string{
			"Route SelectEqualUnique [user]",
		},
	}}
	for _, tc := range testcases {
		t.Run(tc.query, func(t *testing.T) {
			plan := buildPlan(t, tc.query)
			got := titles(engine.PrimitiveToPlanDescription(plan.Instructions), 0)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("plan shape mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
