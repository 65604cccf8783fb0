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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

// processTestSelect runs the SELECT analysis without wiring up the
// resulting builder tree.
func processTestSelect(t *testing.T, query string) *primitiveBuilder {
	t.Helper()
	stmt, err := sqlparser.Parse(query)
	require.NoError(t, err)
	sel, ok := stmt.(*sqlparser.Select)
	require.True(t, ok, "%T", stmt)
	pb := newPrimitiveBuilder(newTestContext(t, ""), newJointab(sqlparser.GetBindvars(sel)))
	require.NoError(t, pb.processSelect(sel, nil))
	return pb
}

// checkJoinOrder verifies that every join of the tree is numbered
// after its left side, which is itself numbered before its right side.
func checkJoinOrder(t *testing.T, bldr builder) {
	t.Helper()
	switch bldr := bldr.(type) {
	case *join:
		checkJoinOrder(t, bldr.Left)
		checkJoinOrder(t, bldr.Right)
		assert.Equal(t, bldr.Left.Order(), bldr.leftOrder)
		assert.Less(t, bldr.Left.Order(), bldr.Right.Order())
		assert.Less(t, bldr.Right.Order(), bldr.Order())
	case *subquery:
		checkJoinOrder(t, bldr.input)
		assert.Less(t, bldr.input.Order(), bldr.Order())
	}
}

func TestJoinOrder(t *testing.T) {
	testcases := []struct {
		query string
		order int
	}{{
		query: "select user.col from user join user_extra on user.col = user_extra.col",
		order: 3,
	}, {
		query: "select user.col from user join user_extra on user.col = user_extra.col join music on user_extra.col = music.col",
		order: 5,
	}, {
		query: "select user.col from user join (user_extra join music on user_extra.col = music.col) on user.col = user_extra.col",
		order: 5,
	}, {
		query: "select user.col from user left join user_extra on user.col = user_extra.col join music on user_extra.col = music.col",
		order: 5,
	}, {
		query: "select t.col from (select user.col from user join user_extra on user.col = user_extra.col) as t join music on t.col = music.col",
		order: 6,
	}}
	for _, tcase := range testcases {
		t.Run(tcase.query, func(t *testing.T) {
			pb := processTestSelect(t, tcase.query)
			_, ok := pb.bldr.(*join)
			require.True(t, ok, "%T", pb.bldr)
			checkJoinOrder(t, pb.bldr)
			assert.Equal(t, tcase.order, pb.bldr.Order())
		})
	}
}

func TestRouteResolve(t *testing.T) {
	r1 := &route{}
	r2 := &route{}
	r3 := &route{}
	r1.Redirect = r2
	r2.Redirect = r3
	assert.Equal(t, r3, r1.Resolve())
	assert.Equal(t, r3, r2.Resolve())
	assert.Equal(t, r3, r3.Resolve())
	assert.Equal(t, r1.Resolve(), r1.Resolve().Resolve())

	testcases := []string{
		"select user.col from user join user_extra on user.id = user_extra.user_id join music on user.id = music.user_id",
		"select user.col from user join (user_extra join music on user_extra.user_id = music.user_id) on user.id = user_extra.user_id",
		"select user.col from user, user_extra, music where user.id = user_extra.user_id and user_extra.user_id = music.user_id",
	}
	for _, query := range testcases {
		t.Run(query, func(t *testing.T) {
			pb := processTestSelect(t, query)
			rb, ok := pb.bldr.(*route)
			require.True(t, ok, "%T", pb.bldr)
			assert.Nil(t, rb.Redirect)
			assert.Equal(t, rb, pb.st.singleRoute)
			require.Len(t, pb.st.tables, 3)
			for name, tab := range pb.st.tables {
				origin, ok := tab.origin.(*route)
				require.True(t, ok, "%s: %T", name.Name, tab.origin)
				assert.Equal(t, rb, origin.Resolve(), name.Name)
				assert.Equal(t, rb, tab.Origin().(*route).Resolve(), name.Name)
			}
			assert.Equal(t, engine.SelectScatter, rb.eroute.Opcode)
		})
	}
}
