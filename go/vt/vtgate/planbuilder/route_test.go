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

	"github.com/vtplan/vtplan/go/vt/sqlparser"
)

func TestValEqual(t *testing.T) {
	c1 := &column{}
	c2 := &column{}
	testcases := []struct {
		in1, in2 sqlparser.Expr
		out      bool
	}{{
		in1: &sqlparser.ColName{Metadata: c1, Name: sqlparser.NewColIdent("c1")},
		in2: &sqlparser.ColName{Metadata: c1, Name: sqlparser.NewColIdent("c1")},
		out: true,
	}, {
		// Objects that have the same name need not be the same because
		// they might have appeared in different scopes and could have
		// resolved to different columns.
		in1: &sqlparser.ColName{Metadata: c1, Name: sqlparser.NewColIdent("c1")},
		in2: &sqlparser.ColName{Metadata: c2, Name: sqlparser.NewColIdent("c1")},
		out: false,
	}, {
		in1: &sqlparser.ColName{Name: sqlparser.NewColIdent("c1")},
		in2: &sqlparser.ColName{Name: sqlparser.NewColIdent("c1")},
		out: false,
	}, {
		in1: sqlparser.NewValArg([]byte(":aa")),
		in2: &sqlparser.ColName{Metadata: c1, Name: sqlparser.NewColIdent("c1")},
		out: false,
	}, {
		in1: sqlparser.NewValArg([]byte(":aa")),
		in2: sqlparser.NewValArg([]byte(":aa")),
		out: true,
	}, {
		in1: sqlparser.NewValArg([]byte(":aa")),
		in2: sqlparser.NewValArg([]byte(":bb")),
	}, {
		in1: sqlparser.NewStrVal([]byte("aa")),
		in2: sqlparser.NewStrVal([]byte("aa")),
		out: true,
	}, {
		in1: sqlparser.NewStrVal([]byte("11")),
		in2: sqlparser.NewHexVal([]byte("3131")),
		out: true,
	}, {
		in1: sqlparser.NewHexVal([]byte("3131")),
		in2: sqlparser.NewStrVal([]byte("11")),
		out: true,
	}, {
		in1: sqlparser.NewHexVal([]byte("3131")),
		in2: sqlparser.NewHexVal([]byte("3131")),
		out: true,
	}, {
		in1: sqlparser.NewHexVal([]byte("3131")),
		in2: sqlparser.NewHexVal([]byte("3132")),
		out: false,
	}, {
		in1: sqlparser.NewHexVal([]byte("313")),
		in2: sqlparser.NewHexVal([]byte("3132")),
		out: false,
	}, {
		in1: sqlparser.NewHexVal([]byte("3132")),
		in2: sqlparser.NewHexVal([]byte("313")),
		out: false,
	}, {
		in1: sqlparser.NewIntVal([]byte("313")),
		in2: sqlparser.NewHexVal([]byte("3132")),
		out: false,
	}, {
		in1: sqlparser.NewIntVal([]byte("1")),
		in2: sqlparser.NewIntVal([]byte("1")),
		out: true,
	}, {
		in1: sqlparser.NewIntVal([]byte("1")),
		in2: sqlparser.NewIntVal([]byte("2")),
		out: false,
	}}
	for _, tc := range testcases {
		assert.Equal(t, tc.out, valEqual(tc.in1, tc.in2), "valEqual(%#v, %#v)", sqlparser.String(tc.in1), sqlparser.String(tc.in2))
	}
}

func TestQueryTimeout(t *testing.T) {
	parse := func(query string) sqlparser.CommentDirectives {
		stmt, err := sqlparser.Parse(query)
		if err != nil {
			t.Fatal(err)
		}
		return sqlparser.ExtractCommentDirectives(stmt.(*sqlparser.Select).Comments)
	}
	assert.Equal(t, 0, queryTimeout(parse("select 1 from dual")))
	assert.Equal(t, 20, queryTimeout(parse("select /*vt+ QUERY_TIMEOUT_MS=20 */ 1 from dual")))
	assert.Equal(t, 0, queryTimeout(parse("select /*vt+ QUERY_TIMEOUT_MS=abc */ 1 from dual")))
}
