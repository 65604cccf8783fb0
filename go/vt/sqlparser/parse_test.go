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
)

var validSQL = []struct {
	input  string
	output string
}{{
	input:  "select 1",
	output: "select 1 from dual",
}, {
	input: "select 1 from t",
}, {
	input: "select /* comment */ a from t",
}, {
	input: "select distinct a from t",
}, {
	input: "select straight_join a from t",
}, {
	input: "select * from t where a = 1 and b = 'x'",
}, {
	input:  "select * from t where a = 'it''s' and b = \"x\\ny\"",
	output: "select * from t where a = 'it\\'s' and b = 'x\\ny'",
}, {
	input: "select t.* from t",
}, {
	input: "select ks.t.* from ks.t",
}, {
	input: "select a, b as c from t as t1 join u on t1.id = u.id",
}, {
	input:  "select a c from t t1",
	output: "select a as c from t as t1",
}, {
	input:  "select a from t inner join u",
	output: "select a from t join u",
}, {
	input: "select a from t left join u on t.a = u.a",
}, {
	input:  "select a from t left outer join u on t.a = u.a",
	output: "select a from t left join u on t.a = u.a",
}, {
	input: "select a from t straight_join u on t.a = u.a",
}, {
	input: "select a from t join u using (a)",
}, {
	input: "select a from (t join u on t.a = u.a)",
}, {
	input: "select a from (select a from t) as d",
}, {
	input:  "select a from t order by a",
	output: "select a from t order by a asc",
}, {
	input: "select count(*), col from user group by col order by col desc limit 10",
}, {
	input: "select count(distinct a) from t",
}, {
	input: "select a from t limit 1, 2",
}, {
	input:  "select a from t limit 2 offset 1",
	output: "select a from t limit 1, 2",
}, {
	input: "select id from t where id in (1, 2)",
}, {
	input: "select id from t where id not in (1, 2)",
}, {
	input: "select id from t where id in ::list",
}, {
	input:  "select ? from t where a = ?",
	output: "select :v1 from t where a = :v2",
}, {
	input: "select a from t where b = :b",
}, {
	input: "select a from t union all select b from u",
}, {
	input: "select a from t union select b from u union distinct select c from v",
}, {
	input: "(select a from t) union (select b from u) order by a asc limit 5",
}, {
	input: "select a from t where not exists (select 1 from u)",
}, {
	input: "select a from t where a = (select max(b) from u)",
}, {
	input: "select a from t where b between 1 and 2",
}, {
	input: "select a from t where b not between 1 and 2",
}, {
	input: "select a from t where b is not null",
}, {
	input: "select a from t where b is null or c is true",
}, {
	input: "select a from t where b like 'a%' escape '!'",
}, {
	input: "select a from t where b not like 'a%'",
}, {
	input: "select a from t where b regexp 'x'",
}, {
	input:  "select a from t where b != 1 and c <> 2",
	output: "select a from t where b != 1 and c != 2",
}, {
	input: "select a from t where b <=> null",
}, {
	input: "select a from t where (b = 1 or c = 2) and d = 3",
}, {
	input: "select a + b * c, a - b / c, a div b, a % b from t",
}, {
	input:  "select a mod b from t",
	output: "select a % b from t",
}, {
	input: "select a & b, a | b, a ^ b, a << 2, a >> 2 from t",
}, {
	input: "select -1, -a, ~a, !a from t",
}, {
	input:  "select - -1 from t",
	output: "select - -1 from t",
}, {
	input: "select 1.5, 0x1f, X'1f', B'101' from t",
}, {
	input: "select `select`, `a b` from t",
}, {
	input: "select a from t for update",
}, {
	input: "select a from t lock in share mode",
}, {
	input: "select a from t use index (a_idx)",
}, {
	input: "select a from t force index (a_idx, b_idx)",
}, {
	input: "select case a when 1 then 'x' else 'y' end from t",
}, {
	input: "select case when a = 1 then 'x' end from t",
}, {
	input: "select if(a, 1, 2), left(b, 3) from t",
}, {
	input: "select a collate utf8_bin from t",
}, {
	input: "select group_concat(distinct a order by a asc separator ',') from t",
}, {
	input: "select true, false, null from t",
}, {
	input: "select next 10 values from seq",
}, {
	input:  "select next value from seq",
	output: "select next 1 values from seq",
}, {
	input: "select a from t where (a, b) = (1, 2)",
}, {
	input: "select a from t having count(*) > 1",
}, {
	input: "select a from t group by a having count(*) > 1",
}, {
	input: "select @x, @@session.autocommit from t",
}, {
	input: "insert into t(a, b) values (1, 2), (3, 4)",
}, {
	input:  "insert into t set a = 1, b = 2",
	output: "insert into t(a, b) values (1, 2)",
}, {
	input: "insert ignore into t(a) values (1)",
}, {
	input: "replace into t(a) values (1)",
}, {
	input: "insert into t(a) select a from u",
}, {
	input: "insert into t(a) values (1) on duplicate key update a = values(a)",
}, {
	input: "insert into t(a, b) values (default, null)",
}, {
	input: "update t set a = 1 where id = 2",
}, {
	input: "update /* c */ t set a = 1, b = b + 1 where id = 2 order by a asc limit 1",
}, {
	input: "delete from t where id = 1",
}, {
	input: "delete t from t join u on t.a = u.a where u.b = 1",
}, {
	input: "delete from t order by a asc limit 10",
}, {
	input: "set autocommit = 1",
}, {
	input: "set @x = 1, @y = 'a'",
}, {
	input:  "set session autocommit = on",
	output: "set session autocommit = 'on'",
}, {
	input:  "set names utf8",
	output: "set names = 'utf8'",
}, {
	input:  "select a from t;",
	output: "select a from t",
}}

func TestValid(t *testing.T) {
	for _, tcase := range validSQL {
		t.Run(tcase.input, func(t *testing.T) {
			want := tcase.output
			if want == "" {
				want = tcase.input
			}
			tree, err := Parse(tcase.input)
			require.NoError(t, err)
			assert.Equal(t, want, String(tree))

			// The output must reparse to itself.
			tree, err = Parse(want)
			require.NoError(t, err)
			assert.Equal(t, want, String(tree))
		})
	}
}

func TestInvalid(t *testing.T) {
	invalidSQL := []struct {
		input string
		err   string
	}{{
		input: "select from t",
		err:   "near 'from'",
	}, {
		input: "select a from",
		err:   "syntax error at position",
	}, {
		input: "select a from t where",
		err:   "syntax error at position",
	}, {
		input: "select a from (select a from t)",
		err:   "Every derived table must have its own alias",
	}, {
		input: "select a from t left join u",
		err:   "syntax error at position",
	}, {
		input: "select 'a",
		err:   "syntax error",
	}, {
		input: "drop table t",
		err:   "near 'drop'",
	}, {
		input: "select a from t garbage garbage",
		err:   "near 'garbage'",
	}, {
		input: "(select a from t) order by a",
		err:   "syntax error",
	}}
	for _, tcase := range invalidSQL {
		t.Run(tcase.input, func(t *testing.T) {
			_, err := Parse(tcase.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tcase.err)
		})
	}
}

func TestParseExpr(t *testing.T) {
	expr, err := ParseExpr("a = 1 and b in (1, 2)")
	require.NoError(t, err)
	and, ok := expr.(*AndExpr)
	require.True(t, ok, "%T", expr)
	cmp := and.Right.(*ComparisonExpr)
	assert.Equal(t, InStr, cmp.Operator)
	assert.Equal(t, "a = 1 and b in (1, 2)", String(expr))

	_, err = ParseExpr("a = ")
	assert.Error(t, err)
}

func TestCaseInsensitiveKeywords(t *testing.T) {
	tree, err := Parse("SELECT A FROM T WHERE B = 1 ORDER BY A DESC")
	require.NoError(t, err)
	assert.Equal(t, "select A from T where B = 1 order by A desc", String(tree))
}

func TestSplitStatementToPieces(t *testing.T) {
	testcases := []struct {
		input  string
		output []string
	}{{
		input:  "select * from table",
		output: []string{"select * from table"},
	}, {
		input:  "select * from table1; select * from table2;",
		output: []string{"select * from table1", "select * from table2"},
	}, {
		input:  "select * from /* comment ; */ table;",
		output: []string{"select * from /* comment ; */ table"},
	}, {
		input:  "select * from table where semi = ';';",
		output: []string{"select * from table where semi = ';'"},
	}, {
		input:  "select * from t1;;\n\n  select * from t2  ",
		output: []string{"select * from t1", "select * from t2"},
	}, {
		input:  "  ;  ",
		output: []string{},
	}}
	for _, tcase := range testcases {
		pieces, err := SplitStatementToPieces(tcase.input)
		require.NoError(t, err, tcase.input)
		assert.Equal(t, tcase.output, pieces, tcase.input)
	}

	_, err := SplitStatementToPieces("select 'unterminated from t")
	assert.Error(t, err)
}
