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

func TestNormalize(t *testing.T) {
	prefix := "bv"
	testcases := []struct {
		in      string
		outstmt string
		outbv   map[string]*sqltypes.BindVariable
	}{{
		// str val
		in:      "select * from t where v1 = 'aa'",
		outstmt: "select * from t where v1 = :bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewVarBinary("aa")),
		},
	}, {
		// int val
		in:      "select * from t where v1 = 1",
		outstmt: "select * from t where v1 = :bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
		},
	}, {
		// float val
		in:      "select * from t where v1 = 1.2",
		outstmt: "select * from t where v1 = :bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.MakeTrusted(sqltypes.Float64, []byte("1.2"))),
		},
	}, {
		// val should not be reused for non-select statements
		in:      "update a set v1 = 1 where v2 = 1",
		outstmt: "update a set v1 = :bv1 where v2 = :bv2",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
			"bv2": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
		},
	}, {
		// val should be reused only in subqueries of DMLs
		in:      "update a set v1 = 1 where v2 = (select 1 from b where v3 = 1)",
		outstmt: "update a set v1 = :bv1 where v2 = (select :bv2 from b where v3 = :bv2)",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
			"bv2": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
		},
	}, {
		// dups in select are deduped, but strings and ints don't collide
		in:      "select * from t where v1 = 1 and v2 = '1' and v3 = 1",
		outstmt: "select * from t where v1 = :bv1 and v2 = :bv2 and v3 = :bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
			"bv2": sqltypes.ValueBindVariable(sqltypes.NewVarBinary("1")),
		},
	}, {
		// bind vars already present are not reused
		in:      "select * from t where v1 = :bv1 and v2 = 2",
		outstmt: "select * from t where v1 = :bv1 and v2 = :bv2",
		outbv: map[string]*sqltypes.BindVariable{
			"bv2": sqltypes.ValueBindVariable(sqltypes.NewInt64(2)),
		},
	}, {
		// IN clause with only values becomes a list bind var
		in:      "select * from t where v1 in (1, '2')",
		outstmt: "select * from t where v1 in ::bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.TupleBindVariable([]sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewVarBinary("2")}),
		},
	}, {
		// IN clause with a column is left alone
		in:      "select * from t where v1 in (1, a)",
		outstmt: "select * from t where v1 in (:bv1, a)",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(1)),
		},
	}, {
		// order by column position is not normalized
		in:      "select a, b from t order by 1 asc",
		outstmt: "select a, b from t order by 1 asc",
		outbv:   map[string]*sqltypes.BindVariable{},
	}, {
		// limit is normalized
		in:      "select a from t limit 10",
		outstmt: "select a from t limit :bv1",
		outbv: map[string]*sqltypes.BindVariable{
			"bv1": sqltypes.ValueBindVariable(sqltypes.NewInt64(10)),
		},
	}, {
		// set is not normalized
		in:      "set autocommit = 1",
		outstmt: "set autocommit = 1",
		outbv:   map[string]*sqltypes.BindVariable{},
	}}
	for _, tc := range testcases {
		t.Run(tc.in, func(t *testing.T) {
			stmt, err := Parse(tc.in)
			require.NoError(t, err)
			bv := make(map[string]*sqltypes.BindVariable)
			Normalize(stmt, bv, prefix)
			assert.Equal(t, tc.outstmt, String(stmt))
			assert.Equal(t, tc.outbv, bv)
		})
	}
}
