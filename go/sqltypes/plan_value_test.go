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

package sqltypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValueIsNull(t *testing.T) {
	tcases := []struct {
		in  PlanValue
		out bool
	}{{
		in:  PlanValue{},
		out: true,
	}, {
		in:  PlanValue{Key: "aa"},
		out: false,
	}, {
		in:  PlanValue{Value: NewVarBinary("aa")},
		out: false,
	}, {
		in:  PlanValue{ListKey: "aa"},
		out: false,
	}, {
		in:  PlanValue{Values: []PlanValue{}},
		out: false,
	}}
	for _, tc := range tcases {
		assert.Equal(t, tc.out, tc.in.IsNull(), "IsNull(%v)", tc.in)
	}
}

func TestPlanValueIsList(t *testing.T) {
	assert.False(t, PlanValue{Key: "a"}.IsList())
	assert.True(t, PlanValue{ListKey: "a"}.IsList())
	assert.True(t, PlanValue{Values: []PlanValue{}}.IsList())
}

func TestResolveList(t *testing.T) {
	bindVars := map[string]*BindVariable{
		"int":   ValueBindVariable(NewInt64(10)),
		"list":  TupleBindVariable([]Value{NewInt64(1), NewInt64(2)}),
		"empty": TupleBindVariable(nil),
	}
	testcases := []struct {
		in     PlanValue
		out    []Value
		outErr string
	}{{
		in:  PlanValue{ListKey: "list"},
		out: []Value{NewInt64(1), NewInt64(2)},
	}, {
		in: PlanValue{Values: []PlanValue{
			{Key: "int"},
			{Value: NewVarChar("a")},
		}},
		out: []Value{NewInt64(10), NewVarChar("a")},
	}, {
		in:     PlanValue{ListKey: "int"},
		outErr: "single value was supplied for TUPLE bind var int",
	}, {
		in:     PlanValue{ListKey: "absent"},
		outErr: "missing bind var absent",
	}, {
		in:     PlanValue{Key: "int"},
		outErr: "a single value was supplied where a list was expected",
	}}
	for _, tc := range testcases {
		got, err := tc.in.ResolveList(bindVars)
		if tc.outErr != "" {
			assert.EqualError(t, err, tc.outErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.out, got)
	}
}

func TestPlanValueMarshalJSON(t *testing.T) {
	pv := PlanValue{Values: []PlanValue{
		{Key: "a"},
		{Value: NewInt64(1)},
		{Value: NewVarChar("b")},
		{ListKey: "l"},
		{},
	}}
	b, err := json.Marshal(pv)
	require.NoError(t, err)
	assert.Equal(t, `[":a",1,"b","::l",null]`, string(b))
}
