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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeValues(t *testing.T) {
	testcases := []struct {
		defined  Type
		expected int
	}{{
		defined:  Null,
		expected: 0,
	}, {
		defined:  Int8,
		expected: 1 | flagIsIntegral,
	}, {
		defined:  Uint64,
		expected: 10 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Float64,
		expected: 12 | flagIsFloat,
	}, {
		defined:  Year,
		expected: 17 | flagIsIntegral | flagIsUnsigned,
	}, {
		defined:  Decimal,
		expected: 18,
	}, {
		defined:  Text,
		expected: 6163,
	}, {
		defined:  VarChar,
		expected: 6165,
	}, {
		defined:  VarBinary,
		expected: 10262,
	}, {
		defined:  Expression,
		expected: 31,
	}}
	for _, tcase := range testcases {
		assert.Equal(t, tcase.expected, int(tcase.defined), tcase.defined.String())
	}
}

func TestIsFunctions(t *testing.T) {
	assert.False(t, IsIntegral(Null))
	assert.True(t, IsIntegral(Int64))
	assert.True(t, IsSigned(Int64))
	assert.False(t, IsSigned(Uint64))
	assert.True(t, IsUnsigned(Uint64))
	assert.False(t, IsUnsigned(Int64))
	assert.True(t, IsFloat(Float32))
	assert.False(t, IsFloat(Int64))
	assert.True(t, IsQuoted(Datetime))
	assert.True(t, IsText(Char))
	assert.False(t, IsText(Binary))
	assert.True(t, IsBinary(Blob))
	assert.True(t, IsNumber(Decimal))
	assert.False(t, IsNumber(VarChar))
}

func TestTypeFromString(t *testing.T) {
	typ, err := TypeFromString("varchar")
	require.NoError(t, err)
	assert.Equal(t, VarChar, typ)

	_, err = TypeFromString("nosuchtype")
	assert.EqualError(t, err, "unknown type: nosuchtype")
}

func TestMySQLToType(t *testing.T) {
	testcases := []struct {
		in  string
		out Type
	}{
		{"int", Int32},
		{"BIGINT", Int64},
		{" varchar ", VarChar},
		{"longtext", Text},
		{"json", TypeJSON},
		{"unknown", VarBinary},
	}
	for _, tcase := range testcases {
		assert.Equal(t, tcase.out, MySQLToType(tcase.in), tcase.in)
	}
}
