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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValue(t *testing.T) {
	testcases := []struct {
		inType Type
		inVal  string
		outVal Value
		outErr string
	}{{
		inType: Null,
		inVal:  "",
		outVal: NULL,
	}, {
		inType: Int64,
		inVal:  "1",
		outVal: NewInt64(1),
	}, {
		inType: Uint64,
		inVal:  "1",
		outVal: NewUint64(1),
	}, {
		inType: Float64,
		inVal:  "1.00",
		outVal: MakeTrusted(Float64, []byte("1.00")),
	}, {
		inType: VarChar,
		inVal:  "a",
		outVal: NewVarChar("a"),
	}, {
		inType: Int64,
		inVal:  "abc",
		outErr: `strconv.ParseInt: parsing "abc": invalid syntax`,
	}, {
		inType: Uint64,
		inVal:  "-1",
		outErr: `strconv.ParseUint: parsing "-1": invalid syntax`,
	}, {
		inType: Tuple,
		inVal:  "a",
		outErr: "invalid type specified for MakeValue: TUPLE",
	}}
	for _, tcase := range testcases {
		v, err := NewValue(tcase.inType, []byte(tcase.inVal))
		if tcase.outErr != "" {
			assert.EqualError(t, err, tcase.outErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tcase.outVal, v)
	}
}

func TestIntegralValue(t *testing.T) {
	v, err := NewIntegral("1")
	require.NoError(t, err)
	assert.Equal(t, NewInt64(1), v)

	v, err = NewIntegral("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, NewUint64(18446744073709551615), v)

	_, err = NewIntegral("abcd")
	assert.Error(t, err)
}

func TestAccessors(t *testing.T) {
	v := NewInt64(1)
	assert.Equal(t, Int64, v.Type())
	assert.Equal(t, []byte("1"), v.Raw())
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, "1", v.ToString())
	assert.False(t, v.IsNull())
	assert.True(t, v.IsIntegral())
	assert.True(t, v.IsSigned())
	assert.False(t, v.IsUnsigned())
	assert.False(t, v.IsFloat())
	assert.False(t, v.IsQuoted())
	assert.False(t, v.IsText())
	assert.False(t, v.IsBinary())

	n, err := v.ToInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = NewVarChar("a").ToUint64()
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	testcases := []struct {
		in       Value
		outSQL   string
		outPrint string
	}{{
		in:       NULL,
		outSQL:   "null",
		outPrint: "NULL",
	}, {
		in:       NewInt64(1),
		outSQL:   "1",
		outPrint: "INT64(1)",
	}, {
		in:       NewVarChar("foo"),
		outSQL:   "'foo'",
		outPrint: `VARCHAR("foo")`,
	}, {
		in:       NewVarChar("\x00'\"\b\n\r\t\x1A\\"),
		outSQL:   "'\\0\\'\\\"\\b\\n\\r\\t\\Z\\\\'",
		outPrint: `VARCHAR("\x00'\"\b\n\r\t\x1a\\")`,
	}}
	for _, tcase := range testcases {
		buf := &bytes.Buffer{}
		tcase.in.EncodeSQL(buf)
		assert.Equal(t, tcase.outSQL, buf.String())
		var sb strings.Builder
		tcase.in.EncodeSQL(&sb)
		assert.Equal(t, tcase.outSQL, sb.String())
		assert.Equal(t, tcase.outPrint, tcase.in.String())
	}
}

func TestValueMarshalJSON(t *testing.T) {
	b, err := NewInt64(5).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "5", string(b))

	b, err = NewVarChar("a").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(b))

	b, err = NULL.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
