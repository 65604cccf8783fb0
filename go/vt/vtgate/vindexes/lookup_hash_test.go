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

package vindexes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
)

var lookupParams = map[string]string{
	"table": "t",
	"from":  "fromc",
	"to":    "toc",
}

// vcursor is a fake VCursor that records the queries it receives.
type vcursor struct {
	mustFail bool
	numRows  int
	queries  []string
	bv       []map[string]*sqltypes.BindVariable
}

func (vc *vcursor) Execute(query string, bindVars map[string]*sqltypes.BindVariable) ([][]sqltypes.Value, error) {
	vc.queries = append(vc.queries, query)
	vc.bv = append(vc.bv, bindVars)
	if vc.mustFail {
		return nil, errors.New("execute failed")
	}
	rows := make([][]sqltypes.Value, 0, vc.numRows)
	for i := 0; i < vc.numRows; i++ {
		rows = append(rows, []sqltypes.Value{sqltypes.NewInt64(int64(i + 1))})
	}
	return rows, nil
}

func TestLookupHashNew(t *testing.T) {
	_, err := CreateVindex("lookup_hash", "lh", map[string]string{"table": "t"})
	assert.ErrorContains(t, err, "lookup vindex requires table, from and to params")

	_, err = CreateVindex("lookup_hash", "lh", map[string]string{
		"table":      "t",
		"from":       "fromc",
		"to":         "toc",
		"write_only": "invalid",
	})
	assert.EqualError(t, err, "write_only value must be 'true' or 'false': 'invalid'")
}

func TestLookupHashMap(t *testing.T) {
	lh := createSingleColumn(t, "lookup_hash", lookupParams)
	assert.True(t, lh.NeedsVCursor())

	vc := &vcursor{numRows: 2}
	got, err := lh.Map(vc, []sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewInt64(2)})
	require.NoError(t, err)
	want := []key.Destination{
		key.DestinationKeyspaceIDs([][]byte{vhash(1), vhash(2)}),
		key.DestinationKeyspaceIDs([][]byte{vhash(1), vhash(2)}),
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{
		"select toc from t where fromc = :fromc",
		"select toc from t where fromc = :fromc",
	}, vc.queries)

	vc = &vcursor{numRows: 0}
	got, err = lh.Map(vc, []sqltypes.Value{sqltypes.NewInt64(1)})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationNone{}}, got)

	vc = &vcursor{mustFail: true}
	_, err = lh.Map(vc, []sqltypes.Value{sqltypes.NewInt64(1)})
	assert.EqualError(t, err, "lookup.Map: execute failed")
}

func TestLookupHashWriteOnly(t *testing.T) {
	lh := createSingleColumn(t, "lookup_hash", map[string]string{
		"table":      "t",
		"from":       "fromc",
		"to":         "toc",
		"write_only": "true",
	})
	vc := &vcursor{}
	got, err := lh.Map(vc, []sqltypes.Value{sqltypes.NewInt64(1)})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationKeyRange{KeyRange: &key.KeyRange{}}}, got)
	assert.Empty(t, vc.queries)

	ok, err := lh.Verify(vc, []sqltypes.Value{sqltypes.NewInt64(1)}, [][]byte{[]byte("bogus")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ok)
}

func TestLookupHashUniqueMap(t *testing.T) {
	lhu := createSingleColumn(t, "lookup_hash_unique", lookupParams)

	vc := &vcursor{numRows: 1}
	got, err := lhu.Map(vc, []sqltypes.Value{sqltypes.NewInt64(10)})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationKeyspaceID(vhash(1))}, got)

	vc = &vcursor{numRows: 0}
	got, err = lhu.Map(vc, []sqltypes.Value{sqltypes.NewInt64(10)})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationNone{}}, got)

	vc = &vcursor{numRows: 2}
	_, err = lhu.Map(vc, []sqltypes.Value{sqltypes.NewInt64(10)})
	assert.EqualError(t, err, "LookupHash.Map: unexpected multiple results from vindex t: INT64(10)")
}

func TestLookupHashVerify(t *testing.T) {
	lhu := createSingleColumn(t, "lookup_hash_unique", lookupParams)
	vc := &vcursor{numRows: 1}
	got, err := lhu.Verify(vc, []sqltypes.Value{sqltypes.NewInt64(10)}, [][]byte{vhash(1)})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, got)
	assert.Equal(t, []string{"select fromc from t where fromc = :fromc and toc = :toc"}, vc.queries)

	_, err = lhu.Verify(vc, []sqltypes.Value{sqltypes.NewInt64(10)}, [][]byte{[]byte("short")})
	assert.ErrorContains(t, err, "lookup.Verify.vunhash: invalid keyspace id")
}

func TestLookupHashCreateDelete(t *testing.T) {
	v, err := CreateVindex("lookup_hash", "lh", lookupParams)
	require.NoError(t, err)
	lkp := v.(Lookup)

	vc := &vcursor{}
	err = lkp.Create(vc, [][]sqltypes.Value{{sqltypes.NewInt64(1)}, {sqltypes.NewInt64(2)}}, [][]byte{vhash(1), vhash(2)}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"insert into t(fromc, toc) values(:fromc0, :toc0), (:fromc1, :toc1)"}, vc.queries)
	assert.Equal(t, sqltypes.ValueBindVariable(sqltypes.NewUint64(2)), vc.bv[0]["toc1"])

	vc = &vcursor{}
	err = lkp.Create(vc, [][]sqltypes.Value{{sqltypes.NewInt64(1)}}, [][]byte{vhash(1)}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"insert ignore into t(fromc, toc) values(:fromc0, :toc0)"}, vc.queries)

	vc = &vcursor{}
	err = lkp.Delete(vc, [][]sqltypes.Value{{sqltypes.NewInt64(1)}}, vhash(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"delete from t where fromc = :fromc and toc = :toc"}, vc.queries)

	vc = &vcursor{mustFail: true}
	err = lkp.Delete(vc, [][]sqltypes.Value{{sqltypes.NewInt64(1)}}, vhash(1))
	assert.EqualError(t, err, "lookup.Delete: execute failed")
}
