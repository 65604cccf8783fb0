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
	"crypto/md5"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
)

func createSingleColumn(t *testing.T, vindexType string, params map[string]string) SingleColumn {
	t.Helper()
	v, err := CreateVindex(vindexType, vindexType, params)
	require.NoError(t, err)
	sc, ok := v.(SingleColumn)
	require.True(t, ok, "%s is not a SingleColumn vindex", vindexType)
	return sc
}

func TestCreateVindexUnknown(t *testing.T) {
	_, err := CreateVindex("no_such_vindex", "v", nil)
	assert.EqualError(t, err, `vindexType "no_such_vindex" not found`)
}

func TestRegisterDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		Register("hash", NewHash)
	})
}

func TestTypes(t *testing.T) {
	types := Types()
	for _, want := range []string{
		"binary",
		"binary_md5",
		"hash",
		"lookup_hash",
		"lookup_hash_unique",
		"numeric",
		"numeric_static_map",
		"unicode_loose_md5",
		"unicode_loose_xxhash",
		"xxhash",
	} {
		assert.Contains(t, types, want)
	}
	assert.IsIncreasing(t, types)
}

func TestVindexCosts(t *testing.T) {
	testcases := []struct {
		vindexType string
		params     map[string]string
		cost       int
		unique     bool
	}{
		{vindexType: "numeric", cost: 0, unique: true},
		{vindexType: "hash", cost: 1, unique: true},
		{vindexType: "xxhash", cost: 1, unique: true},
		{vindexType: "binary_md5", cost: 1, unique: true},
		{vindexType: "unicode_loose_md5", cost: 1, unique: true},
		{vindexType: "unicode_loose_xxhash", cost: 1, unique: true},
		{vindexType: "lookup_hash_unique", params: lookupParams, cost: 10, unique: true},
		{vindexType: "lookup_hash", params: lookupParams, cost: 20, unique: false},
	}
	for _, tc := range testcases {
		t.Run(tc.vindexType, func(t *testing.T) {
			v := createSingleColumn(t, tc.vindexType, tc.params)
			assert.Equal(t, tc.cost, v.Cost())
			assert.Equal(t, tc.unique, v.IsUnique())
			assert.Equal(t, tc.vindexType, v.String())
		})
	}
}

func TestNumeric(t *testing.T) {
	numeric := createSingleColumn(t, "numeric", nil)
	got, err := numeric.Map(nil, []sqltypes.Value{
		sqltypes.NewInt64(1),
		sqltypes.NewUint64(0x0102030405060708),
		sqltypes.NewVarChar("0x10"),
		sqltypes.NewVarChar("xyz"),
	})
	require.NoError(t, err)
	want := []key.Destination{
		key.DestinationKeyspaceID([]byte("\x00\x00\x00\x00\x00\x00\x00\x01")),
		key.DestinationKeyspaceID([]byte("\x01\x02\x03\x04\x05\x06\x07\x08")),
		key.DestinationKeyspaceID([]byte("\x00\x00\x00\x00\x00\x00\x00\x10")),
		key.DestinationNone{},
	}
	assert.Equal(t, want, got)

	ok, err := numeric.Verify(nil, []sqltypes.Value{sqltypes.NewInt64(1)}, [][]byte{[]byte("\x00\x00\x00\x00\x00\x00\x00\x01")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ok)

	back, err := numeric.(Reversible).ReverseMap(nil, [][]byte{[]byte("\x00\x00\x00\x00\x00\x00\x00\x01")})
	require.NoError(t, err)
	assert.Equal(t, []sqltypes.Value{sqltypes.NewUint64(1)}, back)

	_, err = numeric.(Reversible).ReverseMap(nil, [][]byte{[]byte("\x01")})
	assert.EqualError(t, err, "Numeric.ReverseMap: length of keyspaceId is not 8: 1")
}

func TestNumericStaticMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lookup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": 2, "3": 4}`), 0o644))

	nsm := createSingleColumn(t, "numeric_static_map", map[string]string{"json_path": path})
	got, err := nsm.Map(nil, []sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewInt64(2), sqltypes.NewInt64(3)})
	require.NoError(t, err)
	want := []key.Destination{
		key.DestinationKeyspaceID(numericBytes(2)),
		key.DestinationKeyspaceID(numericBytes(2)),
		key.DestinationKeyspaceID(numericBytes(4)),
	}
	assert.Equal(t, want, got)

	_, err = CreateVindex("numeric_static_map", "nsm", nil)
	assert.EqualError(t, err, "NumericStaticMap: Could not find `json_path` param in vschema")
}

func TestXXHash(t *testing.T) {
	xx := createSingleColumn(t, "xxhash", nil)
	got, err := xx.Map(nil, []sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewVarChar("1")})
	require.NoError(t, err)

	var want [8]byte
	binary.BigEndian.PutUint64(want[:], xxhash.Sum64String("1"))
	// Values hash by their text representation.
	assert.Equal(t, key.DestinationKeyspaceID(want[:]), got[0])
	assert.Equal(t, got[0], got[1])

	ok, err := xx.Verify(nil, []sqltypes.Value{sqltypes.NewInt64(1)}, [][]byte{want[:]})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ok)
}

func TestBinaryMD5(t *testing.T) {
	bmd5 := createSingleColumn(t, "binary_md5", nil)
	got, err := bmd5.Map(nil, []sqltypes.Value{sqltypes.NewVarBinary("Test")})
	require.NoError(t, err)
	sum := md5.Sum([]byte("Test"))
	assert.Equal(t, []key.Destination{key.DestinationKeyspaceID(sum[:])}, got)

	ok, err := bmd5.Verify(nil, []sqltypes.Value{sqltypes.NewVarBinary("test"), sqltypes.NewVarBinary("Test")}, [][]byte{sum[:], sum[:]})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, ok)

	// NULL has no home shard.
	got, err = bmd5.Map(nil, []sqltypes.Value{sqltypes.NULL})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationNone{}}, got)
	ok, err = bmd5.Verify(nil, []sqltypes.Value{sqltypes.NULL}, [][]byte{binHash(nil)})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, ok)
}

func TestBinary(t *testing.T) {
	bin := createSingleColumn(t, "binary", nil)
	assert.Equal(t, 0, bin.Cost())
	assert.True(t, bin.IsUnique())
	got, err := bin.Map(nil, []sqltypes.Value{sqltypes.NewVarBinary("\x00\x01")})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationKeyspaceID([]byte{0, 1})}, got)

	ok, err := bin.Verify(nil, []sqltypes.Value{sqltypes.NewVarBinary("a")}, [][]byte{[]byte("a")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ok)

	got, err = bin.Map(nil, []sqltypes.Value{sqltypes.NULL})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationNone{}}, got)
}

func TestUnicodeLoose(t *testing.T) {
	for _, vindexType := range []string{"unicode_loose_md5", "unicode_loose_xxhash"} {
		t.Run(vindexType, func(t *testing.T) {
			v := createSingleColumn(t, vindexType, nil)
			got, err := v.Map(nil, []sqltypes.Value{
				sqltypes.NewVarChar("Test"),
				sqltypes.NewVarChar("TEst"),
				sqltypes.NewVarChar("Tést"),
				sqltypes.NewVarChar("Tést"),
				sqltypes.NewVarChar("Test "),
				sqltypes.NewVarChar("Bést"),
				sqltypes.NewVarChar(" Test"),
			})
			require.NoError(t, err)
			for i := 1; i <= 4; i++ {
				assert.Equal(t, got[0], got[i], "value %d", i)
			}
			assert.NotEqual(t, got[0], got[5])
			assert.NotEqual(t, got[0], got[6])

			ok, err := v.Verify(nil, []sqltypes.Value{sqltypes.NewVarChar("TEST")}, [][]byte{got[0].(key.DestinationKeyspaceID)})
			require.NoError(t, err)
			assert.Equal(t, []bool{true}, ok)

			_, err = v.Map(nil, []sqltypes.Value{sqltypes.NewVarBinary("\xff")})
			assert.ErrorContains(t, err, "cannot normalize string containing invalid UTF-8")
		})
	}
}

func TestMapNeedsVCursor(t *testing.T) {
	lhu := createSingleColumn(t, "lookup_hash_unique", lookupParams)
	_, err := Map(lhu, nil, []sqltypes.Value{sqltypes.NewInt64(1)})
	assert.EqualError(t, err, "vindex lookup_hash_unique needs a vcursor to map values")

	got, err := Map(hash, nil, []sqltypes.Value{sqltypes.NewInt64(1)})
	require.NoError(t, err)
	assert.Equal(t, []key.Destination{key.DestinationKeyspaceID(vhash(1))}, got)
}
