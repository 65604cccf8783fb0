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
	"bytes"
	"crypto/md5"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
)

var _ SingleColumn = (*BinaryMD5)(nil)

// BinaryMD5 shards on the md5 sum of the raw bytes of a column.
// Unlike Binary, the keyspace ids it produces are spread evenly
// regardless of how the column values are distributed, but they
// can't be mapped back to the values.
type BinaryMD5 struct {
	name string
}

// NewBinaryMD5 creates a new BinaryMD5.
func NewBinaryMD5(name string, _ map[string]string) (Vindex, error) {
	return &BinaryMD5{name: name}, nil
}

// String returns the name of the vindex.
func (vind *BinaryMD5) String() string {
	return vind.name
}

// Cost returns the cost as 1.
func (vind *BinaryMD5) Cost() int {
	return 1
}

// IsUnique returns true since the Vindex is unique.
func (vind *BinaryMD5) IsUnique() bool {
	return true
}

// NeedsVCursor satisfies the Vindex interface.
func (vind *BinaryMD5) NeedsVCursor() bool {
	return false
}

// Verify returns true if ids maps to ksids.
func (vind *BinaryMD5) Verify(_ VCursor, ids []sqltypes.Value, ksids [][]byte) ([]bool, error) {
	return verifyBytes(ids, ksids, binHash), nil
}

// Map can map ids to key.Destination objects.
func (vind *BinaryMD5) Map(_ VCursor, ids []sqltypes.Value) ([]key.Destination, error) {
	return mapBytes(ids, binHash), nil
}

func binHash(source []byte) []byte {
	sum := md5.Sum(source)
	return sum[:]
}

// mapBytes maps every id to the keyspace id ksid computes from
// its raw bytes. A NULL id can't be stored in any shard, so it
// maps to no destination.
func mapBytes(ids []sqltypes.Value, ksid func([]byte) []byte) []key.Destination {
	out := make([]key.Destination, len(ids))
	for i, id := range ids {
		if id.IsNull() {
			out[i] = key.DestinationNone{}
			continue
		}
		out[i] = key.DestinationKeyspaceID(ksid(id.ToBytes()))
	}
	return out
}

func verifyBytes(ids []sqltypes.Value, ksids [][]byte, ksid func([]byte) []byte) []bool {
	out := make([]bool, len(ids))
	for i, id := range ids {
		out[i] = !id.IsNull() && bytes.Equal(ksid(id.ToBytes()), ksids[i])
	}
	return out
}

func init() {
	Register("binary_md5", NewBinaryMD5)
}
