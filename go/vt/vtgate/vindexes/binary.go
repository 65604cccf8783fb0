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
	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
)

var (
	_ SingleColumn = (*Binary)(nil)
	_ Reversible   = (*Binary)(nil)
)

// Binary is a vindex that converts binary bits to a keyspace id.
// Routes to pinned tables use it to address the pinned keyspace id.
type Binary struct {
	name string
}

// NewBinary creates a new Binary.
func NewBinary(name string, _ map[string]string) (Vindex, error) {
	return &Binary{name: name}, nil
}

// String returns the name of the vindex.
func (vind *Binary) String() string {
	return vind.name
}

// Cost returns the cost as 0.
func (vind *Binary) Cost() int {
	return 0
}

// IsUnique returns true since the Vindex is unique.
func (vind *Binary) IsUnique() bool {
	return true
}

// NeedsVCursor satisfies the Vindex interface.
func (vind *Binary) NeedsVCursor() bool {
	return false
}

// Verify returns true if ids maps to ksids.
func (vind *Binary) Verify(_ VCursor, ids []sqltypes.Value, ksids [][]byte) ([]bool, error) {
	return verifyBytes(ids, ksids, identity), nil
}

// Map can map ids to key.Destination objects.
func (vind *Binary) Map(_ VCursor, ids []sqltypes.Value) ([]key.Destination, error) {
	return mapBytes(ids, identity), nil
}

func identity(b []byte) []byte {
	return b
}

// ReverseMap returns the associated ids for the ksids.
func (vind *Binary) ReverseMap(_ VCursor, ksids [][]byte) ([]sqltypes.Value, error) {
	reverseIds := make([]sqltypes.Value, len(ksids))
	for i, keyspaceID := range ksids {
		reverseIds[i] = sqltypes.MakeTrusted(sqltypes.VarBinary, keyspaceID)
	}
	return reverseIds, nil
}

func init() {
	Register("binary", NewBinary)
}
