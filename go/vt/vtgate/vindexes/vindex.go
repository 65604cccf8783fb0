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
	"fmt"
	"sort"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/vterrors"
)

// This file defines interfaces and registration for vindexes.

// A VCursor is an interface that allows you to execute queries
// in the current context and session of a VTGate request. Vindexes
// can use this interface to execute lookup queries. The planner never
// supplies one: lookups only run when a caller executes a plan.
type VCursor interface {
	Execute(query string, bindVars map[string]*sqltypes.BindVariable) ([][]sqltypes.Value, error)
}

// Vindex defines the interface required to register a vindex.
type Vindex interface {
	// String returns the name of the Vindex instance.
	// It's used for testing and diagnostics. Use pointer
	// comparison to see if two objects refer to the same
	// Vindex.
	String() string

	// Cost is used by planbuilder to prioritize vindexes.
	// The cost can be 0 if the id is basically a keyspace id.
	// The cost can be 1 if the id can be hashed to a keyspace id.
	// The cost can be 2 or above if the id needs to be looked up
	// from an external data source. These guidelines are subject
	// to change in the future.
	Cost() int

	// IsUnique returns true if the Vindex is unique.
	// Which means Map() maps to either a KeyRange or a single KeyspaceID.
	IsUnique() bool

	// NeedsVCursor returns true if the Vindex makes calls into the
	// VCursor. Such vindexes cannot be used by vindex functions.
	NeedsVCursor() bool
}

// SingleColumn defines the interface for a single column vindex.
type SingleColumn interface {
	Vindex
	// Map can map ids to key.Destination objects.
	// If the Vindex is unique, each id would map to either
	// a KeyRange, or a single KeyspaceID.
	// If the Vindex is non-unique, each id would map to either
	// a KeyRange, or a list of KeyspaceID.
	Map(vcursor VCursor, ids []sqltypes.Value) ([]key.Destination, error)

	// Verify returns true for every id that successfully maps to the
	// specified keyspace id.
	Verify(vcursor VCursor, ids []sqltypes.Value, ksids [][]byte) ([]bool, error)
}

// Reversible is optionally supported by unique vindexes.
// It returns the ids from the keyspace ids.
type Reversible interface {
	SingleColumn
	ReverseMap(vcursor VCursor, ks [][]byte) ([]sqltypes.Value, error)
}

// Lookup is an optional interface that a vindex can implement.
// An owned vindex is a lookup vindex whose rows are maintained
// by the table that owns it.
type Lookup interface {
	Create(vcursor VCursor, rowsColValues [][]sqltypes.Value, ksids [][]byte, ignoreMode bool) error
	Delete(vcursor VCursor, rowsColValues [][]sqltypes.Value, ksid []byte) error
}

// A NewVindexFunc is a function that creates a Vindex based on the
// properties specified in the input map. Every Vindex must
// register a NewVindexFunc under a unique vindexType.
type NewVindexFunc func(string, map[string]string) (Vindex, error)

var registry = make(map[string]NewVindexFunc)

// Register registers a vindex under the specified vindexType.
// A duplicate vindexType will generate a panic.
// New vindexes will be created using these functions at the
// time of vschema loading.
func Register(vindexType string, newVindexFunc NewVindexFunc) {
	if _, ok := registry[vindexType]; ok {
		panic(fmt.Sprintf("%s is already registered", vindexType))
	}
	registry[vindexType] = newVindexFunc
}

// CreateVindex creates a vindex of the specified type using the
// supplied params. The type must have been previously registered.
func CreateVindex(vindexType, name string, params map[string]string) (Vindex, error) {
	f, ok := registry[vindexType]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "vindexType %q not found", vindexType)
	}
	return f(name, params)
}

// Types returns the registered vindex types in sorted order.
func Types() []string {
	types := make([]string, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Map invokes the Map implementation supplied by the vindex.
func Map(vindex Vindex, vcursor VCursor, ids []sqltypes.Value) ([]key.Destination, error) {
	sc, ok := vindex.(SingleColumn)
	if !ok {
		return nil, vterrors.Errorf(vterrors.Internal, "BUG: vindex %s does not support Map", vindex)
	}
	if sc.NeedsVCursor() && vcursor == nil {
		return nil, vterrors.Errorf(vterrors.FailedPrecondition, "vindex %s needs a vcursor to map values", vindex)
	}
	return sc.Map(vcursor, ids)
}
