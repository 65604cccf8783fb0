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

package engine

import (
	"fmt"
	"sort"
	"strings"
)

var _ Primitive = (*Join)(nil)

// Join specifies the parameters for a join primitive.
type Join struct {
	// Opcode is the join type.
	Opcode JoinOpcode

	// Left and Right are the LHS and RHS primitives
	// of the Join. They can be any primitive.
	Left, Right Primitive

	// Cols defines which columns from the left
	// or right results should be used to build the
	// return result. For results coming from the
	// left query, the index values go as -1, -2, etc.
	// For the right query, they're 1, 2, etc.
	// If Cols is {-1, -2, 1, 2}, it means that
	// the returned result will be {Left0, Left1, Right0, Right1}.
	Cols []int

	// Vars defines the list of joinVars that need to
	// be built from the LHS result before invoking
	// the RHS subqquery.
	Vars map[string]int
}

// JoinOpcode is a number representing the opcode
// for the Join primitive.
type JoinOpcode int

// This is the list of JoinOpcode values.
const (
	NormalJoin = JoinOpcode(iota)
	LeftJoin
)

func (code JoinOpcode) String() string {
	if code == NormalJoin {
		return "Join"
	}
	return "LeftJoin"
}

// MarshalJSON serializes the JoinOpcode as a JSON string.
// It's used for testing and diagnostics.
func (code JoinOpcode) MarshalJSON() ([]byte, error) {
	return ([]byte)(fmt.Sprintf("\"%s\"", code.String())), nil
}

// RouteType returns a description of the query routing type used by the primitive
func (jn *Join) RouteType() string {
	return "Join"
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (jn *Join) GetKeyspaceName() string {
	if jn.Left.GetKeyspaceName() == jn.Right.GetKeyspaceName() {
		return jn.Left.GetKeyspaceName()
	}
	return jn.Left.GetKeyspaceName() + "_" + jn.Right.GetKeyspaceName()
}

// GetTableName specifies the table that this primitive routes to.
func (jn *Join) GetTableName() string {
	return jn.Left.GetTableName() + "_" + jn.Right.GetTableName()
}

// Inputs returns the input primitives for this join
func (jn *Join) Inputs() []Primitive {
	return []Primitive{jn.Left, jn.Right}
}

func (jn *Join) description() PrimitiveDescription {
	other := map[string]any{
		"TableName":         jn.GetTableName(),
		"JoinColumnIndexes": intsToString(jn.Cols),
	}
	if len(jn.Vars) > 0 {
		other["JoinVars"] = varsToString(jn.Vars)
	}
	return PrimitiveDescription{
		OperatorType: "Join",
		Variant:      jn.Opcode.String(),
		Other:        other,
	}
}

func varsToString(vars map[string]int) string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	var s []string
	for _, k := range names {
		s = append(s, fmt.Sprintf("%s:%d", k, vars[k]))
	}
	return strings.Join(s, " ")
}
