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
)

var _ Primitive = (*Set)(nil)

// Set contains the instructions to perform set.
type Set struct {
	Ops   []SetOp
	Input Primitive
}

// SetOp is an interface that different type of set operations implements.
type SetOp interface {
	// VariableName returns the name of the variable being set.
	VariableName() string
	fmt.Stringer
}

// UserDefinedVariable implements the SetOp interface to execute user defined variables.
type UserDefinedVariable struct {
	Name string
	// Expr is the expression as it will be evaluated by the executor.
	Expr string
}

var _ SetOp = (*UserDefinedVariable)(nil)

// VariableName implements the SetOp interface method.
func (u *UserDefinedVariable) VariableName() string {
	return u.Name
}

func (u *UserDefinedVariable) String() string {
	return fmt.Sprintf("UserDefinedVariable(%s = %s)", u.Name, u.Expr)
}

// SysVarIgnore implements the SetOp interface to ignore the settings.
type SysVarIgnore struct {
	Name string
	Expr string
}

var _ SetOp = (*SysVarIgnore)(nil)

// VariableName implements the SetOp interface method.
func (svi *SysVarIgnore) VariableName() string {
	return svi.Name
}

func (svi *SysVarIgnore) String() string {
	return fmt.Sprintf("SysVarIgnore(%s = %s)", svi.Name, svi.Expr)
}

// RouteType returns a description of the query routing type used by the primitive
func (s *Set) RouteType() string {
	return "Set"
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (s *Set) GetKeyspaceName() string {
	return ""
}

// GetTableName specifies the table that this primitive routes to.
func (s *Set) GetTableName() string {
	return ""
}

// Inputs returns the input primitives for this set.
func (s *Set) Inputs() []Primitive {
	return []Primitive{s.Input}
}

func (s *Set) description() PrimitiveDescription {
	ops := make([]string, 0, len(s.Ops))
	for _, op := range s.Ops {
		ops = append(ops, op.String())
	}
	return PrimitiveDescription{
		OperatorType: "Set",
		Other: map[string]any{
			"Ops": ops,
		},
	}
}

var _ Primitive = (*SingleRow)(nil)

// SingleRow is the input of a Set. It stands for the one empty
// row the SET expressions are evaluated against, so no shard
// is involved.
type SingleRow struct {
	noInputs
}

// RouteType returns a description of the query routing type used by the primitive
func (s *SingleRow) RouteType() string {
	return "SingleRow"
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (s *SingleRow) GetKeyspaceName() string {
	return ""
}

// GetTableName specifies the table that this primitive routes to.
func (s *SingleRow) GetTableName() string {
	return ""
}

func (s *SingleRow) description() PrimitiveDescription {
	return PrimitiveDescription{
		OperatorType: "SingleRow",
	}
}
