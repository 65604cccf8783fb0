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
	"bytes"
	"encoding/json"
	"sort"
)

const (
	// ListVarName is a reserved bind var name for list vars.
	// This is used for sending different IN clause values
	// to different shards.
	ListVarName = "__vals"
	// SeqVarName is a reserved bind var name for sequence values.
	SeqVarName = "__seq"
)

// Plan represents the execution strategy for a given query.
// For now it's a simple wrapper around the real instructions.
// An instruction (aka Primitive) is typically a tree where
// each node does its part by combining the results of the
// sub-nodes.
type Plan struct {
	// Type is the statement type, as returned by sqlparser.StmtType.
	Type string
	// Original is the original query.
	Original string
	// Instructions contains the instructions needed to
	// fulfil the query.
	Instructions Primitive
	// Vars lists the bind variables the planner introduced
	// to carry values across primitives, sorted by name.
	Vars []string
}

// MarshalJSON serializes the plan into a JSON representation.
func (p *Plan) MarshalJSON() ([]byte, error) {
	var instructions *PrimitiveDescription
	if p.Instructions != nil {
		description := PrimitiveToPlanDescription(p.Instructions)
		instructions = &description
	}
	marshalPlan := struct {
		QueryType    string                `json:",omitempty"`
		Original     string                `json:",omitempty"`
		Instructions *PrimitiveDescription `json:",omitempty"`
		Vars         []string              `json:",omitempty"`
	}{
		QueryType:    p.Type,
		Original:     p.Original,
		Instructions: instructions,
		Vars:         p.Vars,
	}

	b := &bytes.Buffer{}
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(marshalPlan); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// SetVars records the names of the generated bind variables.
func (p *Plan) SetVars(vars map[string]struct{}) {
	p.Vars = make([]string, 0, len(vars))
	for v := range vars {
		p.Vars = append(p.Vars, v)
	}
	sort.Strings(p.Vars)
}

// Primitive is the interface that needs to be satisfied by
// all primitives of a plan. Primitives here are descriptors:
// they tell an executor what needs to be done, but they are
// never executed by this package.
type Primitive interface {
	// RouteType returns a description of the query routing type used by the primitive.
	RouteType() string
	// GetKeyspaceName specifies the keyspace that this primitive routes to.
	GetKeyspaceName() string
	// GetTableName specifies the table that this primitive routes to.
	GetTableName() string
	// Inputs returns the children of this primitive.
	Inputs() []Primitive

	description() PrimitiveDescription
}

// noInputs default implementation for primitives that don't have inputs.
type noInputs struct{}

// Inputs implements the Primitive interface.
func (noInputs) Inputs() []Primitive {
	return nil
}
