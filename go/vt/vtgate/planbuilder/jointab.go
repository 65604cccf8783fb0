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

package planbuilder

import (
	"strconv"

	"github.com/vtplan/vtplan/go/vt/sqlparser"
)

// jointab manages procurement and naming of join
// variables across primitives.
type jointab struct {
	refs map[*column]string
	// vars has all the names in use: the bind variables of the
	// original statement, plus the ones generated by the planner.
	vars map[string]struct{}
	// generated is the subset of vars created by the planner.
	generated map[string]struct{}
	varIndex  int
}

// newJointab creates a new jointab for the current plan
// being built. It also needs the current list of bind vars
// used in the original query to make sure that the names
// it generates don't collide with those already in use.
func newJointab(bindvars map[string]struct{}) *jointab {
	vars := make(map[string]struct{}, len(bindvars))
	for k := range bindvars {
		vars[k] = struct{}{}
	}
	return &jointab{
		refs:      make(map[*column]string),
		vars:      vars,
		generated: make(map[string]struct{}),
	}
}

// Procure requests for the specified column from the plan
// and returns the join var name for it.
func (jt *jointab) Procure(bldr builder, col *sqlparser.ColName, to int) string {
	from, joinVar := jt.Lookup(col)
	// If joinVar is empty, generate a unique name.
	if joinVar == "" {
		joinVar = jt.reserve(jt.baseName(col))
		jt.refs[col.Metadata.(*column)] = joinVar
	}
	bldr.SupplyVar(from, to, col, joinVar)
	return joinVar
}

// GenerateSubqueryVars generates substitution variable names for
// a subquery. It returns two names based on: __sq, __sq_has_values.
// The appropriate names can be used for substitution
// depending on the scenario.
func (jt *jointab) GenerateSubqueryVars() (sq, hasValues string) {
	for {
		jt.varIndex++
		var1 := "__sq" + strconv.Itoa(jt.varIndex)
		var2 := "__sq_has_values" + strconv.Itoa(jt.varIndex)
		_, ok1 := jt.vars[var1]
		_, ok2 := jt.vars[var2]
		if !ok1 && !ok2 {
			jt.add(var1)
			jt.add(var2)
			return var1, var2
		}
	}
}

// Lookup returns the order of the route that supplies the column and
// the join var name if one has already been assigned for it.
func (jt *jointab) Lookup(col *sqlparser.ColName) (order int, joinVar string) {
	c := col.Metadata.(*column)
	return c.Origin().Order(), jt.refs[c]
}

func (jt *jointab) baseName(col *sqlparser.ColName) string {
	if !col.Qualifier.IsEmpty() {
		return col.Qualifier.Name.CompliantName() + "_" + col.Name.CompliantName()
	}
	return col.Name.CompliantName()
}

// reserve returns name, or name followed by the first number that
// makes it unique, and marks the result as used.
func (jt *jointab) reserve(name string) string {
	candidate := name
	for i := 1; ; i++ {
		if _, ok := jt.vars[candidate]; !ok {
			break
		}
		candidate = name + strconv.Itoa(i)
	}
	jt.add(candidate)
	return candidate
}

func (jt *jointab) add(name string) {
	jt.vars[name] = struct{}{}
	jt.generated[name] = struct{}{}
}
