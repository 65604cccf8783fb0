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

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// planTree renders a plan as a tree of primitives.
func planTree(plan *engine.Plan) string {
	var tree treeprint.Tree
	if plan.Instructions == nil {
		tree = treeprint.NewWithRoot(plan.Type)
	} else {
		tree = asTree(plan.Instructions, nil)
	}
	if len(plan.Vars) > 0 {
		tree.AddNode("Vars: " + strings.Join(plan.Vars, ", "))
	}
	return tree.String()
}

func asTree(prim engine.Primitive, root treeprint.Tree) treeprint.Tree {
	pd := engine.PrimitiveToPlanDescription(prim)
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(pd.Title())
	} else {
		branch = root.AddBranch(pd.Title())
	}
	for _, field := range pd.Fields() {
		branch.AddNode(field)
	}
	if dest := routeDestination(prim); dest != nil {
		branch.AddNode("Destination: " + dest.String())
	}
	for _, input := range prim.Inputs() {
		asTree(input, branch)
	}
	return branch
}

// routeDestination maps the literal value of a single-shard route
// through its vindex. It returns nil if the value is only known at
// execution time or the vindex needs a lookup.
func routeDestination(prim engine.Primitive) key.Destination {
	route, ok := prim.(*engine.Route)
	if !ok || route.Opcode != engine.SelectEqualUnique || route.Vindex == nil || len(route.Values) != 1 {
		return nil
	}
	value, err := route.Values[0].ResolveValue(nil)
	if err != nil || value.IsNull() {
		return nil
	}
	dests, err := vindexes.Map(route.Vindex, nil, []sqltypes.Value{value})
	if err != nil || len(dests) != 1 {
		return nil
	}
	return dests[0]
}

func vschemaTree(vschema *vindexes.VSchema) string {
	tree := treeprint.NewWithRoot("VSchema")
	for _, ksName := range vschema.KeyspaceNames() {
		ks := vschema.Keyspaces[ksName]
		title := ksName
		if ks.Keyspace.Sharded {
			title += " (sharded)"
		}
		ksBranch := tree.AddBranch(title)
		if ks.Error != nil {
			ksBranch.AddNode("ERROR: " + ks.Error.Error())
		}
		tableNames := make([]string, 0, len(ks.Tables))
		for name := range ks.Tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)
		for _, name := range tableNames {
			table := ks.Tables[name]
			tBranch := ksBranch.AddBranch(tableTitle(table))
			for _, cv := range table.ColumnVindexes {
				cols := make([]string, 0, len(cv.Columns))
				for _, col := range cv.Columns {
					cols = append(cols, col.String())
				}
				tBranch.AddNode(fmt.Sprintf("%s(%s) %s cost=%d", cv.Name, strings.Join(cols, ","), cv.Type, cv.Vindex.Cost()))
			}
			if table.ColumnListAuthoritative {
				cols := make([]string, 0, len(table.Columns))
				for _, col := range table.Columns {
					cols = append(cols, col.Name.String()+" "+col.Type.String())
				}
				tBranch.AddNode("columns: " + strings.Join(cols, ", "))
			}
		}
	}
	return tree.String()
}

func tableTitle(table *vindexes.Table) string {
	title := table.Name.String()
	var attrs []string
	if table.Type != "" {
		attrs = append(attrs, table.Type)
	}
	if table.Pinned != nil {
		attrs = append(attrs, fmt.Sprintf("pinned=%x", table.Pinned))
	}
	if table.Split != nil {
		attrs = append(attrs, "split")
	}
	if table.AutoIncrement != nil {
		attrs = append(attrs, "auto_increment="+table.AutoIncrement.Column.String())
	}
	if len(attrs) > 0 {
		title += " [" + strings.Join(attrs, " ") + "]"
	}
	return title
}

func sortedBindVars(bindVars map[string]*sqltypes.BindVariable) []string {
	if len(bindVars) == 0 {
		return nil
	}
	names := make([]string, 0, len(bindVars))
	for name, bv := range bindVars {
		names = append(names, name+"="+bv.Value.String())
	}
	sort.Strings(names)
	return names
}
