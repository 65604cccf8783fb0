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

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// DML contains the common elements between Update and Delete plans
type DML struct {
	// Opcode is the execution opcode.
	Opcode DMLOpcode

	// Keyspace specifies the keyspace to send the query to.
	Keyspace *vindexes.Keyspace

	// TargetDestination specifies the destination to send the query to.
	TargetDestination key.Destination

	// Query specifies the query to be executed.
	Query string

	// Vindex specifies the vindex to be used.
	Vindex vindexes.SingleColumn

	// Values specifies the vindex values to use for routing.
	// For now, only one value is specified.
	Values []sqltypes.PlanValue

	// Table specifies the table for the update.
	Table *vindexes.Table

	// OwnedVindexQuery is used for updating changes in lookup vindexes.
	OwnedVindexQuery string

	// Option to override the standard behavior and allow a multi-shard update
	// to use single round trip autocommit.
	MultiShardAutocommit bool

	// QueryTimeout contains the optional timeout (in milliseconds) to apply to this query
	QueryTimeout int

	noInputs
}

// DMLOpcode is a number representing the opcode
// for the Update or Delete primitve.
type DMLOpcode int

// This is the list of DMLOpcode values.
const (
	// Unsharded is for routing a dml statement
	// to an unsharded keyspace.
	Unsharded = DMLOpcode(iota)
	// Equal is for routing an dml statement to a single shard.
	// Requires: A Vindex, and a single Value.
	Equal
	// Scatter is for routing a scattered dml statement.
	Scatter
	// ByDestination is to route explicitly to a given target destination.
	ByDestination
)

var opcodeName = map[DMLOpcode]string{
	Unsharded:     "Unsharded",
	Equal:         "Equal",
	Scatter:       "Scatter",
	ByDestination: "ByDestination",
}

func (op DMLOpcode) String() string {
	return opcodeName[op]
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (dml *DML) GetKeyspaceName() string {
	return dml.Keyspace.Name
}

// GetTableName specifies the table that this primitive routes to.
func (dml *DML) GetTableName() string {
	if dml.Table != nil {
		return dml.Table.Name.String()
	}
	return ""
}

// RouteType returns a description of the query routing type used by the primitive
func (dml *DML) RouteType() string {
	return dml.Opcode.String()
}

func (dml *DML) descriptionOther() map[string]any {
	other := map[string]any{
		"Query": dml.Query,
	}
	if dml.Table != nil {
		other["Table"] = dml.GetTableName()
	}
	if dml.Vindex != nil {
		other["Vindex"] = dml.Vindex.String()
	}
	if len(dml.Values) > 0 {
		other["Values"] = dml.Values
	}
	if dml.OwnedVindexQuery != "" {
		other["OwnedVindexQuery"] = dml.OwnedVindexQuery
	}
	if dml.MultiShardAutocommit {
		other["MultiShardAutocommit"] = true
	}
	if dml.QueryTimeout > 0 {
		other["QueryTimeout"] = dml.QueryTimeout
	}
	return other
}

var _ Primitive = (*Update)(nil)

// Update represents the instructions to perform an update.
type Update struct {
	DML

	// ChangedVindexValues contains values for updated Vindexes during an update statement.
	ChangedVindexValues map[string][]sqltypes.PlanValue
}

func (upd *Update) description() PrimitiveDescription {
	other := upd.descriptionOther()
	if len(upd.ChangedVindexValues) > 0 {
		names := make([]string, 0, len(upd.ChangedVindexValues))
		for name := range upd.ChangedVindexValues {
			names = append(names, name)
		}
		sort.Strings(names)
		var changed []string
		for _, name := range names {
			changed = append(changed, fmt.Sprintf("%s:%d", name, len(upd.ChangedVindexValues[name])))
		}
		other["ChangedVindexValues"] = changed
	}
	return PrimitiveDescription{
		OperatorType:      "Update",
		Variant:           upd.Opcode.String(),
		Keyspace:          upd.Keyspace,
		TargetDestination: upd.TargetDestination,
		Other:             other,
	}
}

var _ Primitive = (*Delete)(nil)

// Delete represents the instructions to perform a delete.
type Delete struct {
	DML
}

func (del *Delete) description() PrimitiveDescription {
	return PrimitiveDescription{
		OperatorType:      "Delete",
		Variant:           del.Opcode.String(),
		Keyspace:          del.Keyspace,
		TargetDestination: del.TargetDestination,
		Other:             del.descriptionOther(),
	}
}
