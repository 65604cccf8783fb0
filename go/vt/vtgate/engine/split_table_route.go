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

var _ Primitive = (*SplitTableRoute)(nil)

// SplitTableRoute sends a query for a table that is partitioned
// into several physical tables inside every shard. The wrapped
// Route decides which shards are targeted; Partitions decides which
// physical tables are read in each of those shards, and Queries
// holds one query per entry of Partitions.
type SplitTableRoute struct {
	Route *Route

	// Table is the logical name of the split table.
	Table string
	// Column is the split column.
	Column string
	// Count is the total number of partitions of the table.
	Count int

	Partitions []int
	Queries    []string
}

// IsSinglePartition returns true if the WHERE clause pinned the split column.
func (str *SplitTableRoute) IsSinglePartition() bool {
	return len(str.Partitions) == 1
}

// RouteType returns a description of the query routing type used by the primitive
func (str *SplitTableRoute) RouteType() string {
	return str.Route.RouteType()
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (str *SplitTableRoute) GetKeyspaceName() string {
	return str.Route.GetKeyspaceName()
}

// GetTableName specifies the table that this primitive routes to.
func (str *SplitTableRoute) GetTableName() string {
	return str.Table
}

// Inputs returns the wrapped route.
func (str *SplitTableRoute) Inputs() []Primitive {
	return []Primitive{str.Route}
}

func (str *SplitTableRoute) description() PrimitiveDescription {
	variant := "Partitions"
	if str.IsSinglePartition() {
		variant = "Partition"
	}
	return PrimitiveDescription{
		OperatorType: "SplitTableRoute",
		Variant:      variant,
		Other: map[string]any{
			"Table":      str.Table,
			"Column":     str.Column,
			"Partitions": intsToString(str.Partitions),
			"Queries":    str.Queries,
		},
	}
}
