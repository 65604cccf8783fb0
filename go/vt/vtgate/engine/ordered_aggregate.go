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
	"strings"
)

var _ Primitive = (*OrderedAggregate)(nil)

// OrderedAggregate is a primitive that expects the underlying
// primitive to feed results in an order sorted by the Keys. Rows
// with duplicate keys are aggregated using the Aggregate functions.
// The assumption is that the underlying primitive is a scatter select
// with pre-sorted rows.
type OrderedAggregate struct {
	// HasDistinct is true if one of the aggregates is distinct.
	HasDistinct bool
	// Aggregates specifies the aggregation parameters for each
	// aggregation function: function opcode and input column number.
	Aggregates []AggregateParams
	// Keys specifies the input values that must be used for
	// the aggregation key.
	Keys []int

	// TruncateColumnCount specifies the number of columns to return
	// in the final result. Rest of the columns are truncated
	// from the result received. If 0, no truncation happens.
	TruncateColumnCount int

	// Input is the primitive that will feed into this Primitive.
	Input Primitive
}

// AggregateParams specify the parameters for each aggregation.
// It contains the opcode and input column number.
type AggregateParams struct {
	Opcode AggregateOpcode
	Col    int
	// Alias is set only for distinct opcodes.
	Alias string
}

func (ap AggregateParams) String() string {
	if ap.Alias != "" {
		return fmt.Sprintf("%s(%d) AS %s", ap.Opcode.String(), ap.Col, ap.Alias)
	}
	return fmt.Sprintf("%s(%d)", ap.Opcode.String(), ap.Col)
}

// AggregateOpcode is the aggregation Opcode.
type AggregateOpcode int

// These constants list the possible aggregate opcodes.
const (
	AggregateCount = AggregateOpcode(iota)
	AggregateSum
	AggregateMin
	AggregateMax
	AggregateCountDistinct
	AggregateSumDistinct
)

var (
	opcodeType = map[AggregateOpcode]string{
		AggregateCount:         "count",
		AggregateSum:           "sum",
		AggregateMin:           "min",
		AggregateMax:           "max",
		AggregateCountDistinct: "count_distinct",
		AggregateSumDistinct:   "sum_distinct",
	}
	// SupportedAggregates maps the list of supported aggregate
	// functions to their opcodes.
	SupportedAggregates = map[string]AggregateOpcode{
		"count": AggregateCount,
		"sum":   AggregateSum,
		"min":   AggregateMin,
		"max":   AggregateMax,
		// These functions don't exist in mysql, but are used
		// to display the plan.
		"count_distinct": AggregateCountDistinct,
		"sum_distinct":   AggregateSumDistinct,
	}
)

func (code AggregateOpcode) String() string {
	return opcodeType[code]
}

// MarshalJSON serializes the AggregateOpcode as a JSON string.
// It's used for testing and diagnostics.
func (code AggregateOpcode) MarshalJSON() ([]byte, error) {
	return ([]byte)(fmt.Sprintf("\"%s\"", code.String())), nil
}

// RouteType returns a description of the query routing type used by the primitive
func (oa *OrderedAggregate) RouteType() string {
	return oa.Input.RouteType()
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (oa *OrderedAggregate) GetKeyspaceName() string {
	return oa.Input.GetKeyspaceName()
}

// GetTableName specifies the table that this primitive routes to.
func (oa *OrderedAggregate) GetTableName() string {
	return oa.Input.GetTableName()
}

// Inputs returns the Primitive input for this aggregation
func (oa *OrderedAggregate) Inputs() []Primitive {
	return []Primitive{oa.Input}
}

func (oa *OrderedAggregate) description() PrimitiveDescription {
	aggrs := make([]string, 0, len(oa.Aggregates))
	for _, aggr := range oa.Aggregates {
		aggrs = append(aggrs, aggr.String())
	}
	other := map[string]any{
		"Aggregates": strings.Join(aggrs, ", "),
	}
	if len(oa.Keys) > 0 {
		other["GroupBy"] = intsToString(oa.Keys)
	}
	if oa.HasDistinct {
		other["Distinct"] = true
	}
	if oa.TruncateColumnCount > 0 {
		other["ResultColumns"] = oa.TruncateColumnCount
	}
	return PrimitiveDescription{
		OperatorType: "Aggregate",
		Variant:      "Ordered",
		Other:        other,
	}
}

// SetTruncateColumnCount sets the truncate column count.
func (oa *OrderedAggregate) SetTruncateColumnCount(count int) {
	oa.TruncateColumnCount = count
}
