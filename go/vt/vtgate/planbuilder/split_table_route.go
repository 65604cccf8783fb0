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
	"sort"

	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// splitTableRoute narrows the physical tables read by a route whose
// only table is a split table. The route keeps deciding the shards;
// splitTableRoute decides the partitions inside each of those shards
// and generates one query per partition.
type splitTableRoute struct {
	table *vindexes.Table

	// partitions contains the candidate partitions. All partitions are
	// candidates until a filter on the split column narrows them down.
	partitions map[int]struct{}

	esplit *engine.SplitTableRoute
}

func newSplitTableRoute(table *vindexes.Table) *splitTableRoute {
	partitions := make(map[int]struct{}, table.Split.Count)
	for i := 0; i < table.Split.Count; i++ {
		partitions[i] = struct{}{}
	}
	return &splitTableRoute{
		table:      table,
		partitions: partitions,
		esplit: &engine.SplitTableRoute{
			Table:  table.Name.String(),
			Column: table.Split.Column.String(),
			Count:  table.Split.Count,
		},
	}
}

// UpdatePartitions narrows down the partitions using filter. Only
// equality and IN constraints of the split column against literals
// can be used. Anything else leaves the partitions unchanged.
// If no partition remains, the route is changed to SelectNone.
func (str *splitTableRoute) UpdatePartitions(pb *primitiveBuilder, rb *route, filter sqlparser.Expr) {
	comparison, ok := filter.(*sqlparser.ComparisonExpr)
	if !ok {
		return
	}
	var matched map[int]struct{}
	switch comparison.Operator {
	case sqlparser.EqualStr:
		left, right := comparison.Left, comparison.Right
		if pb.st.SplitColumn(left, rb) == nil {
			left, right = right, left
			if pb.st.SplitColumn(left, rb) == nil {
				return
			}
		}
		if matched, ok = str.match(right); !ok {
			return
		}
	case sqlparser.InStr:
		if pb.st.SplitColumn(comparison.Left, rb) == nil {
			return
		}
		tuple, isTuple := comparison.Right.(sqlparser.ValTuple)
		if !isTuple {
			return
		}
		matched = make(map[int]struct{})
		for _, val := range tuple {
			m, ok := str.match(val)
			if !ok {
				return
			}
			for p := range m {
				matched[p] = struct{}{}
			}
		}
	default:
		return
	}

	for p := range str.partitions {
		if _, ok := matched[p]; !ok {
			delete(str.partitions, p)
		}
	}
	if len(str.partitions) == 0 {
		rb.updateRoute(engine.SelectNone, nil, nil)
	}
}

// match returns the partitions that can contain rows for which the
// split column is equal to expr. It returns false if expr is not a
// literal that can be mapped at plan time.
func (str *splitTableRoute) match(expr sqlparser.Expr) (map[int]struct{}, bool) {
	if sqlparser.IsNull(expr) {
		// Nothing is equal to NULL.
		return nil, true
	}
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok || val.Type == sqlparser.ValArg {
		return nil, false
	}
	pv, err := sqlparser.NewPlanValue(val)
	if err != nil {
		return nil, false
	}
	p, err := str.table.Split.Partition(pv.Value)
	switch {
	case err == nil:
		return map[int]struct{}{p: {}}, true
	case vterrors.Code(err) == vterrors.OutOfRange:
		// The value falls outside of all partitions.
		return nil, true
	}
	return nil, false
}

// Partitions returns the candidate partitions in ascending order.
func (str *splitTableRoute) Partitions() []int {
	partitions := make([]int, 0, len(str.partitions))
	for p := range str.partitions {
		partitions = append(partitions, p)
	}
	sort.Ints(partitions)
	return partitions
}

// Wireup generates the queries of rb for every candidate partition.
func (str *splitTableRoute) Wireup(rb *route, bldr builder, jt *jointab) error {
	str.esplit.Partitions = str.Partitions()
	str.esplit.Queries = make([]string, 0, len(str.esplit.Partitions))
	for _, p := range str.esplit.Partitions {
		buf := sqlparser.NewTrackedBuffer(rb.queryFormatter(bldr, jt, str.renamer(p)))
		buf.WriteNode(rb.Select)
		str.esplit.Queries = append(str.esplit.Queries, buf.ParsedQuery().Query)
	}
	first := 0
	if len(str.esplit.Partitions) != 0 {
		first = str.esplit.Partitions[0]
	}
	if len(str.esplit.Queries) != 0 {
		rb.eroute.Query = str.esplit.Queries[0]
	} else {
		buf := sqlparser.NewTrackedBuffer(rb.queryFormatter(bldr, jt, str.renamer(first)))
		buf.WriteNode(rb.Select)
		rb.eroute.Query = buf.ParsedQuery().Query
	}
	rb.eroute.FieldQuery = rb.generateFieldQuery(rb.Select, jt, str.renamer(first))
	return nil
}

// renamer returns a function that renames references to the
// split table into references to partition p.
func (str *splitTableRoute) renamer(p int) func(sqlparser.TableName) sqlparser.TableName {
	partition := sqlparser.NewTableIdent(vindexes.PartitionName(str.table.Name.String(), p))
	return func(name sqlparser.TableName) sqlparser.TableName {
		if name.Name != str.table.Name {
			return name
		}
		name.Name = partition
		return name
	}
}

// Primitive returns the engine primitive. It's only valid
// after Wireup.
func (str *splitTableRoute) Primitive(rb *route) engine.Primitive {
	str.esplit.Route = rb.eroute
	return str.esplit
}
