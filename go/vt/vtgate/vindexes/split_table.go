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

	"github.com/cespare/xxhash/v2"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
)

// Split types.
const (
	SplitHash  = "hash"
	SplitRange = "range"
)

// SplitInterval is the half-open interval [Start, End) of split column
// values stored in one partition.
type SplitInterval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// SplitTable describes a table that is statically partitioned into
// Count physical tables inside every shard. Partition i of table t
// is stored as t_000i.
type SplitTable struct {
	Column sqlparser.ColIdent `json:"column"`
	Type   string             `json:"type"`
	Count  int                `json:"count"`
	Ranges []SplitInterval    `json:"ranges,omitempty"`
}

func buildSplitTable(tname string, source *SplitSource) (*SplitTable, error) {
	if source.Column == "" {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "split column missing for table %s", tname)
	}
	st := &SplitTable{
		Column: sqlparser.NewColIdent(source.Column),
		Type:   source.Type,
	}
	switch source.Type {
	case SplitHash:
		if source.Count <= 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "split count must be positive for table %s: %d", tname, source.Count)
		}
		st.Count = source.Count
	case SplitRange:
		if len(source.Ranges) == 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "split ranges missing for table %s", tname)
		}
		for i, r := range source.Ranges {
			if r.Start >= r.End {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "empty split range %d-%d for table %s", r.Start, r.End, tname)
			}
			if i > 0 && r.Start < source.Ranges[i-1].End {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "split ranges overlap or are out of order for table %s", tname)
			}
			st.Ranges = append(st.Ranges, SplitInterval{Start: r.Start, End: r.End})
		}
		st.Count = len(st.Ranges)
	default:
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "unknown split type %q for table %s", source.Type, tname)
	}
	return st, nil
}

// Partition returns the index of the partition that stores
// rows whose split column has the value v.
func (st *SplitTable) Partition(v sqltypes.Value) (int, error) {
	if v.IsNull() {
		return 0, vterrors.Errorf(vterrors.InvalidArgument, "split column %v cannot be null", st.Column)
	}
	switch st.Type {
	case SplitHash:
		num, err := toUint64(v)
		if err != nil {
			num = xxhash.Sum64(v.ToBytes())
		}
		return int(num % uint64(st.Count)), nil
	case SplitRange:
		num, err := toUint64(v)
		if err != nil {
			return 0, vterrors.Errorf(vterrors.InvalidArgument, "split column %v needs a number: %v", st.Column, v)
		}
		n := int64(num)
		for i, r := range st.Ranges {
			if n >= r.Start && n < r.End {
				return i, nil
			}
		}
		return 0, vterrors.Errorf(vterrors.OutOfRange, "value %d is outside the split ranges of column %v", n, st.Column)
	}
	return 0, vterrors.Errorf(vterrors.Internal, "BUG: unknown split type %q", st.Type)
}

// PartitionName returns the physical name of partition i of table.
func PartitionName(table string, i int) string {
	return fmt.Sprintf("%s_%04d", table, i)
}
