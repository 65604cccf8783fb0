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
	"encoding/json"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/vtplan/vtplan/go/vt/vterrors"
)

// The types in this file are the source form of a vschema, as it is
// written in vschema files. BuildVSchema turns them into the
// resolved VSchema used by the planner.

// SrvVSchema is the vschema of every keyspace served by one cell.
type SrvVSchema struct {
	Keyspaces map[string]*KeyspaceSource `json:"keyspaces"`
}

// KeyspaceSource is the source vschema of one keyspace.
type KeyspaceSource struct {
	Sharded  bool                     `json:"sharded,omitempty"`
	Vindexes map[string]*VindexSource `json:"vindexes,omitempty"`
	Tables   map[string]*TableSource  `json:"tables,omitempty"`
	// Shards is a sharding spec like "-80-" listing the shard
	// boundaries. An empty spec means a single shard named "0"
	// for unsharded keyspaces and "-80-" for sharded ones.
	Shards string `json:"shards,omitempty"`
}

// VindexSource describes a vindex instance.
type VindexSource struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
	Owner  string            `json:"owner,omitempty"`
}

// TableSource describes a table.
type TableSource struct {
	Type                    string                `json:"type,omitempty"`
	ColumnVindexes          []*ColumnVindexSource `json:"column_vindexes,omitempty"`
	AutoIncrement           *AutoIncrementSource  `json:"auto_increment,omitempty"`
	Columns                 []*ColumnSource       `json:"columns,omitempty"`
	Pinned                  string                `json:"pinned,omitempty"`
	ColumnListAuthoritative bool                  `json:"column_list_authoritative,omitempty"`
	Split                   *SplitSource          `json:"split,omitempty"`
}

// ColumnVindexSource binds a vindex to one or more columns.
type ColumnVindexSource struct {
	Column  string   `json:"column,omitempty"`
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
}

// AutoIncrementSource names the sequence that generates a column.
type AutoIncrementSource struct {
	Column   string `json:"column"`
	Sequence string `json:"sequence"`
}

// ColumnSource describes a column. Type is a type name like VARCHAR.
type ColumnSource struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SplitSource describes how a table is split into partitions
// inside every shard.
type SplitSource struct {
	Column string             `json:"column"`
	Type   string             `json:"type"`
	Count  int                `json:"count,omitempty"`
	Ranges []SplitRangeSource `json:"ranges,omitempty"`
}

// SplitRangeSource is the half-open interval [Start, End) of a
// range partition.
type SplitRangeSource struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// ParseSrvVSchema parses a vschema in JSON or YAML form.
func ParseSrvVSchema(data []byte) (*SrvVSchema, error) {
	source := &SrvVSchema{}
	if err := yaml.UnmarshalStrict(data, source); err != nil {
		return nil, vterrors.Wrap(err, "cannot parse vschema")
	}
	if source.Keyspaces == nil {
		source.Keyspaces = make(map[string]*KeyspaceSource)
	}
	return source, nil
}

// LoadSrvVSchema reads and parses a vschema file.
func LoadSrvVSchema(filename string) (*SrvVSchema, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseSrvVSchema(data)
}

// LoadFormalKeyspace reads the vschema of a single keyspace from a file.
func LoadFormalKeyspace(filename string) (*KeyspaceSource, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	formal := &KeyspaceSource{}
	if err := yaml.UnmarshalStrict(data, formal); err != nil {
		return nil, vterrors.Wrapf(err, "cannot parse keyspace vschema %s", filename)
	}
	return formal, nil
}

// MarshalSrvVSchema renders the source vschema as indented JSON
// or as YAML.
func MarshalSrvVSchema(source *SrvVSchema, asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(source)
	}
	return json.MarshalIndent(source, "", "  ")
}
