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

package vschemamgr

import (
	"sort"

	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// Stats contains a rollup of the VSchema stats.
type Stats struct {
	Error     string           `json:"error,omitempty"`
	Keyspaces []*KeyspaceStats `json:"keyspaces"`
}

// KeyspaceStats contains a rollup of the VSchema stats for a keyspace.
type KeyspaceStats struct {
	Keyspace    string `json:"keyspace"`
	Sharded     bool   `json:"sharded"`
	TableCount  int    `json:"table_count"`
	VindexCount int    `json:"vindex_count"`
	Error       string `json:"error,omitempty"`
}

// NewStats returns a new Stats from a VSchema.
func NewStats(vschema *vindexes.VSchema, errorMessage string) *Stats {
	stats := &Stats{
		Error:     errorMessage,
		Keyspaces: make([]*KeyspaceStats, 0, len(vschema.Keyspaces)),
	}
	for n, k := range vschema.Keyspaces {
		s := &KeyspaceStats{
			Keyspace: n,
		}
		if k.Keyspace != nil {
			s.Sharded = k.Keyspace.Sharded
			s.TableCount += len(k.Tables)
			for _, t := range k.Tables {
				s.VindexCount += len(t.ColumnVindexes)
			}
		}
		if k.Error != nil {
			s.Error = k.Error.Error()
		}
		stats.Keyspaces = append(stats.Keyspaces, s)
	}
	sort.Slice(stats.Keyspaces, func(i, j int) bool { return stats.Keyspaces[i].Keyspace < stats.Keyspaces[j].Keyspace })
	return stats
}
