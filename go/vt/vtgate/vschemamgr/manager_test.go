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
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

const baseVSchema = `
keyspaces:
  user:
    sharded: true
    vindexes:
      hash:
        type: hash
    tables:
      user:
        column_vindexes:
        - column: id
          name: hash
  main: {}
`

const updatedVSchema = `
keyspaces:
  user:
    sharded: true
    vindexes:
      hash:
        type: hash
    tables:
      user:
        column_vindexes:
        - column: id
          name: hash
      music:
        column_vindexes:
        - column: user_id
          name: hash
`

func writeFile(t *testing.T, filename, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filename, []byte(data), 0o644))
}

type fakeSchema map[string]map[string][]vindexes.Column

func (f fakeSchema) Tables(ks string) map[string][]vindexes.Column {
	return f[ks]
}

func TestManagerLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vschema.yaml")
	vm := NewManager(filename, nil)

	initial := vm.Current()
	require.NotNil(t, initial)
	assert.Equal(t, int64(0), initial.Version)
	assert.Empty(t, initial.VSchema.Keyspaces)

	var mu sync.Mutex
	var published []int64
	vm.Subscribe(func(s *Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, s.Version)
	})

	writeFile(t, filename, baseVSchema)
	require.NoError(t, vm.Load())
	first := vm.Current()
	assert.Equal(t, int64(1), first.Version)
	_, err := first.VSchema.FindTable("user", "user")
	require.NoError(t, err)
	want := []*KeyspaceStats{{
		Keyspace:   "main",
		TableCount: 1,
	}, {
		Keyspace:    "user",
		Sharded:     true,
		TableCount:  2,
		VindexCount: 1,
	}}
	assert.Equal(t, want, first.Stats.Keyspaces)

	writeFile(t, filename, updatedVSchema)
	require.NoError(t, vm.Load())
	second := vm.Current()
	assert.Equal(t, int64(2), second.Version)
	_, err = second.VSchema.FindTable("user", "music")
	require.NoError(t, err)

	// The old snapshot is unchanged.
	_, err = first.VSchema.FindTable("user", "music")
	assert.Error(t, err)

	mu.Lock()
	assert.Equal(t, []int64{1, 2}, published)
	mu.Unlock()
}

func TestManagerLoadError(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vschema.yaml")
	vm := NewManager(filename, nil)

	require.Error(t, vm.Load())
	assert.Equal(t, int64(0), vm.Current().Version)

	writeFile(t, filename, baseVSchema)
	require.NoError(t, vm.Load())

	writeFile(t, filename, "keyspaces: [")
	err := vm.Load()
	require.Error(t, err)
	cur := vm.Current()
	assert.Equal(t, int64(1), cur.Version)
	assert.NotEmpty(t, cur.Stats.Error)
	_, err = cur.VSchema.FindTable("user", "user")
	assert.NoError(t, err)
}

func TestManagerKeyspaceError(t *testing.T) {
	vm := NewManager("", nil)
	snapshot, err := vm.Update(&vindexes.SrvVSchema{
		Keyspaces: map[string]*vindexes.KeyspaceSource{
			"bad": {
				Sharded: true,
				Tables: map[string]*vindexes.TableSource{
					"t1": {},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, snapshot.Stats.Keyspaces, 1)
	assert.Equal(t, "missing primary col vindex for table: t1", snapshot.Stats.Keyspaces[0].Error)
}

func TestManagerSchemaInfo(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vschema.yaml")
	writeFile(t, filename, baseVSchema)
	schema := fakeSchema{
		"user": {
			"user": {{Name: sqlparser.NewColIdent("id"), Type: sqltypes.Int64}},
			// Tables with no vindex can't be added to a sharded keyspace.
			"unknown": {{Name: sqlparser.NewColIdent("id"), Type: sqltypes.Int64}},
		},
		"main": {
			"t1": {{Name: sqlparser.NewColIdent("c1"), Type: sqltypes.VarChar}},
		},
	}
	vm := NewManager(filename, schema)
	require.NoError(t, vm.Load())

	vschema := vm.Current().VSchema
	user, err := vschema.FindTable("user", "user")
	require.NoError(t, err)
	assert.True(t, user.ColumnListAuthoritative)
	require.Len(t, user.Columns, 1)
	assert.Equal(t, "id", user.Columns[0].Name.String())

	_, err = vschema.FindTable("user", "unknown")
	assert.Error(t, err)

	t1, err := vschema.FindTable("", "t1")
	require.NoError(t, err)
	assert.Equal(t, "main", t1.Keyspace.Name)
	assert.True(t, t1.ColumnListAuthoritative)

	rebuilt, err := vm.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, int64(2), rebuilt.Version)
}

func TestManagerWatch(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vschema.yaml")
	writeFile(t, filename, baseVSchema)
	vm := NewManager(filename, nil)
	require.NoError(t, vm.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- vm.Watch(ctx)
	}()

	// The watch may not be set up yet, so the file is rewritten
	// until the change is picked up.
	require.Eventually(t, func() bool {
		writeFile(t, filename, updatedVSchema)
		_, err := vm.Current().VSchema.FindTable("user", "music")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
