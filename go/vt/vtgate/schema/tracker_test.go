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

package schema

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

type columnRow struct {
	table, column, typ string
}

// newInfoSchema returns a sqlite database that has an
// information_schema.columns table like the one of MySQL.
func newInfoSchema(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "main.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// Attached databases belong to a connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("attach database ? as information_schema", filepath.Join(dir, "information_schema.db"))
	require.NoError(t, err)
	_, err = db.Exec("create table information_schema.columns (table_schema text, table_name text, column_name text, data_type text, ordinal_position integer)")
	require.NoError(t, err)
	return db
}

func setColumns(t *testing.T, db *sql.DB, schema string, rows ...columnRow) {
	t.Helper()
	_, err := db.Exec("delete from information_schema.columns where table_schema = ?", schema)
	require.NoError(t, err)
	for i, row := range rows {
		_, err := db.Exec("insert into information_schema.columns values (?, ?, ?, ?, ?)", schema, row.table, row.column, row.typ, i+1)
		require.NoError(t, err)
	}
}

func TestTracking(t *testing.T) {
	db := newInfoSchema(t)
	tracker := NewTracker(time.Second)
	tracker.AddKeyspace("ks", db, "vt_ks")
	ctx := context.Background()

	// Rows of other schemas are ignored.
	setColumns(t, db, "other", columnRow{"x", "id", "int"})

	testcases := []struct {
		tName string
		rows  []columnRow
		exp   map[string][]vindexes.Column
	}{{
		tName: "new tables",
		rows: []columnRow{
			{"t1", "id", "int"},
			{"t1", "name", "varchar"},
			{"t2", "id", "varchar"},
		},
		exp: map[string][]vindexes.Column{
			"t1": {
				{Name: sqlparser.NewColIdent("id"), Type: sqltypes.Int32},
				{Name: sqlparser.NewColIdent("name"), Type: sqltypes.VarChar},
			},
			"t2": {
				{Name: sqlparser.NewColIdent("id"), Type: sqltypes.VarChar},
			},
		},
	}, {
		tName: "delete t1, updated t2 and new t3",
		rows: []columnRow{
			{"t2", "id", "varchar"},
			{"t2", "name", "varchar"},
			{"t3", "id", "datetime"},
		},
		exp: map[string][]vindexes.Column{
			"t2": {
				{Name: sqlparser.NewColIdent("id"), Type: sqltypes.VarChar},
				{Name: sqlparser.NewColIdent("name"), Type: sqltypes.VarChar},
			},
			"t3": {
				{Name: sqlparser.NewColIdent("id"), Type: sqltypes.Datetime},
			},
		},
	}, {
		tName: "unknown types",
		rows: []columnRow{
			{"t4", "name", "VARCHAR"},
			{"t4", "shape", "polygon"},
		},
		exp: map[string][]vindexes.Column{
			"t4": {
				{Name: sqlparser.NewColIdent("name"), Type: sqltypes.VarChar},
				{Name: sqlparser.NewColIdent("shape"), Type: sqltypes.VarBinary},
			},
		},
	}}
	for _, tcase := range testcases {
		t.Run(tcase.tName, func(t *testing.T) {
			setColumns(t, db, "vt_ks", tcase.rows...)
			require.NoError(t, tracker.LoadKeyspace(ctx, "ks"))
			assert.Equal(t, tcase.exp, tracker.Tables("ks"))
			for k, v := range tcase.exp {
				assert.Equal(t, v, tracker.GetColumns("ks", k), "mismatch for table: %s", k)
			}
		})
	}
	assert.Nil(t, tracker.GetColumns("ks", "t1"))
	assert.Nil(t, tracker.Tables("other"))
}

func TestTrackingErrors(t *testing.T) {
	tracker := NewTracker(0)
	err := tracker.LoadKeyspace(context.Background(), "ks")
	assert.EqualError(t, err, "keyspace ks is not tracked")

	db := newInfoSchema(t)
	tracker.AddKeyspace("ks", db, "vt_ks")
	setColumns(t, db, "vt_ks", columnRow{"t1", "id", "int"})
	require.NoError(t, tracker.LoadKeyspace(context.Background(), "ks"))

	// A failed load keeps what was already known.
	_, err = db.Exec("drop table information_schema.columns")
	require.NoError(t, err)
	err = tracker.LoadKeyspace(context.Background(), "ks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load schema of keyspace ks")
	assert.Len(t, tracker.GetColumns("ks", "t1"), 1)
}

func TestRefresh(t *testing.T) {
	db := newInfoSchema(t)
	tracker := NewTracker(time.Second)
	tracker.AddKeyspace("ks", db, "vt_ks")
	assert.Equal(t, []string{"ks"}, tracker.Keyspaces())

	signal := make(chan struct{}, 10)
	tracker.RegisterSignalReceiver(func() {
		signal <- struct{}{}
	})

	setColumns(t, db, "vt_ks", columnRow{"t1", "id", "bigint"})
	tracker.Refresh("ks")
	select {
	case <-signal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the refresh")
	}
	assert.Equal(t, []vindexes.Column{{Name: sqlparser.NewColIdent("id"), Type: sqltypes.Int64}}, tracker.GetColumns("ks", "t1"))
}

func TestStart(t *testing.T) {
	db := newInfoSchema(t)
	tracker := NewTracker(time.Second)
	tracker.AddKeyspace("ks", db, "vt_ks")
	setColumns(t, db, "vt_ks", columnRow{"t1", "id", "int"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Start(ctx, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return tracker.GetColumns("ks", "t1") != nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestUpdateControllerDedup(t *testing.T) {
	release := make(chan struct{})
	var got []string
	done := make(chan struct{})
	u := &updateController{}
	u.update = func(ks string) {
		<-release
		got = append(got, ks)
		if len(got) == 3 {
			close(done)
		}
	}
	u.add("a")
	// "a" may or may not have been picked up by now, so only
	// the keyspaces behind it are checked for duplicates.
	u.add("b")
	u.add("b")
	u.add("c")
	close(release)
	<-done
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestOpenMySQL(t *testing.T) {
	db, schema, err := OpenMySQL("vt_app:secret@tcp(127.0.0.1:3306)/vt_user")
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "vt_user", schema)

	_, _, err = OpenMySQL("vt_app@tcp(127.0.0.1:3306)/")
	assert.EqualError(t, err, "MySQL DSN must name a database: vt_app@tcp(127.0.0.1:3306)/")

	_, _, err = OpenMySQL("nodsn")
	assert.Error(t, err)
}
