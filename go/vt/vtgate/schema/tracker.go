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

// Package schema tracks the columns of the tables of each keyspace
// by reading information_schema.columns from the underlying MySQL
// databases. The column lists are used to make vschema tables
// authoritative, so that the planner can expand 'select *' and
// resolve unqualified columns across joins.
package schema

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

const columnsQuery = "select table_name, column_name, data_type from information_schema.columns where table_schema = ? order by table_name, ordinal_position"

type source struct {
	db     *sql.DB
	schema string
}

// Tracker keeps the column lists of the tracked keyspaces.
type Tracker struct {
	mu      sync.Mutex
	tables  map[string]map[string][]vindexes.Column
	sources map[string]source
	timeout time.Duration

	u updateController
}

// NewTracker creates a Tracker. Every load is bounded by timeout.
func NewTracker(timeout time.Duration) *Tracker {
	t := &Tracker{
		tables:  make(map[string]map[string][]vindexes.Column),
		sources: make(map[string]source),
		timeout: timeout,
	}
	t.u.update = t.reload
	return t
}

// OpenMySQL opens a connection pool for dsn. It returns the pool and the
// database name of the DSN, which is the schema that gets tracked.
func OpenMySQL(dsn string) (*sql.DB, string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, "", vterrors.Wrap(err, "failed to parse MySQL DSN")
	}
	if cfg.DBName == "" {
		return nil, "", vterrors.Errorf(vterrors.InvalidArgument, "MySQL DSN must name a database: %s", dsn)
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, "", vterrors.Wrap(err, "failed to connect to MySQL")
	}
	return db, cfg.DBName, nil
}

// AddKeyspace makes the tracker follow the tables of schemaName in db
// as the tables of keyspace ks.
func (t *Tracker) AddKeyspace(ks string, db *sql.DB, schemaName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[ks] = source{db: db, schema: schemaName}
}

// RegisterSignalReceiver sets the function that's called after every
// background reload.
func (t *Tracker) RegisterSignalReceiver(f func()) {
	t.u.setSignal(f)
}

// LoadKeyspace reads the columns of keyspace ks and replaces what
// the tracker knew about it. On failure, the previous columns are kept.
func (t *Tracker) LoadKeyspace(ctx context.Context, ks string) error {
	t.mu.Lock()
	src, ok := t.sources[ks]
	t.mu.Unlock()
	if !ok {
		return vterrors.Errorf(vterrors.NotFound, "keyspace %s is not tracked", ks)
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	tables, err := readColumns(ctx, src)
	if err != nil {
		return vterrors.Wrapf(err, "cannot load schema of keyspace %s", ks)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables[ks] = tables
	return nil
}

func (t *Tracker) reload(ks string) {
	if err := t.LoadKeyspace(context.Background(), ks); err != nil {
		log.Warningf("%v", err)
	}
}

// Refresh queues a background reload of keyspace ks.
func (t *Tracker) Refresh(ks string) {
	t.u.add(ks)
}

// Start refreshes every tracked keyspace at the given interval
// until ctx is done.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ks := range t.Keyspaces() {
				t.Refresh(ks)
			}
		}
	}
}

// Keyspaces returns the tracked keyspaces in sorted order.
func (t *Tracker) Keyspaces() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.sources))
	for ks := range t.sources {
		names = append(names, ks)
	}
	sort.Strings(names)
	return names
}

// GetColumns returns the columns of table tbl in keyspace ks.
func (t *Tracker) GetColumns(ks, tbl string) []vindexes.Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tables[ks][tbl]
}

// Tables returns the column lists of all the tables of keyspace ks.
// The returned map is a copy, but the column slices are shared and
// must not be modified.
func (t *Tracker) Tables(ks string) map[string][]vindexes.Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.tables[ks]
	if m == nil {
		return nil
	}
	res := make(map[string][]vindexes.Column, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

func readColumns(ctx context.Context, src source) (map[string][]vindexes.Column, error) {
	rows, err := src.db.QueryContext(ctx, columnsQuery, src.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string][]vindexes.Column)
	for rows.Next() {
		var tbl, col, typ string
		if err := rows.Scan(&tbl, &col, &typ); err != nil {
			return nil, err
		}
		tables[tbl] = append(tables[tbl], vindexes.Column{
			Name: sqlparser.NewColIdent(col),
			Type: sqltypes.MySQLToType(typ),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
