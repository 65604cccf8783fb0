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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/vt/vtgate/vschemamgr"
)

const testVSchema = `
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
  main:
    tables:
      unsharded: {}
`

func writeVSchema(t *testing.T) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "vschema.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(testVSchema), 0o644))
	return filename
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newTestEnv(t *testing.T, vschema string) *env {
	t.Helper()
	e := &env{v: viper.New()}
	e.v.Set(keyVSchema, vschema)
	e.v.Set(keyPlanCacheTTL, time.Minute)
	e.v.Set(keyPlanCacheSize, 100)
	return e
}

func TestPlanTree(t *testing.T) {
	vschema := writeVSchema(t)
	out, err := run(t, "", "plan", "--vschema", vschema, "select * from user where id = 1")
	require.NoError(t, err)
	assert.Contains(t, out, "select * from user where id = 1\n")
	assert.Contains(t, out, "Route SelectEqualUnique [user]")
	assert.Contains(t, out, "Vindex: hash")
	assert.Contains(t, out, "Destination: DestinationKeyspaceID(166b40b44aba4bd6)")
	assert.NotContains(t, out, "batch ")

	out, err = run(t, "", "plan", "--vschema", vschema, "select u.id, m.id from user u join music m on u.id = m.user_id where u.id = 5")
	require.NoError(t, err)
	assert.Contains(t, out, "Route SelectEqualUnique [user]")
	assert.NotContains(t, out, "Join")
}

func TestPlanJSON(t *testing.T) {
	vschema := writeVSchema(t)
	out, err := run(t, "", "plan", "--vschema", vschema, "--format", "json", "select * from unsharded")
	require.NoError(t, err)

	var plan map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "SELECT", plan["QueryType"])
	instructions := plan["Instructions"].(map[string]any)
	assert.Equal(t, "Route", instructions["OperatorType"])
	assert.Equal(t, "SelectUnsharded", instructions["Variant"])
}

func TestPlanBatch(t *testing.T) {
	vschema := writeVSchema(t)
	queries := filepath.Join(t.TempDir(), "queries.sql")
	require.NoError(t, os.WriteFile(queries, []byte("select * from user;\nselect * from unsharded;\n"), 0o644))

	out, err := run(t, "", "plan", "--vschema", vschema, "--file", queries, "select id from music where user_id = 3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "batch "), out)
	assert.Contains(t, out, "3 queries")
	// Results are printed in input order.
	i1 := strings.Index(out, "select id from music where user_id = 3")
	i2 := strings.Index(out, "select * from user\n")
	i3 := strings.Index(out, "select * from unsharded\n")
	assert.True(t, i1 < i2 && i2 < i3, out)

	out, err = run(t, "select * from user; select 1 from dual", "plan", "--vschema", vschema, "--format", "json", "--file", "-")
	require.NoError(t, err)
	var results []struct {
		ID    string          `json:"id"`
		Query string          `json:"query"`
		Plan  json.RawMessage `json:"plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "select 1 from dual", results[1].Query)
	assert.NotEmpty(t, results[0].ID)
	assert.NotEqual(t, results[0].ID, results[1].ID)
	assert.Contains(t, string(results[0].Plan), `"Variant": "SelectScatter"`)
}

func TestPlanErrors(t *testing.T) {
	vschema := writeVSchema(t)

	out, err := run(t, "", "plan", "--vschema", vschema, "select id from user union select id from music")
	assert.EqualError(t, err, "1 of 1 queries failed to plan")
	assert.Contains(t, out, "ERROR: unsupported: UNION cannot be executed as a single route")

	_, err = run(t, "", "plan", "--vschema", vschema)
	assert.EqualError(t, err, "no queries to plan")

	_, err = run(t, "", "plan", "--vschema", vschema, "--format", "yaml", "select 1 from dual")
	assert.EqualError(t, err, "unknown output format yaml")

	_, err = run(t, "", "plan", "--vschema", filepath.Join(t.TempDir(), "nosuch.yaml"), "select 1 from dual")
	assert.Error(t, err)

	_, err = run(t, "", "plan", "--vschema", vschema, "--schema-dsn", "root@tcp(127.0.0.1:3306)/vt_user", "select 1 from dual")
	assert.EqualError(t, err, "--schema-dsn requires --keyspace")
}

func TestPlanTarget(t *testing.T) {
	vschema := writeVSchema(t)
	out, err := run(t, "", "plan", "--vschema", vschema, "--keyspace", "main", "select * from t1")
	require.NoError(t, err)
	assert.Contains(t, out, "Route SelectUnsharded [main]")

	// A bypass shard sends the statement as is.
	out, err = run(t, "", "plan", "--vschema", vschema, "--keyspace", "user", "--bypass-shard", "-80", "select * from t1")
	require.NoError(t, err)
	assert.Contains(t, out, "Send [user]")
	assert.Contains(t, out, "TargetDestination: DestinationShard(-80)")
}

func TestConfigFileAndEnv(t *testing.T) {
	vschema := writeVSchema(t)
	config := filepath.Join(t.TempDir(), "vtplan.yaml")
	require.NoError(t, os.WriteFile(config, []byte("vschema: "+vschema+"\nkeyspace: main\nformat: json\n"), 0o644))

	out, err := run(t, "", "plan", "--config", config, "select * from t1")
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "main"`)

	t.Setenv("VTPLAN_KEYSPACE", "user")
	t.Setenv("VTPLAN_BYPASS_SHARD", "80-")
	out, err = run(t, "", "plan", "--config", config, "select * from t1")
	require.NoError(t, err)
	assert.Contains(t, out, `"OperatorType": "Send"`)
}

func TestVSchemaCommand(t *testing.T) {
	vschema := writeVSchema(t)

	out, err := run(t, "", "vschema", "--vschema", vschema)
	require.NoError(t, err)
	assert.Contains(t, out, "user (sharded)")
	assert.Contains(t, out, "hash(id) hash cost=1")
	assert.Contains(t, out, "dual [reference pinned=00]")

	out, err = run(t, "", "vschema", "--vschema", vschema, "--format", "json")
	require.NoError(t, err)
	stats := &vschemamgr.Stats{}
	require.NoError(t, json.Unmarshal([]byte(out), stats))
	require.Len(t, stats.Keyspaces, 2)
	assert.Equal(t, "main", stats.Keyspaces[0].Keyspace)
	assert.Equal(t, 3, stats.Keyspaces[1].TableCount)

	out, err = run(t, "", "vschema", "--vschema", vschema, "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, `"keyspaces"`)
}

func TestServeMux(t *testing.T) {
	e := newTestEnv(t, writeVSchema(t))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	vm, _, err := e.openManager(ctx)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	server := httptest.NewServer(newServeMux(e, vm, e.newCache(vm), reg))
	defer server.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/plan?q=" + url.QueryEscape("select * from user where id = 1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"Variant": "SelectEqualUnique"`)

	status, body = get("/plan?target=main&q=" + url.QueryEscape("select * from t1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"Variant": "SelectUnsharded"`)

	status, body = get("/plan?q=" + url.QueryEscape("select id from user union select id from music"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "unsupported: UNION cannot be executed as a single route")

	status, _ = get("/plan")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = get("/debug/vschema")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"keyspace": "user"`)

	status, _ = get("/metrics")
	assert.Equal(t, http.StatusOK, status)
}
