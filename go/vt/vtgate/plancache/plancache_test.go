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

package plancache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
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
  main:
    tables:
      unsharded: {}
`

func newTestCache(t *testing.T, cfg Config) (*Cache, *vschemamgr.Manager) {
	t.Helper()
	source, err := vindexes.ParseSrvVSchema([]byte(testVSchema))
	require.NoError(t, err)
	vm := vschemamgr.NewManager("", nil)
	_, err = vm.Update(source)
	require.NoError(t, err)
	return New(vm, cfg), vm
}

func TestGetPlan(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	plan1, err := c.GetPlan(ctx, "select * from user where id = 1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT", plan1.Type)
	assert.Equal(t, 1, c.Len())

	plan2, err := c.GetPlan(ctx, "select * from user where id = 1", "", nil)
	require.NoError(t, err)
	assert.Same(t, plan1, plan2)
	assert.Equal(t, 1, c.Len())

	// A different target is a different plan.
	plan3, err := c.GetPlan(ctx, "select * from user where id = 1", "user", nil)
	require.NoError(t, err)
	assert.NotSame(t, plan1, plan3)
	assert.Equal(t, 2, c.Len())
}

func TestGetPlanError(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	_, err := c.GetPlan(ctx, "select * from", "", nil)
	require.Error(t, err)

	_, err = c.GetPlan(ctx, "select * from user", "nosuch", nil)
	assert.EqualError(t, err, "keyspace nosuch not found in vschema")

	_, err = c.GetPlan(ctx, "select * from user union select * from user", "", nil)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFlushOnSnapshot(t *testing.T) {
	c, vm := newTestCache(t, Config{})
	ctx := context.Background()

	plan1, err := c.GetPlan(ctx, "select * from unsharded", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = vm.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Flushes())

	plan2, err := c.GetPlan(ctx, "select * from unsharded", "", nil)
	require.NoError(t, err)
	assert.NotSame(t, plan1, plan2)
}

func TestSkipQueryPlanCache(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	_, err := c.GetPlan(context.Background(), "select /*vt+ SKIP_QUERY_PLAN_CACHE=1 */ * from user", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestNormalize(t *testing.T) {
	c, _ := newTestCache(t, Config{Normalize: true})
	ctx := context.Background()

	bv1 := map[string]*sqltypes.BindVariable{}
	plan1, err := c.GetPlan(ctx, "select * from user where id = 1", "", bv1)
	require.NoError(t, err)
	assert.Equal(t, "select * from user where id = :vtg1", plan1.Original)
	assert.Equal(t, sqltypes.NewInt64(1), bv1["vtg1"].Value)

	bv2 := map[string]*sqltypes.BindVariable{}
	plan2, err := c.GetPlan(ctx, "select * from user where id = 2", "", bv2)
	require.NoError(t, err)
	assert.Same(t, plan1, plan2)
	assert.Equal(t, sqltypes.NewInt64(2), bv2["vtg1"].Value)
}

func TestSizeLimit(t *testing.T) {
	c, _ := newTestCache(t, Config{Size: 1})
	ctx := context.Background()

	_, err := c.GetPlan(ctx, "select * from user", "", nil)
	require.NoError(t, err)
	plan, err := c.GetPlan(ctx, "select * from unsharded", "", nil)
	require.NoError(t, err)
	assert.NotNil(t, plan)
	assert.Equal(t, 1, c.Len())
}

func TestConcurrentGetPlan(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetPlan(ctx, "select u.id from user u join unsharded on u.id = unsharded.id", "", nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, c.Len())
}

func TestPlanKey(t *testing.T) {
	assert.Equal(t, "3@user:select 1", planKey(3, "user", "select 1"))
	assert.NotEqual(t, planKey(1, "", "select 1"), planKey(2, "", "select 1"))
}
