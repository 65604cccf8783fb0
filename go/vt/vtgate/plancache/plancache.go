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

// Package plancache caches the plans built by planbuilder.
//
// Plans are keyed by the session target and the query text. The key
// also carries the version of the vschema snapshot the plan was built
// against, and the cache is flushed whenever a new snapshot is
// published, so a plan never outlives the vschema it was built on.
// Concurrent requests for the same key are planned only once.
package plancache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
	"github.com/vtplan/vtplan/go/vt/vtgate/planbuilder"
	"github.com/vtplan/vtplan/go/vt/vtgate/vschemamgr"
)

const (
	// DefaultTTL is how long a plan stays in the cache if the
	// config does not say otherwise.
	DefaultTTL = 10 * time.Minute
	// DefaultShards is the default number of cache shards.
	DefaultShards = 16
)

// Config is the configuration for a plan cache.
type Config struct {
	// TTL is how long to keep a plan after it was built. Use
	// cache.NoExpiration to keep plans until the next flush.
	TTL time.Duration `json:"ttl"`
	// CleanupInterval is how often expired plans are removed.
	CleanupInterval time.Duration `json:"cleanup_interval"`
	// Size is a soft limit on the number of cached plans. Plans
	// built while the cache is full are returned but not kept.
	// Zero means no limit.
	Size int `json:"size"`
	// Shards is the number of independent caches the keys are
	// spread over.
	Shards int `json:"shards"`
	// Normalize replaces literals with bind variables before
	// planning so that queries differing only in values share
	// one plan.
	Normalize bool `json:"normalize"`
}

// SnapshotSource supplies the vschema to plan against.
// *vschemamgr.Manager implements it.
type SnapshotSource interface {
	Current() *vschemamgr.Snapshot
	Subscribe(func(*vschemamgr.Snapshot))
}

// Cache is a concurrent plan cache.
type Cache struct {
	cfg     Config
	source  SnapshotSource
	shards  []*cache.Cache
	group   singleflight.Group
	flushes atomic.Int64
}

// New creates a Cache that plans against the snapshots of source.
func New(source SnapshotSource, cfg Config) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = cfg.TTL
	}
	if cfg.Shards <= 0 {
		cfg.Shards = DefaultShards
	}
	c := &Cache{
		cfg:    cfg,
		source: source,
		shards: make([]*cache.Cache, cfg.Shards),
	}
	for i := range c.shards {
		shard := cache.New(cfg.TTL, cfg.CleanupInterval)
		shard.OnEvicted(func(key string, _ any) {
			evictionCounter.Inc()
			log.V(3).Infof("evicted plan %q", key)
		})
		c.shards[i] = shard
	}
	source.Subscribe(func(s *vschemamgr.Snapshot) {
		c.Flush()
		log.Infof("plan cache flushed for vschema version %d", s.Version)
	})
	return c
}

type result struct {
	plan   *engine.Plan
	cached bool
}

// GetPlan returns the plan of query for a session with the given
// target. If the cache normalizes queries, the extracted values are
// added to bindVars, which must then be non-nil.
func (c *Cache) GetPlan(ctx context.Context, query, target string, bindVars map[string]*sqltypes.BindVariable) (*engine.Plan, error) {
	snapshot := c.source.Current()
	stmt, err := sqlparser.Parse(query)
	if err != nil {
		planCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	if c.cfg.Normalize && bindVars != nil {
		sqlparser.Normalize(stmt, bindVars, "vtg")
		query = sqlparser.String(stmt)
	}

	key := planKey(snapshot.Version, target, query)
	if plan, ok := c.shard(key).Get(key); ok {
		hitCounter.Inc()
		return plan.(*engine.Plan), nil
	}
	missCounter.Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		vc, err := planbuilder.NewVSchemaContext(snapshot.VSchema, target)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		plan, err := planbuilder.BuildFromStmt(query, stmt, vc)
		planDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		if sqlparser.SkipQueryPlanCacheDirective(stmt) {
			return result{plan: plan}, nil
		}
		return result{plan: plan, cached: c.add(key, plan)}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			planCounter.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		planCounter.WithLabelValues("ok").Inc()
		return res.Val.(result).plan, nil
	}
}

func (c *Cache) add(key string, plan *engine.Plan) bool {
	shard := c.shard(key)
	if c.cfg.Size > 0 && c.Len() >= c.cfg.Size {
		shard.DeleteExpired()
		if c.Len() >= c.cfg.Size {
			cacheFullCounter.Inc()
			return false
		}
	}
	shard.SetDefault(key, plan)
	return true
}

func (c *Cache) shard(key string) *cache.Cache {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Len returns the number of cached plans. It may include expired
// plans that were not yet removed.
func (c *Cache) Len() int {
	n := 0
	for _, shard := range c.shards {
		n += shard.ItemCount()
	}
	return n
}

// Flush removes all plans.
func (c *Cache) Flush() {
	for _, shard := range c.shards {
		shard.Flush()
	}
	c.flushes.Add(1)
	flushCounter.Inc()
}

// Flushes returns the number of times the cache was flushed.
func (c *Cache) Flushes() int64 {
	return c.flushes.Load()
}

func planKey(version int64, target, query string) string {
	return strconv.FormatInt(version, 10) + "@" + target + ":" + query
}
