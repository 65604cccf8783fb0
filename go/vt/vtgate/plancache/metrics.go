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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	planCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtplan_plans_total",
		Help: "Number of plan requests, by result.",
	}, []string{"result"})

	planDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vtplan_plan_duration_seconds",
		Help:    "Time spent building plans that were not found in the cache.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_cache_hits_total",
		Help: "Number of plans served from the cache.",
	})

	missCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_cache_misses_total",
		Help: "Number of plan requests not found in the cache.",
	})

	evictionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_cache_evictions_total",
		Help: "Number of plans removed from the cache after they expired.",
	})

	cacheFullCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_cache_full_total",
		Help: "Number of plans not cached because the cache was full.",
	})

	flushCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_cache_flushes_total",
		Help: "Number of times the plan cache was flushed.",
	})
)

// RegisterMetrics registers the plan cache metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		planCounter,
		planDuration,
		hitCounter,
		missCounter,
		evictionCounter,
		cacheFullCounter,
		flushCounter,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
