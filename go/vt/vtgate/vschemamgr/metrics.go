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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reloadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtplan_vschema_reloads_total",
		Help: "Number of vschema refreshes, by result.",
	}, []string{"result"})

	watchErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtplan_vschema_watch_errors_total",
		Help: "Number of errors reported by the vschema file watcher.",
	})

	versionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtplan_vschema_version",
		Help: "Version of the current vschema snapshot.",
	})
)

// RegisterMetrics registers the manager metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{reloadCounter, watchErrorCounter, versionGauge} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
