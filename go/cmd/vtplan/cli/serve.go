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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/plancache"
	"github.com/vtplan/vtplan/go/vt/vtgate/vschemamgr"
)

func newServeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serves plans and planner metrics over HTTP.",
		Long: "Serves plans and planner metrics over HTTP until interrupted.\n\n" +
			"  /metrics         prometheus metrics\n" +
			"  /plan?q=<query>  the JSON plan of a query; target=<target> overrides the session target\n" +
			"  /debug/vschema   the summary of the current vschema",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandServe(cmd, e)
		},
	}
	fs := cmd.Flags()
	fs.String(keyMetricsAddr, ":15999", "Address to serve HTTP on.")
	fs.Bool(keyWatch, true, "Reload the vschema when its file changes.")
	fs.Duration(keySchemaInterval, time.Minute, "How often the schema is reloaded if a schema DSN is set.")
	return cmd
}

func commandServe(cmd *cobra.Command, e *env) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vm, tracker, err := e.openManager(ctx)
	if err != nil {
		return err
	}
	cache := e.newCache(vm)

	reg := prometheus.NewRegistry()
	if err := vschemamgr.RegisterMetrics(reg); err != nil {
		return err
	}
	if err := plancache.RegisterMetrics(reg); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              e.v.GetString(keyMetricsAddr),
		Handler:           newServeMux(e, vm, cache, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("serving on %s", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if e.v.GetBool(keyWatch) {
		g.Go(func() error {
			return vm.Watch(gctx)
		})
	}
	if tracker != nil {
		tracker.RegisterSignalReceiver(func() {
			if _, err := vm.Rebuild(); err != nil {
				log.Warningf("cannot rebuild vschema after schema change: %v", err)
			}
		})
		g.Go(func() error {
			tracker.Start(gctx, e.v.GetDuration(keySchemaInterval))
			return nil
		})
	}
	return g.Wait()
}

func newServeMux(e *env, vm *vschemamgr.Manager, cache *plancache.Cache, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/plan", func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("q")
		if query == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}
		target := e.target()
		if r.Form.Has("target") {
			target = r.FormValue("target")
		}
		plan, err := cache.GetPlan(r.Context(), query, target, map[string]*sqltypes.BindVariable{})
		if err != nil {
			status := http.StatusBadRequest
			if vterrors.Code(err) == vterrors.Internal {
				status = http.StatusInternalServerError
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, plan)
	})
	mux.HandleFunc("/debug/vschema", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, vm.Current().Stats)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(b)
}
