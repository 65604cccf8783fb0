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

// Package cli implements the vtplan commands.
package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/plancache"
	"github.com/vtplan/vtplan/go/vt/vtgate/schema"
	"github.com/vtplan/vtplan/go/vt/vtgate/vschemamgr"
)

// Configuration keys. Every key is also a flag, and can be set
// through a VTPLAN_ environment variable or the config file.
const (
	keyConfig         = "config"
	keyVSchema        = "vschema"
	keyKeyspace       = "keyspace"
	keyBypassShard    = "bypass-shard"
	keyTabletType     = "tablet-type"
	keyFormat         = "format"
	keyWatch          = "watch"
	keyPlanCacheTTL   = "plan-cache-ttl"
	keyPlanCacheSize  = "plan-cache-size"
	keyNormalize      = "normalize"
	keySchemaDSN      = "schema-dsn"
	keySchemaTimeout  = "schema-timeout"
	keySchemaInterval = "schema-refresh-interval"
	keyMetricsAddr    = "metrics-addr"
)

const (
	formatTree = "tree"
	formatJSON = "json"
)

// env holds the configuration shared by the commands.
type env struct {
	v *viper.Viper
}

// New creates the vtplan root command.
func New() *cobra.Command {
	e := &env{v: viper.New()}
	root := &cobra.Command{
		Use:   "vtplan",
		Short: "vtplan builds the execution plans of queries against a sharded database.",
		Long: "`vtplan` reads a vschema that describes how the tables of each keyspace are sharded, " +
			"and shows how queries would be routed: to one shard, to all of them, or split into " +
			"joins, aggregations and sorts performed above the shards.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
	}

	fs := root.PersistentFlags()
	fs.String(keyConfig, "", "Path to a YAML or JSON config file.")
	fs.String(keyVSchema, "vschema.yaml", "Path to the vschema file.")
	fs.String(keyKeyspace, "", "Keyspace of the session. Unqualified tables are looked up in it. If empty, table names must be unique across keyspaces.")
	fs.String(keyBypassShard, "", "If set, statements are sent to this shard of the keyspace without planning.")
	fs.String(keyTabletType, "", "Tablet type of the session target.")
	fs.String(keyFormat, formatTree, "Output format: tree or json.")
	fs.Duration(keyPlanCacheTTL, plancache.DefaultTTL, "How long plans are cached.")
	fs.Int(keyPlanCacheSize, 10000, "Soft limit on the number of cached plans.")
	fs.Bool(keyNormalize, false, "Replace literals with bind variables before planning.")
	fs.String(keySchemaDSN, "", "MySQL DSN of the database of the keyspace. If set, table columns are read from information_schema.")
	fs.Duration(keySchemaTimeout, 10*time.Second, "Timeout of every schema load.")
	log.RegisterFlags(fs)

	root.AddCommand(newPlanCommand(e))
	root.AddCommand(newVSchemaCommand(e))
	root.AddCommand(newServeCommand(e))
	return root
}

// load binds the flags of cmd and reads the config file, if any.
func (e *env) load(cmd *cobra.Command) error {
	e.v.SetEnvPrefix("VTPLAN")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = e.v.BindPFlag(f.Name, f)
		}
	})
	if err != nil {
		return err
	}
	if cfg := e.v.GetString(keyConfig); cfg != "" {
		e.v.SetConfigFile(cfg)
		if err := e.v.ReadInConfig(); err != nil {
			return vterrors.Wrapf(err, "cannot read config file %s", cfg)
		}
	}
	switch f := e.v.GetString(keyFormat); f {
	case formatTree, formatJSON:
	default:
		return vterrors.Errorf(vterrors.InvalidArgument, "unknown output format %s", f)
	}
	return nil
}

// target returns the session target: keyspace<:shard><@type>.
func (e *env) target() string {
	target := e.v.GetString(keyKeyspace)
	if shard := e.v.GetString(keyBypassShard); shard != "" {
		target += ":" + shard
	}
	if tabletType := e.v.GetString(keyTabletType); tabletType != "" {
		target += "@" + tabletType
	}
	return target
}

// openManager loads the vschema. If a schema DSN is configured, the
// columns of the keyspace tables are loaded first and the returned
// tracker is non-nil.
func (e *env) openManager(ctx context.Context) (*vschemamgr.Manager, *schema.Tracker, error) {
	var tracker *schema.Tracker
	if dsn := e.v.GetString(keySchemaDSN); dsn != "" {
		ks := e.v.GetString(keyKeyspace)
		if ks == "" {
			return nil, nil, vterrors.Errorf(vterrors.InvalidArgument, "--%s requires --%s", keySchemaDSN, keyKeyspace)
		}
		db, dbName, err := schema.OpenMySQL(dsn)
		if err != nil {
			return nil, nil, err
		}
		tracker = schema.NewTracker(e.v.GetDuration(keySchemaTimeout))
		tracker.AddKeyspace(ks, db, dbName)
		if err := tracker.LoadKeyspace(ctx, ks); err != nil {
			return nil, nil, err
		}
	}

	var vm *vschemamgr.Manager
	if tracker != nil {
		vm = vschemamgr.NewManager(e.v.GetString(keyVSchema), tracker)
	} else {
		vm = vschemamgr.NewManager(e.v.GetString(keyVSchema), nil)
	}
	if err := vm.Load(); err != nil {
		return nil, nil, err
	}
	if snapshot := vm.Current(); snapshot.Stats != nil {
		for _, ks := range snapshot.Stats.Keyspaces {
			if ks.Error != "" {
				log.Warningf("keyspace %s has errors: %s", ks.Keyspace, ks.Error)
			}
		}
	}
	return vm, tracker, nil
}

func (e *env) newCache(vm *vschemamgr.Manager) *plancache.Cache {
	return plancache.New(vm, plancache.Config{
		TTL:       e.v.GetDuration(keyPlanCacheTTL),
		Size:      e.v.GetInt(keyPlanCacheSize),
		Normalize: e.v.GetBool(keyNormalize),
	})
}
