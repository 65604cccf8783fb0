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

// Package vschemamgr keeps the current vschema of a planner process.
// Every refresh builds a new vindexes.VSchema and publishes it as an
// immutable Snapshot. Readers never see a vschema that is still being
// built, and a failed refresh leaves the previous snapshot in place.
package vschemamgr

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// Snapshot is one published version of the vschema. It must not
// be modified once published.
type Snapshot struct {
	VSchema  *vindexes.VSchema
	Stats    *Stats
	Version  int64
	LoadedAt time.Time
}

// SchemaInfo is an interface to the schema tracker.
type SchemaInfo interface {
	Tables(ks string) map[string][]vindexes.Column
}

// Manager loads the vschema and publishes snapshots of it.
type Manager struct {
	filename string
	schema   SchemaInfo

	current atomic.Pointer[Snapshot]

	// mu serializes refreshes and protects the fields below.
	mu          sync.Mutex
	source      *vindexes.SrvVSchema
	version     int64
	subscribers []func(*Snapshot)
}

// NewManager creates a Manager for the given vschema file. The
// file is not read until Load is called, and until then Current
// returns an empty vschema. schema can be nil.
func NewManager(filename string, schema SchemaInfo) *Manager {
	vm := &Manager{
		filename: filename,
		schema:   schema,
	}
	vschema, _ := vindexes.BuildVSchema(&vindexes.SrvVSchema{})
	vm.current.Store(&Snapshot{
		VSchema:  vschema,
		Stats:    NewStats(vschema, ""),
		LoadedAt: time.Now(),
	})
	return vm
}

// Current returns the latest snapshot.
func (vm *Manager) Current() *Snapshot {
	return vm.current.Load()
}

// Subscribe registers a function that's called with every new snapshot.
// Calls are serialized.
func (vm *Manager) Subscribe(fn func(*Snapshot)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.subscribers = append(vm.subscribers, fn)
}

// Load reads the vschema file and publishes it. On failure, the
// previous snapshot stays current and the error is returned.
func (vm *Manager) Load() error {
	source, err := vindexes.LoadSrvVSchema(vm.filename)
	if err != nil {
		reloadCounter.WithLabelValues("error").Inc()
		log.Warningf("cannot load vschema from %s, keeping version %d: %v", vm.filename, vm.Current().Version, err)
		vm.mu.Lock()
		defer vm.mu.Unlock()
		cur := vm.current.Load()
		vm.current.Store(&Snapshot{
			VSchema:  cur.VSchema,
			Stats:    NewStats(cur.VSchema, err.Error()),
			Version:  cur.Version,
			LoadedAt: cur.LoadedAt,
		})
		return err
	}
	_, err = vm.Update(source)
	return err
}

// Update builds a vschema from source and publishes it. Keyspaces
// that fail to build are reported in the snapshot stats.
func (vm *Manager) Update(source *vindexes.SrvVSchema) (*Snapshot, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	snapshot, err := vm.publishLocked(source)
	if err != nil {
		reloadCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	reloadCounter.WithLabelValues("ok").Inc()
	log.Infof("published vschema version %d with %d keyspaces", snapshot.Version, len(snapshot.VSchema.Keyspaces))
	return snapshot, nil
}

// Rebuild republishes the last loaded vschema. It should be called
// when the underlying schema has changed.
func (vm *Manager) Rebuild() (*Snapshot, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.source == nil {
		log.Infof("No vschema to enhance")
		return vm.current.Load(), nil
	}
	return vm.publishLocked(vm.source)
}

func (vm *Manager) publishLocked(source *vindexes.SrvVSchema) (*Snapshot, error) {
	vschema, err := vm.buildAndEnhanceVSchema(source)
	if err != nil {
		return nil, err
	}
	vm.source = source
	vm.version++
	snapshot := &Snapshot{
		VSchema:  vschema,
		Stats:    NewStats(vschema, ""),
		Version:  vm.version,
		LoadedAt: time.Now(),
	}
	vm.current.Store(snapshot)
	versionGauge.Set(float64(snapshot.Version))
	for _, fn := range vm.subscribers {
		fn(snapshot)
	}
	return snapshot, nil
}

// buildAndEnhanceVSchema builds a new VSchema and uses information
// from the schema tracker to update it.
func (vm *Manager) buildAndEnhanceVSchema(source *vindexes.SrvVSchema) (*vindexes.VSchema, error) {
	vschema, err := vindexes.BuildVSchema(source)
	if err != nil {
		return nil, err
	}
	if vm.schema != nil {
		vm.updateFromSchema(vschema)
	}
	return vschema, nil
}

func (vm *Manager) updateFromSchema(vschema *vindexes.VSchema) {
	for ksName, ks := range vschema.Keyspaces {
		if ks.Error != nil {
			continue
		}
		for tblName, columns := range vm.schema.Tables(ksName) {
			vTbl := ks.Tables[tblName]
			if vTbl == nil {
				if ks.Keyspace.Sharded {
					// Without a vindex, the table can't be routed.
					continue
				}
				err := vschema.AddTable(ksName, &vindexes.Table{
					Name:                    sqlparser.NewTableIdent(tblName),
					Columns:                 columns,
					ColumnListAuthoritative: true,
				})
				if err != nil {
					log.Warningf("cannot add table %s.%s from schema: %v", ksName, tblName, err)
				}
				continue
			}
			if !vTbl.ColumnListAuthoritative && vTbl.Type == "" {
				vTbl.Columns = columns
				vTbl.ColumnListAuthoritative = true
			}
		}
	}
}

// Watch reloads the vschema file whenever it changes, until ctx
// is done. The directory is watched rather than the file so that
// editors that replace the file by renaming are handled.
func (vm *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return vterrors.Wrap(err, "cannot create vschema watcher")
	}
	defer watcher.Close()

	dir := filepath.Dir(vm.filename)
	if err := watcher.Add(dir); err != nil {
		return vterrors.Wrapf(err, "cannot watch %s", dir)
	}
	target := filepath.Clean(vm.filename)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Errors are logged by Load and the old snapshot stays.
			_ = vm.Load()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			watchErrorCounter.Inc()
			log.Errorf("vschema watch error on %s: %v", dir, err)
		}
	}
}
