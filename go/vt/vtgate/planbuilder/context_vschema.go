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

package planbuilder

import (
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

var _ ContextVSchema = (*VSchemaContext)(nil)

// VSchemaContext implements ContextVSchema over a vschema and the
// target string of a session. The target has the form
// keyspace<:shard><@type> or keyspace<[range]><@type>.
// Unqualified table names are looked up in the target keyspace,
// or across all keyspaces if the target names none.
type VSchemaContext struct {
	vschema    *vindexes.VSchema
	target     string
	keyspace   string
	tabletType string
	dest       key.Destination
}

// NewVSchemaContext creates a VSchemaContext. It fails if the
// target can't be parsed or names a keyspace that is not in
// the vschema.
func NewVSchemaContext(vschema *vindexes.VSchema, target string) (*VSchemaContext, error) {
	keyspace, tabletType, dest, err := key.ParseDestination(target)
	if err != nil {
		return nil, err
	}
	if keyspace != "" {
		if _, err := vschema.FindKeyspace(keyspace); err != nil {
			return nil, err
		}
	}
	if dest != nil && keyspace == "" {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "keyspace must be specified with a destination: %s", target)
	}
	return &VSchemaContext{
		vschema:    vschema,
		target:     target,
		keyspace:   keyspace,
		tabletType: tabletType,
		dest:       dest,
	}, nil
}

// FindTable finds the table of the given name.
func (vc *VSchemaContext) FindTable(name sqlparser.TableName) (*vindexes.Table, error) {
	return vc.vschema.FindTable(vc.keyspaceFor(name), name.Name.String())
}

// FindTableOrVindex finds a table or a vindex of the given name.
func (vc *VSchemaContext) FindTableOrVindex(name sqlparser.TableName) (*vindexes.Table, vindexes.Vindex, error) {
	return vc.vschema.FindTableOrVindex(vc.keyspaceFor(name), name.Name.String())
}

func (vc *VSchemaContext) keyspaceFor(name sqlparser.TableName) string {
	if name.Qualifier.IsEmpty() {
		return vc.keyspace
	}
	return name.Qualifier.String()
}

// DefaultKeyspace returns the keyspace of the target. If the
// target is empty and the vschema has a single keyspace, that
// keyspace is returned.
func (vc *VSchemaContext) DefaultKeyspace() (*vindexes.Keyspace, error) {
	if vc.keyspace != "" {
		return vc.vschema.FindKeyspace(vc.keyspace)
	}
	if names := vc.vschema.KeyspaceNames(); len(names) == 1 {
		return vc.vschema.FindKeyspace(names[0])
	}
	return nil, vterrors.New(vterrors.InvalidArgument, "no keyspace in database name specified. Supported database name format (items in <> are optional): keyspace<:shard><@type> or keyspace<[range]><@type>")
}

// TargetString returns the target of the session.
func (vc *VSchemaContext) TargetString() string {
	return vc.target
}

// TabletType returns the tablet type of the target, if any.
func (vc *VSchemaContext) TabletType() string {
	return vc.tabletType
}

// Destination returns the shard destination of the target.
// It's nil unless the target names a shard or a key range.
func (vc *VSchemaContext) Destination() key.Destination {
	return vc.dest
}
