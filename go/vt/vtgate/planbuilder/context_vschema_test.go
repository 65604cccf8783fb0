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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
)

func TestNewVSchemaContext(t *testing.T) {
	vschema := loadSchema(t, "schema_test.json")

	_, err := NewVSchemaContext(vschema, "nosuch")
	assert.EqualError(t, err, "keyspace nosuch not found in vschema")

	_, err = NewVSchemaContext(vschema, ":-80")
	assert.EqualError(t, err, "keyspace must be specified with a destination: :-80")

	_, err = NewVSchemaContext(vschema, "user[80")
	assert.EqualError(t, err, "invalid key range provided. Couldn't find range end ']'")

	vc, err := NewVSchemaContext(vschema, "user@replica")
	require.NoError(t, err)
	assert.Equal(t, "replica", vc.TabletType())
	assert.Equal(t, "user@replica", vc.TargetString())
	assert.Nil(t, vc.Destination())

	vc, err = NewVSchemaContext(vschema, "user:-80")
	require.NoError(t, err)
	assert.Equal(t, key.DestinationShard("-80"), vc.Destination())
	assert.Equal(t, "", vc.TabletType())
}

func TestDefaultKeyspace(t *testing.T) {
	vc := newTestContext(t, "")
	_, err := vc.DefaultKeyspace()
	assert.Contains(t, err.Error(), "no keyspace in database name specified")

	vc = newTestContext(t, "main")
	ks, err := vc.DefaultKeyspace()
	require.NoError(t, err)
	assert.Equal(t, "main", ks.Name)
	assert.False(t, ks.Sharded)
}

func TestContextFindTable(t *testing.T) {
	vc := newTestContext(t, "main")

	table, err := vc.FindTable(sqlparser.TableName{Name: sqlparser.NewTableIdent("unsharded")})
	require.NoError(t, err)
	assert.Equal(t, "main", table.Keyspace.Name)

	// An explicit qualifier overrides the target keyspace.
	table, err = vc.FindTable(sqlparser.TableName{
		Qualifier: sqlparser.NewTableIdent("user"),
		Name:      sqlparser.NewTableIdent("music"),
	})
	require.NoError(t, err)
	assert.Equal(t, "user", table.Keyspace.Name)

	// Unknown names in an unsharded keyspace resolve to that keyspace.
	table, err = vc.FindTable(sqlparser.TableName{Name: sqlparser.NewTableIdent("music")})
	require.NoError(t, err)
	assert.Equal(t, "main", table.Keyspace.Name)

	// With no target, unique names resolve across keyspaces.
	vc = newTestContext(t, "")
	table, err = vc.FindTable(sqlparser.TableName{Name: sqlparser.NewTableIdent("music")})
	require.NoError(t, err)
	assert.Equal(t, "user", table.Keyspace.Name)

	_, vindex, err := vc.FindTableOrVindex(sqlparser.TableName{Name: sqlparser.NewTableIdent("user_index")})
	require.NoError(t, err)
	assert.Equal(t, "user_index", vindex.String())
}
