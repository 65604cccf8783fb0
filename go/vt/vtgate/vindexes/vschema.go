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

package vindexes

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
)

// The following constants represent table types.
const (
	TypeSequence  = "sequence"
	TypeReference = "reference"
)

// defaultShardedSpec is the shard layout assumed for a sharded
// keyspace that does not list its shards.
const defaultShardedSpec = "-80-"

// VSchema represents the denormalized version of SrvVSchema,
// used for building routing plans.
type VSchema struct {
	uniqueTables   map[string]*Table
	uniqueVindexes map[string]Vindex
	Keyspaces      map[string]*KeyspaceSchema `json:"keyspaces"`
}

// Table represents a table in VSchema.
type Table struct {
	Type                    string               `json:"type,omitempty"`
	Name                    sqlparser.TableIdent `json:"name"`
	Keyspace                *Keyspace            `json:"-"`
	ColumnVindexes          []*ColumnVindex      `json:"column_vindexes,omitempty"`
	Ordered                 []*ColumnVindex      `json:"ordered,omitempty"`
	Owned                   []*ColumnVindex      `json:"owned,omitempty"`
	AutoIncrement           *AutoIncrement       `json:"auto_increment,omitempty"`
	Columns                 []Column             `json:"columns,omitempty"`
	Pinned                  []byte               `json:"pinned,omitempty"`
	ColumnListAuthoritative bool                 `json:"column_list_authoritative,omitempty"`
	Split                   *SplitTable          `json:"split,omitempty"`
}

// Keyspace contains the keyspcae info for each Table.
type Keyspace struct {
	Name    string
	Sharded bool
	Shards  []*key.ShardReference
}

// ColumnVindex contains the index info for each index of a table.
type ColumnVindex struct {
	Columns []sqlparser.ColIdent `json:"columns"`
	Type    string               `json:"type"`
	Name    string               `json:"name"`
	Owned   bool                 `json:"owned,omitempty"`
	Vindex  Vindex               `json:"vindex"`
}

// Column describes a column.
type Column struct {
	Name sqlparser.ColIdent `json:"name"`
	Type sqltypes.Type      `json:"type"`
}

// MarshalJSON returns a JSON representation of Column.
func (col *Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Type string `json:"type,omitempty"`
	}{
		Name: col.Name.String(),
		Type: col.Type.String(),
	})
}

// KeyspaceSchema contains the schema(table) for a keyspace.
type KeyspaceSchema struct {
	Keyspace *Keyspace
	Tables   map[string]*Table
	Vindexes map[string]Vindex
	Error    error
}

// MarshalJSON returns a JSON representation of KeyspaceSchema.
func (ks *KeyspaceSchema) MarshalJSON() ([]byte, error) {
	var errStr string
	if ks.Error != nil {
		errStr = ks.Error.Error()
	}
	return json.Marshal(struct {
		Sharded  bool              `json:"sharded,omitempty"`
		Tables   map[string]*Table `json:"tables,omitempty"`
		Vindexes map[string]Vindex `json:"vindexes,omitempty"`
		Error    string            `json:"error,omitempty"`
	}{
		Sharded:  ks.Keyspace.Sharded,
		Tables:   ks.Tables,
		Vindexes: ks.Vindexes,
		Error:    errStr,
	})
}

// AutoIncrement contains the auto-inc information for a table.
type AutoIncrement struct {
	Column   sqlparser.ColIdent `json:"column"`
	Sequence *Table             `json:"sequence"`
}

// BuildVSchema builds a VSchema from a SrvVSchema. Errors in one
// keyspace are recorded in its KeyspaceSchema and do not prevent
// the others from being built.
func BuildVSchema(source *SrvVSchema) (vschema *VSchema, err error) {
	vschema = &VSchema{
		uniqueTables:   make(map[string]*Table),
		uniqueVindexes: make(map[string]Vindex),
		Keyspaces:      make(map[string]*KeyspaceSchema),
	}
	buildKeyspaces(source, vschema)
	resolveAutoIncrement(source, vschema)
	addDual(vschema)
	return vschema, nil
}

// BuildKeyspaceSchema builds the vschema portion for one keyspace.
func BuildKeyspaceSchema(input *KeyspaceSource, keyspace string) (*KeyspaceSchema, error) {
	if input == nil {
		input = &KeyspaceSource{}
	}
	formal := &SrvVSchema{
		Keyspaces: map[string]*KeyspaceSource{
			keyspace: input,
		},
	}
	vschema := &VSchema{
		uniqueTables:   make(map[string]*Table),
		uniqueVindexes: make(map[string]Vindex),
		Keyspaces:      make(map[string]*KeyspaceSchema),
	}
	buildKeyspaces(formal, vschema)
	err := vschema.Keyspaces[keyspace].Error
	return vschema.Keyspaces[keyspace], err
}

// ValidateKeyspace ensures that the keyspace vschema is valid.
// External references (like sequence) are not validated.
func ValidateKeyspace(input *KeyspaceSource) error {
	_, err := BuildKeyspaceSchema(input, "")
	return err
}

func buildKeyspaces(source *SrvVSchema, vschema *VSchema) {
	for ksname, ks := range source.Keyspaces {
		if ks == nil {
			ks = &KeyspaceSource{}
		}
		ksvschema := &KeyspaceSchema{
			Keyspace: &Keyspace{
				Name:    ksname,
				Sharded: ks.Sharded,
			},
			Tables:   make(map[string]*Table),
			Vindexes: make(map[string]Vindex),
		}
		vschema.Keyspaces[ksname] = ksvschema
		ksvschema.Error = buildShards(ks, ksvschema.Keyspace)
		if ksvschema.Error != nil {
			continue
		}
		ksvschema.Error = buildTables(ks, vschema, ksvschema)
	}
}

func buildShards(ks *KeyspaceSource, keyspace *Keyspace) error {
	spec := ks.Shards
	if spec == "" && ks.Sharded {
		spec = defaultShardedSpec
	}
	shards, err := key.ShardReferences(spec)
	if err != nil {
		return vterrors.Wrapf(err, "keyspace %s", keyspace.Name)
	}
	keyspace.Shards = shards
	return nil
}

func buildTables(ks *KeyspaceSource, vschema *VSchema, ksvschema *KeyspaceSchema) error {
	keyspace := ksvschema.Keyspace
	for vname, vindexInfo := range ks.Vindexes {
		vindex, err := CreateVindex(vindexInfo.Type, vname, vindexInfo.Params)
		if err != nil {
			return err
		}
		if _, ok := vschema.uniqueVindexes[vname]; ok {
			vschema.uniqueVindexes[vname] = nil
		} else {
			vschema.uniqueVindexes[vname] = vindex
		}
		ksvschema.Vindexes[vname] = vindex
	}
	for tname, table := range ks.Tables {
		if table == nil {
			table = &TableSource{}
		}
		t := &Table{
			Name:                    sqlparser.NewTableIdent(tname),
			Keyspace:                keyspace,
			ColumnListAuthoritative: table.ColumnListAuthoritative,
		}
		switch table.Type {
		case "", TypeReference:
			t.Type = table.Type
		case TypeSequence:
			if keyspace.Sharded && table.Pinned == "" {
				return vterrors.Errorf(vterrors.FailedPrecondition, "sequence table has to be in an unsharded keyspace or must be pinned: %s", tname)
			}
			t.Type = table.Type
		default:
			return vterrors.Errorf(vterrors.InvalidArgument, "unidentified table type %s", table.Type)
		}
		if table.Pinned != "" {
			decoded, err := hex.DecodeString(table.Pinned)
			if err != nil {
				return vterrors.Wrap(err, "could not decode the keyspace id for pin")
			}
			t.Pinned = decoded
		} else if keyspace.Sharded && len(table.ColumnVindexes) == 0 && t.Type != TypeReference {
			return vterrors.Errorf(vterrors.FailedPrecondition, "missing primary col vindex for table: %s", tname)
		}

		// Initialize Columns.
		colNames := make(map[string]bool)
		for _, col := range table.Columns {
			name := sqlparser.NewColIdent(col.Name)
			if colNames[name.Lowered()] {
				return vterrors.Errorf(vterrors.InvalidArgument, "duplicate column name '%v' for table: %s", name, tname)
			}
			colNames[name.Lowered()] = true
			typ := sqltypes.Null
			if col.Type != "" {
				var err error
				if typ, err = sqltypes.TypeFromString(col.Type); err != nil {
					return vterrors.Wrapf(err, "column %s of table %s", col.Name, tname)
				}
			}
			t.Columns = append(t.Columns, Column{Name: name, Type: typ})
		}

		// Initialize ColumnVindexes.
		for i, ind := range table.ColumnVindexes {
			vindexInfo, ok := ks.Vindexes[ind.Name]
			if !ok {
				return vterrors.Errorf(vterrors.NotFound, "vindex %s not found for table %s", ind.Name, tname)
			}
			vindex := ksvschema.Vindexes[ind.Name]
			owned := false
			if _, ok := vindex.(Lookup); ok && vindexInfo.Owner == tname {
				owned = true
			}
			var columns []sqlparser.ColIdent
			if ind.Column != "" {
				if len(ind.Columns) > 0 {
					return vterrors.Errorf(vterrors.InvalidArgument, "can't use column and columns at the same time in vindex (%s) and table (%s)", ind.Name, tname)
				}
				columns = []sqlparser.ColIdent{sqlparser.NewColIdent(ind.Column)}
			} else {
				if len(ind.Columns) == 0 {
					return vterrors.Errorf(vterrors.InvalidArgument, "must specify at least one column for vindex (%s) and table (%s)", ind.Name, tname)
				}
				for _, indCol := range ind.Columns {
					columns = append(columns, sqlparser.NewColIdent(indCol))
				}
			}
			columnVindex := &ColumnVindex{
				Columns: columns,
				Type:    vindexInfo.Type,
				Name:    ind.Name,
				Owned:   owned,
				Vindex:  vindex,
			}
			if i == 0 {
				// Perform Primary vindex check.
				if !columnVindex.Vindex.IsUnique() {
					return vterrors.Errorf(vterrors.FailedPrecondition, "primary vindex %s is not Unique for table %s", ind.Name, tname)
				}
				if owned {
					return vterrors.Errorf(vterrors.FailedPrecondition, "primary vindex %s cannot be owned for table %s", ind.Name, tname)
				}
			}
			t.ColumnVindexes = append(t.ColumnVindexes, columnVindex)
			if owned {
				t.Owned = append(t.Owned, columnVindex)
			}
		}
		t.Ordered = colVindexSorted(t.ColumnVindexes)

		if table.Split != nil {
			split, err := buildSplitTable(tname, table.Split)
			if err != nil {
				return err
			}
			t.Split = split
		}

		// Add the table to the map entries.
		if _, ok := vschema.uniqueTables[tname]; ok {
			vschema.uniqueTables[tname] = nil
		} else {
			vschema.uniqueTables[tname] = t
		}
		ksvschema.Tables[tname] = t
	}
	return nil
}

func resolveAutoIncrement(source *SrvVSchema, vschema *VSchema) {
	for ksname, ks := range source.Keyspaces {
		ksvschema := vschema.Keyspaces[ksname]
		if ks == nil || ksvschema.Error != nil {
			continue
		}
		for tname, table := range ks.Tables {
			t := ksvschema.Tables[tname]
			if t == nil || table == nil || table.AutoIncrement == nil {
				continue
			}
			seq, err := vschema.findQualified(table.AutoIncrement.Sequence)
			if err != nil {
				// Better to remove the table than to leave it partially initialized.
				delete(ksvschema.Tables, tname)
				delete(vschema.uniqueTables, tname)
				ksvschema.Error = vterrors.Wrapf(err, "cannot resolve sequence %s", table.AutoIncrement.Sequence)
				continue
			}
			t.AutoIncrement = &AutoIncrement{
				Column:   sqlparser.NewColIdent(table.AutoIncrement.Column),
				Sequence: seq,
			}
		}
	}
}

// addDual adds dual as a valid table to all keyspaces.
// For unsharded keyspaces, it gets pinned to the only shard.
// For sharded keyspaces, it gets pinned to the shard of
// keyspace id 0.
func addDual(vschema *VSchema) {
	first := ""
	for ksname, ks := range vschema.Keyspaces {
		t := &Table{
			Name:     sqlparser.NewTableIdent("dual"),
			Keyspace: ks.Keyspace,
			Type:     TypeReference,
		}
		if ks.Keyspace.Sharded {
			t.Pinned = []byte{0}
		}
		ks.Tables["dual"] = t
		if first == "" || first > ksname {
			// In case of a reference to dual that's not qualified
			// by keyspace, we still want to resolve it to one of
			// the keyspaces. For consistency, we'll always use the
			// first keyspace by lexical ordering.
			first = ksname
			vschema.uniqueTables["dual"] = t
		}
	}
}

// AddTable adds a table learned after the vschema was built, like one
// reported by the schema tracker. Only unsharded keyspaces accept tables
// that carry no vindexes.
func (vschema *VSchema) AddTable(keyspace string, t *Table) error {
	ks, ok := vschema.Keyspaces[keyspace]
	if !ok {
		return vterrors.Errorf(vterrors.NotFound, "keyspace %s not found in vschema", keyspace)
	}
	name := t.Name.String()
	if _, ok := ks.Tables[name]; ok {
		return vterrors.Errorf(vterrors.AlreadyExists, "table %s already exists in keyspace %s", name, keyspace)
	}
	if ks.Keyspace.Sharded && len(t.ColumnVindexes) == 0 {
		return vterrors.Errorf(vterrors.FailedPrecondition, "missing primary col vindex for table: %s", name)
	}
	t.Keyspace = ks.Keyspace
	ks.Tables[name] = t
	if _, ok := vschema.uniqueTables[name]; ok {
		vschema.uniqueTables[name] = nil
	} else {
		vschema.uniqueTables[name] = t
	}
	return nil
}

// findQualified finds a table t or k.t.
func (vschema *VSchema) findQualified(name string) (*Table, error) {
	splits := strings.Split(name, ".")
	switch len(splits) {
	case 1:
		return vschema.FindTable("", splits[0])
	case 2:
		return vschema.FindTable(splits[0], splits[1])
	}
	return nil, vterrors.Errorf(vterrors.NotFound, "table %s not found", name)
}

// FindTable returns a pointer to the Table. If a keyspace is specified, only tables
// from that keyspace are searched. If the specified keyspace is unsharded
// and no tables matched, it's considered valid: FindTable will construct a table
// of that name without an error. If there is only one keyspace in the system
// and it's unsharded, any table name is considered valid.
func (vschema *VSchema) FindTable(keyspace, tablename string) (*Table, error) {
	t, err := vschema.findTable(keyspace, tablename)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, vterrors.Errorf(vterrors.NotFound, "table %s not found", tablename)
	}
	return t, nil
}

func (vschema *VSchema) findTable(keyspace, tablename string) (*Table, error) {
	if keyspace == "" {
		table, ok := vschema.uniqueTables[tablename]
		if table == nil {
			if ok {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "ambiguous table reference: %s", tablename)
			}
			if len(vschema.Keyspaces) != 1 {
				return nil, nil
			}
			// Loop happens only once.
			for _, ks := range vschema.Keyspaces {
				if ks.Keyspace.Sharded {
					return nil, nil
				}
				return &Table{Name: sqlparser.NewTableIdent(tablename), Keyspace: ks.Keyspace}, nil
			}
		}
		return table, nil
	}
	ks, ok := vschema.Keyspaces[keyspace]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "keyspace %s not found in vschema", keyspace)
	}
	table := ks.Tables[tablename]
	if table == nil {
		if ks.Keyspace.Sharded {
			return nil, nil
		}
		return &Table{Name: sqlparser.NewTableIdent(tablename), Keyspace: ks.Keyspace}, nil
	}
	return table, nil
}

// FindTableOrVindex finds a table or a Vindex by name using Find and FindVindex.
func (vschema *VSchema) FindTableOrVindex(keyspace, name string) (*Table, Vindex, error) {
	t, err := vschema.findTable(keyspace, name)
	if err != nil {
		return nil, nil, err
	}
	if t != nil {
		return t, nil, nil
	}
	v, err := vschema.FindVindex(keyspace, name)
	if err != nil {
		return nil, nil, err
	}
	if v != nil {
		return nil, v, nil
	}
	return nil, nil, vterrors.Errorf(vterrors.NotFound, "table %s not found", name)
}

// FindVindex finds a vindex by name. If a keyspace is specified, only vindexes
// from that keyspace are searched. If no kesypace is specified, then a vindex
// is returned only if its name is unique across all keyspaces. The function
// returns an error only if the vindex name is ambiguous.
func (vschema *VSchema) FindVindex(keyspace, name string) (Vindex, error) {
	if keyspace == "" {
		vindex, ok := vschema.uniqueVindexes[name]
		if vindex == nil && ok {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "ambiguous vindex reference: %s", name)
		}
		return vindex, nil
	}
	ks, ok := vschema.Keyspaces[keyspace]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "keyspace %s not found in vschema", keyspace)
	}
	return ks.Vindexes[name], nil
}

// FindKeyspace returns the keyspace of the given name.
func (vschema *VSchema) FindKeyspace(keyspace string) (*Keyspace, error) {
	ks, ok := vschema.Keyspaces[keyspace]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "keyspace %s not found in vschema", keyspace)
	}
	return ks.Keyspace, nil
}

// KeyspaceNames returns the keyspace names in sorted order.
func (vschema *VSchema) KeyspaceNames() []string {
	names := make([]string, 0, len(vschema.Keyspaces))
	for name := range vschema.Keyspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// colVindexSorted returns the column vindexes ordered by cost.
// The primary vindex keeps its position among vindexes of equal cost.
func colVindexSorted(cvs []*ColumnVindex) []*ColumnVindex {
	sorted := make([]*ColumnVindex, len(cvs))
	copy(sorted, cvs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Vindex.Cost() < sorted[j].Vindex.Cost()
	})
	return sorted
}
