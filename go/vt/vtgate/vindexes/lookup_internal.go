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
	"fmt"
	"strconv"
	"strings"

	"github.com/vtplan/vtplan/go/sqltypes"
)

// lookupInternal implements the functions for the Lookup vindexes.
type lookupInternal struct {
	Table         string `json:"table"`
	From          string `json:"from"`
	To            string `json:"to"`
	sel, ver, del string
}

func (lkp *lookupInternal) Init(lookupQueryParams map[string]string) error {
	lkp.Table = lookupQueryParams["table"]
	lkp.From = lookupQueryParams["from"]
	lkp.To = lookupQueryParams["to"]
	if lkp.Table == "" || lkp.From == "" || lkp.To == "" {
		return fmt.Errorf("lookup vindex requires table, from and to params: %v", lookupQueryParams)
	}

	lkp.sel = fmt.Sprintf("select %s from %s where %s = :%s", lkp.To, lkp.Table, lkp.From, lkp.From)
	lkp.ver = fmt.Sprintf("select %s from %s where %s = :%s and %s = :%s", lkp.From, lkp.Table, lkp.From, lkp.From, lkp.To, lkp.To)
	lkp.del = fmt.Sprintf("delete from %s where %s = :%s and %s = :%s", lkp.Table, lkp.From, lkp.From, lkp.To, lkp.To)
	return nil
}

// Lookup performs a lookup for the ids.
func (lkp *lookupInternal) Lookup(vcursor VCursor, ids []sqltypes.Value) ([][][]sqltypes.Value, error) {
	results := make([][][]sqltypes.Value, 0, len(ids))
	for _, id := range ids {
		bindVars := map[string]*sqltypes.BindVariable{
			lkp.From: sqltypes.ValueBindVariable(id),
		}
		rows, err := vcursor.Execute(lkp.sel, bindVars)
		if err != nil {
			return nil, fmt.Errorf("lookup.Map: %v", err)
		}
		results = append(results, rows)
	}
	return results, nil
}

// Verify returns true if ids map to values.
func (lkp *lookupInternal) Verify(vcursor VCursor, ids, values []sqltypes.Value) ([]bool, error) {
	out := make([]bool, len(ids))
	for i, id := range ids {
		bindVars := map[string]*sqltypes.BindVariable{
			lkp.From: sqltypes.ValueBindVariable(id),
			lkp.To:   sqltypes.ValueBindVariable(values[i]),
		}
		rows, err := vcursor.Execute(lkp.ver, bindVars)
		if err != nil {
			return nil, fmt.Errorf("lookup.Verify: %v", err)
		}
		out[i] = len(rows) != 0
	}
	return out, nil
}

// Create creates an association between ids and values by inserting rows in the vindex table.
func (lkp *lookupInternal) Create(vcursor VCursor, ids, values []sqltypes.Value, ignoreMode bool) error {
	var insBuffer strings.Builder
	if ignoreMode {
		fmt.Fprintf(&insBuffer, "insert ignore into %s(%s, %s) values", lkp.Table, lkp.From, lkp.To)
	} else {
		fmt.Fprintf(&insBuffer, "insert into %s(%s, %s) values", lkp.Table, lkp.From, lkp.To)
	}
	bindVars := make(map[string]*sqltypes.BindVariable, 2*len(ids))
	for i, id := range ids {
		if i != 0 {
			insBuffer.WriteString(", ")
		}
		fromStr := lkp.From + strconv.Itoa(i)
		toStr := lkp.To + strconv.Itoa(i)
		insBuffer.WriteString("(:" + fromStr + ", :" + toStr + ")")
		bindVars[fromStr] = sqltypes.ValueBindVariable(id)
		bindVars[toStr] = sqltypes.ValueBindVariable(values[i])
	}
	if _, err := vcursor.Execute(insBuffer.String(), bindVars); err != nil {
		return fmt.Errorf("lookup.Create: %v", err)
	}
	return nil
}

// Delete deletes the association between ids and value.
func (lkp *lookupInternal) Delete(vcursor VCursor, ids []sqltypes.Value, value sqltypes.Value) error {
	for _, id := range ids {
		bindVars := map[string]*sqltypes.BindVariable{
			lkp.From: sqltypes.ValueBindVariable(id),
			lkp.To:   sqltypes.ValueBindVariable(value),
		}
		if _, err := vcursor.Execute(lkp.del, bindVars); err != nil {
			return fmt.Errorf("lookup.Delete: %v", err)
		}
	}
	return nil
}
