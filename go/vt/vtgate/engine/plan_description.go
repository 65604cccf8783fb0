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

package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vtplan/vtplan/go/vt/key"
	"github.com/vtplan/vtplan/go/vt/vtgate/vindexes"
)

// PrimitiveDescription is used to create a serializable representation of the Primitive tree.
type PrimitiveDescription struct {
	OperatorType string
	Variant      string
	// Keyspace specifies the keyspace to send the query to.
	Keyspace *vindexes.Keyspace
	// TargetDestination specifies an explicit target destination.
	TargetDestination key.Destination
	Other             map[string]any
	Inputs            []PrimitiveDescription
}

// MarshalJSON serializes the PrimitiveDescription into a JSON representation.
// The keys of Other are flattened into the object in sorted order.
func (pd PrimitiveDescription) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("{")

	if err := marshalAdd("", buf, "OperatorType", pd.OperatorType); err != nil {
		return nil, err
	}
	if pd.Variant != "" {
		if err := marshalAdd(",", buf, "Variant", pd.Variant); err != nil {
			return nil, err
		}
	}
	if pd.Keyspace != nil {
		if err := marshalAdd(",", buf, "Keyspace", map[string]any{
			"Name":    pd.Keyspace.Name,
			"Sharded": pd.Keyspace.Sharded,
		}); err != nil {
			return nil, err
		}
	}
	if pd.TargetDestination != nil {
		s := pd.TargetDestination.String()
		dest := s[11:] // trim the 'Destination' prefix
		if err := marshalAdd(",", buf, "TargetDestination", dest); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(pd.Other) {
		if err := marshalAdd(",", buf, k, pd.Other[k]); err != nil {
			return nil, err
		}
	}
	if len(pd.Inputs) > 0 {
		if err := marshalAdd(",", buf, "Inputs", pd.Inputs); err != nil {
			return nil, err
		}
	}

	buf.WriteString("}")
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalAdd(prepend string, buf *bytes.Buffer, name string, obj any) error {
	buf.WriteString(prepend + `"` + name + `":`)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// PrimitiveToPlanDescription transforms a primitive tree into a corresponding PrimitiveDescription tree.
func PrimitiveToPlanDescription(in Primitive) PrimitiveDescription {
	this := in.description()

	for _, input := range in.Inputs() {
		this.Inputs = append(this.Inputs, PrimitiveToPlanDescription(input))
	}

	return this
}

// Title returns the single-line header used when a description is rendered as a tree.
func (pd PrimitiveDescription) Title() string {
	var b strings.Builder
	b.WriteString(pd.OperatorType)
	if pd.Variant != "" {
		b.WriteString(" " + pd.Variant)
	}
	if pd.Keyspace != nil {
		fmt.Fprintf(&b, " [%s]", pd.Keyspace.Name)
	}
	return b.String()
}

// Fields returns the non-structural attributes of the description
// rendered as "key: value" lines in sorted key order.
func (pd PrimitiveDescription) Fields() []string {
	var fields []string
	if pd.TargetDestination != nil {
		fields = append(fields, "TargetDestination: "+pd.TargetDestination.String())
	}
	for _, k := range sortedKeys(pd.Other) {
		fields = append(fields, fmt.Sprintf("%s: %v", k, pd.Other[k]))
	}
	return fields
}

func orderByParamsToString(params []OrderbyParams) string {
	var s []string
	for _, p := range params {
		s = append(s, p.String())
	}
	return strings.Join(s, ", ")
}

func intsToString(ints []int) string {
	var s []string
	for _, i := range ints {
		s = append(s, fmt.Sprintf("%d", i))
	}
	return strings.Join(s, ",")
}
