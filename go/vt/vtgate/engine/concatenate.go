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
	"strings"
)

var _ Primitive = (*Concatenate)(nil)

// Concatenate Primitive is used to concatenate results from multiple sources.
type Concatenate struct {
	Sources []Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (c *Concatenate) RouteType() string {
	return "Concatenate"
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (c *Concatenate) GetKeyspaceName() string {
	var names []string
	seen := make(map[string]bool)
	for _, source := range c.Sources {
		name := source.GetKeyspaceName()
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return strings.Join(names, "_")
}

// GetTableName specifies the table that this primitive routes to.
func (c *Concatenate) GetTableName() string {
	var names []string
	for _, source := range c.Sources {
		names = append(names, source.GetTableName())
	}
	return strings.Join(names, "_")
}

// Inputs returns the input primitives for this concatenation
func (c *Concatenate) Inputs() []Primitive {
	return c.Sources
}

func (c *Concatenate) description() PrimitiveDescription {
	return PrimitiveDescription{OperatorType: "Concatenate"}
}
