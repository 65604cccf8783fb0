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

var _ Primitive = (*Subquery)(nil)

// Subquery specifies the parameters for a subquery primitive.
type Subquery struct {
	// Cols defines the column numbers from the underlying primitive
	// to be returned.
	Cols     []int
	Subquery Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (sq *Subquery) RouteType() string {
	return sq.Subquery.RouteType()
}

// GetKeyspaceName specifies the Keyspace that this primitive routes to.
func (sq *Subquery) GetKeyspaceName() string {
	return sq.Subquery.GetKeyspaceName()
}

// GetTableName specifies the table that this primitive routes to.
func (sq *Subquery) GetTableName() string {
	return sq.Subquery.GetTableName()
}

// Inputs returns the input to this primitive
func (sq *Subquery) Inputs() []Primitive {
	return []Primitive{sq.Subquery}
}

func (sq *Subquery) description() PrimitiveDescription {
	return PrimitiveDescription{
		OperatorType: "Subquery",
		Other:        map[string]any{"Columns": intsToString(sq.Cols)},
	}
}
