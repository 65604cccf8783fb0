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

/*
Package planbuilder builds the execution plans for statements
sent to a sharded database. A plan is a tree of engine.Primitive
descriptors.

The planbuilder for the SELECT statement has the highest
complexity. The builder tries to push all the constructs of
the original request into routes. A route sends a query to
one keyspace: a single shard, a list of shards, or all of them.
Whatever cannot be pushed down is performed by the primitives
that sit above the routes: joins, ordered aggregates, memory
sorts, limits and pulled-out subqueries.

The central design element for analyzing queries and
building plans is the symbol table (symtab). One symtab
is created per SELECT statement. It contains the tables of
the FROM clause and, once the SELECT expressions have been
pushed, the result columns. Table names must be unique within
a symtab. After the result columns are set, the GROUP BY,
HAVING and ORDER BY clauses resolve unqualified names against
the result columns first.

Every resolved column reference is remembered by setting the
Metadata field of its sqlparser.ColName to the *column that it
refers to. A column points to the builder that originates it.
During wire-up no more symtab lookups are performed: the
builder relies on the stored Metadata to decide if a column is
local to a route, or needs to be supplied by another route
through a join variable.

Routes can merge with each other. This happens when two
routes of a join, a subquery and its outer query, or the
two sides of a union can be proven to go to the same shards.
When a route is merged into another, its Redirect is set to
the surviving route. Columns that were created against the
merged route transparently resolve to the surviving route.

The order of a builder is its position in the execution
order of the tree. The LHS of a join executes before its RHS,
and a pulled-out subquery executes before the query that uses
its result. The orders are used to find the builder that must
supply a join variable.
*/
package planbuilder
