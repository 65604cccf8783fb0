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

import "strings"

// systemTable returns true if the qualifier names one of the MySQL
// system schemas. Queries on those are sent to a single tablet of
// the default keyspace.
func systemTable(qualifier string) bool {
	switch strings.ToLower(qualifier) {
	case "information_schema", "performance_schema", "sys", "mysql":
		return true
	}
	return false
}
