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

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var vschemaOptions = struct {
	Dump bool
}{}

func newVSchemaCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vschema",
		Short: "Validates the vschema and prints a summary of it.",
		Long: "Validates the vschema and prints a summary of it. If a schema DSN is set, " +
			"the column lists read from the database are shown for the tables of the keyspace.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandVSchema(cmd, e)
		},
	}
	cmd.Flags().BoolVar(&vschemaOptions.Dump, "dump", false, "Print the whole built vschema as JSON instead of the summary.")
	return cmd
}

func commandVSchema(cmd *cobra.Command, e *env) error {
	vm, _, err := e.openManager(cmd.Context())
	if err != nil {
		return err
	}
	snapshot := vm.Current()
	w := cmd.OutOrStdout()

	var out any
	switch {
	case vschemaOptions.Dump:
		out = snapshot.VSchema
	case e.v.GetString(keyFormat) == formatJSON:
		out = snapshot.Stats
	default:
		_, err := fmt.Fprint(w, vschemaTree(snapshot.VSchema))
		return err
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
