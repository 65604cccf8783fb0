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
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vtplan/vtplan/go/sqltypes"
	"github.com/vtplan/vtplan/go/vt/log"
	"github.com/vtplan/vtplan/go/vt/sqlparser"
	"github.com/vtplan/vtplan/go/vt/vterrors"
	"github.com/vtplan/vtplan/go/vt/vtgate/engine"
)

var planOptions = struct {
	File     string
	Parallel int
}{}

func newPlanCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [--file <file>] [<query> ...]",
		Short: "Prints the plans of the given queries.",
		Long: "Prints the plans of the given queries. Queries can be passed as arguments, " +
			"or read from a file (\"-\" for stdin) where they are separated by semicolons.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandPlan(cmd, e, args)
		},
	}
	cmd.Flags().StringVar(&planOptions.File, "file", "", "File to read queries from.")
	cmd.Flags().IntVar(&planOptions.Parallel, "parallel", 4, "Number of queries planned concurrently.")
	return cmd
}

// planResult is the outcome of planning one query of a batch.
type planResult struct {
	ID       string       `json:"id"`
	Query    string       `json:"query"`
	Plan     *engine.Plan `json:"plan,omitempty"`
	BindVars []string     `json:"bind_vars,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func commandPlan(cmd *cobra.Command, e *env, args []string) error {
	queries, err := readQueries(cmd.InOrStdin(), args, planOptions.File)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return vterrors.New(vterrors.InvalidArgument, "no queries to plan")
	}

	ctx := cmd.Context()
	vm, _, err := e.openManager(ctx)
	if err != nil {
		return err
	}
	cache := e.newCache(vm)
	target := e.target()

	results := make([]planResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	if planOptions.Parallel > 0 {
		g.SetLimit(planOptions.Parallel)
	}
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			res := planResult{ID: uuid.NewString(), Query: query}
			bindVars := map[string]*sqltypes.BindVariable{}
			plan, err := cache.GetPlan(gctx, query, target, bindVars)
			if err != nil {
				log.V(2).Infof("query %s failed to plan: %v", res.ID, err)
				res.Error = err.Error()
			} else {
				res.Plan = plan
				res.BindVars = sortedBindVars(bindVars)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := printResults(cmd.OutOrStdout(), e.v.GetString(keyFormat), results); err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return vterrors.Errorf(vterrors.InvalidArgument, "%d of %d queries failed to plan", failed, len(results))
	}
	return nil
}

func readQueries(stdin io.Reader, args []string, file string) ([]string, error) {
	var queries []string
	for _, arg := range args {
		pieces, err := sqlparser.SplitStatementToPieces(arg)
		if err != nil {
			return nil, err
		}
		queries = append(queries, pieces...)
	}
	if file == "" {
		return queries, nil
	}
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, err
	}
	pieces, err := sqlparser.SplitStatementToPieces(string(data))
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot read queries from %s", file)
	}
	return append(queries, pieces...), nil
}

func printResults(w io.Writer, format string, results []planResult) error {
	if format == formatJSON {
		var out any = results
		if len(results) == 1 && results[0].Error == "" {
			out = results[0].Plan
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	if len(results) > 1 {
		fmt.Fprintf(w, "batch %s: %d queries\n", uuid.NewString(), len(results))
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", res.Query)
		if res.Error != "" {
			fmt.Fprintf(w, "ERROR: %s\n", res.Error)
			continue
		}
		fmt.Fprint(w, planTree(res.Plan))
	}
	return nil
}
