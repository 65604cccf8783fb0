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

// vtplan builds and prints the execution plans of queries against a
// sharded database described by a vschema.
package main

import (
	"flag"
	"os"

	"github.com/vtplan/vtplan/go/cmd/vtplan/cli"
	"github.com/vtplan/vtplan/go/vt/log"
)

func main() {
	defer log.Flush()

	// hack to get rid of an "ERROR: logging before flag.Parse"
	args := os.Args[:]
	os.Args = os.Args[:1]
	flag.Parse()
	os.Args = args

	if err := cli.New().Execute(); err != nil {
		log.Error(err)
		log.Flush()
		os.Exit(1)
	}
}
