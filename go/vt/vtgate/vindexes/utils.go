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

	"github.com/vtplan/vtplan/go/sqltypes"
)

// toUint64 converts a value to the uint64 form used by the
// numeric vindexes. Signed values keep their two's complement bits,
// and text values are parsed as decimal, hex or octal numbers.
func toUint64(v sqltypes.Value) (uint64, error) {
	switch {
	case v.IsSigned():
		ival, err := strconv.ParseInt(v.ToString(), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint64(ival), nil
	case v.IsUnsigned():
		return strconv.ParseUint(v.ToString(), 10, 64)
	case v.IsText() || v.IsBinary():
		return parseString(v.ToString())
	}
	return 0, fmt.Errorf("could not parse value: '%s'", v.ToString())
}

func parseString(s string) (uint64, error) {
	signed, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return uint64(signed), nil
	}
	unsigned, err := strconv.ParseUint(s, 0, 64)
	if err == nil {
		return unsigned, nil
	}
	return 0, fmt.Errorf("could not parse value: '%s'", s)
}
