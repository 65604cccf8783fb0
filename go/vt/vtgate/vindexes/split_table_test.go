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
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtplan/vtplan/go/sqltypes"
)

func TestSplitHashPartition(t *testing.T) {
	st, err := buildSplitTable("t", &SplitSource{Column: "id", Type: SplitHash, Count: 4})
	require.NoError(t, err)

	testcases := []struct {
		in   sqltypes.Value
		want int
	}{
		{sqltypes.NewInt64(0), 0},
		{sqltypes.NewInt64(5), 1},
		{sqltypes.NewUint64(11), 3},
		{sqltypes.NewVarChar("6"), 2},
		{sqltypes.NewVarChar("abc"), int(xxhash.Sum64String("abc") % 4)},
	}
	for _, tc := range testcases {
		got, err := st.Partition(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}

	_, err = st.Partition(sqltypes.NULL)
	assert.EqualError(t, err, "split column id cannot be null")
}

func TestSplitRangePartition(t *testing.T) {
	st, err := buildSplitTable("t", &SplitSource{
		Column: "id",
		Type:   SplitRange,
		Ranges: []SplitRangeSource{{Start: 0, End: 100}, {Start: 100, End: 200}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, []SplitInterval{{Start: 0, End: 100}, {Start: 100, End: 200}}, st.Ranges)

	got, err := st.Partition(sqltypes.NewInt64(99))
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	got, err = st.Partition(sqltypes.NewInt64(100))
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = st.Partition(sqltypes.NewInt64(200))
	assert.EqualError(t, err, "value 200 is outside the split ranges of column id")
	_, err = st.Partition(sqltypes.NewVarChar("abc"))
	assert.EqualError(t, err, "split column id needs a number: VARCHAR(\"abc\")")
}

func TestBuildSplitTableErrors(t *testing.T) {
	testcases := []struct {
		in  *SplitSource
		err string
	}{{
		in:  &SplitSource{Column: "id", Type: SplitHash},
		err: "split count must be positive for table t: 0",
	}, {
		in:  &SplitSource{Column: "id", Type: SplitRange},
		err: "split ranges missing for table t",
	}, {
		in:  &SplitSource{Column: "id", Type: SplitRange, Ranges: []SplitRangeSource{{Start: 5, End: 5}}},
		err: "empty split range 5-5 for table t",
	}, {
		in:  &SplitSource{Column: "id", Type: SplitRange, Ranges: []SplitRangeSource{{Start: 0, End: 10}, {Start: 5, End: 20}}},
		err: "split ranges overlap or are out of order for table t",
	}, {
		in:  &SplitSource{Column: "id", Type: "list"},
		err: `unknown split type "list" for table t`,
	}}
	for _, tc := range testcases {
		_, err := buildSplitTable("t", tc.in)
		assert.EqualError(t, err, tc.err)
	}
}

func TestPartitionName(t *testing.T) {
	assert.Equal(t, "music_0000", PartitionName("music", 0))
	assert.Equal(t, "music_0012", PartitionName("music", 12))
}
