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

package log

import (
	"sync/atomic"
	"testing"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRotateMaxSize(t *testing.T) {
	saved := atomic.LoadUint64(&glog.MaxSize)
	defer atomic.StoreUint64(&glog.MaxSize, saved)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-rotate-max-size=1024"}))
	assert.EqualValues(t, 1024, atomic.LoadUint64(&glog.MaxSize))

	flg := fs.Lookup("log-rotate-max-size")
	require.NotNil(t, flg)
	assert.Equal(t, "1024", flg.Value.String())
	assert.Equal(t, "uint64", flg.Value.Type())

	assert.Error(t, fs.Parse([]string{"--log-rotate-max-size=abc"}))
}
