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

package vterrors

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "no error"))
	assert.Nil(t, Wrapf(nil, "no %s", "error"))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		err         error
		message     string
		wantMessage string
		wantCode    ErrorCode
	}{
		{io.EOF, "read error", "read error: EOF", Unknown},
		{New(AlreadyExists, "oops"), "client error", "client error: oops", AlreadyExists},
	}

	for _, tt := range tests {
		got := Wrap(tt.err, tt.message)
		assert.Equal(t, tt.wantMessage, got.Error())
		assert.Equal(t, tt.wantCode, Code(got))
	}
}

func TestRootCause(t *testing.T) {
	x := New(FailedPrecondition, "error")
	tests := []struct {
		err  error
		want error
	}{{
		err:  nil,
		want: nil,
	}, {
		err:  io.EOF,
		want: io.EOF,
	}, {
		err:  Wrap(io.EOF, "ignored"),
		want: io.EOF,
	}, {
		err:  Wrap(Wrap(io.EOF, "inner"), "outer"),
		want: io.EOF,
	}}

	for i, tt := range tests {
		got := RootCause(tt.err)
		assert.Equal(t, tt.want, got, "test %d", i+1)
	}
	assert.Equal(t, "error", RootCause(x).Error())
}

func TestWrapf(t *testing.T) {
	err := Wrapf(Errorf(NotFound, "table %s not found", "t"), "in %s", "select")
	assert.EqualError(t, err, "in select: table t not found")
	assert.Equal(t, NotFound, Code(err))
}

func TestErrorf(t *testing.T) {
	err := Errorf(Unimplemented, "unsupported: %s", "cross-shard join")
	assert.EqualError(t, err, "unsupported: cross-shard join")
	assert.Equal(t, Unimplemented, Code(err))
}

func TestStackFormat(t *testing.T) {
	err := New(Internal, "BUG: unreachable")
	got := fmt.Sprintf("%+v", err)
	assert.True(t, strings.HasPrefix(got, "BUG: unreachable"), got)
	assert.Contains(t, got, "TestStackFormat")
	assert.Equal(t, "BUG: unreachable", fmt.Sprintf("%v", err))
	assert.Equal(t, `"BUG: unreachable"`, fmt.Sprintf("%q", err))
}

func TestCode(t *testing.T) {
	assert.Equal(t, OK, Code(nil))
	assert.Equal(t, Unknown, Code(errors.New("generic")))
	assert.Equal(t, InvalidArgument, Code(New(InvalidArgument, "symbol a not found")))
	assert.Equal(t, InvalidArgument, Code(fmt.Errorf("wrapped: %w", New(InvalidArgument, "x"))))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "UNIMPLEMENTED", Unimplemented.String())
	assert.Equal(t, "INTERNAL", Internal.String())
	assert.Equal(t, "ErrorCode(99)", ErrorCode(99).String())
}

func TestErrorsIs(t *testing.T) {
	err := Wrap(io.EOF, "reading vschema")
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}
