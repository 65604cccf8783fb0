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

// Package vterrors provides simple error handling primitives for Vitess
//
// In all Vitess code, errors should be propagated using vterrors.Wrapf()
// and not fmt.Errorf(). This makes sure that stacktraces are kept and
// propagated correctly.
//
// # New errors should be created using vterrors.New or vterrors.Errorf
//
// Vitess uses canonical error codes for error reporting. This is based
// on years of industry experience with error reporting. This idea is
// that errors should be classified into a small set of errors (10 or so)
// with very specific meaning. Each error has a code, and a message. When
// errors are passed around (even through RPCs), the code is
// propagated. To handle errors, only the code should be looked at (and
// not string-matching on the error message).
//
// The planner maps its failure classes onto codes:
//
//	unsupported construct  -> Unimplemented
//	symbol resolution      -> InvalidArgument
//	schema mismatch        -> NotFound, FailedPrecondition
//	broken invariant       -> Internal
//
// # Stack traces
//
// Errors created by this package record the stack at the point of
// creation through github.com/pkg/errors. Printing an error with %+v
// prints the stack.
package vterrors

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

type vtError struct {
	code ErrorCode
	err  error
}

// New returns an error with the supplied message.
// New also records the stack trace at the point it was called.
func New(code ErrorCode, message string) error {
	return &vtError{
		code: code,
		err:  pkgerrors.New(message),
	}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
// Errorf also records the stack trace at the point it was called.
func Errorf(code ErrorCode, format string, args ...any) error {
	return &vtError{
		code: code,
		err:  pkgerrors.Errorf(format, args...),
	}
}

func (f *vtError) Error() string {
	return f.err.Error()
}

func (f *vtError) Unwrap() error {
	return f.err
}

func (f *vtError) Cause() error {
	return pkgerrors.Cause(f.err)
}

func (f *vtError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%+v", f.err)
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, f.err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", f.err.Error())
	}
}

// Code returns the error code if it's a vtError.
// If err is nil, it returns OK. Otherwise, it walks the
// wrap chain and returns the first code found, or Unknown.
func Code(err error) ErrorCode {
	if err == nil {
		return OK
	}
	var vterr *vtError
	if errors.As(err, &vterr) {
		return vterr.code
	}
	return Unknown
}

// Wrap returns an error annotating err with a stack trace
// at the point Wrap is called, and the supplied message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &vtError{
		code: Code(err),
		err:  pkgerrors.Wrap(err, message),
	}
}

// Wrapf returns an error annotating err with a stack trace
// at the point Wrapf is call, and the format specifier.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &vtError{
		code: Code(err),
		err:  pkgerrors.Wrapf(err, format, args...),
	}
}

// RootCause returns the underlying cause of the error, if possible.
// An error value has a cause if it implements the following
// interface:
//
//	type causer interface {
//	       Cause() error
//	}
//
// If the error does not implement Cause, the original error will
// be returned. If the error is nil, nil will be returned without further
// investigation.
func RootCause(err error) error {
	for {
		cause := Cause(err)
		if cause == nil {
			return err
		}
		err = cause
	}
}

// Cause will return the immediate cause, if possible.
// An error value has a cause if it implements the following
// interface:
//
//	type causer interface {
//	       Cause() error
//	}
//
// If the error does not implement Cause, nil will be returned.
func Cause(err error) error {
	type causer interface {
		Cause() error
	}

	causerObj, ok := err.(causer)
	if !ok {
		return nil
	}
	cause := causerObj.Cause()
	if cause == err {
		return nil
	}
	return cause
}
