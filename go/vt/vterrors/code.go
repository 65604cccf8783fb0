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

import "fmt"

// ErrorCode represents canonical error codes. The values and their
// meaning follow the vtrpc error codes used across vitess.
type ErrorCode int32

// Error codes.
const (
	// OK is returned on success.
	OK ErrorCode = iota
	// Canceled indicates the operation was cancelled (typically by the caller).
	Canceled
	// Unknown is used when the error cannot be classified.
	Unknown
	// InvalidArgument indicates the client supplied an invalid argument,
	// such as a reference to a symbol that does not exist.
	InvalidArgument
	// DeadlineExceeded means operation expired before completion.
	DeadlineExceeded
	// NotFound means some requested entity (e.g., table or keyspace) was
	// not found.
	NotFound
	// AlreadyExists means an attempt to create an entity failed because one
	// already exists.
	AlreadyExists
	// PermissionDenied indicates the caller does not have permission to
	// execute the specified operation.
	PermissionDenied
	// ResourceExhausted indicates some resource has been exhausted.
	ResourceExhausted
	// FailedPrecondition indicates the operation was rejected because the
	// system is not in a state required for the operation's execution,
	// such as a table without a primary vindex.
	FailedPrecondition
	// Aborted indicates the operation was aborted.
	Aborted
	// OutOfRange means operation was attempted past the valid range.
	OutOfRange
	// Unimplemented indicates the operation is not implemented or not
	// supported. Every "unsupported: ..." planner error carries this code.
	Unimplemented
	// Internal errors. Means some invariants expected by the underlying
	// system has been broken.
	Internal
	// Unavailable indicates the service is currently unavailable.
	Unavailable
	// DataLoss indicates unrecoverable data loss or corruption.
	DataLoss
	// Unauthenticated indicates the request does not have valid
	// authentication credentials for the operation.
	Unauthenticated
)

var codeNames = [...]string{
	OK:                 "OK",
	Canceled:           "CANCELED",
	Unknown:            "UNKNOWN",
	InvalidArgument:    "INVALID_ARGUMENT",
	DeadlineExceeded:   "DEADLINE_EXCEEDED",
	NotFound:           "NOT_FOUND",
	AlreadyExists:      "ALREADY_EXISTS",
	PermissionDenied:   "PERMISSION_DENIED",
	ResourceExhausted:  "RESOURCE_EXHAUSTED",
	FailedPrecondition: "FAILED_PRECONDITION",
	Aborted:            "ABORTED",
	OutOfRange:         "OUT_OF_RANGE",
	Unimplemented:      "UNIMPLEMENTED",
	Internal:           "INTERNAL",
	Unavailable:        "UNAVAILABLE",
	DataLoss:           "DATA_LOSS",
	Unauthenticated:    "UNAUTHENTICATED",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}
