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

package mysql

import (
	"errors"
	"fmt"
	"strconv"

	"mywire.io/mywire/go/sqltypes"
)

// Local failure categories. Server-reported failures are *SQLError; the
// categories below cover everything the protocol engine detects on its
// own. Match them with errors.Is.
var (
	// ErrFraming flags a malformed or desynchronized packet stream.
	// The connection is unusable afterwards.
	ErrFraming = errors.New("packet framing error")

	// ErrCapabilityMismatch flags a required capability the server did
	// not advertise. The handshake is aborted.
	ErrCapabilityMismatch = errors.New("capability mismatch")

	// ErrTLS flags a TLS context construction or upgrade failure.
	ErrTLS = errors.New("TLS error")

	// ErrAuthentication flags a local authentication failure: a
	// disallowed public key retrieval, an unknown plugin, or too many
	// switch requests. Server-side rejections arrive as *SQLError.
	ErrAuthentication = errors.New("authentication error")

	// ErrUsage flags result-set cursor misuse by the caller.
	ErrUsage = errors.New("usage error")
)

func framingErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFraming, fmt.Sprintf(format, args...))
}

func capabilityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCapabilityMismatch, fmt.Sprintf(format, args...))
}

func tlsErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTLS, fmt.Sprintf(format, args...))
}

func authErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, fmt.Sprintf(format, args...))
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// ColumnConversionError decorates a sqltypes conversion failure with the
// column it happened on. It does not invalidate the connection.
type ColumnConversionError struct {
	Column string
	Err    error
}

func (e *ColumnConversionError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnConversionError) Unwrap() error {
	return e.Err
}

func columnConversionError(column string, err error) error {
	var conv sqltypes.ConversionError
	var num *strconv.NumError
	if errors.As(err, &conv) || errors.As(err, &num) {
		return &ColumnConversionError{Column: column, Err: err}
	}
	return err
}
