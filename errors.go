// go-mysql-core - a MySQL wire-protocol connection core for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// Fixed, non-dynamic errors the core might return. Can change between
// releases.
var (
	ErrInvalidConn       = errors.New("invalid Connection")
	ErrNoTLS             = errors.New("TLS encryption requested but server does not support TLS")
	ErrOldPassword       = errors.New("this user requires old password authentication, which is not supported")
	ErrUnknownPlugin     = errors.New("the authentication plugin is not supported")
	ErrOldProtocol       = errors.New("MySQL server does not support required protocol 4.1+")
	ErrBusyBuffer        = errors.New("busy buffer")
	ErrUnreadResult      = errors.New("unread result found")
	ErrNoRow             = errors.New("no row available")
	ErrMultiResult       = errors.New("query produced more than one result; use QueryIter")
	ErrNestedTransaction = errors.New("already in a transaction")
)

var errLog Logger = log.New(os.Stderr, "[mysql] ", log.Ldate|log.Ltime|log.Lshortfile)

// Logger is used to log critical errors that are swallowed because no
// caller is positioned to handle them (e.g. failures during cleanup).
type Logger interface {
	Print(v ...interface{})
}

// SetLogger replaces the package-level logger. The initial logger writes to
// os.Stderr.
func SetLogger(logger Logger) error {
	if logger == nil {
		return errors.New("logger is nil")
	}
	errLog = logger
	return nil
}

// Kind is the error taxonomy from the connection core's error handling
// design: every error the core raises belongs to exactly one kind, so
// callers can dispatch on it instead of matching strings.
type Kind int

const (
	// KindInterface is a protocol-level violation: unexpected packet tag,
	// truncated response, unsupported version, malformed column count,
	// unreadable LOCAL INFILE source.
	KindInterface Kind = iota
	// KindOperational is a framer/transport failure: connection lost,
	// socket error, framer unavailable.
	KindOperational
	// KindProgramming is API misuse: nested transaction, bad cursor
	// arguments, invalid flag argument.
	KindProgramming
	// KindInternal is an invariant violation such as attempting a command
	// while unread_result is still set.
	KindInternal
	// KindNotSupported covers old-password auth, DSN-style configuration,
	// and the PROCESS_INFO command.
	KindNotSupported
	// KindDatabase is a generic server-side error, not further classified.
	KindDatabase
	// KindData is a server error about malformed or out-of-range data.
	KindData
	// KindIntegrity is a constraint violation (duplicate key, FK failure).
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindInterface:
		return "InterfaceError"
	case KindOperational:
		return "OperationalError"
	case KindProgramming:
		return "ProgrammingError"
	case KindInternal:
		return "InternalError"
	case KindNotSupported:
		return "NotSupportedError"
	case KindDatabase:
		return "DatabaseError"
	case KindData:
		return "DataError"
	case KindIntegrity:
		return "IntegrityError"
	default:
		return "Error"
	}
}

// Error is the core's typed error: every error the core raises directly
// (as opposed to passing one through from a lower layer) is one of these,
// so a caller can switch on Kind.
type Error struct {
	Kind    Kind
	Message string
	// Cause, when non-nil, is the lower-level error this wraps: a
	// *protocol.MySQLError for server-reported errors, or a transport
	// error for operational failures.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// classifyServerError maps a decoded server ERR packet to the taxonomy, per
// classify.go's error-code ranges.
func classifyServerError(mysqlErr *protocol.MySQLError) *Error {
	return &Error{Kind: classifyErrorNumber(mysqlErr.Number), Message: mysqlErr.Message, Cause: mysqlErr}
}

// Warning is one row of a SHOW WARNINGS result.
type Warning struct {
	Level   string
	Code    string
	Message string
}

// Warnings is a non-empty group of warnings raised as a single error when
// RaiseOnWarnings is set.
type Warnings []Warning

func (ws Warnings) Error() string {
	var msg string
	for i, w := range ws {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s %s: %s", w.Level, w.Code, w.Message)
	}
	return msg
}
