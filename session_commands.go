// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"encoding/binary"
	"fmt"

	"github.com/wuxiubo/go-mysql-core/internal/charset"
	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// Ping sends COM_PING, the liveness check.
func (conn *Conn) Ping() error {
	data, err := conn.sendCommand(protocol.ComPing, nil, true)
	if err != nil {
		return err
	}
	_, _, err = conn.dispatch(data)
	return err
}

// InitDB sends COM_INIT_DB, switching the session's default database.
// SetDatabase calls this rather than issuing "USE <db>" as plain SQL, per
// spec.md §9's note that a SQL-built USE statement is an injection
// surface when db is not a literal.
func (conn *Conn) InitDB(db string) (*OKResult, error) {
	data, err := conn.sendCommand(protocol.ComInitDB, []byte(db), true)
	if err != nil {
		return nil, err
	}
	ok, _, err := conn.dispatch(data)
	if err != nil {
		return nil, err
	}
	conn.database = db
	return ok, nil
}

// SetDatabase is the embedder-facing alias for InitDB.
func (conn *Conn) SetDatabase(db string) error {
	_, err := conn.InitDB(db)
	return err
}

// Refresh sends COM_REFRESH with the given subcommand bitmask (e.g.
// flushing tables, logs, or the privilege cache).
func (conn *Conn) Refresh(bitmask byte) error {
	data, err := conn.sendCommand(protocol.ComRefresh, []byte{bitmask}, true)
	if err != nil {
		return err
	}
	_, _, err = conn.dispatch(data)
	return err
}

// ProcessKill sends COM_PROCESS_KILL for the given connection id.
func (conn *Conn) ProcessKill(pid uint32) error {
	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, pid)
	data, err := conn.sendCommand(protocol.ComProcessKill, arg, true)
	if err != nil {
		return err
	}
	_, _, err = conn.dispatch(data)
	return err
}

// Debug sends COM_DEBUG, asking the server to dump debug information to
// its own error log; it expects an EOF response, not a text payload.
func (conn *Conn) Debug() error {
	data, err := conn.sendCommand(protocol.ComDebug, nil, true)
	if err != nil {
		return err
	}
	_, _, err = conn.dispatch(data)
	return err
}

// Statistics sends COM_STATISTICS and returns the server's human-readable
// status line.
func (conn *Conn) Statistics() (string, error) {
	data, err := conn.sendCommand(protocol.ComStatistics, nil, true)
	if err != nil {
		return "", err
	}
	return protocol.ParseStatistics(data)
}

// Shutdown sends COM_SHUTDOWN with the given shutdown level.
func (conn *Conn) Shutdown(level byte) error {
	data, err := conn.sendCommand(protocol.ComShutdown, []byte{level}, true)
	if err != nil {
		return err
	}
	_, _, err = conn.dispatch(data)
	return err
}

// ChangeUser re-authenticates the existing connection as a different user
// and database without a full reconnect, per spec.md §9. It reuses the
// scramble from the original handshake; the server does not send a new
// one for COM_CHANGE_USER.
func (conn *Conn) ChangeUser(user, password, db string) error {
	if conn.hs == nil {
		return wrapError(KindOperational, "change user", ErrInvalidConn)
	}
	pkt := protocol.MakeChangeUser(user, password, db, conn.charsetID, conn.hs.Scramble)
	data, err := conn.sendRaw(protocol.ComChangeUser, pkt, true)
	if err != nil {
		return err
	}
	switch data[4] {
	case protocol.IERR:
		mysqlErr, perr := protocol.ParseError(data)
		if perr != nil {
			return wrapError(KindInterface, "parse change user error", perr)
		}
		return classifyServerError(mysqlErr)
	case protocol.IOK:
		ok, err := protocol.ParseOK(data)
		if err != nil {
			return wrapError(KindInterface, "parse change user OK", err)
		}
		conn.applyStatus(ok.StatusFlags, ok.WarningCount)
		conn.cfg.User = user
		conn.cfg.Password = password
		conn.database = db
		return nil
	default:
		return newError(KindInterface, "unexpected change user response tag")
	}
}

// SetCharsetCollation issues SET NAMES for the given charset/collation
// pair and updates both the session's charset bookkeeping and the
// converter's charset hint.
func (conn *Conn) SetCharsetCollation(charsetName, collation string) error {
	id, name, resolvedCollation, err := charset.ByName(charsetName, collation)
	if err != nil {
		return wrapError(KindProgramming, "unknown charset", err)
	}
	if _, err := conn.execSQL(fmt.Sprintf("SET NAMES '%s' COLLATE '%s'", name, resolvedCollation)); err != nil {
		return err
	}
	conn.charsetID = id
	conn.charsetName = name
	conn.collation = resolvedCollation
	conn.converter.SetCharset(name)
	return nil
}

// SetAutocommit issues SET autocommit=0/1 and records the new session
// value.
func (conn *Conn) SetAutocommit(on bool) (*OKResult, error) {
	val := "0"
	if on {
		val = "1"
	}
	ok, err := conn.execSQL("SET autocommit=" + val)
	if err != nil {
		return nil, err
	}
	conn.autocommit = on
	return ok, nil
}

// SetSQLMode issues SET sql_mode='...' and records the new value.
func (conn *Conn) SetSQLMode(mode string) (*OKResult, error) {
	ok, err := conn.execSQL(fmt.Sprintf("SET sql_mode='%s'", mode))
	if err != nil {
		return nil, err
	}
	conn.sqlMode = mode
	return ok, nil
}

// SetTimeZone issues SET time_zone='...' and records the new value.
func (conn *Conn) SetTimeZone(tz string) (*OKResult, error) {
	ok, err := conn.execSQL(fmt.Sprintf("SET time_zone='%s'", tz))
	if err != nil {
		return nil, err
	}
	conn.timeZone = tz
	return ok, nil
}

// StartTransaction issues START TRANSACTION, optionally WITH CONSISTENT
// SNAPSHOT, after first setting the session's transaction isolation level.
// It fails with a ProgrammingError if a transaction is already open, per
// spec.md §8 invariant 5: in_transaction must not be silently overwritten.
func (conn *Conn) StartTransaction(consistentSnapshot bool, isolationLevel string) error {
	if conn.inTransaction {
		return wrapError(KindProgramming, "start transaction", ErrNestedTransaction)
	}

	if isolationLevel != "" {
		canon, ok := NormalizeIsolationLevel(isolationLevel)
		if !ok {
			return newError(KindProgramming, fmt.Sprintf("unknown isolation level %q", isolationLevel))
		}
		if _, err := conn.execSQL("SET TRANSACTION ISOLATION LEVEL " + canon); err != nil {
			return err
		}
	}

	query := "START TRANSACTION"
	if consistentSnapshot {
		query += " WITH CONSISTENT SNAPSHOT"
	}
	_, err := conn.execSQL(query)
	return err
}

// Commit drains any outstanding result rows then issues COMMIT, per
// spec.md §4.6's rule that a pending unread result must not be left
// behind across a transaction boundary.
func (conn *Conn) Commit() error {
	if err := conn.readUntilEOF(); err != nil {
		return err
	}
	_, err := conn.execSQL("COMMIT")
	return err
}

// Rollback drains any outstanding result rows then issues ROLLBACK.
func (conn *Conn) Rollback() error {
	if err := conn.readUntilEOF(); err != nil {
		return err
	}
	_, err := conn.execSQL("ROLLBACK")
	return err
}
