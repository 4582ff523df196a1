// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import "github.com/wuxiubo/go-mysql-core/internal/protocol"

// Query runs query and returns its single result set. If the server
// reports SERVER_MORE_RESULTS_EXISTS after the first result, Query fails
// with an InterfaceError rather than silently returning only the first
// result set: use QueryIter for a statement that may produce more than
// one (e.g. a stored procedure call).
func (conn *Conn) Query(query string) (Rows, error) {
	rows, err := conn.execQuery(query)
	if err != nil {
		return nil, err
	}
	if conn.haveNextResult {
		if closer, ok := rows.(interface{ Close() error }); ok {
			closer.Close()
		}
		conn.drainRemainingResults()
		return nil, newError(KindInterface, "Query: statement produced more than one result; use QueryIter")
	}
	return rows, nil
}

func (conn *Conn) execQuery(query string) (Rows, error) {
	data, err := conn.sendCommand(protocol.ComQuery, []byte(query), true)
	if err != nil {
		return nil, err
	}
	ok, header, err := conn.dispatch(data)
	if err != nil {
		return nil, err
	}
	if header == nil {
		if werr := conn.reportWarnings(ok.WarningCount); werr != nil {
			return emptyRowsWithResult{ok: ok}, werr
		}
		return emptyRowsWithResult{ok: ok}, nil
	}

	if conn.cfg.Buffered {
		rows, eof, rerr := conn.getRows(-1, false, header.Columns)
		if rerr != nil {
			return nil, rerr
		}
		text := make([]protocol.TextRow, len(rows))
		for i, r := range rows {
			text[i] = r.(protocol.TextRow)
		}
		_ = eof
		return &textRows{resultSet: resultSet{conn: conn, columns: header.Columns, buffered: true, raw: conn.cfg.Raw}, rows: text}, nil
	}

	return &textRows{resultSet: resultSet{conn: conn, columns: header.Columns, buffered: false, raw: conn.cfg.Raw}}, nil
}

// resultIter is the lazy, multi-result iterator QueryIter returns: each
// call to NextResult advances through one result set's worth of Rows, draining
// the previous result set first if the caller didn't.
type resultIter struct {
	conn    *Conn
	current Rows
	done    bool
	err     error
}

// QueryIter runs query and returns an iterator over every result set the
// statement produces (spec.md §4.6's multi-result scenario), rather than
// failing on the second result the way Query does.
func (conn *Conn) QueryIter(query string) (*resultIter, error) {
	data, err := conn.sendCommand(protocol.ComQuery, []byte(query), true)
	if err != nil {
		return nil, err
	}
	ok, header, err := conn.dispatch(data)
	if err != nil {
		return nil, err
	}
	iter := &resultIter{conn: conn}
	iter.setCurrent(ok, header)
	return iter, nil
}

func (it *resultIter) setCurrent(ok *OKResult, header *resultHeader) {
	if header == nil {
		it.current = emptyRowsWithResult{ok: ok}
		return
	}
	it.current = &textRows{resultSet: resultSet{conn: it.conn, columns: header.Columns, buffered: false, raw: it.conn.cfg.Raw}}
}

// Rows returns the current result set.
func (it *resultIter) Rows() Rows { return it.current }

// NextResult drains the current result set and, if the server indicated
// more results are coming, advances to the next one. It returns false once
// the last result set has been consumed or an error occurred.
func (it *resultIter) NextResult() bool {
	if it.done || it.err != nil {
		return false
	}
	if closer, ok := it.current.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			it.err = err
			return false
		}
	}
	if !it.conn.haveNextResult {
		it.done = true
		return false
	}

	data, err := it.conn.framer.Recv()
	if err != nil {
		it.err = wrapError(KindOperational, "read next result header", err)
		return false
	}
	ok, header, err := it.conn.dispatch(data)
	if err != nil {
		it.err = err
		return false
	}
	it.setCurrent(ok, header)
	return true
}

// Err returns the first error encountered while iterating, if any.
func (it *resultIter) Err() error { return it.err }

// drainRemainingResults discards every outstanding result set after Query
// rejects a multi-result statement, leaving the connection synchronized.
func (conn *Conn) drainRemainingResults() {
	for conn.haveNextResult {
		data, err := conn.framer.Recv()
		if err != nil {
			return
		}
		_, header, err := conn.dispatch(data)
		if err != nil {
			return
		}
		if header != nil {
			conn.readUntilEOF()
		}
	}
}

// emptyRowsWithResult is returned for a command that produced an OK packet
// (no column data) but whose OKResult the caller may still want, e.g. for
// affected-row counts from an INSERT/UPDATE/DELETE.
type emptyRowsWithResult struct {
	ok *OKResult
}

func (e emptyRowsWithResult) Columns() []string             { return nil }
func (e emptyRowsWithResult) Close() error                  { return nil }
func (e emptyRowsWithResult) Next() bool                    { return false }
func (e emptyRowsWithResult) Scan(dest ...interface{}) error { return ErrNoRow }

// Result returns the OKResult behind an emptyRowsWithResult, or nil if
// rows is any other Rows implementation.
func Result(rows Rows) *OKResult {
	if e, ok := rows.(emptyRowsWithResult); ok {
		return e.ok
	}
	return nil
}
