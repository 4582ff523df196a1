// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

// Cursor is a query-execution handle bound to one connection, mirroring
// the four cursor classes the original Python driver exposes
// (MySQLCursor, MySQLCursorBuffered, MySQLCursorPrepared,
// MySQLCursorBufferedPrepared) as one configurable type instead of a
// class hierarchy.
type Cursor struct {
	conn     *Conn
	buffered bool
	raw      bool
	prepared bool
	stmt     *Stmt
}

// NewCursor builds a Cursor for conn. buffered requests eager row
// fetching (the whole result set is read before Execute/Query returns);
// prepared routes Execute through a prepared statement instead of a plain
// text query.
//
// buffered is silently ignored when prepared is also true: a prepared
// cursor always streams rows lazily. This mirrors the original Python
// driver's MySQLCursorBufferedPrepared, which buffers but via a distinct
// code path from MySQLCursorBuffered — the combination exists in name
// only for this core's simpler binary-result path, and the silent drop is
// deliberate rather than a bug (see DESIGN.md's Open Question decision on
// buffered+prepared).
func NewCursor(conn *Conn, buffered, raw, prepared bool) *Cursor {
	return &Cursor{conn: conn, buffered: buffered && !prepared, raw: raw, prepared: prepared}
}

// Execute runs query (text cursor) or the cursor's already-bound prepared
// statement (prepared cursor, ignoring query and preparing it on first
// use) with args, returning the resulting Rows.
func (c *Cursor) Execute(query string, args ...interface{}) (Rows, error) {
	if !c.prepared {
		if len(args) != 0 {
			return nil, newError(KindProgramming, "Execute: args given for a non-prepared cursor; use a prepared cursor for parameter binding")
		}
		return c.conn.execQueryRaw(query, c.buffered, c.raw)
	}

	if c.stmt == nil {
		stmt, err := c.conn.Prepare(query)
		if err != nil {
			return nil, err
		}
		c.stmt = stmt
	}
	rows, _, err := c.stmt.Execute(args, 0)
	return rows, err
}

// Close releases the cursor's prepared statement, if any.
func (c *Cursor) Close() error {
	if c.stmt != nil {
		return c.stmt.Close()
	}
	return nil
}

// execQueryRaw is execQuery generalized to an explicit buffered/raw pair,
// since a Cursor's settings may differ from the connection-wide
// Config.Buffered/Config.Raw defaults that execQuery reads.
func (conn *Conn) execQueryRaw(query string, buffered, raw bool) (Rows, error) {
	prevBuffered, prevRaw := conn.cfg.Buffered, conn.cfg.Raw
	conn.cfg.Buffered, conn.cfg.Raw = buffered, raw
	rows, err := conn.execQuery(query)
	conn.cfg.Buffered, conn.cfg.Raw = prevBuffered, prevRaw
	return rows, err
}
