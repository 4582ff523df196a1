// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"io"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// Rows is the embedder-facing result-set iterator returned by Query,
// QueryIter, and Execute.
type Rows interface {
	Close() error
	Columns() []string
	Next() bool
	Scan(dest ...interface{}) error
}

// resultSet is the header shared by text and binary result sets: the
// column descriptors plus the buffered/raw/closed state. The intermediate
// EOF that followed the columns is not kept here.
type resultSet struct {
	conn    *Conn
	columns []*protocol.Column
	buffered bool
	raw      bool
	err      error
	closed   bool
}

func (rs *resultSet) Columns() []string {
	names := make([]string, len(rs.columns))
	for i, c := range rs.columns {
		names[i] = c.Name
	}
	return names
}

// drain reads and discards any remaining rows so the connection's
// unread_result flag clears and the stream is left synchronized, mirroring
// the teacher's (*iRows).Close -> readUntilEOF.
func (rs *resultSet) drain() error {
	if rs.conn == nil || !rs.conn.unreadResult {
		return nil
	}
	return rs.conn.readUntilEOF()
}

type textRows struct {
	resultSet
	rows []protocol.TextRow
	pos  int
	cur  protocol.TextRow
}

func (rows *textRows) Close() error {
	if rows.closed {
		return nil
	}
	rows.closed = true
	err := rows.drain()
	rows.conn = nil
	return err
}

func (rows *textRows) Next() bool {
	if rows.pos >= len(rows.rows) {
		if rows.buffered || rows.conn == nil {
			return false
		}
		// Unbuffered: fetch the next row lazily, one at a time.
		more, eof, err := rows.conn.getRows(1, false, rows.columns)
		if err != nil {
			rows.err = err
			return false
		}
		if len(more) == 0 {
			if eof != nil {
				rows.conn.applyStatus(eof.StatusFlags, eof.WarningCount)
				rows.conn.unreadResult = false
			}
			return false
		}
		rows.rows = append(rows.rows, more[0].(protocol.TextRow))
	}
	rows.cur = rows.rows[rows.pos]
	rows.pos++
	return true
}

func (rows *textRows) Scan(dest ...interface{}) error {
	if rows.err != nil {
		return rows.err
	}
	if rows.cur == nil {
		return ErrNoRow
	}
	if len(dest) != len(rows.cur) {
		return newError(KindProgramming, "Scan: destination count does not match column count")
	}
	for i, raw := range rows.cur {
		// raw is a []byte here; check nil before it crosses the
		// interface{} boundary below, where a nil []byte becomes a
		// non-nil (typed) interface value and would no longer compare
		// equal to nil.
		if raw == nil {
			if err := assignScan(dest[i], nil); err != nil {
				return err
			}
			continue
		}
		value, err := rows.convertColumn(i, raw)
		if err != nil {
			return err
		}
		if err := assignScan(dest[i], value); err != nil {
			return err
		}
	}
	return nil
}

// convertColumn runs raw through the connection's Converter unless the
// result set was opened raw, in which case the wire value is handed to
// Scan unconverted (still via assignScan, so pointers are still honored).
// Callers must not pass a nil raw value (see Scan above).
func (rs *resultSet) convertColumn(i int, raw interface{}) (interface{}, error) {
	if rs.raw || rs.conn == nil {
		return raw, nil
	}
	col := rs.columns[i]
	converted, err := rs.conn.converter.FromMySQL(raw, &columnInfo{Name: col.Name, Type: byte(col.Type), Decimals: col.Decimals})
	if err != nil {
		return nil, wrapError(KindData, "convert column "+col.Name, err)
	}
	return converted, nil
}

type binaryRows struct {
	resultSet
	rows []protocol.BinaryRow
	pos  int
	cur  protocol.BinaryRow
}

func (rows *binaryRows) Close() error {
	if rows.closed {
		return nil
	}
	rows.closed = true
	err := rows.drain()
	rows.conn = nil
	return err
}

func (rows *binaryRows) Next() bool {
	if rows.pos >= len(rows.rows) {
		if rows.buffered || rows.conn == nil {
			return false
		}
		more, eof, err := rows.conn.getRows(1, true, rows.columns)
		if err != nil {
			rows.err = err
			return false
		}
		if len(more) == 0 {
			if eof != nil {
				rows.conn.applyStatus(eof.StatusFlags, eof.WarningCount)
				rows.conn.unreadResult = false
			}
			return false
		}
		rows.rows = append(rows.rows, more[0].(protocol.BinaryRow))
	}
	rows.cur = rows.rows[rows.pos]
	rows.pos++
	return true
}

func (rows *binaryRows) Scan(dest ...interface{}) error {
	if rows.err != nil {
		return rows.err
	}
	if rows.cur == nil {
		return ErrNoRow
	}
	if len(dest) != len(rows.cur) {
		return newError(KindProgramming, "Scan: destination count does not match column count")
	}
	for i, raw := range rows.cur {
		if raw == nil {
			if err := assignScan(dest[i], nil); err != nil {
				return err
			}
			continue
		}
		value, err := rows.convertColumn(i, raw)
		if err != nil {
			return err
		}
		if err := assignScan(dest[i], value); err != nil {
			return err
		}
	}
	return nil
}

// emptyRows is returned for statements that produced no result set (an OK
// packet rather than column definitions).
type emptyRows struct{}

func (emptyRows) Columns() []string                 { return nil }
func (emptyRows) Close() error                       { return nil }
func (emptyRows) Next() bool                         { return false }
func (emptyRows) Scan(dest ...interface{}) error     { return ErrNoRow }

var _ io.Closer = (*textRows)(nil)
