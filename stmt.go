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

// Stmt is a prepared-statement handle: {statement_id, num_params,
// num_columns, parameter columns, result columns} from spec.md §3. It
// must not be used after Close; the server does not acknowledge close.
type Stmt struct {
	conn          *Conn
	id            uint32
	numParams     int
	paramColumns  []*protocol.Column
	resultColumns []*protocol.Column
	closed        bool
}

// Prepare sends STMT_PREPARE and assembles the combined parameter/result
// descriptor, per spec.md §4.5.
func (conn *Conn) Prepare(query string) (*Stmt, error) {
	data, err := conn.sendCommand(protocol.ComStmtPrepare, []byte(query), true)
	if err != nil {
		return nil, err
	}
	if data[4] == protocol.IERR {
		mysqlErr, perr := protocol.ParseError(data)
		if perr != nil {
			return nil, wrapError(KindInterface, "parse prepare error", perr)
		}
		return nil, classifyServerError(mysqlErr)
	}

	prep, err := protocol.ParsePrepareOK(data)
	if err != nil {
		return nil, wrapError(KindInterface, "parse prepare response", err)
	}

	stmt := &Stmt{conn: conn, id: prep.StatementID, numParams: int(prep.NumParams)}

	if prep.NumParams > 0 {
		cols, err := conn.readColumnList(int(prep.NumParams))
		if err != nil {
			return nil, err
		}
		stmt.paramColumns = cols
	}
	if prep.NumColumns > 0 {
		cols, err := conn.readColumnList(int(prep.NumColumns))
		if err != nil {
			return nil, err
		}
		stmt.resultColumns = cols
	}

	conn.openStmts++
	if conn.metrics != nil {
		conn.metrics.SetOpenStatements(conn.openStmts)
	}
	return stmt, nil
}

// readColumnList reads count column-definition packets followed by one
// EOF, the shared shape used after PREPARE for both the parameter and
// result descriptor lists.
func (conn *Conn) readColumnList(count int) ([]*protocol.Column, error) {
	cols := make([]*protocol.Column, 0, count)
	for i := 0; i < count; i++ {
		data, err := conn.framer.Recv()
		if err != nil {
			return nil, wrapError(KindOperational, "read column definition", err)
		}
		col, err := protocol.ParseColumn(data)
		if err != nil {
			return nil, wrapError(KindInterface, "parse column definition", err)
		}
		cols = append(cols, col)
	}
	eofData, err := conn.framer.Recv()
	if err != nil {
		return nil, wrapError(KindOperational, "read column list EOF", err)
	}
	eof, err := protocol.ParseEOF(eofData)
	if err != nil {
		return nil, wrapError(KindInterface, "parse column list EOF", err)
	}
	conn.applyStatus(eof.StatusFlags, eof.WarningCount)
	return cols, nil
}

// NumParams returns the number of placeholder parameters this statement
// takes.
func (stmt *Stmt) NumParams() int { return stmt.numParams }

// ResultColumns returns the descriptor for rows this statement will
// produce, if any.
func (stmt *Stmt) ResultColumns() []*protocol.Column { return stmt.resultColumns }

// Execute sends parameter values for streaming-capable args as
// STMT_SEND_LONG_DATA chunks, then builds and sends STMT_EXECUTE, and
// dispatches the binary-protocol response — per spec.md §4.5. An arg that
// implements io.Reader is treated as a streamable long-data value; every
// other arg is converted via the connection's Converter and inlined.
func (stmt *Stmt) Execute(args []interface{}, cursorFlag byte) (Rows, *OKResult, error) {
	if stmt.closed || stmt.conn == nil || stmt.conn.IsClosed() {
		return nil, nil, wrapError(KindOperational, "execute", ErrInvalidConn)
	}
	if len(args) != stmt.numParams {
		return nil, nil, newError(KindProgramming, "execute: argument count does not match prepared parameter count")
	}

	params := make([]protocol.Param, len(args))
	for i, arg := range args {
		if stream, ok := arg.(io.Reader); ok {
			if err := stmt.sendLongData(uint16(i), stream); err != nil {
				return nil, nil, err
			}
			params[i] = protocol.Param{LongData: true}
			continue
		}
		converted, err := stmt.conn.converter.ToMySQL(arg)
		if err != nil {
			return nil, nil, newError(KindProgramming, "convert parameter: "+err.Error())
		}
		params[i] = protocol.Param{Value: converted}
	}

	execPkt := protocol.MakeStmtExecute(stmt.id, params, cursorFlag)
	data, err := stmt.conn.sendRaw(protocol.ComStmtExecute, execPkt, true)
	if err != nil {
		return nil, nil, err
	}

	ok, header, err := stmt.conn.dispatch(data)
	if err != nil {
		return nil, nil, err
	}
	if header == nil {
		if werr := stmt.conn.reportWarnings(ok.WarningCount); werr != nil {
			return emptyRows{}, ok, werr
		}
		return emptyRows{}, ok, nil
	}

	stmt.conn.lastResultBinary = true
	stmt.conn.lastResultColumns = header.Columns
	return &binaryRows{resultSet: resultSet{conn: stmt.conn, columns: header.Columns, buffered: false}}, nil, nil
}

// sendLongData streams r's bytes to the server as COM_STMT_SEND_LONG_DATA
// packets chunked to protocol.LongDataChunkSize, per spec.md §8's boundary
// behavior: every chunk is exactly that size except the final tail.
func (stmt *Stmt) sendLongData(paramID uint16, r io.Reader) error {
	chunk := make([]byte, protocol.LongDataChunkSize)
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			pkt := protocol.MakeStmtSendLongData(stmt.id, paramID, chunk[:n])
			if _, sendErr := stmt.conn.sendRaw(protocol.ComStmtSendLongData, pkt, false); sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return wrapError(KindOperational, "send long data", err)
		}
	}
}

// Close sends STMT_CLOSE, which expects no response; repeating Close on an
// already-closed statement is a no-op, per spec.md §8 invariant 3.
func (stmt *Stmt) Close() error {
	if stmt.closed {
		return nil
	}
	stmt.closed = true
	if stmt.conn == nil || stmt.conn.IsClosed() {
		return nil
	}
	buf := stmt.conn.framer.TakeBuffer(9)
	buf = protocol.MakeCommandUint32(buf, protocol.ComStmtClose, stmt.id)
	_, err := stmt.conn.sendRaw(protocol.ComStmtClose, buf, false)
	stmt.conn.openStmts--
	if stmt.conn.metrics != nil {
		stmt.conn.metrics.SetOpenStatements(stmt.conn.openStmts)
	}
	return err
}

// Reset sends STMT_RESET, which expects an OK response.
func (stmt *Stmt) Reset() error {
	if stmt.conn == nil || stmt.conn.IsClosed() {
		return wrapError(KindOperational, "reset", ErrInvalidConn)
	}
	buf := stmt.conn.framer.TakeBuffer(9)
	buf = protocol.MakeCommandUint32(buf, protocol.ComStmtReset, stmt.id)
	data, err := stmt.conn.sendRaw(protocol.ComStmtReset, buf, true)
	if err != nil {
		return err
	}
	_, _, err = stmt.conn.dispatch(data)
	return err
}
