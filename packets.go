// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"fmt"
	"os"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// OKResult is the embedder-facing record produced by a command that
// returns an OK packet.
type OKResult struct {
	AffectedRows uint64
	InsertID     uint64
	WarningCount uint16
	Info         string
}

// resultHeader is the record produced when a command response is a
// result-set header: column descriptors plus the intermediate EOF.
type resultHeader struct {
	Columns []*protocol.Column
	EOF     *protocol.EOFPacket
}

// sendCommand builds and sends a command packet, then reads and returns
// the raw response packet (unless expectResponse is false, in which case
// it returns nil immediately). Precondition from spec.md §4.2:
// unread_result must be false.
func (conn *Conn) sendCommand(command byte, arg []byte, expectResponse bool) ([]byte, error) {
	buf := conn.framer.TakeBuffer(4 + 1 + len(arg))
	buf = protocol.MakeCommand(buf, command, arg)
	return conn.sendRaw(command, buf, expectResponse)
}

// sendRaw sends an already-built command packet (header reserved but
// unfilled at buf[:4]) and optionally reads the single response packet.
// Every command, whether built by MakeCommand or by a prepared-statement
// wire builder, funnels through here so the unread_result precondition
// and sequence-reset rule from spec.md §4.2 are enforced exactly once.
func (conn *Conn) sendRaw(command byte, buf []byte, expectResponse bool) ([]byte, error) {
	if conn.IsClosed() {
		return nil, wrapError(KindOperational, "send command", ErrInvalidConn)
	}
	if conn.unreadResult {
		return nil, newError(KindInternal, "unread result found")
	}

	conn.framer.ResetSequence()
	if err := conn.framer.Send(buf, 0); err != nil {
		return nil, wrapError(KindOperational, "send command", err)
	}

	if conn.metrics != nil {
		conn.metrics.ObserveCommand(command)
	}

	if !expectResponse {
		return nil, nil
	}

	data, err := conn.framer.Recv()
	if err != nil {
		return nil, wrapError(KindOperational, "read command response", err)
	}
	return data, nil
}

// dispatch classifies and parses a command response per the result
// dispatcher table in spec.md §4.3. It returns exactly one of
// (*OKResult, *resultHeader, error) populated, with the others nil/zero.
func (conn *Conn) dispatch(data []byte) (*OKResult, *resultHeader, error) {
	if len(data) < 5 {
		return nil, nil, newError(KindInterface, "malformed response: packet too short")
	}

	switch data[4] {
	case protocol.IOK:
		ok, err := protocol.ParseOK(data)
		if err != nil {
			return nil, nil, wrapError(KindInterface, "parse OK packet", err)
		}
		conn.applyStatus(ok.StatusFlags, ok.WarningCount)
		if conn.metrics != nil {
			conn.metrics.ObserveResult("ok")
		}
		return &OKResult{
			AffectedRows: ok.AffectedRows,
			InsertID:     ok.InsertID,
			WarningCount: ok.WarningCount,
			Info:         ok.Info,
		}, nil, nil

	case protocol.IERR:
		mysqlErr, err := protocol.ParseError(data)
		if err != nil {
			return nil, nil, wrapError(KindInterface, "parse ERR packet", err)
		}
		if conn.metrics != nil {
			conn.metrics.ObserveResult("err")
			conn.metrics.ObserveError(classifyErrorNumber(mysqlErr.Number).String())
		}
		return nil, nil, classifyServerError(mysqlErr)

	case protocol.IEOF:
		if protocol.IsEOFPacket(data) {
			eof, err := protocol.ParseEOF(data)
			if err != nil {
				return nil, nil, wrapError(KindInterface, "parse EOF packet", err)
			}
			conn.applyStatus(eof.StatusFlags, eof.WarningCount)
			if conn.metrics != nil {
				conn.metrics.ObserveResult("eof")
			}
			return &OKResult{WarningCount: eof.WarningCount}, nil, nil
		}
		fallthrough

	case protocol.ILocalInfile:
		if data[4] == protocol.ILocalInfile {
			if conn.metrics != nil {
				conn.metrics.ObserveResult("local_infile")
			}
			ok, err := conn.handleLocalInfile(data)
			return ok, nil, err
		}
		fallthrough

	default:
		count, err := protocol.ParseColumnCount(data)
		if err != nil {
			return nil, nil, wrapError(KindInterface, "parse column count", err)
		}
		columns := make([]*protocol.Column, 0, count)
		for i := uint64(0); i < count; i++ {
			colData, err := conn.framer.Recv()
			if err != nil {
				return nil, nil, wrapError(KindOperational, "read column definition", err)
			}
			col, err := protocol.ParseColumn(colData)
			if err != nil {
				return nil, nil, wrapError(KindInterface, "parse column definition", err)
			}
			columns = append(columns, col)
		}
		eofData, err := conn.framer.Recv()
		if err != nil {
			return nil, nil, wrapError(KindOperational, "read column EOF", err)
		}
		eof, err := protocol.ParseEOF(eofData)
		if err != nil {
			return nil, nil, wrapError(KindInterface, "parse column EOF", err)
		}
		conn.applyStatus(eof.StatusFlags, eof.WarningCount)
		conn.unreadResult = true
		conn.lastResultColumns = columns
		conn.lastResultBinary = false
		if conn.metrics != nil {
			conn.metrics.ObserveResult("result_set")
		}
		return nil, &resultHeader{Columns: columns, EOF: eof}, nil
	}
}

// handleLocalInfile implements the LOAD DATA LOCAL INFILE sub-protocol
// from spec.md §4.3: the payload tail names a file to stream back to the
// server in NET_BUFFER_LENGTH-16 chunks, terminated by an empty packet.
func (conn *Conn) handleLocalInfile(data []byte) (*OKResult, error) {
	filename := string(data[5:])

	f, openErr := os.Open(filename)
	if openErr != nil {
		// Cancel the request with one empty packet before raising, per
		// spec.md's boundary behavior for an unreadable LOCAL INFILE
		// source.
		if err := conn.framer.Send(conn.framer.TakeBuffer(4), -1); err != nil {
			return nil, wrapError(KindOperational, "cancel LOCAL INFILE", err)
		}
		return nil, wrapError(KindInterface, fmt.Sprintf("LOCAL INFILE: cannot open %q", filename), openErr)
	}
	defer f.Close()

	const chunkSize = protocol.NetBufferLength - 16
	chunk := make([]byte, chunkSize)
	for {
		n, readErr := f.Read(chunk)
		if n > 0 {
			buf := conn.framer.TakeBuffer(4 + n)
			copy(buf[4:], chunk[:n])
			if err := conn.framer.Send(buf, -1); err != nil {
				return nil, wrapError(KindOperational, "send LOCAL INFILE chunk", err)
			}
		}
		if readErr != nil {
			break
		}
	}

	if err := conn.framer.Send(conn.framer.TakeBuffer(4), -1); err != nil {
		return nil, wrapError(KindOperational, "terminate LOCAL INFILE", err)
	}

	respData, err := conn.framer.Recv()
	if err != nil {
		return nil, wrapError(KindOperational, "read LOCAL INFILE response", err)
	}
	ok, _, err := conn.dispatch(respData)
	if err != nil {
		return nil, err
	}
	return ok, nil
}

// getRows pulls up to count rows (all remaining if count<0) from the
// framer in the requested format, satisfying the §4.4 precondition that
// unread_result must already be true.
func (conn *Conn) getRows(count int, binary bool, columns []*protocol.Column) ([]interface{}, *protocol.EOFPacket, error) {
	if !conn.unreadResult {
		return nil, nil, newError(KindInternal, "no unread result to read rows from")
	}

	var out []interface{}
	var eof *protocol.EOFPacket
	var err error

	if binary {
		rows, e, rerr := protocol.ReadBinaryResult(conn.framer, columns, count)
		for _, r := range rows {
			out = append(out, r)
		}
		eof, err = e, rerr
	} else {
		rows, e, rerr := protocol.ReadTextResult(conn.framer, count)
		for _, r := range rows {
			out = append(out, r)
		}
		eof, err = e, rerr
	}

	if err != nil {
		if mysqlErr, ok := err.(*protocol.MySQLError); ok {
			return out, nil, classifyServerError(mysqlErr)
		}
		return out, nil, wrapError(KindOperational, "read rows", err)
	}
	if eof != nil {
		conn.applyStatus(eof.StatusFlags, eof.WarningCount)
		conn.unreadResult = false
	}
	return out, eof, nil
}

// GetRows is the embedder-facing form of getRows.
func (conn *Conn) GetRows(count int, binary bool, columns []*protocol.Column) ([]interface{}, *protocol.EOFPacket, error) {
	return conn.getRows(count, binary, columns)
}

// GetRow reads exactly one row, or returns (nil, io.EOF-like ErrNoRow) if
// the result set is already exhausted.
func (conn *Conn) GetRow(binary bool, columns []*protocol.Column) (interface{}, error) {
	rows, _, err := conn.getRows(1, binary, columns)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRow
	}
	return rows[0], nil
}

// readUntilEOF drains any outstanding result rows, used by Rows.Close and
// by Rollback (which must drain before issuing ROLLBACK per spec.md S3).
func (conn *Conn) readUntilEOF() error {
	if !conn.unreadResult {
		return nil
	}
	_, _, err := conn.getRows(-1, conn.lastResultBinary, conn.lastResultColumns)
	return err
}
