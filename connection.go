// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"net"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
	"github.com/wuxiubo/go-mysql-core/internal/transport"
	"github.com/wuxiubo/go-mysql-core/metrics"
)

// Conn is one MySQL session: the framer it owns exclusively, the
// immutable handshake record, and the mutable session state table from
// spec.md §3.
type Conn struct {
	framer transport.Framer
	hs     *protocol.Handshake
	cfg    *Config

	metrics *metrics.Collector

	clientFlags protocol.ClientFlag
	charsetID   byte
	charsetName string
	collation   string

	inTransaction  bool
	haveNextResult bool
	unreadResult   bool
	autocommit     bool
	sqlMode        string
	timeZone       string
	database       string

	converter Converter

	// lastResultColumns/lastResultBinary remember the shape of the most
	// recent outstanding result set so a caller that merely closes Rows
	// (rather than scanning to completion) drains it in the right format.
	lastResultColumns []*protocol.Column
	lastResultBinary  bool

	openStmts int

	// fetchingWarnings guards maybeFetchWarnings against recursing into
	// itself while issuing its own SHOW WARNINGS query.
	fetchingWarnings bool

	closed bool
}

// DialFunc is a function which can be used to establish the network
// connection. Custom dial functions must be registered with RegisterDial,
// mirroring the teacher driver's pluggable-dial hook (used e.g. for
// App Engine's cloudsql package in appengine.go).
type DialFunc func(addr string) (net.Conn, error)

var dials map[string]DialFunc

// RegisterDial registers a custom dial function under netName. Dialing
// looks up only "tcp" (or "tcp6" when ForceIPv6 is set) and only when
// Config.UnixSocket is empty; a function registered under any other name,
// such as "cloudsql", is stored but never called.
func RegisterDial(netName string, dial DialFunc) {
	if dials == nil {
		dials = make(map[string]DialFunc)
	}
	dials[netName] = dial
}

// Open establishes a new connection and performs the full lifecycle from
// spec.md §4.1: transport resolution, handshake, optional TLS upgrade,
// authentication, optional INIT_DB, optional compression swap, and
// post-connection session setup. collector may be nil to disable metrics.
func Open(cfg *Config, collector *metrics.Collector) (*Conn, error) {
	conn := &Conn{
		cfg:         cfg,
		metrics:     collector,
		clientFlags: protocol.DefaultClientFlags | cfg.ClientFlags,
		autocommit:  cfg.Autocommit,
		sqlMode:     cfg.SQLMode,
		timeZone:    cfg.TimeZone,
		database:    cfg.DBName,
	}
	if cfg.ConverterClass != nil {
		conn.converter = cfg.ConverterClass
	} else {
		conn.converter = newDefaultConverter()
	}
	if cfg.Compress {
		conn.clientFlags |= protocol.ClientCompress
	}

	if err := conn.connect(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Close disconnects and releases the connection. Safe to call more than
// once.
func (conn *Conn) Close() error {
	return conn.disconnect()
}

// IsClosed reports whether the connection has been closed or was never
// successfully opened.
func (conn *Conn) IsClosed() bool {
	return conn.closed || conn.framer == nil
}

// HasClientFlag reports whether flag is set among the negotiated client
// capability flags (spec.md §9 supplemented feature, originally
// isset_client_flag in the Python driver).
func (conn *Conn) HasClientFlag(flag protocol.ClientFlag) bool {
	return conn.clientFlags&flag != 0
}

// ServerVersion returns the handshake's raw server version string.
func (conn *Conn) ServerVersion() string {
	if conn.hs == nil {
		return ""
	}
	return conn.hs.ServerVersion
}

// ServerVersionTuple returns the parsed (major, minor, patch) version.
func (conn *Conn) ServerVersionTuple() [3]int {
	if conn.hs == nil {
		return [3]int{}
	}
	return conn.hs.ServerVersionTuple
}

// ConnectionID returns the server-assigned thread id from the handshake.
func (conn *Conn) ConnectionID() uint32 {
	if conn.hs == nil {
		return 0
	}
	return conn.hs.ThreadID
}

// Charset returns the current session charset name.
func (conn *Conn) Charset() string { return conn.charsetName }

// Collation returns the current session collation name.
func (conn *Conn) Collation() string { return conn.collation }

// InTransaction reports whether the last OK/EOF packet indicated an open
// transaction.
func (conn *Conn) InTransaction() bool { return conn.inTransaction }

// GetDatabase returns the current default database name, a plain
// accessor split from SetDatabase per spec.md §9's SQL-injection note.
func (conn *Conn) GetDatabase() string { return conn.database }

// Autocommit reports the session's autocommit setting as last set.
func (conn *Conn) Autocommit() bool { return conn.autocommit }

// SQLMode returns the session sql_mode as last set.
func (conn *Conn) SQLMode() string { return conn.sqlMode }

// TimeZone returns the session time_zone as last set.
func (conn *Conn) TimeZone() string { return conn.timeZone }

// User returns the configured username.
func (conn *Conn) User() string { return conn.cfg.User }

// ServerHost returns the configured host.
func (conn *Conn) ServerHost() string { return conn.cfg.Host }

// ServerPort returns the configured port.
func (conn *Conn) ServerPort() int { return conn.cfg.Port }

// UnixSocket returns the configured unix socket path, if any.
func (conn *Conn) UnixSocket() string { return conn.cfg.UnixSocket }

// ClientFlags returns the negotiated client capability flags.
func (conn *Conn) ClientFlags() protocol.ClientFlag { return conn.clientFlags }

// UnreadResult reports whether a result header has been received whose
// rows have not yet been fully drained (spec.md §3/§5 rendezvous flag).
func (conn *Conn) UnreadResult() bool { return conn.unreadResult }

// GetWarnings reports the configured get_warnings flag.
func (conn *Conn) GetWarnings() bool { return conn.cfg.GetWarnings }

// RaiseOnWarnings reports the configured raise_on_warnings flag.
func (conn *Conn) RaiseOnWarnings() bool { return conn.cfg.RaiseOnWarning }

// applyStatus updates session state from a status-flag bitset carried by
// an OK or EOF packet, satisfying invariant 1/3 from spec.md §8: every
// OK/EOF updates in_transaction and have_next_result and no code path
// observes them stale.
func (conn *Conn) applyStatus(status protocol.StatusFlag, warnings uint16) {
	conn.inTransaction = status&protocol.StatusInTrans != 0
	conn.haveNextResult = status&protocol.StatusMoreResultsExists != 0
	if conn.metrics != nil && warnings > 0 {
		conn.metrics.ObserveWarnings(warnings)
	}
}

// setTimeout applies the configured connection timeout to the framer, if
// any.
func (conn *Conn) setTimeout() {
	if conn.cfg.ConnTimeout > 0 {
		conn.framer.SetTimeout(conn.cfg.ConnTimeout)
	}
}
