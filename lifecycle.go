// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/wuxiubo/go-mysql-core/internal/charset"
	"github.com/wuxiubo/go-mysql-core/internal/protocol"
	"github.com/wuxiubo/go-mysql-core/internal/transport"
)

// tlsConfigFromSSLBag builds a *tls.Config from the ssl_ca/ssl_cert/
// ssl_key/ssl_verify_cert configuration keys (spec.md §6's SSL bag).
func tlsConfigFromSSLBag(bag *SSLBag, host string) *tls.Config {
	cfg := &tls.Config{ServerName: host, InsecureSkipVerify: !bag.VerifyCert}

	if bag.Ca != "" {
		if pem, err := os.ReadFile(bag.Ca); err == nil {
			pool := x509.NewCertPool()
			if pool.AppendCertsFromPEM(pem) {
				cfg.RootCAs = pool
			}
		}
	}
	if bag.Cert != "" && bag.Key != "" {
		if cert, err := tls.LoadX509KeyPair(bag.Cert, bag.Key); err == nil {
			cfg.Certificates = []tls.Certificate{cert}
		}
	}
	return cfg
}

// connect performs the full open sequence from spec.md §4.1.
func (conn *Conn) connect() error {
	netConn, err := conn.dial()
	if err != nil {
		return wrapError(KindOperational, "dial", err)
	}

	conn.framer = transport.NewPlainFramer(netConn)
	conn.setTimeout()

	if err := conn.handshake(); err != nil {
		conn.framer.Close()
		conn.framer = nil
		return err
	}

	if err := conn.authenticate(); err != nil {
		conn.framer.Close()
		conn.framer = nil
		return err
	}

	if !conn.HasClientFlag(protocol.ClientConnectWithDB) && conn.cfg.DBName != "" {
		if _, err := conn.InitDB(conn.cfg.DBName); err != nil {
			conn.framer.Close()
			conn.framer = nil
			return err
		}
	}

	if conn.clientFlags&protocol.ClientCompress != 0 && conn.hs.Capabilities&protocol.ClientCompress != 0 {
		conn.framer = transport.NewCompressedFramer(conn.framer.UnderlyingConn())
		conn.setTimeout()
	}

	if err := conn.postConnect(); err != nil {
		conn.framer.Close()
		conn.framer = nil
		return err
	}

	conn.closed = false
	return nil
}

// dial resolves the transport: a Unix socket if configured, else host:port
// over "tcp" ("tcp6" under force_ipv6). A dial function registered under
// that network name replaces the default TCP dialer; no other registered
// name is consulted.
func (conn *Conn) dial() (net.Conn, error) {
	if conn.cfg.UnixSocket != "" {
		return net.DialTimeout("unix", conn.cfg.UnixSocket, conn.cfg.ConnTimeout)
	}

	network := "tcp"
	if conn.cfg.ForceIPv6 {
		network = "tcp6"
	}
	addr := fmt.Sprintf("%s:%d", conn.cfg.Host, conn.cfg.Port)

	if dial, ok := dials[network]; ok {
		return dial(addr)
	}
	d := net.Dialer{Timeout: conn.cfg.ConnTimeout}
	return d.Dial(network, addr)
}

// handshake receives and parses the initial greeting (spec.md §4.1 step 3).
func (conn *Conn) handshake() error {
	data, err := conn.framer.Recv()
	if err != nil {
		return wrapError(KindOperational, "read handshake", err)
	}
	if data[4] == protocol.IERR {
		mysqlErr, perr := protocol.ParseError(data)
		if perr != nil {
			return wrapError(KindInterface, "parse handshake error", perr)
		}
		return classifyServerError(mysqlErr)
	}

	hs, err := protocol.ParseHandshake(data)
	if err != nil {
		return wrapError(KindInterface, "parse handshake", err)
	}
	conn.hs = hs
	conn.charsetID = hs.CharsetID
	return nil
}

// authenticate performs the SSL-maybe then auth exchange from spec.md
// §4.1 step 4.
func (conn *Conn) authenticate() error {
	wantsSSL := conn.cfg.SSL.any()
	if conn.cfg.DBName != "" {
		conn.clientFlags |= protocol.ClientConnectWithDB
	}

	if wantsSSL {
		if conn.hs.Capabilities&protocol.ClientSSL == 0 {
			return wrapError(KindOperational, "authenticate", ErrNoTLS)
		}
		sslReq := protocol.BuildAuthSSLRequest(conn.framer.TakeBuffer(32), conn.clientFlags, conn.charsetID)
		if err := conn.framer.Send(sslReq, 1); err != nil {
			return wrapError(KindOperational, "send SSL request", err)
		}

		tlsCfg := conn.cfg.TLS
		if tlsCfg == nil {
			tlsCfg = tlsConfigFromSSLBag(conn.cfg.SSL, conn.cfg.Host)
		}
		if err := conn.framer.SwitchToTLS(tlsCfg); err != nil {
			return wrapError(KindOperational, "TLS upgrade", err)
		}
	}

	authPkt := protocol.BuildAuthResponseWithPassword(conn.clientFlags, conn.charsetID, conn.cfg.User, conn.cfg.Password, conn.cfg.DBName, conn.hs.Scramble)
	seq := 1
	if wantsSSL {
		seq = 2
	}
	if err := conn.framer.Send(authPkt, seq); err != nil {
		return wrapError(KindOperational, "send auth packet", err)
	}

	data, err := conn.framer.Recv()
	if err != nil {
		return wrapError(KindOperational, "read auth response", err)
	}
	switch data[4] {
	case 0xfe:
		return wrapError(KindNotSupported, "authenticate", ErrOldPassword)
	case protocol.IERR:
		mysqlErr, perr := protocol.ParseError(data)
		if perr != nil {
			return wrapError(KindInterface, "parse auth error", perr)
		}
		return classifyServerError(mysqlErr)
	case protocol.IOK:
		ok, err := protocol.ParseOK(data)
		if err != nil {
			return wrapError(KindInterface, "parse auth OK", err)
		}
		conn.applyStatus(ok.StatusFlags, ok.WarningCount)
		return nil
	default:
		return newError(KindInterface, "unexpected auth response tag")
	}
}

// prependHeader reserves the 4-byte packet header in front of a bare
// payload. The protocol builders, BuildAuthResponseWithPassword included,
// already reserve that header themselves, so their output goes to the
// framer as is.
func (conn *Conn) prependHeader(payload []byte) []byte {
	buf := conn.framer.TakeBuffer(4 + len(payload))
	copy(buf[4:], payload)
	return buf
}

// postConnect issues SET NAMES, autocommit, and optional time zone/SQL
// mode statements, per spec.md §4.1 step 7.
func (conn *Conn) postConnect() error {
	id, name, collation, err := charset.ByName(conn.cfg.Charset, conn.cfg.Collation)
	if err != nil {
		fallbackID, n, c, aerr := charset.ByName("utf8", "")
		if aerr != nil {
			return wrapError(KindInterface, "resolve charset", err)
		}
		conn.charsetID, conn.charsetName, conn.collation = fallbackID, n, c
	} else {
		conn.charsetID, conn.charsetName, conn.collation = id, name, collation
	}
	conn.converter.SetCharset(conn.charsetName)
	conn.converter.SetUnicode(conn.cfg.UseUnicode)

	if _, err := conn.execSQL(fmt.Sprintf("SET NAMES '%s' COLLATE '%s'", conn.charsetName, conn.collation)); err != nil {
		return err
	}

	if _, err := conn.SetAutocommit(conn.cfg.Autocommit); err != nil {
		return err
	}
	if conn.cfg.TimeZone != "" {
		if _, err := conn.SetTimeZone(conn.cfg.TimeZone); err != nil {
			return err
		}
	}
	if conn.cfg.SQLMode != "" {
		if _, err := conn.SetSQLMode(conn.cfg.SQLMode); err != nil {
			return err
		}
	}
	return nil
}

// disconnect sends QUIT (no response expected) then closes the framer. It
// is idempotent and swallows errors: a closed or broken connection is also
// "disconnected", per spec.md §4.1.
func (conn *Conn) disconnect() error {
	if conn.closed {
		return nil
	}
	conn.closed = true
	if conn.framer == nil {
		return nil
	}
	if _, err := conn.sendCommand(protocol.ComQuit, nil, false); err != nil {
		errLog.Print("disconnect: ", err)
	}
	if err := conn.framer.Close(); err != nil {
		errLog.Print("disconnect: ", err)
	}
	conn.framer = nil
	return nil
}

// Reconnect disconnects then reopens the connection up to attempts times,
// sleeping delay between tries, per spec.md §4.1 reconnect().
func (conn *Conn) Reconnect(attempts int, delay time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn.disconnect()
		if err := conn.connect(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i < attempts-1 && delay > 0 {
			time.Sleep(delay)
		}
	}
	return lastErr
}

// execSQL is the internal helper every session-parameter setter uses to
// issue a plain SQL statement and discard its result, mirroring the
// teacher's writeCommandPacketStr/readResultOK pair.
func (conn *Conn) execSQL(query string) (*OKResult, error) {
	data, err := conn.sendCommand(protocol.ComQuery, []byte(query), true)
	if err != nil {
		return nil, err
	}
	ok, header, err := conn.dispatch(data)
	if err != nil {
		return nil, err
	}
	if header != nil {
		// A SET statement should never produce a result set; drain
		// defensively so the connection isn't left desynchronized.
		conn.readUntilEOF()
		return nil, newError(KindInterface, "unexpected result set from SET statement")
	}
	if err := conn.reportWarnings(ok.WarningCount); err != nil {
		return ok, err
	}
	return ok, nil
}
