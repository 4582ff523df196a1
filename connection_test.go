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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
	"github.com/wuxiubo/go-mysql-core/internal/transport"
)

// fakeServer drives the server side of a net.Pipe connection with a
// scripted sequence of responses, so the wire layer can be tested without
// a real mysqld.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	seq  uint8
}

func newFakeServer(t *testing.T) (*fakeServer, net.Conn) {
	client, server := net.Pipe()
	return &fakeServer{t: t, conn: server}, client
}

func (fs *fakeServer) send(payload []byte) {
	fs.t.Helper()
	pktLen := len(payload)
	header := []byte{byte(pktLen), byte(pktLen >> 8), byte(pktLen >> 16), fs.seq}
	fs.seq++
	_, err := fs.conn.Write(header)
	require.NoError(fs.t, err)
	_, err = fs.conn.Write(payload)
	require.NoError(fs.t, err)
}

// recv reads one client packet and returns its payload (without the
// 4-byte header), advancing the expected sequence number.
func (fs *fakeServer) recv() []byte {
	fs.t.Helper()
	header := make([]byte, 4)
	_, err := readFull(fs.conn, header)
	require.NoError(fs.t, err)
	pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	fs.seq = header[3] + 1
	body := make([]byte, pktLen)
	if pktLen > 0 {
		_, err := readFull(fs.conn, body)
		require.NoError(fs.t, err)
	}
	return body
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// fakeHandshake builds a Protocol::Handshake payload (without the 4-byte
// packet header) advertising protocol 4.1+, CLIENT_SECURE_CONNECTION, and
// a 20-byte auth scramble split 8/12 across the two scramble fields.
func fakeHandshake(scramble []byte) []byte {
	body := []byte{10} // protocol version
	body = append(body, []byte("8.0.30-fake")...)
	body = append(body, 0)
	body = append(body, 42, 0, 0, 0) // thread id

	body = append(body, scramble[:8]...)
	body = append(body, 0) // filler

	lowerCaps := uint16(protocol.ClientProtocol41 | protocol.ClientSecureConn)
	body = append(body, byte(lowerCaps), byte(lowerCaps>>8))

	body = append(body, 33)    // charset: utf8
	body = append(body, 2, 0)  // status flags: SERVER_STATUS_AUTOCOMMIT
	body = append(body, 0, 0)  // capabilities upper
	body = append(body, 21)    // auth plugin data length
	body = append(body, make([]byte, 10)...)
	body = append(body, scramble[8:20]...)
	return body
}

func fakeOK(status protocol.StatusFlag, warnings uint16) []byte {
	pkt := []byte{protocol.IOK, 0, 0}
	pkt = append(pkt, byte(status), byte(status>>8))
	pkt = append(pkt, byte(warnings), byte(warnings>>8))
	return pkt
}

func fakeErr(number uint16, message string) []byte {
	pkt := []byte{protocol.IERR, byte(number), byte(number >> 8)}
	pkt = append(pkt, []byte("#HY000")...)
	pkt = append(pkt, []byte(message)...)
	return pkt
}

// dialFakeConn builds a Conn whose framer talks to a fakeServer's client
// end, skipping conn.dial and conn.connect (which require a real network
// dialer). Callers drive handshake/authenticate/dispatch directly.
func dialFakeConn(t *testing.T, cfg *Config) (*Conn, *fakeServer) {
	t.Helper()
	fs, client := newFakeServer(t)
	conn := &Conn{
		cfg:         cfg,
		clientFlags: protocol.DefaultClientFlags,
		converter:   newDefaultConverter(),
		autocommit:  cfg.Autocommit,
	}
	conn.framer = transport.NewPlainFramer(client)
	return conn, fs
}

func TestHandshakeAndAuthenticateOK(t *testing.T) {
	scramble := []byte("01234567890123456789")
	cfg := DefaultConfig()
	cfg.User = "root"
	cfg.Password = "secret"

	conn, fs := dialFakeConn(t, cfg)
	defer conn.framer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs.send(fakeHandshake(scramble))
		fs.recv() // auth packet
		fs.send(fakeOK(protocol.StatusAutocommit, 0))
	}()

	require.NoError(t, conn.handshake())
	require.Equal(t, "8.0.30-fake", conn.hs.ServerVersion)
	require.NoError(t, conn.authenticate())
	require.False(t, conn.inTransaction)
	<-done
}

func TestHandshakeRejectsErrorPacket(t *testing.T) {
	cfg := DefaultConfig()
	conn, fs := dialFakeConn(t, cfg)
	defer conn.framer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fs.send(fakeErr(1045, "Access denied"))
	}()

	err := conn.handshake()
	require.Error(t, err)
	var mysqlErr *Error
	require.ErrorAs(t, err, &mysqlErr)
	require.Equal(t, KindDatabase, mysqlErr.Kind)
	<-done
}

func TestPingDispatchesOK(t *testing.T) {
	cfg := DefaultConfig()
	conn, fs := dialFakeConn(t, cfg)
	defer conn.framer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := fs.recv()
		require.Equal(t, protocol.ComPing, req[0])
		fs.send(fakeOK(0, 0))
	}()

	require.NoError(t, conn.Ping())
	<-done
}

func TestUnreadResultBlocksNextCommand(t *testing.T) {
	cfg := DefaultConfig()
	conn, _ := dialFakeConn(t, cfg)
	conn.unreadResult = true
	defer conn.framer.Close()

	_, err := conn.sendCommand(protocol.ComPing, nil, true)
	require.Error(t, err)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	require.Equal(t, KindInternal, ierr.Kind)
}

func TestConnTimeoutApplied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnTimeout = 50 * time.Millisecond
	conn, _ := dialFakeConn(t, cfg)
	defer conn.framer.Close()
	conn.setTimeout() // must not panic with no deadline support assumptions
}
