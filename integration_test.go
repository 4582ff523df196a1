// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build integration

package gmysql

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

const (
	itUser     = "root"
	itPassword = "test"
	itDB       = "gotest"
)

// startMySQL launches a MySQL container, grounded on the pack's
// testcontainers-go usage for exercising a wire-protocol client against a
// real server rather than a scripted fake.
func startMySQL(t *testing.T) (host string, port int) {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8",
		tcmysql.WithDatabase(itDB),
		tcmysql.WithUsername(itUser),
		tcmysql.WithPassword(itPassword),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	h, err := ctr.Host(ctx)
	require.NoError(t, err)
	mapped, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)
	return h, mapped.Int()
}

func openTestConn(t *testing.T, host string, port int) *Conn {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host, cfg.Port = host, port
	cfg.User, cfg.Password, cfg.DBName = itUser, itPassword, itDB
	cfg.GetWarnings = true

	conn, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestIntegrationPingAndQuery(t *testing.T) {
	host, port := startMySQL(t)
	conn := openTestConn(t, host, port)

	require.NoError(t, conn.Ping())

	rows, err := conn.Query("SELECT 1, 'hi'")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var n int64
	var s string
	require.NoError(t, rows.Scan(&n, &s))
	require.Equal(t, int64(1), n)
	require.Equal(t, "hi", s)
	require.False(t, rows.Next())
}

func TestIntegrationPreparedStatement(t *testing.T) {
	host, port := startMySQL(t)
	conn := openTestConn(t, host, port)

	stmt, err := conn.Prepare("SELECT ? + ?")
	require.NoError(t, err)
	defer stmt.Close()

	rows, _, err := stmt.Execute([]interface{}{int64(1), int64(2)}, 0)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var sum int64
	require.NoError(t, rows.Scan(&sum))
	require.Equal(t, int64(3), sum)
}

func TestIntegrationTransactionCommit(t *testing.T) {
	host, port := startMySQL(t)
	conn := openTestConn(t, host, port)

	_, err := conn.execSQL(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INT PRIMARY KEY)", "gmysql_it_tx"))
	require.NoError(t, err)

	require.NoError(t, conn.StartTransaction(false, ""))
	_, err = conn.execSQL("INSERT INTO gmysql_it_tx (id) VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, conn.Commit())
	require.False(t, conn.InTransaction())
}

func TestIntegrationChangeUser(t *testing.T) {
	host, port := startMySQL(t)
	conn := openTestConn(t, host, port)

	err := conn.ChangeUser(itUser, itPassword, itDB)
	require.NoError(t, err)
	require.Equal(t, itUser, conn.User())
}
