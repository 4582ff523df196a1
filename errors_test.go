// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

func TestSetLogger(t *testing.T) {
	previous := errLog
	defer func() { errLog = previous }()

	buffer := bytes.NewBuffer(nil)
	logger := log.New(buffer, "prefix: ", 0)

	require.NoError(t, SetLogger(logger))
	errLog.Print("test")

	assert.Equal(t, "prefix: test\n", buffer.String())
}

func TestSetLoggerRejectsNil(t *testing.T) {
	assert.Error(t, SetLogger(nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := &protocol.MySQLError{Number: 1062, Message: "Duplicate entry"}
	err := wrapError(KindIntegrity, "insert", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "IntegrityError")
	assert.Contains(t, err.Error(), "Duplicate entry")
}

func TestClassifyErrorNumber(t *testing.T) {
	cases := []struct {
		number uint16
		want   Kind
	}{
		{1062, KindIntegrity},
		{1452, KindIntegrity},
		{1366, KindData},
		{1406, KindData},
		{1064, KindDatabase},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyErrorNumber(tc.number), "number %d", tc.number)
	}
}

func TestWarningsError(t *testing.T) {
	ws := Warnings{
		{Level: "Warning", Code: "1265", Message: "Data truncated"},
		{Level: "Note", Code: "1051", Message: "Unknown table"},
	}
	msg := ws.Error()
	assert.Contains(t, msg, "1265")
	assert.Contains(t, msg, "1051")
}
