// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import "github.com/wuxiubo/go-mysql-core/internal/protocol"

// maybeFetchWarnings issues SHOW WARNINGS when count is nonzero and
// Config.GetWarnings is set, returning the parsed rows as a Warnings
// value. It guards against recursing into itself (SHOW WARNINGS's own OK
// packet never carries a warning count worth chasing).
func (conn *Conn) maybeFetchWarnings(count uint16) (Warnings, error) {
	if count == 0 || !conn.cfg.GetWarnings || conn.fetchingWarnings {
		return nil, nil
	}

	conn.fetchingWarnings = true
	defer func() { conn.fetchingWarnings = false }()

	data, err := conn.sendCommand(protocol.ComQuery, []byte("SHOW WARNINGS"), true)
	if err != nil {
		return nil, err
	}
	_, header, err := conn.dispatch(data)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	rows, _, err := conn.getRows(-1, false, header.Columns)
	if err != nil {
		return nil, err
	}

	warnings := make(Warnings, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(protocol.TextRow)
		if !ok || len(row) < 3 {
			continue
		}
		warnings = append(warnings, Warning{
			Level:   toText(row[0]),
			Code:    toText(row[1]),
			Message: toText(row[2]),
		})
	}
	return warnings, nil
}

func toText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

// reportWarnings calls maybeFetchWarnings and, if RaiseOnWarnings is set
// and any warnings were found, returns them as an error instead of nil.
func (conn *Conn) reportWarnings(count uint16) error {
	warnings, err := conn.maybeFetchWarnings(count)
	if err != nil {
		return err
	}
	if len(warnings) > 0 && conn.cfg.RaiseOnWarning {
		return warnings
	}
	return nil
}
