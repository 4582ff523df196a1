// gmysql - A MySQL package for Go
//
// Copyright 2016 The gmysql Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package gmysql

import (
	"time"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// Converter replaces a duck-typed converter object with a small method
// set: value conversion to and from MySQL's wire representation, plus two
// hints the connection feeds it when the session charset changes. A
// connection holds exactly one Converter; ConverterClass in Config
// overrides the default.
type Converter interface {
	// ToMySQL converts a Go value into the form the wire protocol expects
	// (currently used for parameter binding in prepared statements; see
	// internal/protocol.Param).
	ToMySQL(v interface{}) (interface{}, error)
	// FromMySQL converts a decoded wire value (string/[]byte/int64/
	// uint64/float64/nil, per the column's field type) into the Go value
	// the caller should see.
	FromMySQL(raw interface{}, col *columnInfo) (interface{}, error)
	SetCharset(name string)
	SetUnicode(unicode bool)
}

// columnInfo is the subset of a protocol.Column a converter needs, kept
// separate from protocol.Column so package gmysql's conversion layer does
// not leak protocol.FieldType into caller-facing signatures beyond what's
// needed.
type columnInfo struct {
	Name     string
	Type     byte
	Decimals byte
}

// defaultConverter is the Converter every Conn uses unless overridden by
// Config.ConverterClass. It passes numeric and string values through
// unchanged and converts date/time wire strings to time.Time when asked.
type defaultConverter struct {
	charset string
	unicode bool
	loc     *time.Location
}

func newDefaultConverter() *defaultConverter {
	return &defaultConverter{charset: "utf8", unicode: true, loc: time.UTC}
}

func (c *defaultConverter) ToMySQL(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05.999999"), nil
	default:
		return v, nil
	}
}

func (c *defaultConverter) FromMySQL(raw interface{}, col *columnInfo) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch protocol.FieldType(col.Type) {
	case protocol.FieldTypeDate, protocol.FieldTypeNewDate,
		protocol.FieldTypeTime, protocol.FieldTypeTimestamp, protocol.FieldTypeDateTime:
		return parseDateTime(raw, protocol.FieldType(col.Type), c.loc)
	default:
		return raw, nil
	}
}

// parseDateTime turns a DATE/DATETIME/TIMESTAMP wire string into a
// time.Time. TIME is returned as a plain string instead: MySQL's TIME
// range (-838:59:59 to 838:59:59) doesn't fit time.Time, the same
// limitation noted in the teacher's binary row decoder.
func parseDateTime(raw interface{}, fieldType protocol.FieldType, loc *time.Location) (interface{}, error) {
	var str string
	switch v := raw.(type) {
	case []byte:
		str = string(v)
	case string:
		str = v
	default:
		return raw, nil
	}
	if str == "" || str == "0000-00-00" || str == "0000-00-00 00:00:00" {
		return time.Time{}, nil
	}
	if fieldType == protocol.FieldTypeTime {
		return str, nil
	}

	var layout string
	switch len(str) {
	case 10:
		layout = "2006-01-02"
	case 19:
		layout = "2006-01-02 15:04:05"
	default:
		if len(str) > 19 {
			layout = "2006-01-02 15:04:05.999999"
		} else {
			return str, nil
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(layout, str, loc)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *defaultConverter) SetCharset(name string) { c.charset = name }
func (c *defaultConverter) SetUnicode(unicode bool) { c.unicode = unicode }
