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
	"reflect"
	"strconv"
	"time"
)

// assignScan stores src into the value dest points at. dest is one element
// of the variadic slice Scan's caller builds (e.g. &n in Scan(&n, &s)); it
// must be a non-nil pointer. Common destination types get a direct,
// allocation-light path; anything else falls back to reflect, mirroring
// how database/sql's convertAssignRows handles arbitrary Scanner-less
// destinations.
func assignScan(dest interface{}, src interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = src
		return nil

	case *[]byte:
		switch s := src.(type) {
		case nil:
			*d = nil
		case []byte:
			buf := make([]byte, len(s))
			copy(buf, s)
			*d = buf
		case string:
			*d = []byte(s)
		default:
			*d = []byte(fmt.Sprint(s))
		}
		return nil

	case *string:
		if src == nil {
			return newError(KindData, "Scan: cannot assign NULL to *string")
		}
		switch s := src.(type) {
		case []byte:
			*d = string(s)
		case string:
			*d = s
		default:
			*d = fmt.Sprint(s)
		}
		return nil

	case *time.Time:
		switch s := src.(type) {
		case time.Time:
			*d = s
		case nil:
			*d = time.Time{}
		default:
			return newError(KindData, fmt.Sprintf("Scan: cannot convert %T to time.Time", src))
		}
		return nil

	case *bool:
		b, err := toBool(src)
		if err != nil {
			return err
		}
		*d = b
		return nil

	case *int:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = int(n)
		return nil

	case *int64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = n
		return nil

	case *uint64:
		n, err := toUint64(src)
		if err != nil {
			return err
		}
		*d = n
		return nil

	case *float64:
		f, err := toFloat64(src)
		if err != nil {
			return err
		}
		*d = f
		return nil

	case *float32:
		f, err := toFloat64(src)
		if err != nil {
			return err
		}
		*d = float32(f)
		return nil

	default:
		return assignScanReflect(dest, src)
	}
}

// assignScanReflect handles destinations not covered by assignScan's fast
// paths: named types over a covered kind (type Status string), and any
// type assignable or convertible from src's dynamic type.
func assignScanReflect(dest interface{}, src interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return newError(KindProgramming, "Scan: destination must be a non-nil pointer")
	}
	elem := dv.Elem()

	if src == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(elem.Type()) {
		elem.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(elem.Type()) {
		elem.Set(sv.Convert(elem.Type()))
		return nil
	}
	if b, ok := src.([]byte); ok && elem.Kind() == reflect.String {
		elem.SetString(string(b))
		return nil
	}
	return newError(KindData, fmt.Sprintf("Scan: cannot convert %T to %s", src, elem.Type()))
}

func toBool(src interface{}) (bool, error) {
	switch v := src.(type) {
	case nil:
		return false, newError(KindData, "Scan: cannot assign NULL to *bool")
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return false, wrapError(KindData, "Scan: parse bool", err)
		}
		return n != 0, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false, wrapError(KindData, "Scan: parse bool", err)
		}
		return n != 0, nil
	default:
		return false, newError(KindData, fmt.Sprintf("Scan: cannot convert %T to bool", src))
	}
}

func toInt64(src interface{}) (int64, error) {
	switch v := src.(type) {
	case nil:
		return 0, newError(KindData, "Scan: cannot assign NULL to numeric destination")
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse int64", err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse int64", err)
		}
		return n, nil
	default:
		return 0, newError(KindData, fmt.Sprintf("Scan: cannot convert %T to int64", src))
	}
}

func toUint64(src interface{}) (uint64, error) {
	switch v := src.(type) {
	case nil:
		return 0, newError(KindData, "Scan: cannot assign NULL to numeric destination")
	case uint64:
		return v, nil
	case int64:
		return uint64(v), nil
	case float64:
		return uint64(v), nil
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse uint64", err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse uint64", err)
		}
		return n, nil
	default:
		return 0, newError(KindData, fmt.Sprintf("Scan: cannot convert %T to uint64", src))
	}
}

func toFloat64(src interface{}) (float64, error) {
	switch v := src.(type) {
	case nil:
		return 0, newError(KindData, "Scan: cannot assign NULL to numeric destination")
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse float64", err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, wrapError(KindData, "Scan: parse float64", err)
		}
		return f, nil
	default:
		return 0, newError(KindData, fmt.Sprintf("Scan: cannot convert %T to float64", src))
	}
}
