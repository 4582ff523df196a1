package protocol

import (
	"encoding/binary"
	"math"
)

// Param is one bound execute-time parameter. LongData is true when the
// value was already delivered via STMT_SEND_LONG_DATA and must be skipped
// in the inline value section (spec.md §4.5).
type Param struct {
	Value    interface{}
	LongData bool
}

// MakeStmtExecute builds a COM_STMT_EXECUTE packet for the given statement
// ID and bound parameters. cursorFlag is normally 0 (CURSOR_TYPE_NO_CURSOR);
// a nonzero value requests a server-side cursor.
//
// Grounded on the teacher driver's writeExecutePacket in packets.go,
// generalized to take already-converted Param values instead of the
// driver.Value slice the teacher used.
func MakeStmtExecute(stmtID uint32, params []Param, cursorFlag byte) []byte {
	nullBitmapLen := (len(params) + 7) / 8
	pos := 4 + 1 + 4 + 1 + 4 + nullBitmapLen + 1

	// First pass: compute the length of the inline (non-long-data) value
	// section so the buffer can be allocated once.
	valuesLen := 0
	for _, p := range params {
		if p.LongData || p.Value == nil {
			continue
		}
		valuesLen += paramEncodedLen(p.Value)
	}

	data := make([]byte, pos+len(params)*2+valuesLen)
	data[4] = ComStmtExecute
	binary.LittleEndian.PutUint32(data[5:9], stmtID)
	data[9] = cursorFlag
	binary.LittleEndian.PutUint32(data[10:14], 1) // iteration-count, always 1

	if len(params) > 0 {
		nullBitmap := data[14 : 14+nullBitmapLen]
		for i, p := range params {
			if p.Value == nil && !p.LongData {
				nullBitmap[i/8] |= 1 << uint(i%8)
			}
		}

		newParamsBoundPos := 14 + nullBitmapLen
		data[newParamsBoundPos] = 1 // new-params-bound-flag

		typePos := newParamsBoundPos + 1
		for _, p := range params {
			typ, unsigned := paramFieldType(p.Value)
			data[typePos] = byte(typ)
			if unsigned {
				data[typePos+1] = 0x80
			}
			typePos += 2
		}

		valPos := typePos
		for _, p := range params {
			if p.LongData || p.Value == nil {
				continue
			}
			valPos = appendParamValue(data, valPos, p.Value)
		}
		return data[:valPos]
	}

	return data[:pos]
}

func paramFieldType(v interface{}) (FieldType, bool) {
	switch val := v.(type) {
	case int64:
		return FieldTypeLongLong, false
	case uint64:
		return FieldTypeLongLong, true
	case float64:
		return FieldTypeDouble, false
	case float32:
		return FieldTypeFloat, false
	case bool:
		return FieldTypeTiny, false
	case []byte, string:
		return FieldTypeVarString, false
	default:
		_ = val
		return FieldTypeVarString, false
	}
}

func paramEncodedLen(v interface{}) int {
	switch val := v.(type) {
	case int64, uint64:
		return 8
	case float64:
		return 8
	case float32:
		return 4
	case bool:
		return 1
	case []byte:
		return lengthEncodedIntSize(uint64(len(val))) + len(val)
	case string:
		return lengthEncodedIntSize(uint64(len(val))) + len(val)
	default:
		s := toParamString(v)
		return lengthEncodedIntSize(uint64(len(s))) + len(s)
	}
}

func lengthEncodedIntSize(n uint64) int {
	switch {
	case n < 251:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffff:
		return 4
	default:
		return 9
	}
}

func appendParamValue(buf []byte, pos int, v interface{}) int {
	switch val := v.(type) {
	case int64:
		binary.LittleEndian.PutUint64(buf[pos:pos+8], uint64(val))
		return pos + 8
	case uint64:
		binary.LittleEndian.PutUint64(buf[pos:pos+8], val)
		return pos + 8
	case float64:
		binary.LittleEndian.PutUint64(buf[pos:pos+8], math.Float64bits(val))
		return pos + 8
	case float32:
		binary.LittleEndian.PutUint32(buf[pos:pos+4], math.Float32bits(val))
		return pos + 4
	case bool:
		if val {
			buf[pos] = 1
		} else {
			buf[pos] = 0
		}
		return pos + 1
	case []byte:
		n := AppendLengthEncodedInteger(buf[pos:pos], uint64(len(val)))
		pos += len(n)
		copy(buf[pos:], val)
		return pos + len(val)
	case string:
		return appendParamValue(buf, pos, []byte(val))
	default:
		return appendParamValue(buf, pos, []byte(toParamString(v)))
	}
}

func toParamString(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return ""
	}
}

// MakeStmtSendLongData builds one COM_STMT_SEND_LONG_DATA packet carrying a
// chunk of raw parameter data. Chunking into LongDataChunkSize pieces is
// the caller's responsibility (spec.md §8 boundary behavior).
func MakeStmtSendLongData(stmtID uint32, paramID uint16, chunk []byte) []byte {
	data := make([]byte, 4+1+4+2+len(chunk))
	data[4] = ComStmtSendLongData
	binary.LittleEndian.PutUint32(data[5:9], stmtID)
	binary.LittleEndian.PutUint16(data[9:11], paramID)
	copy(data[11:], chunk)
	return data
}

// MakeChangeUser builds a COM_CHANGE_USER packet, re-authenticating the
// existing connection as a different user/database without a full
// reconnect (spec.md §9 supplemented feature).
func MakeChangeUser(user, password, db string, charset byte, scramble []byte) []byte {
	authResponse := ScramblePassword(scramble, []byte(password))

	pktLen := 4 + 1 + len(user) + 1 + 1 + len(authResponse) + len(db) + 1 + 2
	data := make([]byte, pktLen)
	data[4] = ComChangeUser

	pos := 5
	pos += copy(data[pos:], user)
	data[pos] = 0
	pos++

	data[pos] = byte(len(authResponse))
	pos++
	pos += copy(data[pos:], authResponse)

	pos += copy(data[pos:], db)
	data[pos] = 0
	pos++

	binary.LittleEndian.PutUint16(data[pos:pos+2], uint16(charset))
	pos += 2

	return data[:pos]
}

// ParseStatistics decodes the plain human-readable text response to
// COM_STATISTICS (it carries no packet header byte beyond the text itself).
func ParseStatistics(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrMalformPacket
	}
	return string(data[4:]), nil
}
