package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BinaryRow is one decoded binary-protocol (prepared statement) result row.
// Values use plain Go types: int64/uint64 for integers, float64 for
// floats, []byte for strings/blobs/decimal/date-likes, nil for SQL NULL.
type BinaryRow []interface{}

// ReadBinaryResult is the binary-protocol analogue of ReadTextResult; it
// additionally needs the column descriptors to know each value's wire
// encoding.
func ReadBinaryResult(src PacketSource, columns []*Column, count int) ([]BinaryRow, *EOFPacket, error) {
	var rows []BinaryRow
	for count < 0 || len(rows) < count {
		data, err := src.Recv()
		if err != nil {
			return rows, nil, err
		}
		if len(data) < 5 {
			return rows, nil, ErrMalformPacket
		}
		if data[4] == IERR {
			mysqlErr, perr := ParseError(data)
			if perr != nil {
				return rows, nil, perr
			}
			return rows, nil, mysqlErr
		}
		if IsEOFPacket(data) {
			eof, err := ParseEOF(data)
			if err != nil {
				return rows, nil, err
			}
			return rows, eof, nil
		}
		if data[4] != IOK {
			return rows, nil, ErrMalformPacket
		}

		row, err := decodeBinaryRow(data, columns)
		if err != nil {
			return rows, nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil, nil
}

func decodeBinaryRow(data []byte, columns []*Column) (BinaryRow, error) {
	body := data[4:]
	nullBitmapLen := (len(columns) + 7 + 2) / 8
	if len(body) < 1+nullBitmapLen {
		return nil, ErrMalformPacket
	}
	nullMask := body[1 : 1+nullBitmapLen]
	pos := 1 + nullBitmapLen

	row := make(BinaryRow, len(columns))
	for i, col := range columns {
		if (nullMask[(i+2)/8]>>uint((i+2)%8))&1 == 1 {
			row[i] = nil
			continue
		}

		switch col.Type {
		case FieldTypeNULL:
			row[i] = nil

		case FieldTypeTiny:
			if len(body) < pos+1 {
				return nil, ErrMalformPacket
			}
			if col.Flags&FlagUnsigned != 0 {
				row[i] = int64(body[pos])
			} else {
				row[i] = int64(int8(body[pos]))
			}
			pos++

		case FieldTypeShort, FieldTypeYear:
			if len(body) < pos+2 {
				return nil, ErrMalformPacket
			}
			v := binary.LittleEndian.Uint16(body[pos : pos+2])
			if col.Flags&FlagUnsigned != 0 {
				row[i] = int64(v)
			} else {
				row[i] = int64(int16(v))
			}
			pos += 2

		case FieldTypeInt24, FieldTypeLong:
			if len(body) < pos+4 {
				return nil, ErrMalformPacket
			}
			v := binary.LittleEndian.Uint32(body[pos : pos+4])
			if col.Flags&FlagUnsigned != 0 {
				row[i] = int64(v)
			} else {
				row[i] = int64(int32(v))
			}
			pos += 4

		case FieldTypeLongLong:
			if len(body) < pos+8 {
				return nil, ErrMalformPacket
			}
			v := binary.LittleEndian.Uint64(body[pos : pos+8])
			if col.Flags&FlagUnsigned != 0 {
				row[i] = v
			} else {
				row[i] = int64(v)
			}
			pos += 8

		case FieldTypeFloat:
			if len(body) < pos+4 {
				return nil, ErrMalformPacket
			}
			row[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[pos : pos+4])))
			pos += 4

		case FieldTypeDouble:
			if len(body) < pos+8 {
				return nil, ErrMalformPacket
			}
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[pos : pos+8]))
			pos += 8

		case FieldTypeDecimal, FieldTypeNewDecimal, FieldTypeVarChar,
			FieldTypeBit, FieldTypeEnum, FieldTypeSet, FieldTypeTinyBLOB,
			FieldTypeMediumBLOB, FieldTypeLongBLOB, FieldTypeBLOB,
			FieldTypeVarString, FieldTypeString, FieldTypeGeometry:
			val, isNull, n, err := ReadLengthEncodedString(body[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			if isNull {
				row[i] = nil
			} else {
				row[i] = val
			}

		case FieldTypeDate, FieldTypeNewDate, FieldTypeTime,
			FieldTypeTimestamp, FieldTypeDateTime:
			val, isNull, n, err := ReadLengthEncodedString(body[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			if isNull {
				row[i] = nil
			} else {
				row[i] = val
			}

		default:
			return nil, fmt.Errorf("protocol: unknown field type %d", col.Type)
		}
	}
	return row, nil
}

// PrepareOK is the decoded response to STMT_PREPARE.
type PrepareOK struct {
	StatementID uint32
	NumColumns  uint16
	NumParams   uint16
	Warnings    uint16
}

// ParsePrepareOK decodes a COM_STMT_PREPARE_OK packet.
func ParsePrepareOK(data []byte) (*PrepareOK, error) {
	if len(data) < 13 || data[4] != IOK {
		return nil, ErrMalformPacket
	}
	body := data[4:]
	return &PrepareOK{
		StatementID: binary.LittleEndian.Uint32(body[1:5]),
		NumColumns:  binary.LittleEndian.Uint16(body[5:7]),
		NumParams:   binary.LittleEndian.Uint16(body[7:9]),
		Warnings:    binary.LittleEndian.Uint16(body[10:12]),
	}, nil
}
