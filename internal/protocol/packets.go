package protocol

import (
	"encoding/binary"
)

// OKPacket is the decoded form of an OK packet.
type OKPacket struct {
	AffectedRows uint64
	InsertID     uint64
	StatusFlags  StatusFlag
	WarningCount uint16
	Info         string
}

// ParseOK decodes an OK packet (data[4] == IOK).
func ParseOK(data []byte) (*OKPacket, error) {
	if len(data) < 5 || data[4] != IOK {
		return nil, ErrMalformPacket
	}
	body := data[5:]
	affected, _, n1 := ReadLengthEncodedInteger(body)
	insertID, _, n2 := ReadLengthEncodedInteger(body[n1:])
	pos := n1 + n2
	if len(body) < pos+2 {
		return nil, ErrMalformPacket
	}
	status := StatusFlag(binary.LittleEndian.Uint16(body[pos : pos+2]))
	pos += 2
	var warnings uint16
	if len(body) >= pos+2 {
		warnings = binary.LittleEndian.Uint16(body[pos : pos+2])
		pos += 2
	}
	info := ""
	if len(body) > pos {
		info = string(body[pos:])
	}
	return &OKPacket{
		AffectedRows: affected,
		InsertID:     insertID,
		StatusFlags:  status,
		WarningCount: warnings,
		Info:         info,
	}, nil
}

// EOFPacket is the decoded form of an EOF packet.
type EOFPacket struct {
	WarningCount uint16
	StatusFlags  StatusFlag
}

// IsEOFPacket reports whether data looks like an EOF packet: tag 0xFE and
// a payload (data after the 4-byte header) shorter than 9 bytes, so it
// cannot be a length-encoded column-count/row payload that happens to
// start with 0xFE (the classic MySQL client ambiguity, resolved by length
// per spec.md's Packet glossary entry).
func IsEOFPacket(data []byte) bool {
	return len(data) >= 5 && data[4] == IEOF && len(data)-4 < 9
}

// ParseEOF decodes an EOF packet.
func ParseEOF(data []byte) (*EOFPacket, error) {
	if !IsEOFPacket(data) {
		return nil, ErrMalformPacket
	}
	body := data[5:]
	e := &EOFPacket{}
	if len(body) >= 4 {
		e.WarningCount = binary.LittleEndian.Uint16(body[0:2])
		e.StatusFlags = StatusFlag(binary.LittleEndian.Uint16(body[2:4]))
	}
	return e, nil
}

// ParseColumnCount decodes the leading length-encoded integer of a result
// set header packet.
func ParseColumnCount(data []byte) (uint64, error) {
	if len(data) < 5 {
		return 0, ErrMalformPacket
	}
	n, isNull, consumed := ReadLengthEncodedInteger(data[4:])
	if isNull || 4+consumed != len(data) {
		return 0, ErrMalformPacket
	}
	return n, nil
}

// Column is one decoded column-definition packet
// (Protocol::ColumnDefinition41).
type Column struct {
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	Charset      uint16
	Length       uint32
	Type         FieldType
	Flags        FieldFlag
	Decimals     byte
}

// ParseColumn decodes one column-definition packet.
func ParseColumn(data []byte) (*Column, error) {
	if len(data) < 5 {
		return nil, ErrMalformPacket
	}
	body := data[4:]
	col := &Column{}

	n, err := SkipLengthEncodedString(body) // catalog
	if err != nil {
		return nil, err
	}
	pos := n

	b, _, n, err := ReadLengthEncodedString(body[pos:])
	if err != nil {
		return nil, err
	}
	col.Schema = string(b)
	pos += n

	b, _, n, err = ReadLengthEncodedString(body[pos:])
	if err != nil {
		return nil, err
	}
	col.Table = string(b)
	pos += n

	b, _, n, err = ReadLengthEncodedString(body[pos:])
	if err != nil {
		return nil, err
	}
	col.OrgTable = string(b)
	pos += n

	b, _, n, err = ReadLengthEncodedString(body[pos:])
	if err != nil {
		return nil, err
	}
	col.Name = string(b)
	pos += n

	b, _, n, err = ReadLengthEncodedString(body[pos:])
	if err != nil {
		return nil, err
	}
	col.OrgName = string(b)
	pos += n

	// length-encoded "fixed fields length", always 0x0c; then charset(2),
	// column length(4), type(1), flags(2), decimals(1), 2 filler bytes.
	if len(body) < pos+1+2+4+1+2+1+2 {
		return nil, ErrMalformPacket
	}
	pos++ // fixed-fields-length marker
	col.Charset = binary.LittleEndian.Uint16(body[pos : pos+2])
	pos += 2
	col.Length = binary.LittleEndian.Uint32(body[pos : pos+4])
	pos += 4
	col.Type = FieldType(body[pos])
	pos++
	col.Flags = FieldFlag(binary.LittleEndian.Uint16(body[pos : pos+2]))
	pos += 2
	col.Decimals = body[pos]

	return col, nil
}

// MakeCommand builds a command packet: command byte followed by argument
// bytes, with the 4-byte header left zeroed for the framer to fill in.
func MakeCommand(buf []byte, command byte, arg []byte) []byte {
	pktLen := 1 + len(arg)
	if len(buf) < 4+pktLen {
		buf = make([]byte, 4+pktLen)
	}
	buf = buf[:4+pktLen]
	buf[4] = command
	copy(buf[5:], arg)
	return buf
}

// MakeCommandUint32 builds a command packet whose single argument is a
// little-endian uint32 (STMT_CLOSE, STMT_RESET).
func MakeCommandUint32(buf []byte, command byte, arg uint32) []byte {
	if len(buf) < 9 {
		buf = make([]byte, 9)
	}
	buf = buf[:9]
	buf[4] = command
	binary.LittleEndian.PutUint32(buf[5:9], arg)
	return buf
}
