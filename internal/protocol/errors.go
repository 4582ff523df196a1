package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformPacket is returned by codec functions when a packet's internal
// structure doesn't match its declared layout (truncated, short, or a
// length-encoded field running past the end of the buffer).
var ErrMalformPacket = errors.New("protocol: malformed packet")

// MySQLError is the decoded form of an ERR packet. The connection core
// classifies it into the taxonomy of spec.md §7; this package only parses
// the wire bytes.
type MySQLError struct {
	Number  uint16
	SQLState string
	Message string
}

func (e *MySQLError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("Error %d (%s): %s", e.Number, e.SQLState, e.Message)
	}
	return fmt.Sprintf("Error %d: %s", e.Number, e.Message)
}

// ParseError decodes an ERR packet (data[4] == IERR).
func ParseError(data []byte) (*MySQLError, error) {
	if len(data) < 9 || data[4] != IERR {
		return nil, ErrMalformPacket
	}
	body := data[4:]
	errno := uint16(body[1]) | uint16(body[2])<<8
	pos := 3
	var sqlState string
	if len(body) > 3 && body[3] == '#' {
		if len(body) < 9 {
			return nil, ErrMalformPacket
		}
		sqlState = string(body[4:9])
		pos = 9
	}
	return &MySQLError{
		Number:   errno,
		SQLState: sqlState,
		Message:  string(body[pos:]),
	}, nil
}
