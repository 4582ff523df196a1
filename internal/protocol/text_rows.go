package protocol

// PacketSource is the minimal pull handle the row readers need: one packet
// at a time, framing already stripped to the payload-with-header
// convention the rest of this package uses. The connection core's framer
// satisfies it directly.
type PacketSource interface {
	Recv() ([]byte, error)
}

// TextRow is one decoded text-protocol result row: each value is either a
// byte slice or nil (SQL NULL).
type TextRow [][]byte

// ReadTextResult pulls up to count rows (or all remaining rows if count<0)
// in text protocol form from src. It returns the rows read and, if the
// terminating EOF was reached, the EOF record; terminator is nil when the
// read stopped early because count was reached without hitting EOF — the
// caller is then still mid-result-set (spec.md §4.4).
func ReadTextResult(src PacketSource, count int) ([]TextRow, *EOFPacket, error) {
	var rows []TextRow
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

		row, err := decodeTextRow(data)
		if err != nil {
			return rows, nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil, nil
}

func decodeTextRow(data []byte) (TextRow, error) {
	body := data[4:]
	var row TextRow
	pos := 0
	for pos < len(body) {
		val, isNull, n, err := ReadLengthEncodedString(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		if isNull {
			row = append(row, nil)
		} else {
			row = append(row, val)
		}
	}
	return row, nil
}
