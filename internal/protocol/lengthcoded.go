package protocol

// Helpers for MySQL's length-encoded integers and strings. Grounded on the
// teacher driver's calling convention (readLengthEncodedInteger,
// readLengthEncodedString, skipLengthEncodedString, appendLengthEncodedInteger)
// which the teacher's packets.go/convert.go call but whose definitions were
// not part of the retrieved teacher files; reconstructed here to the
// documented MySQL wire grammar (dev.mysql.com/doc/internals,
// Protocol::LengthEncodedInteger / Protocol::LengthEncodedString).

// ReadLengthEncodedInteger reads a length-encoded integer from the front of
// data. It returns the value, whether the value was a SQL NULL marker
// (0xfb), and the number of bytes consumed.
func ReadLengthEncodedInteger(data []byte) (value uint64, isNull bool, n int) {
	if len(data) == 0 {
		return 0, true, 1
	}
	switch data[0] {
	case 0xfb:
		return 0, true, 1
	case 0xfc:
		return uint64(data[1]) | uint64(data[2])<<8, false, 3
	case 0xfd:
		return uint64(data[1]) | uint64(data[2])<<8 | uint64(data[3])<<16, false, 4
	case 0xfe:
		return uint64(data[1]) | uint64(data[2])<<8 | uint64(data[3])<<16 |
				uint64(data[4])<<24 | uint64(data[5])<<32 | uint64(data[6])<<40 |
				uint64(data[7])<<48 | uint64(data[8])<<56,
			false, 9
	default:
		return uint64(data[0]), false, 1
	}
}

// AppendLengthEncodedInteger appends the length-encoded form of n to buf.
func AppendLengthEncodedInteger(buf []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(buf, byte(n))
	case n <= 0xffff:
		return append(buf, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(buf, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		return append(buf, 0xfe,
			byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

// ReadLengthEncodedString reads a length-encoded string from the front of
// data, returning the bytes (a sub-slice of data, not copied), whether it
// was NULL, and the number of bytes consumed including the length prefix.
func ReadLengthEncodedString(data []byte) (b []byte, isNull bool, n int, err error) {
	num, isNull, n := ReadLengthEncodedInteger(data)
	if isNull {
		return nil, true, n, nil
	}
	if num < 1 {
		return []byte{}, false, n, nil
	}
	n += int(num)
	if len(data) < n {
		return nil, false, n, ErrMalformPacket
	}
	return data[n-int(num) : n], false, n, nil
}

// SkipLengthEncodedString returns the number of bytes a length-encoded
// string at the front of data occupies, without copying its content.
func SkipLengthEncodedString(data []byte) (n int, err error) {
	num, _, n := ReadLengthEncodedInteger(data)
	n += int(num)
	if len(data) < n {
		return n, ErrMalformPacket
	}
	return n, nil
}

// AppendLengthEncodedString appends the length-encoded form of s to buf.
func AppendLengthEncodedString(buf []byte, s []byte) []byte {
	buf = AppendLengthEncodedInteger(buf, uint64(len(s)))
	return append(buf, s...)
}
