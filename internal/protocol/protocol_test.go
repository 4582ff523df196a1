package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 250, 251, 0xfff, 0xffff, 0x10000, 0xffffff, 0x1000000, 1 << 40}
	for _, n := range cases {
		buf := AppendLengthEncodedInteger(nil, n)
		got, isNull, consumed := ReadLengthEncodedInteger(buf)
		assert.False(t, isNull)
		assert.Equal(t, n, got, "n=%d", n)
		assert.Equal(t, len(buf), consumed, "n=%d", n)
	}
}

func TestReadLengthEncodedIntegerNull(t *testing.T) {
	_, isNull, n := ReadLengthEncodedInteger([]byte{0xfb})
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
}

func TestScramblePasswordEmpty(t *testing.T) {
	assert.Nil(t, ScramblePassword([]byte("12345678901234567890"), nil))
}

func TestScramblePasswordDeterministic(t *testing.T) {
	scramble := []byte("01234567890123456789")
	a := ScramblePassword(scramble, []byte("secret"))
	b := ScramblePassword(scramble, []byte("secret"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 20)

	other := ScramblePassword(scramble, []byte("different"))
	assert.NotEqual(t, a, other)
}

func TestParseHandshakeRejectsOldProtocol(t *testing.T) {
	data := []byte{0, 0, 0, 0, 9}
	_, err := ParseHandshake(data)
	assert.Error(t, err)
}

func TestMakeStmtExecuteNoParams(t *testing.T) {
	pkt := MakeStmtExecute(7, nil, 0)
	require.Len(t, pkt, 4+1+4+1+4+1)
	assert.Equal(t, ComStmtExecute, pkt[4])
}

func TestMakeStmtExecuteWithParams(t *testing.T) {
	params := []Param{
		{Value: int64(42)},
		{Value: "hello"},
		{Value: nil},
	}
	pkt := MakeStmtExecute(99, params, 0)
	assert.Equal(t, ComStmtExecute, pkt[4])
	// null bitmap covers 3 params -> 1 byte; third param (index 2) is null
	nullBitmapByte := pkt[14]
	assert.Equal(t, byte(1<<2), nullBitmapByte)
}

func TestMakeStmtSendLongData(t *testing.T) {
	chunk := []byte("streamed-bytes")
	pkt := MakeStmtSendLongData(3, 1, chunk)
	assert.Equal(t, ComStmtSendLongData, pkt[4])
	assert.Equal(t, chunk, pkt[11:])
}

func TestMakeChangeUser(t *testing.T) {
	scramble := []byte("01234567890123456789")
	pkt := MakeChangeUser("bob", "secret", "mydb", 33, scramble)
	assert.Equal(t, ComChangeUser, pkt[4])
}

func TestParseError(t *testing.T) {
	errPkt := []byte{0, 0, 0, 0, IERR, 0x16, 0x04, '#', 'H', 'Y', '0', '0', '0'}
	errPkt = append(errPkt, []byte("Access denied")...)
	mysqlErr, err := ParseError(errPkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0416), mysqlErr.Number)
	assert.Equal(t, "Access denied", mysqlErr.Message)
}
