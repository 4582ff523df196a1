package protocol

import (
	"crypto/sha1"
)

// ScramblePassword computes the mysql_native_password response:
// SHA1(password) XOR SHA1(scramble + SHA1(SHA1(password))).
// Grounded on the teacher driver's auth handling (packets.go calls
// scramblePassword but the function body wasn't part of the retrieved
// teacher file set; reconstructed to the documented algorithm at
// dev.mysql.com/doc/internals/en/secure-password-authentication.html).
func ScramblePassword(scramble []byte, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}

	stage1 := sha1.Sum(password)
	stage2 := sha1.Sum(stage1[:])

	h := sha1.New()
	h.Write(scramble)
	h.Write(stage2[:])
	result := h.Sum(nil)

	for i := range result {
		result[i] ^= stage1[i]
	}
	return result
}

// BuildAuthSSLRequest builds the SSLRequest packet (charset + client flags
// only, no username/password) sent before the TLS handshake so the core can
// upgrade the framer, per spec.md §4.1 step 4.
func BuildAuthSSLRequest(buf []byte, clientFlags ClientFlag, charset byte) []byte {
	const pktLen = 4 + 4 + 4 + 1 + 23
	if len(buf) < pktLen {
		buf = make([]byte, pktLen)
	}
	buf = buf[:pktLen]
	putUint32(buf[4:8], uint32(clientFlags|ClientSSL))
	buf[8], buf[9], buf[10], buf[11] = 0, 0, 0, 0
	buf[12] = charset
	for i := 13; i < pktLen; i++ {
		buf[i] = 0
	}
	return buf
}

// BuildAuthResponseWithPassword builds the client auth packet: capability
// flags, max packet size, charset, a 23-byte filler, the username, the
// scrambled password (length-prefixed), optional database name, and the
// auth plugin name.
func BuildAuthResponseWithPassword(clientFlags ClientFlag, charset byte, user, password, db string, scramble []byte) []byte {
	scrambleBuf := ScramblePassword(scramble, []byte(password))

	pktLen := 4 + 4 + 4 + 1 + 23 + len(user) + 1 + 1 + len(scrambleBuf) + len("mysql_native_password") + 1
	if db != "" {
		clientFlags |= ClientConnectWithDB
		pktLen += len(db) + 1
	}

	data := make([]byte, pktLen)
	putUint32(data[4:8], uint32(clientFlags))
	data[8], data[9], data[10], data[11] = 0, 0, 0, 0
	data[12] = charset

	pos := 13
	for ; pos < 13+23; pos++ {
		data[pos] = 0
	}

	pos += copy(data[pos:], user)
	data[pos] = 0
	pos++

	data[pos] = byte(len(scrambleBuf))
	pos++
	pos += copy(data[pos:], scrambleBuf)

	if db != "" {
		pos += copy(data[pos:], db)
		data[pos] = 0
		pos++
	}

	pos += copy(data[pos:], "mysql_native_password")
	data[pos] = 0

	return data
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
