package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
)

// Handshake is the immutable-after-handshake server greeting, captured
// once per spec.md §3.
type Handshake struct {
	ProtocolVersion   byte
	ServerVersion     string // raw, as sent by the server
	ServerVersionTuple [3]int
	ThreadID          uint32
	Scramble          []byte
	Capabilities      ClientFlag
	CharsetID         byte
	StatusFlags       StatusFlag
}

var serverVersionRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{1,3})`)

// ParseHandshake decodes the initial handshake packet (Protocol::Handshake).
// It also validates the server_version string against the version regex and
// rejects servers below protocol 4.1, per spec.md §3/§4.1.
func ParseHandshake(data []byte) (*Handshake, error) {
	if len(data) < 5 {
		return nil, ErrMalformPacket
	}
	body := data[4:]
	h := &Handshake{ProtocolVersion: body[0]}
	if h.ProtocolVersion < MinProtocolVersion {
		return nil, fmt.Errorf("protocol: unsupported handshake protocol version %d", h.ProtocolVersion)
	}

	nameEnd := bytes.IndexByte(body[1:], 0x00)
	if nameEnd < 0 {
		return nil, ErrMalformPacket
	}
	h.ServerVersion = string(body[1 : 1+nameEnd])

	m := serverVersionRe.FindStringSubmatch(h.ServerVersion)
	if m == nil {
		return nil, fmt.Errorf("protocol: could not parse server version %q", h.ServerVersion)
	}
	for i := 0; i < 3; i++ {
		fmt.Sscanf(m[i+1], "%d", &h.ServerVersionTuple[i])
	}
	if h.ServerVersionTuple[0] < 4 || (h.ServerVersionTuple[0] == 4 && h.ServerVersionTuple[1] < 1) {
		return nil, fmt.Errorf("protocol: MySQL version %q is not supported", h.ServerVersion)
	}

	pos := 1 + nameEnd + 1
	if len(body) < pos+4 {
		return nil, ErrMalformPacket
	}
	h.ThreadID = binary.LittleEndian.Uint32(body[pos : pos+4])
	pos += 4

	if len(body) < pos+8 {
		return nil, ErrMalformPacket
	}
	scramble := append([]byte{}, body[pos:pos+8]...)
	pos += 8 + 1 // scramble part 1, filler byte

	if len(body) < pos+2 {
		return nil, ErrMalformPacket
	}
	h.Capabilities = ClientFlag(binary.LittleEndian.Uint16(body[pos : pos+2]))
	if h.Capabilities&ClientProtocol41 == 0 {
		return nil, fmt.Errorf("protocol: server does not support protocol 4.1+")
	}
	pos += 2

	if len(body) > pos {
		if len(body) < pos+1+2+2+1+10 {
			return nil, ErrMalformPacket
		}
		h.CharsetID = body[pos]
		h.StatusFlags = StatusFlag(binary.LittleEndian.Uint16(body[pos+1 : pos+3]))
		h.Capabilities |= ClientFlag(binary.LittleEndian.Uint16(body[pos+3:pos+5])) << 16
		pos += 1 + 2 + 2 + 1 + 10

		// second part of scramble: NUL-terminated, at least 12 bytes + NUL
		if len(body) >= pos+12 {
			scramble = append(scramble, body[pos:pos+12]...)
		}
	}
	h.Scramble = scramble
	return h, nil
}
