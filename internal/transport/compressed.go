package transport

import (
	"bytes"
	"compress/zlib"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"
)

// compressedFramer wraps a plainFramer, adding the MySQL compressed packet
// envelope (3-byte compressed length, 1-byte compression sequence, 3-byte
// uncompressed length) around the normal packet stream. It is selected
// once, after the handshake, when both sides negotiated CLIENT_COMPRESS —
// see spec.md §9 "Compression swap": a distinct type, not a monkey-patched
// method pointer.
type compressedFramer struct {
	conn    net.Conn
	rdBuf   buffer
	compSeq uint8
	pending []byte // uncompressed bytes read but not yet consumed by Recv
	timeout time.Duration
	inner   *plainFramer // reuses plainFramer's sequence bookkeeping over the decompressed stream
}

// NewCompressedFramer upgrades a framer to use the compressed protocol.
// The passed conn must be the same underlying connection the original
// plain framer was using (post any TLS upgrade).
func NewCompressedFramer(conn net.Conn) Framer {
	cf := &compressedFramer{
		conn:  conn,
		rdBuf: newBuffer(conn),
	}
	cf.inner = &plainFramer{conn: conn}
	return cf
}

func (f *compressedFramer) Sequence() uint8 { return f.inner.sequence }
func (f *compressedFramer) ResetSequence()  { f.inner.sequence = 0; f.compSeq = 0 }
func (f *compressedFramer) TakeBuffer(n int) []byte    { return make([]byte, n) }
func (f *compressedFramer) TakeCompleteBuffer() []byte { return nil }

func (f *compressedFramer) SetTimeout(d time.Duration) {
	f.timeout = d
	f.conn.SetDeadline(time.Time{})
}

func (f *compressedFramer) applyDeadline() {
	if f.timeout <= 0 {
		f.conn.SetDeadline(time.Time{})
		return
	}
	f.conn.SetDeadline(time.Now().Add(f.timeout))
}

// readCompressedFrame reads one compression-envelope frame and returns its
// decompressed payload (one or more normal packets concatenated).
func (f *compressedFramer) readCompressedFrame() ([]byte, error) {
	header, err := f.rdBuf.readNext(7)
	if err != nil {
		return nil, err
	}
	compLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	f.compSeq = header[3] + 1
	uncompLen := int(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16)

	body, err := f.rdBuf.readNext(compLen)
	if err != nil {
		return nil, err
	}

	if uncompLen == 0 {
		// server chose not to compress this frame
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, uncompLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *compressedFramer) Recv() ([]byte, error) {
	f.applyDeadline()
	for len(f.pending) < 4 {
		frame, err := f.readCompressedFrame()
		if err != nil {
			return nil, err
		}
		f.pending = append(f.pending, frame...)
	}

	pktLen := int(uint32(f.pending[0]) | uint32(f.pending[1])<<8 | uint32(f.pending[2])<<16)
	need := 4 + pktLen
	for len(f.pending) < need {
		frame, err := f.readCompressedFrame()
		if err != nil {
			return nil, err
		}
		f.pending = append(f.pending, frame...)
	}

	seq := f.pending[3]
	if seq != f.inner.sequence {
		if seq > f.inner.sequence {
			return nil, ErrPktSyncMul
		}
		return nil, ErrPktSync
	}
	f.inner.sequence++

	packet := make([]byte, need)
	copy(packet, f.pending[:need])
	f.pending = f.pending[need:]
	return packet, nil
}

// writeCompressedFrame wraps raw bytes (one or more normal packets) in the
// compression envelope and writes it to the wire. Payloads under 50 bytes
// are sent uncompressed (uncompLen=0) per the protocol convention — not
// worth paying zlib's overhead on tiny packets.
func (f *compressedFramer) writeCompressedFrame(raw []byte) error {
	var body []byte
	uncompLen := 0
	if len(raw) >= 50 {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		body = buf.Bytes()
		uncompLen = len(raw)
	} else {
		body = raw
	}

	header := make([]byte, 7)
	compLen := len(body)
	header[0] = byte(compLen)
	header[1] = byte(compLen >> 8)
	header[2] = byte(compLen >> 16)
	header[3] = f.compSeq
	header[4] = byte(uncompLen)
	header[5] = byte(uncompLen >> 8)
	header[6] = byte(uncompLen >> 16)
	f.compSeq++

	if _, err := f.conn.Write(header); err != nil {
		return err
	}
	_, err := f.conn.Write(body)
	return err
}

func (f *compressedFramer) Send(data []byte, seq int) error {
	f.applyDeadline()
	if seq >= 0 {
		f.inner.sequence = uint8(seq)
	}
	pktLen := len(data) - 4
	data[0] = byte(pktLen)
	data[1] = byte(pktLen >> 8)
	data[2] = byte(pktLen >> 16)
	data[3] = f.inner.sequence
	f.inner.sequence++
	return f.writeCompressedFrame(data)
}

// SwitchToTLS is not meaningful on a compressed framer: TLS upgrade, per
// spec.md §3, happens strictly between the auth-SSL-request and the auth
// packet — always before compression is negotiated and swapped in.
func (f *compressedFramer) SwitchToTLS(cfg *tls.Config) error {
	return errors.New("transport: cannot switch to TLS after compression negotiated")
}

func (f *compressedFramer) Close() error {
	return f.conn.Close()
}

func (f *compressedFramer) UnderlyingConn() net.Conn { return f.conn }
