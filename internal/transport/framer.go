package transport

import (
	"crypto/tls"
	"errors"
	"net"
	"time"
)

// MaxPacketSize is the largest payload a single physical packet can carry;
// bigger payloads are split across multiple physical packets sharing one
// logical packet (see plainFramer's Recv/Send).
const MaxPacketSize = 1<<24 - 1

var (
	// ErrMalformPkt is returned when a packet's length prefix is invalid.
	ErrMalformPkt = errors.New("malformed packet")
	// ErrPktSync is returned when a received packet's sequence number is
	// behind what the framer expects.
	ErrPktSync = errors.New("commands out of sync; you can't run this command now")
	// ErrPktSyncMul is returned when a received packet's sequence number is
	// ahead of what the framer expects, typically because the caller issued
	// multiple statements without draining all of their results.
	ErrPktSyncMul = errors.New("commands out of sync; did you run multiple statements at once?")
	// ErrPktTooLarge is returned when a caller tries to send a payload
	// larger than the negotiated max_allowed_packet.
	ErrPktTooLarge = errors.New("packet for query is too large; raise max_allowed_packet on the server")
)

// Framer is the packet-framing contract the connection core depends on. It
// is deliberately small: the core owns session semantics (sequence reset on
// new command, charset, compression choice) and drives this interface
// mechanically. Two implementations exist: plainFramer and
// compressedFramer, selected once after the handshake — never swapped at
// runtime via field reassignment the way the teacher driver's upstream
// cousins do it with monkey-patched recv/send.
type Framer interface {
	// Recv reads one complete logical packet (reassembling any split
	// physical packets) and returns its payload with the 4-byte header
	// preserved, so byte[4] is the packet type tag.
	Recv() ([]byte, error)
	// Send writes data (with a 4-byte header reserved at the front) as one
	// or more physical packets. If seq >= 0 the sequence counter is reset
	// to seq before sending; pass -1 to continue the current sequence.
	Send(data []byte, seq int) error
	// SwitchToTLS upgrades the underlying connection in place. It must be
	// called after an SSL-request packet has been sent and before the auth
	// packet is sent.
	SwitchToTLS(cfg *tls.Config) error
	// SetTimeout applies a deadline to subsequent reads and writes. A zero
	// duration disables the timeout.
	SetTimeout(d time.Duration)
	// Close closes the underlying connection.
	Close() error
	// Sequence returns the current expected sequence number.
	Sequence() uint8
	// ResetSequence sets the sequence counter, used when a command is about
	// to be sent with packet_number=0.
	ResetSequence()
	// TakeBuffer exposes the internal scratch buffer so the codec can build
	// packets without an extra allocation on the hot path.
	TakeBuffer(length int) []byte
	TakeCompleteBuffer() []byte
	// UnderlyingConn returns the raw net.Conn this framer writes to,
	// post any TLS upgrade. The connection core uses this exactly once,
	// to hand the same already-authenticated socket to a
	// compressedFramer when CLIENT_COMPRESS was negotiated.
	UnderlyingConn() net.Conn
}

// plainFramer frames packets directly over a net.Conn.
type plainFramer struct {
	conn     net.Conn
	buf      buffer
	sequence uint8
	timeout  time.Duration
}

// NewPlainFramer wraps an already-dialed connection.
func NewPlainFramer(conn net.Conn) Framer {
	return &plainFramer{
		conn: conn,
		buf:  newBuffer(conn),
	}
}

func (f *plainFramer) Sequence() uint8   { return f.sequence }
func (f *plainFramer) ResetSequence()    { f.sequence = 0 }
func (f *plainFramer) TakeBuffer(n int) []byte         { return f.buf.takeBuffer(n) }
func (f *plainFramer) TakeCompleteBuffer() []byte      { return f.buf.takeCompleteBuffer() }

func (f *plainFramer) SetTimeout(d time.Duration) {
	f.timeout = d
}

func (f *plainFramer) applyDeadline() {
	if f.timeout <= 0 {
		f.conn.SetDeadline(time.Time{})
		return
	}
	f.conn.SetDeadline(time.Now().Add(f.timeout))
}

func (f *plainFramer) Recv() ([]byte, error) {
	f.applyDeadline()
	var payload []byte
	for {
		header, err := f.buf.readNext(4)
		if err != nil {
			return nil, err
		}
		pktLen := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
		if pktLen < 0 {
			return nil, ErrMalformPkt
		}
		if header[3] != f.sequence {
			if header[3] > f.sequence {
				return nil, ErrPktSyncMul
			}
			return nil, ErrPktSync
		}
		f.sequence++

		var body []byte
		if pktLen > 0 {
			body, err = f.buf.readNext(pktLen)
			if err != nil {
				return nil, err
			}
		}

		isLast := pktLen < MaxPacketSize
		if isLast && payload == nil {
			// prepend the 4-byte header so byte[4] (index 4 of the
			// returned slice) is the packet type tag, per the framer
			// contract in spec.md §6.
			full := make([]byte, 4+len(body))
			copy(full[4:], body)
			return full, nil
		}
		payload = append(payload, body...)
		if isLast {
			full := make([]byte, 4+len(payload))
			copy(full[4:], payload)
			return full, nil
		}
	}
}

func (f *plainFramer) Send(data []byte, seq int) error {
	f.applyDeadline()
	if seq >= 0 {
		f.sequence = uint8(seq)
	}
	pktLen := len(data) - 4
	for {
		var size int
		if pktLen >= MaxPacketSize {
			data[0], data[1], data[2] = 0xff, 0xff, 0xff
			size = MaxPacketSize
		} else {
			data[0] = byte(pktLen)
			data[1] = byte(pktLen >> 8)
			data[2] = byte(pktLen >> 16)
			size = pktLen
		}
		data[3] = f.sequence

		n, err := f.conn.Write(data[:4+size])
		if err != nil {
			return err
		}
		if n != 4+size {
			return ErrMalformPkt
		}
		f.sequence++
		if size != MaxPacketSize {
			return nil
		}
		pktLen -= size
		data = data[size:]
	}
}

func (f *plainFramer) SwitchToTLS(cfg *tls.Config) error {
	tlsConn := tls.Client(f.conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	f.conn = tlsConn
	f.buf = newBuffer(tlsConn)
	return nil
}

func (f *plainFramer) Close() error {
	return f.conn.Close()
}

func (f *plainFramer) UnderlyingConn() net.Conn { return f.conn }
