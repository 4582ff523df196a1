// Package transport is the packet framer the connection core consumes: it
// turns a stream into length-prefixed packets, tracks the per-command
// sequence number, and can be upgraded in place to TLS or compression.
package transport

import "io"

const defaultBufSize = 4096

// buffer is a small read buffer in front of an io.Reader, grounded on the
// teacher driver's own internal buffer: it exists so that small reads
// (packet headers) don't each cost a syscall, and so that a single
// right-sized byte slice can be reused across writes instead of allocating
// one per packet.
type buffer struct {
	buf []byte
	rd  io.Reader
	idx int
	len int
}

func newBuffer(rd io.Reader) buffer {
	return buffer{
		buf: make([]byte, defaultBufSize),
		rd:  rd,
	}
}

// fill reads at least n bytes into the buffer, growing it if necessary.
func (b *buffer) fill(n int) error {
	// move existing data to the front
	if b.len > 0 && b.idx > 0 {
		copy(b.buf[0:b.len], b.buf[b.idx:b.idx+b.len])
	}
	b.idx = 0

	if cap(b.buf) < n {
		newBuf := make([]byte, n)
		copy(newBuf, b.buf[:b.len])
		b.buf = newBuf
	} else if len(b.buf) < n {
		b.buf = b.buf[:cap(b.buf)]
	}

	for {
		got, err := b.rd.Read(b.buf[b.len:cap(b.buf)])
		b.len += got
		if b.len >= n {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readNext returns a slice of the next n bytes. The slice is only valid
// until the next call to readNext.
func (b *buffer) readNext(n int) ([]byte, error) {
	if b.len < n {
		if err := b.fill(n); err != nil {
			return nil, err
		}
	}
	data := b.buf[b.idx : b.idx+n]
	b.idx += n
	b.len -= n
	return data, nil
}

// takeBuffer returns a slice of size length, reusing the internal buffer
// when it isn't in flight; callers write packet payload into data[4:].
func (b *buffer) takeBuffer(length int) []byte {
	if b.len > 0 {
		return make([]byte, length)
	}
	if cap(b.buf) < length {
		b.buf = make([]byte, length)
		return b.buf
	}
	return b.buf[:length]
}

// takeSmallBuffer is takeBuffer for the common case of small, fixed-size
// command packets.
func (b *buffer) takeSmallBuffer(length int) []byte {
	return b.takeBuffer(length)
}

// takeCompleteBuffer returns the whole backing array so a caller that
// doesn't know the final payload size up front (interpolation, execute
// packets) can grow into it.
func (b *buffer) takeCompleteBuffer() []byte {
	if b.len > 0 {
		return nil
	}
	return b.buf
}
