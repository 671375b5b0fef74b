// Package simtransport implements transport.Transport over a TCP connection
// to cmd/lwnode-sim, framing every register operation with code.hybscloud.com/framer
// so development and CI can exercise the node package without real hardware.
package simtransport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"code.hybscloud.com/framer"

	"github.com/lwnode/lwnode/pkgs/transport"
)

// opKind distinguishes a write request from a read request on the wire;
// the simulator answers a read with the register's current bytes and a
// write with a single ack byte.
type opKind byte

const (
	opWrite opKind = 1
	opRead  opKind = 2
)

// Transport dials a running lwnode-sim instance and speaks one framed
// message per Write/Read call.
type Transport struct {
	conn net.Conn
	rw   io.ReadWriter
}

// Dial connects to a lwnode-sim listener at addr (host:port).
func Dial(addr string) (*Transport, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("simtransport: dial %s: %w", addr, err)
	}
	return &Transport{conn: conn, rw: framer.NewReadWriter(conn, conn)}, nil
}

// Close releases the underlying connection.
func (t *Transport) Close() error { return t.conn.Close() }

// Write sends reg and data as one framed message and waits for a one-byte
// ack; a non-zero ack byte is surfaced as an error.
func (t *Transport) Write(reg transport.Register, data []byte) error {
	msg := make([]byte, 2+len(data))
	msg[0] = byte(opWrite)
	msg[1] = byte(reg)
	copy(msg[2:], data)
	if _, err := t.rw.Write(msg); err != nil {
		return fmt.Errorf("simtransport: write: %w", err)
	}

	var ack [1]byte
	if _, err := t.rw.Read(ack[:]); err != nil {
		return fmt.Errorf("simtransport: write ack: %w", err)
	}
	if ack[0] != 0 {
		return fmt.Errorf("simtransport: simulator rejected write to register 0x%02X", reg)
	}
	return nil
}

// Read requests the current contents of reg and copies up to len(out)
// bytes of the reply into out.
func (t *Transport) Read(reg transport.Register, out []byte) error {
	req := [2]byte{byte(opRead), byte(reg)}
	if _, err := t.rw.Write(req[:]); err != nil {
		return fmt.Errorf("simtransport: read request: %w", err)
	}

	var lenBuf [2]byte
	if _, err := t.rw.Read(lenBuf[:]); err != nil {
		return fmt.Errorf("simtransport: read length: %w", err)
	}
	n := int(binary.BigEndian.Uint16(lenBuf[:]))
	if n == 0 {
		return nil
	}
	reply := make([]byte, n)
	if _, err := t.rw.Read(reply); err != nil {
		return fmt.Errorf("simtransport: read payload: %w", err)
	}
	copy(out, reply)
	return nil
}

// SleepMS blocks the calling goroutine for ms milliseconds, same as a real
// module's busy-wait from the caller's point of view.
func (t *Transport) SleepMS(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

var _ transport.Transport = (*Transport)(nil)
