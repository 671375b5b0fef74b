package node

import (
	"strings"

	"github.com/lwnode/lwnode/pkgs/transport"
)

// mockTransport is a recording transport.Transport. All handshake state is
// threaded through the instance (per spec.md §9's design note on avoiding
// process-wide globals in test mocks).
type mockTransport struct {
	// writes records every Write call in order, tagged by register.
	writes []mockWrite

	// sleeps records every SleepMS argument in order.
	sleeps []uint32

	// onCommand decides the acknowledgment for a fully-received command
	// (CRLF already stripped). Returning ok=false simulates a module that
	// never answers (ack-poll timeout).
	onCommand func(cmd string) (ack string, ok bool)

	// failWrite, if set, is returned by every Write call.
	failWrite error
	// failRead, if set, is returned by every Read call.
	failRead error

	// dataQueue is a queue of raw READ_DATA buffers delivered one at a
	// time as the data-read primitive is invoked.
	dataQueue [][]byte

	cmdBuf    []byte
	commands  []string
	ack       []byte
	ackCursor int
	ackReady  bool

	data       []byte
	dataCursor int
}

type mockWrite struct {
	reg  transport.Register
	data []byte
}

func newMockTransport(onCommand func(cmd string) (string, bool)) *mockTransport {
	return &mockTransport{onCommand: onCommand}
}

func (m *mockTransport) Write(reg transport.Register, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes = append(m.writes, mockWrite{reg: reg, data: cp})

	if m.failWrite != nil {
		return m.failWrite
	}

	switch reg {
	case transport.WriteATLong, transport.WriteAT:
		m.cmdBuf = append(m.cmdBuf, data...)
		if reg == transport.WriteAT {
			full := strings.TrimSuffix(string(m.cmdBuf), "\r\n")
			m.commands = append(m.commands, full)
			m.cmdBuf = nil

			ack, ok := "", false
			if m.onCommand != nil {
				ack, ok = m.onCommand(full)
			}
			m.ack = []byte(ack)
			m.ackCursor = 0
			m.ackReady = ok
		}
	}
	return nil
}

func (m *mockTransport) Read(reg transport.Register, out []byte) error {
	if m.failRead != nil {
		return m.failRead
	}

	switch reg {
	case transport.ReadATLen:
		if !m.ackReady {
			out[0] = 0
			return nil
		}
		out[0] = byte(len(m.ack))
	case transport.ReadAT:
		n := copy(out, m.ack[m.ackCursor:])
		m.ackCursor += n
	case transport.ReadDataLen:
		if m.data == nil {
			if len(m.dataQueue) == 0 {
				out[0] = 0
				return nil
			}
			m.data = m.dataQueue[0]
			m.dataQueue = m.dataQueue[1:]
			m.dataCursor = 0
		}
		out[0] = byte(len(m.data))
	case transport.ReadData:
		n := copy(out, m.data[m.dataCursor:])
		m.dataCursor += n
		if m.dataCursor >= len(m.data) {
			m.data = nil
		}
	}
	return nil
}

func (m *mockTransport) SleepMS(ms uint32) {
	m.sleeps = append(m.sleeps, ms)
}

// okAck is a convenience onCommand building "+KEY=OK\r\n" for every command
// of the form "AT+KEY=...", and "OK\r\n" for the bare "AT" probe.
func okAck(cmd string) (string, bool) {
	if cmd == "AT" {
		return "OK\r\n", true
	}
	if !strings.HasPrefix(cmd, "AT+") {
		return "", false
	}
	rest := strings.TrimPrefix(cmd, "AT+")
	key := rest
	if idx := strings.Index(rest, "="); idx >= 0 {
		key = rest[:idx]
	}
	return "+" + key + "=OK\r\n", true
}
