package node

import (
	"strings"
	"testing"

	"github.com/lwnode/lwnode/pkgs/transport"
)

func TestChunkedWriteSplitsAtThirtyBytes(t *testing.T) {
	xport := newMockTransport(func(cmd string) (string, bool) {
		return "+OK\r\n", true
	})
	n := New(xport)

	cmd := strings.Repeat("A", 65) // + CRLF = 67 bytes total
	if _, err := n.sendAT(cmd); err != nil {
		t.Fatalf("sendAT: %v", err)
	}

	if len(xport.writes) != 3 {
		t.Fatalf("got %d writes, want 3: %+v", len(xport.writes), xport.writes)
	}
	wantRegs := []transport.Register{transport.WriteATLong, transport.WriteATLong, transport.WriteAT}
	wantLens := []int{30, 30, 7}
	total := 0
	for i, w := range xport.writes {
		if w.reg != wantRegs[i] {
			t.Fatalf("write %d register = %v, want %v", i, w.reg, wantRegs[i])
		}
		if len(w.data) != wantLens[i] {
			t.Fatalf("write %d length = %d, want %d", i, len(w.data), wantLens[i])
		}
		total += len(w.data)
	}
	if total != len(cmd)+2 {
		t.Fatalf("total bytes written = %d, want %d", total, len(cmd)+2)
	}

	// one 100ms sleep after each long write (between consecutive chunks),
	// before the 800ms ack-preparation sleep.
	if len(xport.sleeps) < 3 || xport.sleeps[0] != chunkWriteSleepMS || xport.sleeps[1] != chunkWriteSleepMS || xport.sleeps[2] != ackPrepareSleepMS {
		t.Fatalf("sleeps = %v, want [100 100 800 ...]", xport.sleeps)
	}
}

func TestChunkedWriteExactMultipleOfThirty(t *testing.T) {
	xport := newMockTransport(func(cmd string) (string, bool) { return "+OK\r\n", true })
	n := New(xport)

	cmd := strings.Repeat("B", 58) // + CRLF = 60 bytes: an exact multiple of 30
	if _, err := n.sendAT(cmd); err != nil {
		t.Fatalf("sendAT: %v", err)
	}

	if len(xport.writes) != 2 {
		t.Fatalf("got %d writes, want 2: %+v", len(xport.writes), xport.writes)
	}
	if xport.writes[0].reg != transport.WriteATLong || len(xport.writes[0].data) != 30 {
		t.Fatalf("write 0 = %+v", xport.writes[0])
	}
	if xport.writes[1].reg != transport.WriteAT || len(xport.writes[1].data) != 30 {
		t.Fatalf("write 1 = %+v", xport.writes[1])
	}
}

func TestSendATTimesOutWhenAckNeverArrives(t *testing.T) {
	xport := newMockTransport(func(cmd string) (string, bool) { return "", false })
	n := New(xport)

	_, err := n.sendAT("AT")
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !n.interruptsEnabled {
		t.Fatal("interruptsEnabled must be restored to true after a timeout")
	}
}

func TestSendATRestoresInterruptsEnabledOnTransportFailure(t *testing.T) {
	xport := newMockTransport(okAck)
	xport.failWrite = ErrTransport
	n := New(xport)

	_, err := n.sendAT("AT")
	if err != ErrTransport {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if !n.interruptsEnabled {
		t.Fatal("interruptsEnabled must be restored to true after a transport failure")
	}
}

func TestSendATRestoresInterruptsEnabledOnSuccess(t *testing.T) {
	xport := newMockTransport(okAck)
	n := New(xport)

	if _, err := n.sendAT("AT"); err != nil {
		t.Fatalf("sendAT: %v", err)
	}
	if !n.interruptsEnabled {
		t.Fatal("interruptsEnabled must be true after a successful transaction")
	}
}

func TestSendATRejectsOversizedCommand(t *testing.T) {
	xport := newMockTransport(okAck)
	n := New(xport)

	oversized := strings.Repeat("A", cmdBufCap-1) // +2 exceeds cap
	if _, err := n.sendAT(oversized); err != ErrInvalidArgument {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if len(xport.writes) != 0 {
		t.Fatal("no bytes should reach the transport for a rejected command")
	}
}

func TestSendATRejectsEmptyCommand(t *testing.T) {
	xport := newMockTransport(okAck)
	n := New(xport)

	if _, err := n.sendAT(""); err != ErrInvalidArgument {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}
