package node

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lwnode/lwnode/pkgs/transport"
)

// Timing and chunking constants, reproduced bit-for-bit from the source
// driver's I2C chunking and transaction delays.
const (
	chunkWriteSleepMS  = 100
	ackPrepareSleepMS  = 800
	ackPollSleepMS     = 1
	dataReadSleepMS    = 100
)

// sendAT executes exactly one request/response round-trip against the
// module: frame cmd with CRLF, chunk-write it, poll for an acknowledgment
// length, chunk-read the acknowledgment, and return it. interruptsEnabled
// is false for the duration of the call and restored on every exit path.
func (n *Node) sendAT(cmd string) ([]byte, error) {
	if cmd == "" || len(cmd)+2 > cmdBufCap {
		return nil, ErrInvalidArgument
	}

	txID := uuid.New().String()
	tx := make([]byte, 0, len(cmd)+2)
	tx = append(tx, cmd...)
	tx = append(tx, '\r', '\n')

	n.interruptsEnabled = false
	defer func() { n.interruptsEnabled = true }()

	logrus.Debugf("[%s] sendAT: %q", txID, cmd)

	if err := n.chunkedWrite(tx); err != nil {
		logrus.Debugf("[%s] sendAT: write failed: %v", txID, err)
		return nil, err
	}

	n.xport.SleepMS(ackPrepareSleepMS)

	ackLen, err := n.pollAckLength()
	if err != nil {
		logrus.Debugf("[%s] sendAT: ack poll failed: %v", txID, err)
		return nil, err
	}

	if err := n.chunkedReadAck(ackLen); err != nil {
		logrus.Debugf("[%s] sendAT: ack read failed: %v", txID, err)
		return nil, err
	}

	if ackLen < rxScratchCap {
		n.rxScratch[ackLen] = 0
	}

	ack := make([]byte, ackLen)
	copy(ack, n.rxScratch[:ackLen])
	logrus.Debugf("[%s] sendAT: ack %q", txID, ack)
	return ack, nil
}

// chunkedWrite writes tx in up-to-30-byte pieces: every chunk strictly
// longer than 30 remaining bytes goes to WRITE_AT_LONG (with a 100ms
// sleep between chunks); the last 1-30 bytes go to WRITE_AT.
func (n *Node) chunkedWrite(tx []byte) error {
	remaining := tx
	for len(remaining) > transport.MaxChunkBytes {
		if err := n.xport.Write(transport.WriteATLong, remaining[:transport.MaxChunkBytes]); err != nil {
			return ErrTransport
		}
		remaining = remaining[transport.MaxChunkBytes:]
		n.xport.SleepMS(chunkWriteSleepMS)
	}
	if err := n.xport.Write(transport.WriteAT, remaining); err != nil {
		return ErrTransport
	}
	return nil
}

// pollAckLength polls READ_AT_LEN up to 250 times, 1ms apart, until it
// returns a value in (0, 64]; values outside that range are retried.
func (n *Node) pollAckLength() (int, error) {
	var lenBuf [1]byte
	for attempt := 0; attempt < ackPollTries; attempt++ {
		if err := n.xport.Read(transport.ReadATLen, lenBuf[:]); err != nil {
			return 0, ErrTransport
		}
		l := int(lenBuf[0])
		if l == 0 || l > ackMaxLen {
			n.xport.SleepMS(ackPollSleepMS)
			continue
		}
		return l, nil
	}
	return 0, ErrTimeout
}

// chunkedReadAck reads n bytes from READ_AT in up-to-30-byte pieces into
// rxScratch.
func (n *Node) chunkedReadAck(length int) error {
	return n.chunkedRead(transport.ReadAT, n.rxScratch[:length])
}

// chunkedRead reads len(out) bytes from reg in up-to-30-byte pieces.
func (n *Node) chunkedRead(reg transport.Register, out []byte) error {
	offset := 0
	for len(out)-offset > transport.MaxChunkBytes {
		if err := n.xport.Read(reg, out[offset:offset+transport.MaxChunkBytes]); err != nil {
			return ErrTransport
		}
		offset += transport.MaxChunkBytes
	}
	if offset < len(out) {
		if err := n.xport.Read(reg, out[offset:]); err != nil {
			return ErrTransport
		}
	}
	return nil
}
