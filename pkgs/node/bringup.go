package node

import (
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lwnode/lwnode/pkgs/transport"
)

const (
	rebootSleepMS  = 100
	probeSleepMS   = 10
	probeMaxTries  = 100
)

// Begin resets the hardware, retries an AT probe until responsive, applies
// global settings, then branches on join mode to push the appropriate
// credentials. Join, IsJoined and SendBytes return ErrNotInitialized until
// Begin has succeeded; SleepMS and ReadData do not check.
func (n *Node) Begin() error {
	if _, err := n.sendAT("AT+REBOOT"); err != nil {
		logrus.Debug("lwnode: Begin: AT+REBOOT ack ignored")
	}
	n.xport.SleepMS(rebootSleepMS)

	responsive := false
	for attempt := 0; attempt < probeMaxTries; attempt++ {
		ack, err := n.sendAT("AT")
		if err == nil && string(ack) == "OK\r\n" {
			responsive = true
			break
		}
		n.xport.SleepMS(probeSleepMS)
	}
	if !responsive {
		return ErrTimeout
	}

	if _, err := n.sendAT("AT+RECV=1"); err != nil {
		logrus.Debug("lwnode: Begin: AT+RECV=1 ack ignored")
	}

	if err := n.sendSetter("LORAMODE", "LORAWAN"); err != nil {
		return err
	}

	switch n.joinMode {
	case ABP:
		if err := n.sendSetter("JOINTYPE", "ABP"); err != nil {
			return err
		}
		if n.nwkSKey != "" {
			if err := n.sendSetter("NWKSKEY", n.nwkSKey); err != nil {
				return err
			}
		}
		if n.appSKey != "" {
			if err := n.sendSetter("APPSKEY", n.appSKey); err != nil {
				return err
			}
		}
		if n.devAddr != 0 {
			if err := n.sendSetter("DEVADDR", hexU32(n.devAddr)); err != nil {
				return err
			}
		}
	case OTAA:
		if err := n.sendSetter("JOINTYPE", "OTAA"); err != nil {
			return err
		}
		if n.appEUI != "" {
			if err := n.sendSetter("JOINEUI", n.appEUI); err != nil {
				return err
			}
		}
		if n.appKey != "" {
			if err := n.sendSetter("APPKEY", n.appKey); err != nil {
				return err
			}
		}
	}

	n.isInitialized = true
	return nil
}

// Join requests a network join (OTAA or ABP, whichever was last applied by
// Begin).
func (n *Node) Join() error {
	if !n.isInitialized {
		return ErrNotInitialized
	}
	n.state = StateJoining
	defer func() { n.state = StateIdle }()

	return n.sendSetter("JOIN", "1")
}

// IsJoined queries the module's current join status.
func (n *Node) IsJoined() (bool, error) {
	if !n.isInitialized {
		return false, ErrNotInitialized
	}
	ack, err := n.sendAT("AT+JOIN?")
	if err != nil {
		return false, err
	}
	return string(ack) == "+JOIN=1\r\n", nil
}

// SendBytes hex-encodes data as uppercase ASCII and transmits it via
// AT+SEND. len(data) must be in [1,256], and the framed command (with CRLF)
// must fit cmdBufCap, so in practice at most 255 bytes are sent; a 256-byte
// payload is rejected with ErrInvalidArgument. Either "+SEND=OK\r\n" or
// "AT+SEND=OK\r\n" is accepted as success (the module has been observed to
// echo the command ahead of its ack).
func (n *Node) SendBytes(data []byte) error {
	if len(data) == 0 || len(data) > maxPacketLen {
		return ErrInvalidArgument
	}
	if !n.isInitialized {
		return ErrNotInitialized
	}

	hexPayload := strings.ToUpper(hex.EncodeToString(data))
	cmd := "AT+SEND=" + hexPayload
	if len(cmd)+2 > cmdBufCap {
		return ErrInvalidArgument
	}

	n.state = StateSending
	defer func() { n.state = StateIdle }()

	ack, err := n.sendAT(cmd)
	if err != nil {
		return err
	}
	s := string(ack)
	if s == "+SEND=OK\r\n" || s == "AT+SEND=OK\r\n" {
		return nil
	}
	return ErrProtocolMismatch
}

// dataReadPrimitive reads READ_DATA_LEN; if it reports a length in
// (0,128] that fits rx_scratch, it sleeps 100ms and chunk-reads that many
// bytes from READ_DATA. Returns 0 (no error) when nothing is pending.
func (n *Node) dataReadPrimitive() (int, error) {
	var lenBuf [1]byte
	if err := n.xport.Read(transport.ReadDataLen, lenBuf[:]); err != nil {
		return 0, ErrTransport
	}
	l := int(lenBuf[0])
	if l == 0 {
		return 0, nil
	}
	if l > dataReadCap || l > rxScratchCap {
		return 0, nil
	}

	n.xport.SleepMS(dataReadSleepMS)
	if err := n.chunkedRead(transport.ReadData, n.rxScratch[:l]); err != nil {
		return 0, err
	}
	return l, nil
}

// SleepMS suspends for up to ms milliseconds. With no receive handler
// registered, it sleeps in 100ms (or shorter tail) increments. With a
// handler registered, it ticks every 1ms, attempting one data-read per
// tick and routing any returned buffer through the frame parser — this is
// the only mechanism by which downlinks reach the callback.
func (n *Node) SleepMS(ms uint32) error {
	if n.rxHandler == nil {
		for remaining := ms; remaining > 0; {
			step := uint32(100)
			if remaining < step {
				step = remaining
			}
			n.xport.SleepMS(step)
			remaining -= step
		}
		return nil
	}

	n.state = StateRecvWindow
	defer func() { n.state = StateIdle }()

	for remaining := ms; remaining > 0; remaining-- {
		n.xport.SleepMS(1)
		l, err := n.dataReadPrimitive()
		if err != nil {
			return err
		}
		if l > 0 {
			buf := make([]byte, l)
			copy(buf, n.rxScratch[:l])
			_ = n.processFrames(buf)
		}
	}
	return nil
}

// ReadData performs a single synchronous poll for a pending downlink. If a
// buffer longer than the 9-byte metadata header comes back, it decodes
// RSSI (byte 6) and SNR (byte 7) using the same sign/bias rules as the
// frame parser, then copies the payload tail (offset 9) into out,
// truncating to len(out). No callback is invoked on this path.
func (n *Node) ReadData(out []byte) (int, error) {
	n.state = StateRecvWindow
	defer func() { n.state = StateIdle }()

	l, err := n.dataReadPrimitive()
	if err != nil {
		return 0, err
	}
	if l <= dataHeaderLen {
		return 0, nil
	}

	rssi, snr := decodeMetadata(n.rxScratch[rssiHdrIndex], n.rxScratch[snrHdrIndex])
	n.lastRSSI = rssi
	n.lastSNR = snr

	payload := n.rxScratch[dataHeaderLen:l]
	copied := copy(out, payload)
	return copied, nil
}
