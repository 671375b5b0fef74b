// Command lwnode-sim is a TCP-hosted AT-command module simulator. It speaks
// the same framed register protocol as pkgs/simtransport, so a Node built
// with simtransport.Dial can Begin/Join/SendBytes/SleepMS against it exactly
// as it would against real hardware.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"net"
	"strings"

	"code.hybscloud.com/framer"
	"github.com/sirupsen/logrus"

	"github.com/lwnode/lwnode/pkgs/transport"
)

type opKind byte

const (
	opWrite opKind = 1
	opRead  opKind = 2
)

// session tracks one simulated module instance: the command currently
// being assembled over WriteATLong/WriteAT, its pending ack, and a queue
// of downlink frames served over ReadDataLen/ReadData. Nothing in the
// simulator adds to that queue, so it always reports no pending downlink.
type session struct {
	cmdBuf []byte
	ack    []byte
	joined bool

	downlinks [][]byte
}

func (s *session) handleWrite(reg transport.Register, data []byte) {
	switch reg {
	case transport.WriteATLong, transport.WriteAT:
		s.cmdBuf = append(s.cmdBuf, data...)
		if reg == transport.WriteAT {
			cmd := strings.TrimSuffix(string(s.cmdBuf), "\r\n")
			s.cmdBuf = nil
			s.ack = []byte(s.respondTo(cmd))
		}
	}
}

func (s *session) respondTo(cmd string) string {
	logrus.Debugf("lwnode-sim: received %q", cmd)

	switch {
	case cmd == "AT":
		return "OK\r\n"
	case cmd == "AT+REBOOT":
		return "OK\r\n"
	case cmd == "AT+JOIN=1":
		s.joined = true
		return "+JOIN=OK\r\n"
	case cmd == "AT+JOIN?":
		if s.joined {
			return "+JOIN=1\r\n"
		}
		return "+JOIN=0\r\n"
	case strings.HasPrefix(cmd, "AT+SEND="):
		return "+SEND=OK\r\n"
	case strings.HasPrefix(cmd, "AT+"):
		rest := strings.TrimPrefix(cmd, "AT+")
		key := rest
		if i := strings.Index(rest, "="); i >= 0 {
			key = rest[:i]
		}
		return "+" + key + "=OK\r\n"
	default:
		return "+ERR\r\n"
	}
}

func (s *session) handleRead(reg transport.Register) []byte {
	switch reg {
	case transport.ReadATLen:
		return []byte{byte(len(s.ack))}
	case transport.ReadAT:
		out := s.ack
		s.ack = nil
		return out
	case transport.ReadDataLen:
		if len(s.downlinks) == 0 {
			return []byte{0}
		}
		return []byte{byte(len(s.downlinks[0]))}
	case transport.ReadData:
		if len(s.downlinks) == 0 {
			return nil
		}
		out := s.downlinks[0]
		s.downlinks = s.downlinks[1:]
		return out
	default:
		return nil
	}
}

func serve(conn net.Conn) {
	defer conn.Close()
	rw := framer.NewReadWriter(conn, conn)
	s := &session{}

	for {
		msg := make([]byte, 1024)
		n, err := rw.Read(msg)
		if err != nil {
			if err != io.EOF {
				logrus.Debugf("lwnode-sim: connection closed: %v", err)
			}
			return
		}
		if n < 2 {
			continue
		}
		kind := opKind(msg[0])
		reg := transport.Register(msg[1])
		payload := msg[2:n]

		switch kind {
		case opWrite:
			s.handleWrite(reg, payload)
			ack := byte(0)
			if _, err := rw.Write([]byte{ack}); err != nil {
				return
			}
		case opRead:
			reply := s.handleRead(reg)
			lenBuf := make([]byte, 2)
			binary.BigEndian.PutUint16(lenBuf, uint16(len(reply)))
			out := append(lenBuf, reply...)
			if _, err := rw.Write(out); err != nil {
				return
			}
		}
	}
}

func main() {
	addr := flag.String("listen", "127.0.0.1:5790", "address to listen on")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logrus.Fatalf("lwnode-sim: listen: %v", err)
	}
	logrus.Infof("lwnode-sim: listening on %s", *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logrus.Errorf("lwnode-sim: accept: %v", err)
			continue
		}
		go serve(conn)
	}
}
