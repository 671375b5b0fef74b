// Package node implements the LoRaWAN node core: an AT-command transaction
// engine, a +RECV= downlink frame parser, and the node controller that
// stitches both together into join/send/poll operations over a borrowed
// transport.Transport.
package node

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/lwnode/lwnode/pkgs/transport"
)

// Sizing constants carried bit-for-bit from the source driver.
const (
	rxScratchCap  = 256
	cmdBufCap     = 520
	appEUILen     = 16
	appKeyLen     = 32
	nwkSKeyLen    = 32
	appSKeyLen    = 32
	maxPacketLen  = 256
	ackMaxLen     = 64
	ackPollTries  = 250
	dataReadCap   = 128
	dataHeaderLen = 9 // read_data primitive: 9-byte metadata prefix (distinct from the +RECV= 3-byte prefix)
	rssiHdrIndex  = 6
	snrHdrIndex   = 7
	snrBias       = 50
)

// Errors reported by the core. Public methods return these values
// directly, so callers and tests can tell failure kinds apart.
var (
	ErrInvalidArgument  = errors.New("lwnode: invalid argument")
	ErrTransport        = errors.New("lwnode: transport failure")
	ErrTimeout          = errors.New("lwnode: acknowledgment timeout")
	ErrProtocolMismatch = errors.New("lwnode: acknowledgment mismatch")
	ErrMalformedFrame   = errors.New("lwnode: malformed downlink frame")
	ErrNotInitialized   = errors.New("lwnode: Begin was not called or the module is unresponsive")
)

// JoinMode selects how the node authenticates with the network.
type JoinMode int

const (
	OTAA JoinMode = iota
	ABP
)

// Region selects the LoRaWAN regional band.
type Region int

const (
	EU868 Region = iota
	US915
	CN470
)

func (r Region) String() string {
	switch r {
	case EU868:
		return "EU868"
	case US915:
		return "US915"
	case CN470:
		return "CN470"
	default:
		return "UNKNOWN"
	}
}

// Class selects the LoRaWAN device class.
type Class int

const (
	ClassA Class = iota
	ClassC
)

// PacketType selects confirmed vs. unconfirmed uplinks.
type PacketType int

const (
	Unconfirmed PacketType = iota
	Confirmed
)

// State is an observable lifecycle indicator. It never gates behavior; it
// exists purely for status reporting, mirroring the original driver's
// LwnodeBusyState field (declared there but never read back).
type State int

const (
	StateIdle State = iota
	StateJoining
	StateSending
	StateRecvWindow
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateSending:
		return "sending"
	case StateRecvWindow:
		return "recv_window"
	default:
		return "idle"
	}
}

// ReceiveHandler is invoked once per well-formed downlink frame. It carries
// no captured environment beyond what the caller closes over, matching the
// source's bare function-pointer callback; it must not re-enter the Node.
type ReceiveHandler func(payload []byte, rssi, snr int8)

// Node owns cached credentials and radio parameters for one LoRaWAN end
// device, and exposes the public setter/join/send/poll API described in
// spec.md §4.4. It borrows a transport.Transport; it must not outlive it.
type Node struct {
	xport transport.Transport

	joinMode JoinMode
	region   Region
	devAddr  uint32

	appEUI   string
	appKey   string
	nwkSKey  string
	appSKey  string

	dataRate byte
	txPower  byte
	adr      bool
	subBand  byte
	class    Class
	pktType  PacketType

	lastRSSI int8
	lastSNR  int8

	rxHandler ReceiveHandler

	interruptsEnabled bool
	rxScratch         [rxScratchCap]byte

	isInitialized bool
	state         State
}

// New binds a Node to a borrowed transport. The transport must remain live
// for the Node's entire lifetime.
func New(xport transport.Transport) *Node {
	return &Node{
		xport:             xport,
		interruptsEnabled: true,
	}
}

// State reports the node's current lifecycle state (see State).
func (n *Node) State() State { return n.state }

// LastRSSI returns the RSSI of the most recently decoded downlink, or 0 if
// none has been decoded yet.
func (n *Node) LastRSSI() int8 { return n.lastRSSI }

// LastSNR returns the SNR of the most recently decoded downlink, or 0 if
// none has been decoded yet.
func (n *Node) LastSNR() int8 { return n.lastSNR }

// SetReceiveHandler registers (or, passing nil, unregisters) the downlink
// callback. Independent of construction, matching the source's
// lwnode_set_rx_cb contract.
func (n *Node) SetReceiveHandler(h ReceiveHandler) {
	n.rxHandler = h
}

// ConfigureOTAA selects OTAA as the join mode without touching hardware.
// Mirrors the source's lwnode_config_otaa.
func (n *Node) ConfigureOTAA() {
	n.joinMode = OTAA
}

// ConfigureABP selects ABP as the join mode without touching hardware.
// Mirrors the source's lwnode_config_abp.
func (n *Node) ConfigureABP() {
	n.joinMode = ABP
}

// isHexUpper reports whether s consists only of uppercase hex digits.
func isHexUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func toHexUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// setCredential validates, caches, and pushes a credential setter whose
// template is "AT+<key>=<VALUE>" acking "+<key>=OK\r\n". value is uppercased
// here before validation; wantLen is its required length (0 accepts only
// an empty value).
func (n *Node) setCredential(key string, value string, wantLen int, cache *string) error {
	upper := toHexUpper(value)
	if wantLen > 0 {
		if len(upper) != wantLen || !isHexUpper(upper) {
			return ErrInvalidArgument
		}
	} else if upper != "" {
		return ErrInvalidArgument
	}

	*cache = upper
	return n.sendSetter(key, upper)
}

// sendSetter builds "AT+<key>=<value>\r\n", sends it, and requires the ack
// to equal "+<key>=OK\r\n" byte-exact.
func (n *Node) sendSetter(key, value string) error {
	cmd := "AT+" + key + "=" + value
	ack, err := n.sendAT(cmd)
	if err != nil {
		return err
	}
	want := "+" + key + "=OK\r\n"
	if string(ack) != want {
		logrus.Debugf("lwnode: setter %s mismatch: got %q want %q", key, ack, want)
		return ErrProtocolMismatch
	}
	return nil
}

// SetRegion caches and pushes the regional band.
func (n *Node) SetRegion(region Region) error {
	n.region = region
	return n.sendSetter("REGION", region.String())
}

// SetAppEUI caches and pushes the OTAA Join EUI (16 upper-hex chars).
func (n *Node) SetAppEUI(joinEUIHex16 string) error {
	return n.setCredential("JOINEUI", joinEUIHex16, appEUILen, &n.appEUI)
}

// SetAppKey caches and pushes the OTAA Application Key (32 upper-hex chars).
func (n *Node) SetAppKey(appKeyHex32 string) error {
	return n.setCredential("APPKEY", appKeyHex32, appKeyLen, &n.appKey)
}

// SetNwkSKey caches and pushes the ABP Network Session Key (32 upper-hex
// chars). Passing "" clears the cache and, if the node is already
// Begin-sealed, clears the module-side value too (see DESIGN.md).
func (n *Node) SetNwkSKey(nwkSKeyHex32 string) error {
	if nwkSKeyHex32 == "" {
		return n.clearCredential("NWKSKEY", &n.nwkSKey)
	}
	return n.setCredential("NWKSKEY", nwkSKeyHex32, nwkSKeyLen, &n.nwkSKey)
}

// SetAppSKey caches and pushes the ABP Application Session Key (32
// upper-hex chars). Passing "" clears the cache and the module side.
func (n *Node) SetAppSKey(appSKeyHex32 string) error {
	if appSKeyHex32 == "" {
		return n.clearCredential("APPSKEY", &n.appSKey)
	}
	return n.setCredential("APPSKEY", appSKeyHex32, appSKeyLen, &n.appSKey)
}

// clearCredential empties the cache and, once the node is Begin-sealed,
// pushes an empty value to the module so it forgets the stale credential
// too (resolution of the open question in spec.md §9).
func (n *Node) clearCredential(key string, cache *string) error {
	*cache = ""
	if !n.isInitialized {
		return nil
	}
	return n.sendSetter(key, "")
}

// SetDevAddr caches and pushes the ABP device address, rendered as 8
// zero-padded uppercase hex chars. devAddr == 0 clears the module side if
// the node is already sealed (see clearCredential).
func (n *Node) SetDevAddr(devAddr uint32) error {
	n.devAddr = devAddr
	if devAddr == 0 {
		if !n.isInitialized {
			return nil
		}
		return n.sendSetter("DEVADDR", "00000000")
	}
	return n.sendSetter("DEVADDR", hexU32(devAddr))
}

func hexU32(v uint32) string {
	const digits = "0123456789ABCDEF"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return string(buf)
}

// SetClass caches and pushes the LoRaWAN device class.
func (n *Node) SetClass(class Class) error {
	n.class = class
	value := "CLASS_A"
	if class == ClassC {
		value = "CLASS_C"
	}
	return n.sendSetter("CLASS", value)
}

// SetDataRate caches and pushes the data-rate index.
func (n *Node) SetDataRate(dataRate uint8) error {
	n.dataRate = dataRate
	return n.sendSetter("DATARATE", decimalU8(dataRate))
}

// SetEIRP caches and pushes the transmit power in dBm.
func (n *Node) SetEIRP(eirp uint8) error {
	n.txPower = eirp
	return n.sendSetter("EIRP", decimalU8(eirp))
}

// SetSubBand caches and pushes the regional sub-band. Rejected outright for
// EU868, which has no sub-bands.
func (n *Node) SetSubBand(subBand uint8) error {
	if n.region == EU868 {
		return ErrInvalidArgument
	}
	n.subBand = subBand
	return n.sendSetter("SUBBAND", decimalU8(subBand))
}

// SetADR caches and pushes the Adaptive Data Rate flag.
func (n *Node) SetADR(adr bool) error {
	n.adr = adr
	value := "0"
	if adr {
		value = "1"
	}
	return n.sendSetter("ADR", value)
}

// SetPacketType caches and pushes confirmed/unconfirmed uplink mode.
func (n *Node) SetPacketType(pktType PacketType) error {
	n.pktType = pktType
	value := "UNCONFIRMED"
	if pktType == Confirmed {
		value = "CONFIRMED"
	}
	return n.sendSetter("UPLINKTYPE", value)
}

func decimalU8(v uint8) string {
	if v == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
