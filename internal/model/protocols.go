package model

import (
	"strconv"
	"strings"
)

// IANA protocol numbers the engine knows about.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// flowProtocolNames is the naming table used when a flow is built.
// ICMP is deliberately absent: ICMP flows are labelled "1".
var flowProtocolNames = map[uint8]string{
	ProtoTCP: "TCP",
	ProtoUDP: "UDP",
}

// knownProtocols is the IANA subset accepted by validation.
var knownProtocols = map[int64]string{
	int64(ProtoICMP): "ICMP",
	int64(ProtoTCP):  "TCP",
	int64(ProtoUDP):  "UDP",
}

// FlowProtocolName maps a protocol number to the label stored on a flow.
// Unmapped numbers are labelled with their decimal value.
func FlowProtocolName(proto uint8) string {
	if name, ok := flowProtocolNames[proto]; ok {
		return name
	}
	return strconv.Itoa(int(proto))
}

// KnownProtocol reports the IANA name of a protocol number accepted by validation.
func KnownProtocol(proto int64) (string, bool) {
	name, ok := knownProtocols[proto]
	return name, ok
}

// ExpectedProtocolName is the name a flow row must carry for proto:
// the IANA name when known, the decimal value otherwise.
func ExpectedProtocolName(proto int64) string {
	if name, ok := knownProtocols[proto]; ok {
		return name
	}
	return strconv.FormatInt(proto, 10)
}

// ProtocolNameMatches compares a row's protocol_name with the expected name, ignoring case.
func ProtocolNameMatches(proto int64, name string) bool {
	return strings.EqualFold(name, ExpectedProtocolName(proto))
}
