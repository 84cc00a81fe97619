package model

import (
	"fmt"
	"strconv"
)

// Port is an optional transport-layer port. The zero value is an absent
// port, which is distinct from port 0.
type Port struct {
	Num   uint16
	Valid bool
}

// PortOf returns a present port.
func PortOf(n uint16) Port {
	return Port{Num: n, Valid: true}
}

// NoPort is the absent port recorded for packets without TCP or UDP.
var NoPort = Port{}

func (p Port) String() string {
	if !p.Valid {
		return "-"
	}
	return strconv.Itoa(int(p.Num))
}

// PacketRecord holds the metadata extracted from a single IP packet.
type PacketRecord struct {
	SrcIP     string
	DstIP     string
	SrcPort   Port
	DstPort   Port
	Protocol  uint8
	Size      int     // captured frame length in bytes
	Timestamp float64 // capture time in seconds since the epoch
	Index     int     // 0-based position in the capture, counted before filtering
}

// Key returns the flow key the packet belongs to.
func (p *PacketRecord) Key() FlowKey {
	return FlowKey{
		SrcIP:    p.SrcIP,
		DstIP:    p.DstIP,
		SrcPort:  p.SrcPort,
		DstPort:  p.DstPort,
		Protocol: p.Protocol,
	}
}

// FlowKey is the exact five-tuple that defines flow membership.
type FlowKey struct {
	SrcIP    string
	DstIP    string
	SrcPort  Port
	DstPort  Port
	Protocol uint8
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%s->%s:%s/%d", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Protocol)
}

// Reversed swaps the two endpoints of the key.
func (k FlowKey) Reversed() FlowKey {
	return FlowKey{
		SrcIP:    k.DstIP,
		DstIP:    k.SrcIP,
		SrcPort:  k.DstPort,
		DstPort:  k.SrcPort,
		Protocol: k.Protocol,
	}
}

// Canonical orients the key so the smaller (address, port) endpoint is the
// source. Used only when bidirectional aggregation is enabled.
func (k FlowKey) Canonical() FlowKey {
	if k.SrcIP < k.DstIP {
		return k
	}
	if k.SrcIP == k.DstIP && portLess(k.SrcPort, k.DstPort) {
		return k
	}
	if k.SrcIP == k.DstIP && k.SrcPort == k.DstPort {
		return k
	}
	return k.Reversed()
}

func portLess(a, b Port) bool {
	if a.Valid != b.Valid {
		return !a.Valid
	}
	return a.Num < b.Num
}

// FlowRecord is one aggregated flow.
type FlowRecord struct {
	FlowKey
	PacketCount      uint64
	ByteCount        uint64
	AvgPacketSize    float64
	FirstPacketIndex int
	LastPacketIndex  int
	Duration         float64
	ProtocolName     string
}
