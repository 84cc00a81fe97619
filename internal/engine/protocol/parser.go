package protocol

import (
	"NetProfiler/internal/model"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNotIP is returned for packets without an IP layer. Callers drop such
// packets; it is not a failure of the run.
var ErrNotIP = errors.New("not an IP packet")

// ErrUndecodable is returned when the packet's layers could not be decoded
// far enough to find an IP header.
var ErrUndecodable = errors.New("undecodable packet")

// Parser turns decoded packets into packet records.
type Parser struct {
	IncludeIPv6 bool
}

// NewParser creates a parser. IPv6 packets are only extracted when includeIPv6 is set.
func NewParser(includeIPv6 bool) *Parser {
	return &Parser{IncludeIPv6: includeIPv6}
}

// ParsePacket extracts a record from a decoded packet using the default parser,
// which accepts IPv4 and IPv6.
func ParsePacket(index int, packet gopacket.Packet) (*model.PacketRecord, error) {
	return NewParser(true).Parse(index, packet)
}

// Parse extracts a record from a decoded packet. index is the packet's
// position in the capture and is stored unchanged.
func (p *Parser) Parse(index int, packet gopacket.Packet) (*model.PacketRecord, error) {
	rec := &model.PacketRecord{
		Size:  len(packet.Data()),
		Index: index,
	}

	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		rec.Timestamp = float64(meta.Timestamp.Unix()) + float64(meta.Timestamp.Nanosecond())/1e9
	}

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		rec.SrcIP = ip.SrcIP.String()
		rec.DstIP = ip.DstIP.String()
		rec.Protocol = uint8(ip.Protocol)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil && p.IncludeIPv6 {
		ip := l.(*layers.IPv6)
		rec.SrcIP = ip.SrcIP.String()
		rec.DstIP = ip.DstIP.String()
		rec.Protocol = uint8(ip.NextHeader)
	} else if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, errLayer.Error())
	} else {
		return nil, ErrNotIP
	}

	// Ports stay absent unless a TCP or UDP layer was decoded.
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		rec.SrcPort = model.PortOf(uint16(tcp.SrcPort))
		rec.DstPort = model.PortOf(uint16(tcp.DstPort))
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		rec.SrcPort = model.PortOf(uint16(udp.SrcPort))
		rec.DstPort = model.PortOf(uint16(udp.DstPort))
	}

	return rec, nil
}
