package validation

import (
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/model"
	"fmt"
	"math"
	"net/netip"
)

// Heuristic limits of the domain rules.
const (
	avgTolerance      = 5.0
	minEthernetAvg    = 20.0
	maxEthernetAvg    = 1500.0
	singlePacketSlack = 0.001
	longFlowSeconds   = 3600.0
	longDNSSeconds    = 10.0
	dnsPort           = 53
	httpsPort         = 443
	minHTTPSPackets   = 2
)

var broadcastV4 = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// Domain checks a row against protocol and traffic sanity rules. Every
// check runs; none stops the others. A check whose inputs are absent or
// not coercible is skipped, since the schema pass reports those fields.
type Domain struct {
	// FlagPrivateAddresses reports RFC 1918 / ULA addresses. Off by default.
	FlagPrivateAddresses bool
}

// flowView is a row read through the coercion functions. ok flags mark
// cells that were present and coercible.
type flowView struct {
	srcIP, dstIP     any
	srcPort, dstPort any

	protocol     int64
	protocolOK   bool
	protocolName string
	nameOK       bool

	srcPortNum, dstPortNum int64
	srcPortOK, dstPortOK   bool

	packets, bytes     int64
	packetsOK, bytesOK bool

	avg   float64
	avgOK bool

	first, last     int64
	firstOK, lastOK bool

	duration   float64
	durationOK bool
}

func readInt(cell any) (int64, bool) {
	if dataset.IsMissing(cell) {
		return 0, false
	}
	n, err := dataset.CoerceInt(cell)
	return n, err == nil
}

func readFloat(cell any) (float64, bool) {
	if dataset.IsMissing(cell) {
		return 0, false
	}
	f, err := dataset.CoerceFloat(cell)
	return f, err == nil && !math.IsNaN(f)
}

func newFlowView(row dataset.Row) flowView {
	v := flowView{
		srcIP:   row[dataset.ColSrcIP],
		dstIP:   row[dataset.ColDstIP],
		srcPort: row[dataset.ColSrcPort],
		dstPort: row[dataset.ColDstPort],
	}
	v.protocol, v.protocolOK = readInt(row[dataset.ColProtocol])
	v.protocolName, v.nameOK = row[dataset.ColProtocolName].(string)
	v.srcPortNum, v.srcPortOK = readInt(v.srcPort)
	v.dstPortNum, v.dstPortOK = readInt(v.dstPort)
	v.packets, v.packetsOK = readInt(row[dataset.ColPacketCount])
	v.bytes, v.bytesOK = readInt(row[dataset.ColByteCount])
	v.avg, v.avgOK = readFloat(row[dataset.ColAvgPacketSize])
	v.first, v.firstOK = readInt(row[dataset.ColFirstPacketIndex])
	v.last, v.lastOK = readInt(row[dataset.ColLastPacketIndex])
	v.duration, v.durationOK = readFloat(row[dataset.ColDuration])
	return v
}

func (v flowView) usesPort(port int64) bool {
	return (v.srcPortOK && v.srcPortNum == port) || (v.dstPortOK && v.dstPortNum == port)
}

func parseAddr(cell any) (netip.Addr, bool) {
	s, ok := cell.(string)
	if !ok {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	return addr, err == nil
}

// CheckRow runs the domain rules in order and returns their errors.
func (d Domain) CheckRow(row dataset.Row) []string {
	v := newFlowView(row)
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Addresses.
	src, srcOK := parseAddr(v.srcIP)
	dst, dstOK := parseAddr(v.dstIP)
	if !srcOK {
		add("%s: invalid IPv4/IPv6 address", dataset.ColSrcIP)
	}
	if !dstOK {
		add("%s: invalid IPv4/IPv6 address", dataset.ColDstIP)
	}
	if s, ok := v.srcIP.(string); ok && !dataset.IsNAText(s) {
		if t, ok := v.dstIP.(string); ok && s == t {
			add("src_ip and dst_ip must not be identical")
		}
	}
	if srcOK {
		errs = append(errs, d.addressClass(dataset.ColSrcIP, src)...)
	}
	if dstOK {
		errs = append(errs, d.addressClass(dataset.ColDstIP, dst)...)
	}

	// Protocol and ports.
	if v.protocolOK {
		if _, known := model.KnownProtocol(v.protocol); !known {
			add("Unknown protocol number: %d", v.protocol)
		}
		if v.nameOK && !model.ProtocolNameMatches(v.protocol, v.protocolName) {
			add("Protocol mismatch: protocol=%d but protocol_name=%s", v.protocol, v.protocolName)
		}
		switch v.protocol {
		case int64(model.ProtoTCP), int64(model.ProtoUDP):
			if !v.srcPortOK || !v.dstPortOK {
				add("TCP/UDP flows must include src_port and dst_port")
			}
		case int64(model.ProtoICMP):
			zero := v.srcPortOK && v.srcPortNum == 0 && v.dstPortOK && v.dstPortNum == 0
			if !zero {
				add("ICMP should not use ports (should be 0)")
			}
		}
	}

	// Packets and bytes.
	if v.packetsOK && v.bytesOK {
		if v.packets == 0 && v.bytes != 0 {
			add("packet_count=0 but byte_count > 0")
		}
		if v.bytes < v.packets {
			add("byte_count < packet_count (impossible)")
		}
	}
	if v.packetsOK && v.bytesOK && v.avgOK && v.packets > 0 {
		expected := float64(v.bytes) / float64(v.packets)
		if math.Abs(v.avg-expected) > avgTolerance {
			add("avg_packet_size inconsistent (expected ~%.2f, got %s)", expected, dataset.FormatFloat(v.avg))
		}
	}
	if v.avgOK && (v.avg > maxEthernetAvg || v.avg < minEthernetAvg) {
		add("avg_packet_size outside typical Ethernet range (20-1500 bytes)")
	}

	// Indices.
	if v.firstOK && v.lastOK && v.last < v.first {
		add("last_packet_index < first_packet_index")
	}

	// Duration.
	if v.durationOK {
		if v.duration < 0 {
			add("duration < 0")
		}
		if v.packetsOK {
			if v.packets == 1 && v.duration > singlePacketSlack {
				add("duration > 0 for packet_count=1")
			}
			if v.packets > 1 && v.duration == 0 {
				add("duration=0 but multiple packets exist")
			}
		}
		if v.duration > longFlowSeconds {
			add("flow duration unusually long (>1 hour)")
		}
		if v.usesPort(dnsPort) && v.duration > longDNSSeconds {
			add("DNS traffic duration unusually long")
		}
	}
	if v.packetsOK && v.usesPort(httpsPort) && v.packets < minHTTPSPackets {
		add("HTTPS flow has suspiciously low packet count")
	}

	return errs
}

func (d Domain) addressClass(field string, addr netip.Addr) []string {
	var errs []string
	if addr.IsMulticast() {
		errs = append(errs, field+" is a multicast address")
	}
	if addr.IsLoopback() {
		errs = append(errs, field+" is a loopback address")
	}
	if d.FlagPrivateAddresses && addr.IsPrivate() {
		errs = append(errs, field+" is a private address")
	}
	if addr == broadcastV4 {
		errs = append(errs, field+" is a broadcast address")
	}
	return errs
}
