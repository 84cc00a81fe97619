// Package pcapgen builds synthetic Ethernet frames and capture files.
// It backs the pcapgen script and the capture fixtures used in tests.
package pcapgen

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Transport selects what is carried above (or instead of) the IP layer.
type Transport string

const (
	TCP   Transport = "tcp"
	UDP   Transport = "udp"
	ICMP  Transport = "icmp"
	ARP   Transport = "arp"   // no IP layer at all
	RawIP Transport = "rawip" // IP with an arbitrary protocol number and an opaque payload
)

const snapshotLen = 65536

var (
	srcMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dstMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

// Packet describes one synthetic packet.
type Packet struct {
	Transport   Transport
	SrcIP       string
	DstIP       string
	SrcPort     uint16
	DstPort     uint16
	IPProtocol  uint8 // only used by RawIP
	PayloadSize int
	Timestamp   time.Time
}

// Frame serializes p into an Ethernet frame.
func Frame(p Packet) ([]byte, error) {
	payload := gopacket.Payload(make([]byte, p.PayloadSize))
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC}

	var stack []gopacket.SerializableLayer
	if p.Transport == ARP {
		eth.EthernetType = layers.EthernetTypeARP
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   srcMAC,
			SourceProtAddress: net.ParseIP(p.SrcIP).To4(),
			DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
			DstProtAddress:    net.ParseIP(p.DstIP).To4(),
		}
		stack = []gopacket.SerializableLayer{eth, arp}
	} else {
		src, dst := net.ParseIP(p.SrcIP), net.ParseIP(p.DstIP)
		if src == nil || dst == nil {
			return nil, fmt.Errorf("invalid address pair %q -> %q", p.SrcIP, p.DstIP)
		}
		isV4 := src.To4() != nil && dst.To4() != nil

		var network gopacket.NetworkLayer
		var ipLayer gopacket.SerializableLayer
		if isV4 {
			eth.EthernetType = layers.EthernetTypeIPv4
			ip := &layers.IPv4{Version: 4, TTL: 64, SrcIP: src.To4(), DstIP: dst.To4()}
			network, ipLayer = ip, ip
			ip.Protocol = ipProtocol(p, true)
		} else {
			eth.EthernetType = layers.EthernetTypeIPv6
			ip := &layers.IPv6{Version: 6, HopLimit: 64, SrcIP: src.To16(), DstIP: dst.To16()}
			network, ipLayer = ip, ip
			ip.NextHeader = ipProtocol(p, false)
		}

		stack = []gopacket.SerializableLayer{eth, ipLayer}
		switch p.Transport {
		case TCP:
			tcp := &layers.TCP{SrcPort: layers.TCPPort(p.SrcPort), DstPort: layers.TCPPort(p.DstPort), SYN: true, Window: 14600}
			tcp.SetNetworkLayerForChecksum(network)
			stack = append(stack, tcp)
		case UDP:
			udp := &layers.UDP{SrcPort: layers.UDPPort(p.SrcPort), DstPort: layers.UDPPort(p.DstPort)}
			udp.SetNetworkLayerForChecksum(network)
			stack = append(stack, udp)
		case ICMP:
			if isV4 {
				stack = append(stack, &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1})
			} else {
				icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)}
				icmp.SetNetworkLayerForChecksum(network)
				stack = append(stack, icmp)
			}
		case RawIP:
		default:
			return nil, fmt.Errorf("unknown transport %q", p.Transport)
		}
	}
	stack = append(stack, payload)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, fmt.Errorf("failed to serialize layers: %w", err)
	}
	return buf.Bytes(), nil
}

func ipProtocol(p Packet, v4 bool) layers.IPProtocol {
	switch p.Transport {
	case TCP:
		return layers.IPProtocolTCP
	case UDP:
		return layers.IPProtocolUDP
	case ICMP:
		if v4 {
			return layers.IPProtocolICMPv4
		}
		return layers.IPProtocolICMPv6
	default:
		return layers.IPProtocol(p.IPProtocol)
	}
}

// Decode serializes p and decodes it back into a gopacket.Packet carrying p's timestamp.
func Decode(p Packet) (gopacket.Packet, error) {
	data, err := Frame(p)
	if err != nil {
		return nil, err
	}
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	md := packet.Metadata()
	md.Timestamp = p.Timestamp
	md.CaptureLength = len(data)
	md.Length = len(data)
	return packet, nil
}

// WriteFile writes packets to a classic pcap file.
func WriteFile(path string, packets []Packet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapshotLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, p := range packets {
		data, err := Frame(p)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}
		if err := w.WritePacket(captureInfo(p, data), data); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return f.Close()
}

// WriteNgFile writes packets to a pcapng file.
func WriteNgFile(path string, packets []Packet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	if err != nil {
		return fmt.Errorf("failed to create pcapng writer: %w", err)
	}
	for i, p := range packets {
		data, err := Frame(p)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}
		if err := w.WritePacket(captureInfo(p, data), data); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush pcapng writer: %w", err)
	}
	return f.Close()
}

func captureInfo(p Packet, data []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     p.Timestamp,
		CaptureLength: len(data),
		Length:        len(data),
	}
}

// Random generates n packets drawn from a small pool of conversations so
// that most flows carry several packets. Timestamps advance from start.
func Random(rng *rand.Rand, n int, start time.Time) []Packet {
	type conv struct {
		transport        Transport
		src, dst         string
		srcPort, dstPort uint16
	}
	pool := make([]conv, 0, 32)
	wellKnown := []uint16{53, 80, 443, 8080}
	for i := 0; i < cap(pool); i++ {
		c := conv{
			src:     fmt.Sprintf("10.0.%d.%d", rng.Intn(4), rng.Intn(250)+1),
			dst:     fmt.Sprintf("93.184.%d.%d", rng.Intn(4), rng.Intn(250)+1),
			srcPort: uint16(rng.Intn(65535-1024) + 1024),
			dstPort: wellKnown[rng.Intn(len(wellKnown))],
		}
		switch r := rng.Intn(10); {
		case r < 6:
			c.transport = TCP
		case r < 9:
			c.transport = UDP
		default:
			c.transport = ICMP
		}
		pool = append(pool, c)
	}

	packets := make([]Packet, 0, n)
	ts := start
	for i := 0; i < n; i++ {
		ts = ts.Add(time.Duration(rng.Intn(50)+1) * time.Millisecond)
		if rng.Intn(50) == 0 {
			packets = append(packets, Packet{Transport: ARP, SrcIP: "10.0.0.1", DstIP: "10.0.0.254", Timestamp: ts})
			continue
		}
		c := pool[rng.Intn(len(pool))]
		packets = append(packets, Packet{
			Transport:   c.transport,
			SrcIP:       c.src,
			DstIP:       c.dst,
			SrcPort:     c.srcPort,
			DstPort:     c.dstPort,
			PayloadSize: rng.Intn(1400) + 50,
			Timestamp:   ts,
		})
	}
	return packets
}
