package protocol

import (
	"NetProfiler/internal/model"
	"NetProfiler/internal/pcapgen"
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func decode(t *testing.T, p pcapgen.Packet) *model.PacketRecord {
	t.Helper()
	packet, err := pcapgen.Decode(p)
	if err != nil {
		t.Fatalf("Failed to build packet: %v", err)
	}
	rec, err := ParsePacket(7, packet)
	if err != nil {
		t.Fatalf("ParsePacket failed: %v", err)
	}
	return rec
}

func TestParsePacket_TCP(t *testing.T) {
	ts := time.Unix(1700000000, 250000000)
	rec := decode(t, pcapgen.Packet{
		Transport: pcapgen.TCP, SrcIP: "192.168.1.10", DstIP: "93.184.216.34",
		SrcPort: 51000, DstPort: 443, PayloadSize: 100, Timestamp: ts,
	})

	if rec.SrcIP != "192.168.1.10" || rec.DstIP != "93.184.216.34" {
		t.Errorf("unexpected addresses: %s -> %s", rec.SrcIP, rec.DstIP)
	}
	if rec.SrcPort != model.PortOf(51000) || rec.DstPort != model.PortOf(443) {
		t.Errorf("unexpected ports: %s -> %s", rec.SrcPort, rec.DstPort)
	}
	if rec.Protocol != model.ProtoTCP {
		t.Errorf("expected protocol 6, got %d", rec.Protocol)
	}
	// 14 ethernet + 20 IPv4 + 20 TCP + 100 payload
	if rec.Size != 154 {
		t.Errorf("expected size 154, got %d", rec.Size)
	}
	if rec.Timestamp != 1700000000.25 {
		t.Errorf("expected timestamp 1700000000.25, got %f", rec.Timestamp)
	}
	if rec.Index != 7 {
		t.Errorf("index must be kept as given, got %d", rec.Index)
	}
}

func TestParsePacket_UDP(t *testing.T) {
	rec := decode(t, pcapgen.Packet{
		Transport: pcapgen.UDP, SrcIP: "10.0.0.1", DstIP: "8.8.8.8",
		SrcPort: 4444, DstPort: 53, PayloadSize: 30, Timestamp: time.Unix(1, 0),
	})
	if rec.Protocol != model.ProtoUDP || rec.SrcPort != model.PortOf(4444) || rec.DstPort != model.PortOf(53) {
		t.Errorf("unexpected UDP record: %+v", rec)
	}
}

func TestParsePacket_ICMPHasNoPorts(t *testing.T) {
	rec := decode(t, pcapgen.Packet{
		Transport: pcapgen.ICMP, SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Timestamp: time.Unix(1, 0),
	})
	if rec.Protocol != model.ProtoICMP {
		t.Errorf("expected protocol 1, got %d", rec.Protocol)
	}
	if rec.SrcPort.Valid || rec.DstPort.Valid {
		t.Errorf("ICMP ports must be absent, got %s/%s", rec.SrcPort, rec.DstPort)
	}
}

func TestParsePacket_IPv6(t *testing.T) {
	p := pcapgen.Packet{
		Transport: pcapgen.UDP, SrcIP: "2001:db8::1", DstIP: "2001:db8::2",
		SrcPort: 5353, DstPort: 53, Timestamp: time.Unix(1, 0),
	}
	rec := decode(t, p)
	if rec.SrcIP != "2001:db8::1" || rec.Protocol != model.ProtoUDP {
		t.Errorf("unexpected IPv6 record: %+v", rec)
	}

	packet, err := pcapgen.Decode(p)
	if err != nil {
		t.Fatalf("Failed to build packet: %v", err)
	}
	if _, err := NewParser(false).Parse(0, packet); !errors.Is(err, ErrNotIP) {
		t.Errorf("IPv6 should be dropped when disabled, got %v", err)
	}
}

func TestParsePacket_OtherProtocol(t *testing.T) {
	rec := decode(t, pcapgen.Packet{
		Transport: pcapgen.RawIP, IPProtocol: 89, SrcIP: "10.1.1.1", DstIP: "224.0.0.5",
		PayloadSize: 40, Timestamp: time.Unix(1, 0),
	})
	if rec.Protocol != 89 || rec.SrcPort.Valid || rec.DstPort.Valid {
		t.Errorf("unexpected record for protocol 89: %+v", rec)
	}
}

func TestParsePacket_NonIP(t *testing.T) {
	packet, err := pcapgen.Decode(pcapgen.Packet{Transport: pcapgen.ARP, SrcIP: "10.0.0.1", DstIP: "10.0.0.2"})
	if err != nil {
		t.Fatalf("Failed to build ARP packet: %v", err)
	}
	rec, err := ParsePacket(0, packet)
	if !errors.Is(err, ErrNotIP) || rec != nil {
		t.Fatalf("expected ErrNotIP for ARP, got %v / %+v", err, rec)
	}
}

func TestParsePacket_Truncated(t *testing.T) {
	frame, err := pcapgen.Frame(pcapgen.Packet{
		Transport: pcapgen.TCP, SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcPort: 1, DstPort: 2,
	})
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	// Ethernet header plus the first bytes of the IPv4 header.
	packet := gopacket.NewPacket(frame[:19], layers.LayerTypeEthernet, gopacket.Default)

	rec, err := ParsePacket(0, packet)
	if !errors.Is(err, ErrUndecodable) || rec != nil {
		t.Fatalf("expected ErrUndecodable for a truncated IPv4 header, got %v / %+v", err, rec)
	}
}
