package model

import "testing"

func TestPortAbsentIsNotZero(t *testing.T) {
	if NoPort == PortOf(0) {
		t.Fatal("absent port must differ from port 0")
	}
	if NoPort.String() != "-" || PortOf(0).String() != "0" {
		t.Errorf("unexpected port rendering: %q %q", NoPort.String(), PortOf(0).String())
	}
}

func TestFlowKeyCanonical(t *testing.T) {
	ab := FlowKey{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", SrcPort: PortOf(5000), DstPort: PortOf(80), Protocol: ProtoTCP}
	ba := ab.Reversed()

	if ab.Canonical() != ba.Canonical() {
		t.Fatalf("both directions should share a canonical key: %s vs %s", ab.Canonical(), ba.Canonical())
	}
	if ab.Canonical() != ab {
		t.Errorf("expected %s to already be canonical", ab)
	}

	same := FlowKey{SrcIP: "10.0.0.1", DstIP: "10.0.0.1", SrcPort: PortOf(9), DstPort: PortOf(7), Protocol: ProtoUDP}
	if same.Canonical() != same.Reversed() {
		t.Errorf("equal addresses should be ordered by port, got %s", same.Canonical())
	}
}

func TestProtocolNames(t *testing.T) {
	cases := []struct {
		proto    uint8
		flowName string
		expected string
		known    bool
	}{
		{ProtoTCP, "TCP", "TCP", true},
		{ProtoUDP, "UDP", "UDP", true},
		{ProtoICMP, "1", "ICMP", true},
		{47, "47", "47", false},
	}
	for _, c := range cases {
		if got := FlowProtocolName(c.proto); got != c.flowName {
			t.Errorf("FlowProtocolName(%d) = %q, want %q", c.proto, got, c.flowName)
		}
		if got := ExpectedProtocolName(int64(c.proto)); got != c.expected {
			t.Errorf("ExpectedProtocolName(%d) = %q, want %q", c.proto, got, c.expected)
		}
		if _, ok := KnownProtocol(int64(c.proto)); ok != c.known {
			t.Errorf("KnownProtocol(%d) = %v, want %v", c.proto, ok, c.known)
		}
	}
	if !ProtocolNameMatches(6, "tcp") {
		t.Error("protocol name comparison should ignore case")
	}
	if ProtocolNameMatches(6, "UNKNOWN") {
		t.Error("UNKNOWN must not match TCP")
	}
}
