package model

// Summary describes one analysis run.
type Summary struct {
	Capture        string         `json:"capture"`
	TotalPackets   int            `json:"total_packets"`
	IPPackets      int            `json:"ip_packets"`
	TotalFlows     int            `json:"total_flows"`
	ValidFlows     int            `json:"valid_flows"`
	InvalidFlows   int            `json:"invalid_flows"`
	DuplicateFlows int            `json:"duplicate_flows"`
	ErrorCounts    map[string]int `json:"error_counts,omitempty"`
}

// InvalidRatio is the share of flows flagged invalid, 0 for an empty run.
func (s Summary) InvalidRatio() float64 {
	if s.TotalFlows == 0 {
		return 0
	}
	return float64(s.InvalidFlows) / float64(s.TotalFlows)
}

// Metric returns a named summary metric, as used by alert rules.
func (s Summary) Metric(name string) (float64, bool) {
	switch name {
	case "total_packets":
		return float64(s.TotalPackets), true
	case "ip_packets":
		return float64(s.IPPackets), true
	case "total_flows":
		return float64(s.TotalFlows), true
	case "valid_flows":
		return float64(s.ValidFlows), true
	case "invalid_flows":
		return float64(s.InvalidFlows), true
	case "invalid_ratio":
		return s.InvalidRatio(), true
	case "duplicate_flows":
		return float64(s.DuplicateFlows), true
	}
	return 0, false
}
