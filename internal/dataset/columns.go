package dataset

// Column names of a flow table.
const (
	ColSrcIP            = "src_ip"
	ColDstIP            = "dst_ip"
	ColSrcPort          = "src_port"
	ColDstPort          = "dst_port"
	ColProtocol         = "protocol"
	ColPacketCount      = "packet_count"
	ColByteCount        = "byte_count"
	ColAvgPacketSize    = "avg_packet_size"
	ColFirstPacketIndex = "first_packet_index"
	ColLastPacketIndex  = "last_packet_index"
	ColDuration         = "duration"
	ColProtocolName     = "protocol_name"

	// Added by validation.
	ColIsValid     = "is_valid"
	ColErrorReason = "error_reason"
)

// FlowColumns are the columns of a raw flow table, in output order.
var FlowColumns = []string{
	ColSrcIP,
	ColDstIP,
	ColSrcPort,
	ColDstPort,
	ColProtocol,
	ColPacketCount,
	ColByteCount,
	ColAvgPacketSize,
	ColFirstPacketIndex,
	ColLastPacketIndex,
	ColDuration,
	ColProtocolName,
}

// ValidatedColumns are the columns of an annotated flow table.
var ValidatedColumns = append(append([]string(nil), FlowColumns...), ColIsValid, ColErrorReason)

// IntColumns are the columns holding integers. Encodings that only carry
// floats use it to restore integer cells.
var IntColumns = map[string]bool{
	ColSrcPort:          true,
	ColDstPort:          true,
	ColProtocol:         true,
	ColPacketCount:      true,
	ColByteCount:        true,
	ColFirstPacketIndex: true,
	ColLastPacketIndex:  true,
}
