package probe

import (
	"NetProfiler/internal/dataset"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// FlowMessage is one validated flow row published on NATS.
type FlowMessage struct {
	Capture    string
	AnalyzedAt time.Time
	Row        dataset.Row
}

// EncodeFlow serializes a message as a protobuf Struct:
// {"capture": ..., "analyzed_at": RFC 3339, "flow": {column: cell}}.
func EncodeFlow(msg FlowMessage) ([]byte, error) {
	flow := make(map[string]any, len(msg.Row))
	for col, cell := range msg.Row {
		if dataset.IsAbsent(cell) {
			flow[col] = nil
			continue
		}
		flow[col] = cell
	}

	pb, err := structpb.NewStruct(map[string]any{
		"capture":     msg.Capture,
		"analyzed_at": msg.AnalyzedAt.UTC().Format(time.RFC3339Nano),
		"flow":        flow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build flow message: %w", err)
	}
	return proto.Marshal(pb)
}

// DecodeFlow parses a message produced by EncodeFlow. Integer columns come
// back as int64.
func DecodeFlow(data []byte) (FlowMessage, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return FlowMessage{}, fmt.Errorf("failed to unmarshal flow message: %w", err)
	}

	fields := pb.GetFields()
	msg := FlowMessage{Capture: fields["capture"].GetStringValue()}
	if ts := fields["analyzed_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return FlowMessage{}, fmt.Errorf("invalid analyzed_at %q: %w", ts, err)
		}
		msg.AnalyzedAt = t
	}

	flow := fields["flow"].GetStructValue()
	if flow == nil {
		return FlowMessage{}, fmt.Errorf("flow message has no flow")
	}
	msg.Row = make(dataset.Row, len(flow.GetFields()))
	for col, v := range flow.AsMap() {
		if f, ok := v.(float64); ok && dataset.IntColumns[col] && f == math.Trunc(f) {
			msg.Row[col] = int64(f)
			continue
		}
		msg.Row[col] = v
	}
	return msg, nil
}
