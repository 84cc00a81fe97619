package flowaggregator

import (
	"NetProfiler/internal/model"
	"hash/fnv"
	"math"
	"sync"
)

const defaultShardCount = 256

// partialFlow accumulates the packets of one flow. Every field is combined
// with a commutative operation, so arrival order does not matter.
type partialFlow struct {
	packets    uint64
	bytes      uint64
	firstIndex int
	lastIndex  int
	minTS      float64
	maxTS      float64
}

func newPartialFlow() *partialFlow {
	return &partialFlow{
		firstIndex: math.MaxInt,
		lastIndex:  math.MinInt,
		minTS:      math.Inf(1),
		maxTS:      math.Inf(-1),
	}
}

func (p *partialFlow) add(rec *model.PacketRecord) {
	p.packets++
	p.bytes += uint64(rec.Size)
	p.firstIndex = min(p.firstIndex, rec.Index)
	p.lastIndex = max(p.lastIndex, rec.Index)
	p.minTS = math.Min(p.minTS, rec.Timestamp)
	p.maxTS = math.Max(p.maxTS, rec.Timestamp)
}

func (p *partialFlow) record(key model.FlowKey) *model.FlowRecord {
	return &model.FlowRecord{
		FlowKey:          key,
		PacketCount:      p.packets,
		ByteCount:        p.bytes,
		AvgPacketSize:    float64(p.bytes) / float64(p.packets),
		FirstPacketIndex: p.firstIndex,
		LastPacketIndex:  p.lastIndex,
		Duration:         p.maxTS - p.minTS,
		ProtocolName:     model.FlowProtocolName(key.Protocol),
	}
}

// shard is a part of a sharded map, containing its own map and a mutex.
type shard struct {
	flows map[model.FlowKey]*partialFlow
	mu    sync.Mutex
}

// flowTable is a flow map split into shards to reduce lock contention
// between workers.
type flowTable struct {
	shards     []*shard
	shardCount uint32
}

func newFlowTable(shardCount uint32) *flowTable {
	if shardCount == 0 {
		shardCount = defaultShardCount
	}
	t := &flowTable{
		shards:     make([]*shard, shardCount),
		shardCount: shardCount,
	}
	for i := range t.shards {
		t.shards[i] = &shard{flows: make(map[model.FlowKey]*partialFlow)}
	}
	return t
}

// getShard returns the shard owning key.
func (t *flowTable) getShard(key model.FlowKey) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key.String()))
	return t.shards[hasher.Sum32()%t.shardCount]
}

// add folds a packet record into the flow identified by key.
func (t *flowTable) add(key model.FlowKey, rec *model.PacketRecord) {
	s := t.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[key]
	if !ok {
		flow = newPartialFlow()
		s.flows[key] = flow
	}
	flow.add(rec)
}

// records builds a flow record for every flow in the table.
func (t *flowTable) records() []*model.FlowRecord {
	var out []*model.FlowRecord
	for _, s := range t.shards {
		s.mu.Lock()
		for key, flow := range s.flows {
			out = append(out, flow.record(key))
		}
		s.mu.Unlock()
	}
	return out
}

// count returns the number of flows currently held.
func (t *flowTable) count() int {
	n := 0
	for _, s := range t.shards {
		s.mu.Lock()
		n += len(s.flows)
		s.mu.Unlock()
	}
	return n
}
