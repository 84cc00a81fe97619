package flowaggregator

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/model"
	"runtime"
	"slices"
	"sync"
)

// Aggregator groups packet records into flows with a pool of workers
// feeding a sharded flow table.
type Aggregator struct {
	table         *flowTable
	input         chan *model.PacketRecord
	wg            sync.WaitGroup
	numWorkers    int
	bidirectional bool
	started       bool
}

// NewAggregator creates an aggregator from its configuration section.
func NewAggregator(cfg config.AggregatorConfig) *Aggregator {
	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	size := cfg.SizeOfPacketChannel
	if size < 0 {
		size = 0
	}
	return &Aggregator{
		table:         newFlowTable(cfg.NumShards),
		input:         make(chan *model.PacketRecord, size),
		numWorkers:    workers,
		bidirectional: cfg.Bidirectional,
	}
}

// Start launches the worker pool.
func (a *Aggregator) Start() {
	a.started = true
	a.wg.Add(a.numWorkers)
	for i := 0; i < a.numWorkers; i++ {
		go a.worker()
	}
}

// Input returns the channel packet records are sent on.
func (a *Aggregator) Input() chan<- *model.PacketRecord {
	return a.input
}

// Stop closes the input, waits for the workers to drain it and returns
// the finished flows.
func (a *Aggregator) Stop() []*model.FlowRecord {
	close(a.input)
	if a.started {
		a.wg.Wait()
	}
	return a.Flows()
}

func (a *Aggregator) worker() {
	defer a.wg.Done()
	for rec := range a.input {
		a.add(rec)
	}
}

func (a *Aggregator) add(rec *model.PacketRecord) {
	key := rec.Key()
	if a.bidirectional {
		key = key.Canonical()
	}
	a.table.add(key, rec)
}

// FlowCount returns the number of flows seen so far.
func (a *Aggregator) FlowCount() int {
	return a.table.count()
}

// Flows returns the flows ordered by their first packet index. First
// indices are unique per flow, so the order is total.
func (a *Aggregator) Flows() []*model.FlowRecord {
	flows := a.table.records()
	slices.SortFunc(flows, func(x, y *model.FlowRecord) int {
		return x.FirstPacketIndex - y.FirstPacketIndex
	})
	return flows
}

// Aggregate groups records into flows synchronously.
func Aggregate(records []*model.PacketRecord, bidirectional bool) []*model.FlowRecord {
	a := NewAggregator(config.AggregatorConfig{NumWorkers: 1, NumShards: defaultShardCount, Bidirectional: bidirectional})
	for _, rec := range records {
		a.add(rec)
	}
	return a.Flows()
}
