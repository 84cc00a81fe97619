package flowaggregator

import (
	"NetProfiler/internal/config"
	"math/rand"
	"sync/atomic"
	"testing"
)

func BenchmarkAggregator(b *testing.B) {
	records := randomRecords(rand.New(rand.NewSource(7)), 100000)

	b.Run("Table_Parallel", func(b *testing.B) {
		table := newFlowTable(defaultShardCount)
		var next atomic.Int64
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				rec := records[int(next.Add(1))%len(records)]
				table.add(rec.Key(), rec)
			}
		})
	})

	b.Run("Pipeline", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			agg := NewAggregator(config.AggregatorConfig{NumWorkers: 8, NumShards: 256, SizeOfPacketChannel: 10000})
			agg.Start()
			for _, rec := range records {
				agg.Input() <- rec
			}
			agg.Stop()
		}
	})
}
