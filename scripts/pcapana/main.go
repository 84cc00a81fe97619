package main

import (
	"NetProfiler/internal/model"
	"NetProfiler/pkg/pcap"
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Prints the packet records extracted from a capture, one per line.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_capture>")
		os.Exit(1)
	}

	reader, err := pcap.NewReader(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	out := make(chan *model.PacketRecord, 1024)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range out {
			fmt.Printf("#%d %.6f %s %d bytes\n", rec.Index, rec.Timestamp, rec.Key(), rec.Size)
		}
	}()

	stats, err := reader.ReadPackets(context.Background(), out)
	close(out)
	<-done
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d packets, %d IP, %d undecodable\n", stats.TotalPackets, stats.IPPackets, stats.Undecodable)
}
