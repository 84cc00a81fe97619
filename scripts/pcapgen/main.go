package main

import (
	"NetProfiler/internal/pcapgen"
	"flag"
	"math/rand"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output capture file path (.pcapng writes pcapng)")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)
	packets := pcapgen.Random(rng, *packetCount, time.Now())

	write := pcapgen.WriteFile
	if strings.HasSuffix(*outputFile, ".pcapng") {
		write = pcapgen.WriteNgFile
	}
	if err := write(*outputFile, packets); err != nil {
		log.Fatalf("Failed to write capture: %v", err)
	}
	log.Printf("Successfully generated %s", *outputFile)
}
