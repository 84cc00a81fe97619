package main

import (
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/sink"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Dumps a flows.dat snapshot written by the snapshot writer as CSV.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <flows.dat>")
		os.Exit(1)
	}

	snapshot, err := sink.ReadSnapshot(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to decode snapshot: %v", err)
	}
	log.Printf("Snapshot '%s' taken at %s with %d flows", snapshot.Name, snapshot.Timestamp.Format("2006-01-02 15:04:05"), len(snapshot.Rows))

	tbl := &dataset.Table{Columns: snapshot.Columns, Rows: snapshot.Rows}
	if err := dataset.WriteCSV(os.Stdout, tbl); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}
}
