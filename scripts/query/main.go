package main

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/query"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "api", "Query mode: 'api' to query via np-api, 'direct' to query ClickHouse directly.")
	server := flag.String("server", "http://localhost:8080", "np-api base URL (api mode)")
	configPath := flag.String("config", "configs/config.yaml", "Configuration holding the ClickHouse writer (direct mode)")
	capture := flag.String("capture", "", "Only show flows of this capture")
	onlyInvalid := flag.Bool("invalid", false, "Only show invalid flows")
	limit := flag.Int("limit", 50, "Maximum number of flows")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	q := query.FlowQuery{Capture: *capture, OnlyInvalid: *onlyInvalid, Limit: *limit}
	switch *mode {
	case "api":
		queryViaAPI(*server, q)
	case "direct":
		directQuery(*configPath, q)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

func queryViaAPI(server string, q query.FlowQuery) {
	u, err := url.Parse(server)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}
	u.Path = "/api/v1/flows"
	params := u.Query()
	if q.Capture != "" {
		params.Set("capture", q.Capture)
	}
	params.Set("invalid", strconv.FormatBool(q.OnlyInvalid))
	params.Set("limit", strconv.Itoa(q.Limit))
	u.RawQuery = params.Encode()

	resp, err := http.Get(u.String())
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}
	fmt.Println(prettyJSON.String())
}

func directQuery(configPath string, q query.FlowQuery) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	def, ok := cfg.EnabledWriter("clickhouse")
	if !ok {
		log.Fatalf("No enabled ClickHouse writer found in %s", configPath)
	}
	querier, err := query.NewClickHouseQuerier(def.ClickHouse)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}

	flows, err := querier.QueryFlows(context.Background(), q)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	if len(flows) == 0 {
		log.Println("No data found for the specified criteria.")
		return
	}

	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Capture", "Source", "Destination", "Proto", "Packets", "Bytes", "Valid", "Reason"})
	t.SetAutoWrapText(false)
	for _, f := range flows {
		r := f.Row
		t.Append([]string{
			f.Capture,
			fmt.Sprintf("%s:%s", dataset.FormatValue(r[dataset.ColSrcIP]), dataset.FormatValue(r[dataset.ColSrcPort])),
			fmt.Sprintf("%s:%s", dataset.FormatValue(r[dataset.ColDstIP]), dataset.FormatValue(r[dataset.ColDstPort])),
			dataset.FormatValue(r[dataset.ColProtocolName]),
			dataset.FormatValue(r[dataset.ColPacketCount]),
			dataset.FormatValue(r[dataset.ColByteCount]),
			dataset.FormatValue(r[dataset.ColIsValid]),
			dataset.FormatValue(r[dataset.ColErrorReason]),
		})
	}
	t.Render()
}
