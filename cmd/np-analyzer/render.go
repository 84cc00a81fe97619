package main

import (
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/engine/manager"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
)

func renderSummary(w io.Writer, report *manager.Report) {
	s := report.Summary
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Metric", "Value"})
	t.SetAutoWrapText(false)
	t.Append([]string{"Capture", s.Capture})
	t.Append([]string{"Total packets", fmt.Sprintf("%d", s.TotalPackets)})
	t.Append([]string{"IP packets", fmt.Sprintf("%d", s.IPPackets)})
	t.Append([]string{"Flows", fmt.Sprintf("%d", s.TotalFlows)})
	t.Append([]string{"Valid flows", fmt.Sprintf("%d", s.ValidFlows)})
	t.Append([]string{"Invalid flows", fmt.Sprintf("%d", s.InvalidFlows)})
	t.Append([]string{"Duplicate flows", fmt.Sprintf("%d", s.DuplicateFlows)})
	t.Append([]string{"Invalid ratio", dataset.FormatFloat(s.InvalidRatio())})
	t.Render()

	if len(s.ErrorCounts) > 0 {
		type count struct {
			msg string
			n   int
		}
		counts := make([]count, 0, len(s.ErrorCounts))
		for msg, n := range s.ErrorCounts {
			counts = append(counts, count{msg, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].n != counts[j].n {
				return counts[i].n > counts[j].n
			}
			return counts[i].msg < counts[j].msg
		})

		et := tablewriter.NewWriter(w)
		et.SetHeader([]string{"Error", "Flows"})
		et.SetAutoWrapText(false)
		for _, c := range counts {
			et.Append([]string{c.msg, fmt.Sprintf("%d", c.n)})
		}
		et.Render()
	}

	if len(report.Alerts) > 0 {
		at := tablewriter.NewWriter(w)
		at.SetHeader([]string{"Alert", "Metric", "Condition", "Value"})
		at.SetAutoWrapText(false)
		for _, a := range report.Alerts {
			at.Append([]string{
				a.Rule.Name,
				a.Rule.Metric,
				fmt.Sprintf("%s %s", a.Rule.Operator, dataset.FormatFloat(a.Rule.Threshold)),
				dataset.FormatFloat(a.Value),
			})
		}
		at.Render()
	}
}
