package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderResponse prints the response envelope. The table format renders
// record-list results; everything else falls back to JSON.
func renderResponse(w io.Writer, response map[string]any, format string) error {
	if format == "table" {
		if records, cols, ok := extractRecords(response); ok {
			renderTable(w, cols, records)
			return nil
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(response)
}

// extractRecords digs the single shaped result out of a "data" envelope
// when it is a list of records.
func extractRecords(response map[string]any) ([]map[string]any, []string, bool) {
	data, ok := response["data"].(map[string]any)
	if !ok || len(data) != 1 {
		return nil, nil, false
	}
	for _, shaped := range data {
		records, ok := shaped.([]map[string]any)
		if !ok || len(records) == 0 {
			return nil, nil, false
		}
		cols := make([]string, 0, len(records[0]))
		for col := range records[0] {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		return records, cols, true
	}
	return nil, nil, false
}

func renderTable(w io.Writer, cols []string, records []map[string]any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, record := range records {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = record[col]
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
}

// renderQueryLog prints the pipeline's query-log side channel.
func renderQueryLog(w io.Writer, logs []string) {
	if len(logs) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "event"})
	for i, entry := range logs {
		t.AppendRow(table.Row{i + 1, entry})
	}
	t.Render()
}
