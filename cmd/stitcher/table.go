package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"stitcher/internal/job"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderResults(results ...job.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		outcome := "ok"
		detail := res.OutputPath
		if !res.Succeeded() {
			outcome = "failed"
			detail = res.Err.Error()
		}
		title := res.Title
		if title == "" {
			title = res.Locator
		}
		scene := ""
		if res.Scene > 0 {
			scene = fmt.Sprintf("%d", res.Scene)
		}
		rows = append(rows, []string{
			title,
			scene,
			outcome,
			res.Elapsed.Round(time.Second).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"Title", "Scene", "Result", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}
