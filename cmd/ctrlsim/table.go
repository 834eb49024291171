package main

import (
	"bytes"
	"fmt"
	"math"

	"github.com/mgutz/ansi"
	"github.com/san-kum/ctrlsim/internal/ui"
	"github.com/tomlazar/table"
)

func printTable(headers []string, rows [][]string) error {
	tab := table.Table{
		Headers: headers,
		Rows:    rows,
	}
	var buf bytes.Buffer
	err := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !noColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if err != nil {
		return err
	}
	ui.Printfln("%s", buf.String())
	return nil
}

// num formats a table cell, leaving NaN readable.
func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

// statusColor highlights terminal runs in red.
func statusColor(status string, terminal bool) string {
	if noColor || !terminal {
		return status
	}
	return ansi.Color(status, "red+b")
}
