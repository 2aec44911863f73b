// Package cli implements the chancore command tree.
package cli

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tablePadding = 2

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// writeTable renders rows as aligned columns, accounting for wide runes and
// ANSI color codes in cell widths.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(index int, value string) {
		if index >= colCount {
			return
		}
		w := runewidth.StringWidth(stripANSI(value))
		if w > widths[index] {
			widths[index] = w
		}
	}
	for idx, header := range headers {
		measure(idx, header)
	}
	for _, row := range rows {
		for idx, cell := range row {
			measure(idx, cell)
		}
	}

	writer := bufio.NewWriter(out)
	var writeErr error
	writeRow := func(row []string) {
		if writeErr != nil {
			return
		}
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			if _, err := writer.WriteString(cell); err != nil {
				writeErr = err
				return
			}
			if idx < colCount-1 {
				pad := widths[idx] - runewidth.StringWidth(stripANSI(cell)) + tablePadding
				if pad < tablePadding {
					pad = tablePadding
				}
				if _, err := writer.WriteString(strings.Repeat(" ", pad)); err != nil {
					writeErr = err
					return
				}
			}
		}
		if _, err := writer.WriteString("\n"); err != nil {
			writeErr = err
		}
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	if writeErr != nil {
		return writeErr
	}
	return writer.Flush()
}
