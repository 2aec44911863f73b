package cli

import (
	"strings"
	"testing"
)

func TestWriteTableAlignsColumns(t *testing.T) {
	var out strings.Builder
	err := writeTable(&out, []string{"ID", "NAME"}, [][]string{
		{"chan-1", "general"},
		{"chan-2", "ops"},
	})
	if err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	nameCol := strings.Index(lines[0], "NAME")
	if nameCol < 0 {
		t.Fatal("header missing NAME column")
	}
	for i, line := range lines[1:] {
		cell := line[nameCol:]
		if !strings.HasPrefix(cell, "general") && !strings.HasPrefix(cell, "ops") {
			t.Errorf("row %d misaligned: %q", i, line)
		}
	}
}

func TestWriteTableIgnoresANSIWidths(t *testing.T) {
	var out strings.Builder
	colored := "\x1b[31mred\x1b[0m"
	err := writeTable(&out, []string{"A", "B"}, [][]string{
		{colored, "x"},
		{"plain", "y"},
	})
	if err != nil {
		t.Fatalf("writeTable: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	stripped0 := stripANSI(lines[1])
	stripped1 := stripANSI(lines[2])
	if strings.Index(stripped0, "x") != strings.Index(stripped1, "y") {
		t.Errorf("second column misaligned:\n%q\n%q", stripped0, stripped1)
	}
}

func TestWriteTableEmpty(t *testing.T) {
	var out strings.Builder
	if err := writeTable(&out, nil, nil); err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("empty table produced output: %q", out.String())
	}
}
