package hexdump

import (
	"strings"
	"testing"
)

func TestDumpLayout(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	data[4] = 'A'

	options := Options{BytesPerLine: 16, ShowASCII: true, OffsetWidth: 8, StartOffset: 0x1000}
	out := Dump(data, options)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "00001000  ") {
		t.Errorf("line 0 offset wrong: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00001010  ") {
		t.Errorf("line 1 offset wrong: %q", lines[1])
	}
	if !strings.Contains(lines[0], "41") {
		t.Errorf("hex for 'A' missing: %q", lines[0])
	}
	if !strings.Contains(lines[0], "....A...") {
		t.Errorf("ascii column wrong: %q", lines[0])
	}
}

func TestDumpHighlight(t *testing.T) {
	data := []byte{0x00, 0xD0, 0x00}
	options := DefaultOptions()
	options.Highlight = []byte{0xD0}

	out := Dump(data, options)
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI escape for highlighted byte, got %q", out)
	}
	if !strings.Contains(out, "d0") {
		t.Errorf("highlighted hex value missing: %q", out)
	}
}

func TestDumpEmpty(t *testing.T) {
	if out := Dump(nil, DefaultOptions()); out != "" {
		t.Errorf("empty input produced %q", out)
	}
}
