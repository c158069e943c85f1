// Package hexdump renders byte windows as offset/hex/ASCII text for the
// diagnostic tools. Bytes of interest (e.g. virus tiles) can be highlighted.
package hexdump

import (
	"fmt"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options customizes the dump layout.
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartOffset is the address printed for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// Highlight lists byte values to render in HighlightColor
	Highlight []byte

	// HighlightColor is the color for highlighted bytes
	HighlightColor coloransi.ColorCode
}

// DefaultOptions returns the layout used by the diagnostic tools.
func DefaultOptions() Options {
	return Options{
		BytesPerLine:   16,
		ShowASCII:      true,
		OffsetWidth:    16,
		HighlightColor: coloransi.Yellow,
	}
}

// Dump renders data according to options.
func Dump(data []byte, options Options) string {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 16
	}

	var sb strings.Builder
	for lineStart := 0; lineStart < len(data); lineStart += options.BytesPerLine {
		lineEnd := lineStart + options.BytesPerLine
		if lineEnd > len(data) {
			lineEnd = len(data)
		}
		line := data[lineStart:lineEnd]

		fmt.Fprintf(&sb, "%0*x  ", options.OffsetWidth, options.StartOffset+uint64(lineStart))

		for i := 0; i < options.BytesPerLine; i++ {
			if i >= len(line) {
				sb.WriteString("   ")
				continue
			}
			hexValue := fmt.Sprintf("%02x", line[i])
			if isHighlighted(line[i], options.Highlight) {
				hexValue = coloransi.Foreground(options.HighlightColor, hexValue)
			}
			sb.WriteString(hexValue)
			sb.WriteByte(' ')
		}

		if options.ShowASCII {
			sb.WriteByte(' ')
			for _, b := range line {
				if b >= 0x20 && b < 0x7F {
					sb.WriteByte(b)
				} else {
					sb.WriteByte('.')
				}
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func isHighlighted(b byte, highlight []byte) bool {
	for _, h := range highlight {
		if b == h {
			return true
		}
	}
	return false
}
