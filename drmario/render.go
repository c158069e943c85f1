package drmario

import (
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

func cellGlyph(c Cell) (string, coloransi.ColorCode) {
	var glyph string
	switch c.Kind {
	case CellEmpty:
		return ".", 0
	case CellVirus:
		glyph = "V"
	case CellCapsule:
		glyph = "o"
	default:
		return "?", 0
	}

	switch c.Color {
	case Yellow:
		return glyph, coloransi.Yellow
	case Red:
		return glyph, coloransi.Red
	case Blue:
		return glyph, coloransi.Blue
	}
	return glyph, 0
}

// RenderPlayfield draws the field as a 16-line ASCII grid, one rune per
// cell: viruses as V, capsule halves as o, tinted by color when colorize is
// set, unrecognized tiles as ?.
func RenderPlayfield(f *Playfield, colorize bool) string {
	var sb strings.Builder
	for row := 0; row < FieldRows; row++ {
		for col := 0; col < FieldCols; col++ {
			glyph, color := cellGlyph(f.Cells[row][col])
			if colorize && color != 0 {
				sb.WriteString(coloransi.Foreground(color, glyph))
			} else {
				sb.WriteString(glyph)
			}
			if col != FieldCols-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
