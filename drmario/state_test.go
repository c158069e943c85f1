package drmario

import (
	"strings"
	"testing"
)

func ramWindow() []byte {
	data := make([]byte, WindowSize)
	data[addrFrameCounter] = 0x42
	data[addrGameMode] = 4
	data[addrOrientation] = 1

	// player 1
	data[addrP1Block+blockLeftColor] = 0
	data[addrP1Block+blockRightColor] = 2
	data[addrP1Block+blockX] = 3
	data[addrP1Block+blockY] = 7
	data[addrP1Block+blockLevel] = 10
	data[addrP1Block+blockVirusCount] = 4

	// player 2
	data[addrP2Block+blockLeftColor] = 1
	data[addrP2Block+blockRightColor] = 1
	data[addrP2Block+blockX] = 4
	data[addrP2Block+blockY] = 12
	data[addrP2Block+blockLevel] = 10
	data[addrP2Block+blockVirusCount] = 3

	// playfields default to empty
	for i := 0; i < FieldSize; i++ {
		data[addrP1Playfield+i] = 0xFF
		data[addrP2Playfield+i] = 0xFF
	}
	return data
}

func TestDecodeGameState(t *testing.T) {
	data := ramWindow()

	// p2 viruses: yellow at (0,0), red at (1,1), blue at (2,6)
	data[addrP2Playfield+0] = 0xD0
	data[addrP2Playfield+1*FieldCols+1] = 0xD1
	data[addrP2Playfield+2*FieldCols+6] = 0xD2

	state, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if state.FrameCounter != 0x42 {
		t.Errorf("FrameCounter = %#x, want 0x42", state.FrameCounter)
	}
	if state.GameMode != 4 {
		t.Errorf("GameMode = %d, want 4", state.GameMode)
	}
	if state.OrientationName != "vertical" {
		t.Errorf("OrientationName = %q, want vertical", state.OrientationName)
	}

	p1 := state.Player1
	if p1.LeftColorName != "yellow" || p1.RightColorName != "blue" {
		t.Errorf("p1 colors = %s/%s, want yellow/blue", p1.LeftColorName, p1.RightColorName)
	}
	if p1.X != 3 || p1.Y != 7 || p1.Level != 10 || p1.VirusCount != 4 {
		t.Errorf("p1 scalar fields wrong: %+v", p1)
	}

	viruses := state.Player2.Playfield.Viruses()
	want := []Virus{
		{Row: 0, Col: 0, Color: "yellow"},
		{Row: 1, Col: 1, Color: "red"},
		{Row: 2, Col: 6, Color: "blue"},
	}
	if len(viruses) != len(want) {
		t.Fatalf("got %d viruses, want %d", len(viruses), len(want))
	}
	for i, v := range viruses {
		if v != want[i] {
			t.Errorf("virus %d = %+v, want %+v", i, v, want[i])
		}
	}

	if n := state.Player1.Playfield.Viruses(); len(n) != 0 {
		t.Errorf("p1 playfield should be empty, got %d viruses", len(n))
	}
}

func TestDecodeCapsuleTiles(t *testing.T) {
	data := ramWindow()
	data[addrP1Playfield+8] = 0x60  // left half, yellow
	data[addrP1Playfield+9] = 0x71  // right half, red
	data[addrP1Playfield+20] = 0x82 // single, blue

	state, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if n := state.Player1.Playfield.CapsuleTiles(); n != 3 {
		t.Errorf("CapsuleTiles = %d, want 3", n)
	}

	cell := state.Player1.Playfield.Cells[1][0]
	if cell.Kind != CellCapsule || cell.Part != PartLeft || cell.Color != Yellow {
		t.Errorf("cell = %+v, want left yellow capsule", cell)
	}
}

func TestDecodeUnrecognizedValues(t *testing.T) {
	data := ramWindow()
	data[addrOrientation] = 9
	data[addrP1Block+blockLeftColor] = 88
	data[addrP2Playfield+5] = 0x21 // not empty, virus or capsule
	data[addrP2Playfield+6] = 0x65 // capsule nibble, impossible color

	state, err := Decode(data)
	if err != nil {
		t.Fatalf("unknown values must not fail decode: %v", err)
	}

	if state.OrientationName != "unrecognized" {
		t.Errorf("OrientationName = %q, want unrecognized", state.OrientationName)
	}
	if state.Player1.LeftColorName != "unrecognized" {
		t.Errorf("LeftColorName = %q, want unrecognized", state.Player1.LeftColorName)
	}
	if kind := state.Player2.Playfield.Cells[0][5].Kind; kind != CellUnrecognized {
		t.Errorf("cell kind = %v, want unrecognized", kind)
	}
	if kind := state.Player2.Playfield.Cells[0][6].Kind; kind != CellUnrecognized {
		t.Errorf("bad-color capsule kind = %v, want unrecognized", kind)
	}
}

func TestDecodeShortInput(t *testing.T) {
	if _, err := Decode(make([]byte, WindowSize-1)); err == nil {
		t.Fatal("short input must fail")
	}
}

func TestDecodeZeroedRAM(t *testing.T) {
	// Power-on RAM is all zeroes; every cell decodes as empty.
	state, err := Decode(make([]byte, WindowSize))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for row := 0; row < FieldRows; row++ {
		for col := 0; col < FieldCols; col++ {
			if state.Player2.Playfield.Cells[row][col].Kind != CellEmpty {
				t.Fatalf("cell (%d,%d) not empty", row, col)
			}
		}
	}
}

func TestRenderPlayfield(t *testing.T) {
	data := ramWindow()
	data[addrP2Playfield+0] = 0xD1 // red virus top-left
	data[addrP2Playfield+9] = 0x80 // single capsule at (1,1)

	state, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	out := RenderPlayfield(&state.Player2.Playfield, false)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != FieldRows {
		t.Fatalf("got %d lines, want %d", len(lines), FieldRows)
	}
	if !strings.HasPrefix(lines[0], "V") {
		t.Errorf("line 0 = %q, want leading V", lines[0])
	}
	if !strings.Contains(lines[1], "o") {
		t.Errorf("line 1 = %q, want capsule glyph", lines[1])
	}
}
