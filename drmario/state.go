// Package drmario decodes Dr. Mario game state from a raw NES RAM window.
// Decoding is pure: it maps bytes at fixed offsets into typed fields and
// never reads memory itself, so every decoded snapshot is internally
// consistent: both playfields, both players and the global counters all
// come from the same instant.
package drmario

import "fmt"

// RAM offsets of the decoded fields. Player 1 and player 2 state live in two
// identically laid out blocks 0x80 apart; their playfields are 0x100 apart.
const (
	addrFrameCounter = 0x0043
	addrGameMode     = 0x0046
	addrOrientation  = 0x00A5

	addrP1Block     = 0x0301
	addrP2Block     = 0x0381
	addrP1Playfield = 0x0400
	addrP2Playfield = 0x0500

	// Offsets within a player block.
	blockLeftColor  = 0x00
	blockRightColor = 0x01
	blockX          = 0x04
	blockY          = 0x05
	blockLevel      = 0x15
	blockVirusCount = 0x23
)

// WindowSize is the minimum input length Decode accepts: everything through
// the player-2 playfield.
const WindowSize = 0x600

// Playfield geometry.
const (
	FieldCols = 8
	FieldRows = 16
	FieldSize = FieldCols * FieldRows
)

// Tile byte values.
const (
	tileEmpty   = 0xFF
	tileVirus   = 0xD0 // 0xD0 + color
	capsuleBase = 0x4  // high nibbles 4..8 are capsule halves
	capsuleLast = 0x8
)

// Color is a capsule or virus color. Raw values 0-2 are meaningful; anything
// else decodes to the Unrecognized marker rather than failing.
type Color uint8

const (
	Yellow Color = 0
	Red    Color = 1
	Blue   Color = 2
)

func (c Color) Recognized() bool { return c <= Blue }

func (c Color) String() string {
	switch c {
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	case Blue:
		return "blue"
	}
	return "unrecognized"
}

// Orientation is the falling capsule's orientation from $00A5.
type Orientation uint8

func (o Orientation) String() string {
	switch o {
	case 0:
		return "horizontal"
	case 1:
		return "vertical"
	case 2:
		return "horizontal-flipped"
	case 3:
		return "vertical-flipped"
	}
	return "unrecognized"
}

// CellKind classifies one playfield cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellVirus
	CellCapsule
	CellUnrecognized
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellVirus:
		return "virus"
	case CellCapsule:
		return "capsule"
	}
	return "unrecognized"
}

// CapsulePart is which half of a capsule occupies a cell.
type CapsulePart uint8

const (
	PartNone CapsulePart = iota
	PartTop
	PartBottom
	PartLeft
	PartRight
	PartSingle
)

func (p CapsulePart) String() string {
	switch p {
	case PartTop:
		return "top"
	case PartBottom:
		return "bottom"
	case PartLeft:
		return "left"
	case PartRight:
		return "right"
	case PartSingle:
		return "single"
	}
	return "none"
}

// Cell is one decoded playfield cell.
type Cell struct {
	Kind  CellKind    `json:"kind"`
	Color Color       `json:"color"`
	Part  CapsulePart `json:"part,omitempty"`
	Raw   byte        `json:"raw"`
}

// Virus is a virus position within a playfield.
type Virus struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Color string `json:"color"`
}

// Playfield is an 8x16 grid of decoded cells, row-major from the top.
type Playfield struct {
	Cells [FieldRows][FieldCols]Cell `json:"-"`
	raw   [FieldSize]byte
}

// Raw returns the undecoded playfield bytes.
func (f *Playfield) Raw() []byte {
	out := make([]byte, FieldSize)
	copy(out, f.raw[:])
	return out
}

// Viruses lists the virus positions in reading order.
func (f *Playfield) Viruses() []Virus {
	var out []Virus
	for row := 0; row < FieldRows; row++ {
		for col := 0; col < FieldCols; col++ {
			c := f.Cells[row][col]
			if c.Kind == CellVirus {
				out = append(out, Virus{Row: row, Col: col, Color: c.Color.String()})
			}
		}
	}
	return out
}

// CapsuleTiles counts the capsule halves resting in the field.
func (f *Playfield) CapsuleTiles() int {
	n := 0
	for row := 0; row < FieldRows; row++ {
		for col := 0; col < FieldCols; col++ {
			if f.Cells[row][col].Kind == CellCapsule {
				n++
			}
		}
	}
	return n
}

// Player is the decoded state of one player.
type Player struct {
	LeftColor      Color     `json:"left_color"`
	LeftColorName  string    `json:"left_color_name"`
	RightColor     Color     `json:"right_color"`
	RightColorName string    `json:"right_color_name"`
	X              uint8     `json:"x_pos"`
	Y              uint8     `json:"y_pos"`
	Level          uint8     `json:"level"`
	VirusCount     uint8     `json:"virus_count"`
	Playfield      Playfield `json:"-"`
}

// GameState is one consistent snapshot of the match.
type GameState struct {
	FrameCounter    uint8       `json:"frame"`
	GameMode        uint8       `json:"game_mode"`
	Orientation     Orientation `json:"orientation"`
	OrientationName string      `json:"orientation_name"`
	Player1         Player      `json:"player1"`
	Player2         Player      `json:"player2"`
}

// Decode maps a RAM window onto a GameState. The input must be at least
// WindowSize bytes; that is the only failure mode. Unknown enumerated values
// decode to "unrecognized" markers, never to errors.
func Decode(data []byte) (GameState, error) {
	if len(data) < WindowSize {
		return GameState{}, fmt.Errorf("ram window too short: %d < %d bytes", len(data), WindowSize)
	}

	state := GameState{
		FrameCounter: data[addrFrameCounter],
		GameMode:     data[addrGameMode],
		Orientation:  Orientation(data[addrOrientation]),
		Player1:      decodePlayer(data, addrP1Block, addrP1Playfield),
		Player2:      decodePlayer(data, addrP2Block, addrP2Playfield),
	}
	state.OrientationName = state.Orientation.String()
	return state, nil
}

func decodePlayer(data []byte, block, playfield int) Player {
	p := Player{
		LeftColor:  Color(data[block+blockLeftColor]),
		RightColor: Color(data[block+blockRightColor]),
		X:          data[block+blockX],
		Y:          data[block+blockY],
		Level:      data[block+blockLevel],
		VirusCount: data[block+blockVirusCount],
	}
	p.LeftColorName = p.LeftColor.String()
	p.RightColorName = p.RightColor.String()
	p.Playfield = decodePlayfield(data[playfield : playfield+FieldSize])
	return p
}

func decodePlayfield(raw []byte) Playfield {
	var f Playfield
	copy(f.raw[:], raw)
	for i, b := range f.raw {
		f.Cells[i/FieldCols][i%FieldCols] = decodeCell(b)
	}
	return f
}

func decodeCell(b byte) Cell {
	cell := Cell{Raw: b}
	switch {
	case b == tileEmpty || b == 0x00:
		cell.Kind = CellEmpty
	case b >= tileVirus && b <= tileVirus+2:
		cell.Kind = CellVirus
		cell.Color = Color(b - tileVirus)
	case b>>4 >= capsuleBase && b>>4 <= capsuleLast:
		cell.Kind = CellCapsule
		cell.Part = capsulePart(b >> 4)
		cell.Color = Color(b & 0x0F)
		if !cell.Color.Recognized() {
			cell.Kind = CellUnrecognized
			cell.Part = PartNone
		}
	default:
		cell.Kind = CellUnrecognized
	}
	return cell
}

func capsulePart(nibble byte) CapsulePart {
	switch nibble {
	case 0x4:
		return PartTop
	case 0x5:
		return PartBottom
	case 0x6:
		return PartLeft
	case 0x7:
		return PartRight
	case 0x8:
		return PartSingle
	}
	return PartNone
}
