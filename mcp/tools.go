package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/struktured-labs/mednafen-mcp/drmario"
	"github.com/struktured-labs/mednafen-mcp/nesram"
)

// Argument and result types for each tool. Every call path produces the same
// fixed field set; there are no ad hoc keys.

type ReadMemoryArgs struct {
	Address int `json:"address"`
	Size    int `json:"size"`
}

type ReadMemoryResult struct {
	Address string `json:"address"`
	Size    int    `json:"size"`
	Data    string `json:"data"`
	Values  []int  `json:"values"`
}

type WriteMemoryArgs struct {
	Address int   `json:"address"`
	Data    []int `json:"data"`
}

type WriteMemoryResult struct {
	Success bool `json:"success"`
}

type ConnectResult struct {
	Success bool   `json:"success"`
	PID     int    `json:"pid"`
	RAMBase string `json:"nes_ram_base,omitempty"`
	Message string `json:"message"`
}

type CandidateResult struct {
	Address    string `json:"address"`
	Region     string `json:"region"`
	VirusCount int    `json:"virus_count"`
	EmptyCount int    `json:"empty_count"`
	LeftColor  int    `json:"left_color"`
	RightColor int    `json:"right_color"`
}

type FindRAMResult struct {
	Found      bool              `json:"found"`
	RAMBase    string            `json:"nes_ram_base,omitempty"`
	Candidates []CandidateResult `json:"candidates"`
}

type PlayerResult struct {
	drmario.Player
	Viruses      []drmario.Virus `json:"viruses"`
	CapsuleTiles int             `json:"capsule_tiles"`
	PlayfieldHex string          `json:"playfield_hex"`
}

type GameStateResult struct {
	Frame           uint8        `json:"frame"`
	GameMode        uint8        `json:"game_mode"`
	Orientation     uint8        `json:"orientation"`
	OrientationName string       `json:"orientation_name"`
	Player1         PlayerResult `json:"player1"`
	Player2         PlayerResult `json:"player2"`
}

type PlayfieldArgs struct {
	Player int `json:"player"`
}

type PlayfieldResult struct {
	Player    int    `json:"player"`
	Playfield string `json:"playfield"`
}

type MapsResult struct {
	Maps string `json:"maps"`
}

func (s *Server) callConnect() (any, error) {
	info, err := s.session.Connect()
	if err != nil {
		return nil, err
	}

	result := ConnectResult{
		Success: true,
		PID:     int(info.PID),
		Message: fmt.Sprintf("Connected to emulator (PID %d)", info.PID),
	}
	if info.Found {
		result.RAMBase = info.Base.ToString()
		result.Message += ", NES RAM at " + result.RAMBase
	} else {
		result.Message += ", NES RAM not found yet"
	}
	return result, nil
}

func (s *Server) callReadMemory(raw json.RawMessage) (any, error) {
	args := ReadMemoryArgs{Size: 1}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Address < 0 || args.Address > 0xFFFF {
		return nil, nesram.ErrAddressOutOfRange
	}

	data, err := s.session.ReadAt(uint16(args.Address), args.Size)
	if err != nil {
		return nil, err
	}

	values := make([]int, len(data))
	for i, b := range data {
		values[i] = int(b)
	}
	return ReadMemoryResult{
		Address: fmt.Sprintf("$%04X", args.Address),
		Size:    args.Size,
		Data:    fmt.Sprintf("%x", data),
		Values:  values,
	}, nil
}

func (s *Server) callWriteMemory(raw json.RawMessage) (any, error) {
	var args WriteMemoryArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Address < 0 || args.Address > 0xFFFF {
		return nil, nesram.ErrAddressOutOfRange
	}

	data := make([]byte, len(args.Data))
	for i, v := range args.Data {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("%w: byte value %d at index %d", errInvalidParams, v, i)
		}
		data[i] = byte(v)
	}

	if err := s.session.WriteAt(uint16(args.Address), data); err != nil {
		return nil, err
	}
	return WriteMemoryResult{Success: true}, nil
}

func (s *Server) callGameState() (any, error) {
	state, err := s.session.SnapshotState()
	if err != nil {
		return nil, err
	}

	return GameStateResult{
		Frame:           state.FrameCounter,
		GameMode:        state.GameMode,
		Orientation:     uint8(state.Orientation),
		OrientationName: state.OrientationName,
		Player1:         playerResult(state.Player1),
		Player2:         playerResult(state.Player2),
	}, nil
}

func playerResult(p drmario.Player) PlayerResult {
	viruses := p.Playfield.Viruses()
	if viruses == nil {
		viruses = []drmario.Virus{}
	}
	return PlayerResult{
		Player:       p,
		Viruses:      viruses,
		CapsuleTiles: p.Playfield.CapsuleTiles(),
		PlayfieldHex: fmt.Sprintf("%x", p.Playfield.Raw()),
	}
}

func (s *Server) callPlayfield(raw json.RawMessage) (any, error) {
	args := PlayfieldArgs{Player: 2}
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Player != 1 && args.Player != 2 {
		return nil, fmt.Errorf("%w: player must be 1 or 2", errInvalidParams)
	}

	state, err := s.session.SnapshotState()
	if err != nil {
		return nil, err
	}

	field := &state.Player2.Playfield
	if args.Player == 1 {
		field = &state.Player1.Playfield
	}
	return PlayfieldResult{
		Player:    args.Player,
		Playfield: drmario.RenderPlayfield(field, false),
	}, nil
}

func (s *Server) callFindRAM() (any, error) {
	report, err := s.session.Discover()
	if err != nil {
		if errors.Is(err, nesram.ErrNotFound) {
			return FindRAMResult{Found: false, Candidates: []CandidateResult{}}, nil
		}
		return nil, err
	}

	result := FindRAMResult{
		Found:      true,
		RAMBase:    report.Base.ToString(),
		Candidates: make([]CandidateResult, 0, len(report.Candidates)),
	}
	for _, c := range report.Candidates {
		result.Candidates = append(result.Candidates, CandidateResult{
			Address:    c.Address.ToString(),
			Region:     c.Region,
			VirusCount: c.Metrics["virus_count"],
			EmptyCount: c.Metrics["empty_count"],
			LeftColor:  c.Metrics["left_color"],
			RightColor: c.Metrics["right_color"],
		})
	}
	return result, nil
}

func (s *Server) callGetMaps() (any, error) {
	mm, err := s.session.RegionMap()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, item := range mm {
		sb.WriteString(item.String())
		sb.WriteByte('\n')
	}
	return MapsResult{Maps: sb.String()}, nil
}

var errInvalidParams = errors.New("invalid params")

func unmarshalArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

// errorFor maps engine errors onto the transport's stable code vocabulary.
func errorFor(err error) *ErrorObject {
	code := CodeInternalError
	switch {
	case errors.Is(err, errInvalidParams):
		code = CodeInvalidParams
	case errors.Is(err, nesram.ErrAddressOutOfRange):
		code = CodeAddressOutOfRange
	case errors.Is(err, nesram.ErrProcessUnavailable):
		code = CodeProcessUnavailable
	case errors.Is(err, nesram.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, nesram.ErrReadFailed):
		code = CodeReadFailed
	case errors.Is(err, nesram.ErrWriteFailed):
		code = CodeWriteFailed
	case errors.Is(err, nesram.ErrAmbiguous):
		code = CodeAmbiguous
	}
	return &ErrorObject{Code: code, Message: err.Error()}
}
