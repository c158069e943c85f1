package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/struktured-labs/mednafen-mcp/nesram"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ServerName and ServerVersion identify this server in the handshake.
const (
	ServerName    = "mednafen-mcp"
	ServerVersion = "0.1.0"
)

// Server runs the request/response loop over a nesram session.
type Server struct {
	session *nesram.Session
	log     *logger.Logger
}

// NewServer creates a server around session.
func NewServer(session *nesram.Session) *Server {
	return &Server{
		session: session,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "mcp")),
	}
}

// maxLineBytes bounds one request line. Longer lines are rejected with an
// error response; they never terminate the serve loop.
const maxLineBytes = 1024 * 1024

// Run reads newline-delimited JSON-RPC requests from in and writes one
// response line per request to out, until EOF. Lines that are not valid
// JSON are skipped; every parsed request gets exactly one response, either
// a result or an error object. A failing request never takes the loop down
// with it.
func (s *Server) Run(in io.Reader, out io.Writer) error {
	reader := bufio.NewReaderSize(in, 64*1024)

	for {
		line, tooLong, err := readLine(reader)
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return fmt.Errorf("read request: %w", err)
		}

		switch {
		case tooLong:
			s.log.Debugln("Rejecting oversize request line")
			resp := &Response{JSONRPC: "2.0", Error: &ErrorObject{
				Code:    CodeInvalidParams,
				Message: fmt.Sprintf("request line exceeds %d bytes", maxLineBytes),
			}}
			if err := writeResponse(out, resp); err != nil {
				return err
			}
		case len(line) > 0:
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				s.log.Debugln("Skipping unparseable request:", err)
				break
			}
			if err := writeResponse(out, s.Handle(&req)); err != nil {
				return err
			}
		}

		if atEOF {
			return nil
		}
	}
}

// readLine accumulates one newline-terminated line, up to maxLineBytes.
// Oversize lines are consumed to their end and reported via tooLong with the
// content dropped.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return line, tooLong, err
		}
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > maxLineBytes {
				line = nil
				tooLong = true
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func writeResponse(out io.Writer, resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if _, err := out.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Handle dispatches one request and builds its response.
func (s *Server) Handle(req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: ServerName, Version: ServerVersion},
		}
	case "tools/list":
		resp.Result = ToolsListResult{Tools: toolCatalog}
	case "tools/call":
		var params CallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &ErrorObject{Code: CodeInvalidParams, Message: err.Error()}
			break
		}
		result, err := s.callTool(params.Name, params.Arguments)
		if err != nil {
			resp.Error = errorFor(err)
			break
		}
		text, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			resp.Error = &ErrorObject{Code: CodeInternalError, Message: err.Error()}
			break
		}
		resp.Result = CallResult{Content: []ContentItem{{Type: "text", Text: string(text)}}}
	default:
		resp.Error = &ErrorObject{Code: CodeMethodNotFound, Message: "unknown method: " + req.Method}
	}

	return resp
}

func (s *Server) callTool(name string, args json.RawMessage) (any, error) {
	switch name {
	case "connect":
		return s.callConnect()
	case "read_memory":
		return s.callReadMemory(args)
	case "write_memory":
		return s.callWriteMemory(args)
	case "game_state":
		return s.callGameState()
	case "playfield":
		return s.callPlayfield(args)
	case "find_ram":
		return s.callFindRAM()
	case "get_maps":
		return s.callGetMaps()
	}
	return nil, fmt.Errorf("%w: unknown tool %q", errInvalidParams, name)
}

func schema(s string) json.RawMessage { return json.RawMessage(s) }

var toolCatalog = []Tool{
	{
		Name:        "connect",
		Description: "Connect to the running emulator and auto-discover NES RAM",
		InputSchema: schema(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "read_memory",
		Description: "Read bytes from NES RAM (0x0000-0x07FF)",
		InputSchema: schema(`{"type":"object","properties":{
			"address":{"type":"integer","description":"NES RAM address (0x0000-0x07FF)"},
			"size":{"type":"integer","description":"Number of bytes to read","default":1}
		},"required":["address"]}`),
	},
	{
		Name:        "write_memory",
		Description: "Write bytes to NES RAM",
		InputSchema: schema(`{"type":"object","properties":{
			"address":{"type":"integer","description":"NES RAM address (0x0000-0x07FF)"},
			"data":{"type":"array","items":{"type":"integer"},"description":"Bytes to write (0-255)"}
		},"required":["address","data"]}`),
	},
	{
		Name:        "game_state",
		Description: "Get Dr. Mario game state (capsule colors, positions, viruses, both players)",
		InputSchema: schema(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "playfield",
		Description: "Render a player's playfield as an ASCII grid",
		InputSchema: schema(`{"type":"object","properties":{
			"player":{"type":"integer","description":"Player number (1 or 2)","default":2}
		}}`),
	},
	{
		Name:        "find_ram",
		Description: "Search emulator process memory for NES RAM",
		InputSchema: schema(`{"type":"object","properties":{}}`),
	},
	{
		Name:        "get_maps",
		Description: "Get emulator process memory maps (debugging)",
		InputSchema: schema(`{"type":"object","properties":{}}`),
	},
}
