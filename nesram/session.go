package nesram

import (
	"errors"
	"fmt"
	"sync"

	"github.com/struktured-labs/mednafen-mcp/drmario"
	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Finder locates the target emulator in the OS process table.
type Finder func() (process.ProcessID, error)

// Opener attaches to a PID for memory operations.
type Opener func(process.ProcessID) (process.Process, error)

// Session tracks one logical connection to the emulator: the process handle
// and the discovered RAM base, plus the consecutive-validation-failure
// counter. All methods serialize on an internal mutex; concurrent discovery
// attempts against the same session are never allowed to race (a second scan
// could overwrite a just-validated base with a stale result).
//
// A session holds no persistent state: the base is rediscovered on every
// run of the hosting program.
type Session struct {
	mu        sync.Mutex
	log       *logger.Logger
	find      Finder
	open      Opener
	threshold int

	proc     process.Process
	base     process.ProcessMemoryAddress
	failures int
}

// Option configures a Session.
type Option func(*Session)

// WithFinder sets how the session locates the emulator process.
func WithFinder(f Finder) Option {
	return func(s *Session) { s.find = f }
}

// WithOpener sets how the session attaches to a located PID.
func WithOpener(o Opener) Option {
	return func(s *Session) { s.open = o }
}

// WithProcess pre-attaches an already open process handle.
func WithProcess(p process.Process) Option {
	return func(s *Session) { s.proc = p }
}

// WithValidationThreshold overrides DefaultValidationThreshold. Reaching the
// threshold clears the base; n-1 consecutive failures retain it.
func WithValidationThreshold(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// NewSession creates a session. Without a Finder/Opener (or a pre-attached
// process) every operation fails with ErrProcessUnavailable.
func NewSession(opts ...Option) *Session {
	s := &Session{
		log:       logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "nesram")),
		threshold: DefaultValidationThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectInfo reports the outcome of Connect.
type ConnectInfo struct {
	PID   process.ProcessID
	Base  process.ProcessMemoryAddress // 0 when discovery has not succeeded
	Found bool
}

// Connect locates the emulator, attaches to it, and attempts RAM discovery.
// A missing process is an error; a process without a discoverable RAM is
// not, since the emulator may still be booting the game. Discovery is
// retried on first use.
func (s *Session) Connect() (ConnectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(); err != nil {
		return ConnectInfo{}, err
	}

	info := ConnectInfo{PID: s.proc.GetPID()}
	if _, err := s.discoverLocked(); err == nil {
		info.Base = s.base
		info.Found = true
	}
	return info, nil
}

// EnsureConnected verifies there is a live attached process, connecting if
// necessary.
func (s *Session) EnsureConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureProcessLocked()
}

// Close releases the process handle. The emulator itself is not touched.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.proc != nil {
		err = s.proc.Close()
	}
	s.clearLocked()
	return err
}

// Discover runs a discovery scan now and stores the resulting base. The
// previous base, if any, is replaced only on success.
func (s *Session) Discover() (DiscoveryReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureProcessLocked(); err != nil {
		return DiscoveryReport{}, err
	}
	return s.discoverLocked()
}

// Base returns the currently discovered base, 0 when unknown.
func (s *Session) Base() process.ProcessMemoryAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// ReadAt reads n bytes starting at a logical RAM address. The address range
// is checked before any I/O is attempted.
func (s *Session) ReadAt(addr uint16, n int) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBaseLocked(); err != nil {
		return nil, err
	}

	data, err := s.proc.ReadMemory(s.base+process.ProcessMemoryAddress(addr), process.ProcessMemorySize(n))
	if err != nil {
		return nil, s.ioFailureLocked(err, ErrReadFailed)
	}
	return data, nil
}

// WriteAt writes data starting at a logical RAM address. The address range
// is checked before any I/O is attempted.
func (s *Session) WriteAt(addr uint16, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBaseLocked(); err != nil {
		return err
	}

	if err := s.proc.WriteMemory(s.base+process.ProcessMemoryAddress(addr), data); err != nil {
		return s.ioFailureLocked(err, ErrWriteFailed)
	}
	return nil
}

// SnapshotState reads the whole fingerprint window in one contiguous read
// and decodes it. Because the decoder only ever sees that single read, the
// returned state is a consistent snapshot.
func (s *Session) SnapshotState() (drmario.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBaseLocked(); err != nil {
		return drmario.GameState{}, err
	}

	window, err := s.proc.ReadMemory(s.base, WindowSize)
	if err != nil {
		return drmario.GameState{}, s.ioFailureLocked(err, ErrReadFailed)
	}
	return drmario.Decode(window)
}

// RegionMap returns a fresh snapshot of the target's mapped regions.
func (s *Session) RegionMap() ([]memory_map.MemoryMapItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureProcessLocked(); err != nil {
		return nil, err
	}
	if err := s.proc.UpdateMemoryMap(); err != nil {
		s.clearLocked()
		return nil, fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}
	mm, err := s.proc.GetMemoryMap()
	if err != nil {
		s.clearLocked()
		return nil, fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}
	return mm, nil
}

func checkRange(addr uint16, n int) error {
	// Compared as a remaining-capacity bound so a huge n cannot overflow
	// the addition.
	if n < 0 || int(addr) >= RAMSize || n > RAMSize-int(addr) {
		return fmt.Errorf("%w: $%04X+%d", ErrAddressOutOfRange, addr, n)
	}
	return nil
}

// connectLocked (re)derives the process handle from the OS process table.
func (s *Session) connectLocked() error {
	if s.find == nil || s.open == nil {
		return fmt.Errorf("%w: no process finder configured", ErrProcessUnavailable)
	}

	pid, err := s.find()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}

	proc, err := s.open(pid)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}

	s.proc = proc
	s.base = 0
	s.failures = 0
	s.log.Infoln("Connected to emulator pid", pid)
	return nil
}

// ensureProcessLocked guarantees a live attached process. A dead process
// clears the session for this call; the next call reconnects.
func (s *Session) ensureProcessLocked() error {
	if s.proc == nil {
		return s.connectLocked()
	}
	if !s.proc.IsAlive() {
		s.log.Infoln("Emulator process exited, clearing session")
		s.clearLocked()
		return fmt.Errorf("%w: process exited", ErrProcessUnavailable)
	}
	return nil
}

// ensureBaseLocked guarantees a live process and a validated base,
// discovering when absent and re-validating when present.
func (s *Session) ensureBaseLocked() error {
	if err := s.ensureProcessLocked(); err != nil {
		return err
	}
	if s.base == 0 {
		_, err := s.discoverLocked()
		return err
	}
	if !s.validateLocked() {
		return fmt.Errorf("%w: base validation failed", ErrReadFailed)
	}
	return nil
}

func (s *Session) discoverLocked() (DiscoveryReport, error) {
	report, err := Scan(s.proc)
	if err != nil {
		if errors.Is(err, ErrProcessUnavailable) {
			s.clearLocked()
		}
		return report, err
	}

	s.base = report.Base
	s.failures = 0
	s.log.Infoln("NES RAM discovered at", report.Base.ToString(),
		"(", len(report.Candidates), "candidates )")
	return report, nil
}

// ioFailureLocked translates a raw I/O error against the base into the
// session's stable error vocabulary and invalidates the relevant state.
func (s *Session) ioFailureLocked(err error, kind error) error {
	if errors.Is(err, process.ErrProcessGone) || (s.proc != nil && !s.proc.IsAlive()) {
		s.log.Infoln("Emulator process gone mid-operation, clearing session")
		s.clearLocked()
		return fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}

	// The base points at memory that no longer behaves like RAM; force a
	// rediscovery on next use.
	s.base = 0
	s.failures = 0
	return fmt.Errorf("%w: %v", kind, err)
}

func (s *Session) clearLocked() {
	s.proc = nil
	s.base = 0
	s.failures = 0
}
