//go:build linux

// Package mednafen manages the lifecycle of the emulator process: finding a
// running instance, launching one, and shutting it down. The memory engine
// only ever consumes a PID and a liveness predicate from here.
package mednafen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// DefaultProcessName is the comm/exe basename the finder looks for.
const DefaultProcessName = "mednafen"

var (
	// ErrNotRunning is returned by Find when no matching process exists.
	ErrNotRunning = errors.New("mednafen not running")

	// ErrNotReady is returned by Launch when the emulator did not become
	// ready within the readiness timeout.
	ErrNotReady = errors.New("mednafen did not become ready")
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "mednafen"))

// Find returns the PID of a running emulator whose comm or exe basename
// equals name. The lowest PID wins, for determinism. Returns ErrNotRunning
// when there is no match.
func Find(name string) (process.ProcessID, error) {
	if name == "" {
		name = DefaultProcessName
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	best := 0

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 || pid == selfPID {
			continue
		}

		if !nameMatches(pid, name) {
			continue
		}

		if best == 0 || pid < best {
			best = pid
		}
	}

	if best == 0 {
		return 0, ErrNotRunning
	}
	return process.ProcessID(best), nil
}

func nameMatches(pid int, name string) bool {
	comm, _ := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if string(trimWS(comm)) == name {
		return true
	}

	// Resolve /proc/<pid>/exe; may fail for zombies or on permission
	exe, _ := os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
	return exe != "" && filepath.Base(exe) == name
}

// LaunchOptions configures Launch.
type LaunchOptions struct {
	Binary           string        // emulator binary, DefaultProcessName if empty
	ROM              string        // path to the ROM to boot
	Args             []string      // extra arguments, before the ROM path
	ReadinessTimeout time.Duration // bound on the readiness poll, default 10s
}

// Launch starts the emulator and polls until it is ready for discovery: the
// process exists and has at least one rw mapping big enough to hold console
// RAM. The poll replaces a fixed startup sleep; it is bounded by
// ReadinessTimeout and backs off additively between probes.
func Launch(opts LaunchOptions) (process.ProcessID, error) {
	binary := opts.Binary
	if binary == "" {
		binary = DefaultProcessName
	}
	timeout := opts.ReadinessTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	args := append([]string{}, opts.Args...)
	if opts.ROM != "" {
		args = append(args, opts.ROM)
	}

	cmd := exec.Command(binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch %s: %w", binary, err)
	}

	pid := process.ProcessID(cmd.Process.Pid)
	log.Infoln("Launched", binary, "pid", pid)

	// Reap the child when it eventually exits so it cannot linger as a
	// zombie and confuse liveness checks.
	go func() { _ = cmd.Wait() }()

	if err := waitReady(pid, timeout, readyForDiscovery); err != nil {
		return pid, err
	}

	return pid, nil
}

// readinessProbe reports whether the emulator at pid is far enough along to
// be scanned.
type readinessProbe func(pid process.ProcessID) bool

func readyForDiscovery(pid process.ProcessID) bool {
	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		return false
	}
	for _, item := range memory_map.FilterReadWrite(mm) {
		if item.Size >= 0x800 {
			return true
		}
	}
	return false
}

func waitReady(pid process.ProcessID, timeout time.Duration, probe readinessProbe) error {
	deadline := time.Now().Add(timeout)
	tick := 25 * time.Millisecond
	for {
		if !procExists(int(pid)) {
			return fmt.Errorf("pid %d exited during startup: %w", pid, ErrNotReady)
		}
		if probe(pid) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pid %d: %w after %s", pid, ErrNotReady, timeout)
		}
		time.Sleep(tick)
		// Additive backoff up to 250ms to reduce pressure on /proc
		if tick < 250*time.Millisecond {
			tick += 10 * time.Millisecond
		}
	}
}

// Terminate sends SIGTERM, waits for the process to leave /proc, and falls
// back to SIGKILL if it did not exit in time. Already-gone processes are
// treated as success.
func Terminate(pid process.ProcessID) error {
	if err := unix.Kill(int(pid), unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}

	if WaitExit(pid, 3*time.Second) {
		return nil
	}

	log.Infoln("Pid", pid, "ignored SIGTERM, sending SIGKILL")
	if err := unix.Kill(int(pid), unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	if !WaitExit(pid, 3*time.Second) {
		return fmt.Errorf("pid %d did not exit after SIGKILL", pid)
	}
	return nil
}

// WaitExit waits until the PID disappears from /proc or until timeout.
// Returns true if the process exited within the timeout.
func WaitExit(pid process.ProcessID, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	tick := 25 * time.Millisecond
	for {
		if !procExists(int(pid)) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(tick)
		if tick < 250*time.Millisecond {
			tick += 10 * time.Millisecond
		}
	}
}

func procExists(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

func trimWS(b []byte) []byte {
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
