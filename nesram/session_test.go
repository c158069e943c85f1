package nesram

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/struktured-labs/mednafen-mcp/process"
)

func TestSessionEndToEndDiscoverAndSnapshot(t *testing.T) {
	// Scenario: a region of zeroed RAM except three virus tiles and the two
	// capsule color bytes. Discovery must find the region base and the
	// snapshot must decode exactly those three viruses.
	session, _ := sessionWithRAM(0x500000, drMarioRAM())

	report, err := session.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if report.Base != 0x500000 {
		t.Fatalf("Base = %s, want 0x500000", report.Base.ToString())
	}
	if session.Base() != report.Base {
		t.Fatalf("session base %s != report base %s", session.Base().ToString(), report.Base.ToString())
	}

	state, err := session.SnapshotState()
	if err != nil {
		t.Fatalf("SnapshotState: %v", err)
	}

	viruses := state.Player2.Playfield.Viruses()
	if len(viruses) != 3 {
		t.Fatalf("decoded %d viruses, want 3", len(viruses))
	}
	// playfield indices 0, 9 and 22 -> (row,col) (0,0), (1,1), (2,6)
	wantCoords := [][2]int{{0, 0}, {1, 1}, {2, 6}}
	for i, v := range viruses {
		if v.Row != wantCoords[i][0] || v.Col != wantCoords[i][1] {
			t.Errorf("virus %d at (%d,%d), want (%d,%d)", i, v.Row, v.Col, wantCoords[i][0], wantCoords[i][1])
		}
	}
	if state.Player2.LeftColorName != "yellow" || state.Player2.RightColorName != "red" {
		t.Errorf("p2 colors = %s/%s, want yellow/red",
			state.Player2.LeftColorName, state.Player2.RightColorName)
	}
}

func TestSessionDiscoverNotFound(t *testing.T) {
	// Scenario: no region satisfies the fingerprint.
	proc := newFakeProcess(7)
	proc.addRegion(0x100000, "rw-p", make([]byte, 0x2000))
	session := NewSession(WithProcess(proc))

	_, err := session.Discover()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if session.Base() != 0 {
		t.Fatalf("base set to %s after failed discovery", session.Base().ToString())
	}
}

func TestSessionDeadProcessClearsState(t *testing.T) {
	// Scenario: a previously valid base whose process dies. The next read
	// fails with ErrProcessUnavailable and the session state is cleared.
	session, proc := sessionWithRAM(0x500000, drMarioRAM())
	if _, err := session.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	proc.alive = false

	_, err := session.ReadAt(0x0381, 1)
	if !errors.Is(err, ErrProcessUnavailable) {
		t.Fatalf("err = %v, want ErrProcessUnavailable", err)
	}
	if session.Base() != 0 {
		t.Fatal("base not cleared after process death")
	}

	// With no finder configured, the cleared session cannot reconnect.
	if err := session.EnsureConnected(); !errors.Is(err, ErrProcessUnavailable) {
		t.Fatalf("EnsureConnected err = %v, want ErrProcessUnavailable", err)
	}
}

func TestSessionAddressBounds(t *testing.T) {
	session, proc := sessionWithRAM(0x500000, drMarioRAM())

	tests := []struct {
		name string
		addr uint16
		n    int
	}{
		{"address past ram", 0x800, 1},
		{"length crosses end", 0x7FF, 2},
		{"huge length", 0, RAMSize + 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := proc.reads + proc.writes

			if _, err := session.ReadAt(tc.addr, tc.n); !errors.Is(err, ErrAddressOutOfRange) {
				t.Fatalf("ReadAt err = %v, want ErrAddressOutOfRange", err)
			}
			if err := session.WriteAt(tc.addr, make([]byte, tc.n)); !errors.Is(err, ErrAddressOutOfRange) {
				t.Fatalf("WriteAt err = %v, want ErrAddressOutOfRange", err)
			}

			if proc.reads+proc.writes != before {
				t.Fatal("out-of-range request reached the I/O layer")
			}
		})
	}
}

func TestSessionReadLengthOverflow(t *testing.T) {
	// A length near MaxInt must not wrap the addr+n bound check around and
	// slip past the guard into an allocation.
	session, proc := sessionWithRAM(0x500000, drMarioRAM())

	lengths := []int{math.MaxInt, math.MaxInt - int(0x7FF), RAMSize * 2}
	for _, n := range lengths {
		if _, err := session.ReadAt(1, n); !errors.Is(err, ErrAddressOutOfRange) {
			t.Fatalf("ReadAt(1, %d) err = %v, want ErrAddressOutOfRange", n, err)
		}
	}
	if proc.reads != 0 {
		t.Fatalf("overflowing length reached the I/O layer (%d reads)", proc.reads)
	}
}

func TestSessionReadWriteRoundTrip(t *testing.T) {
	session, _ := sessionWithRAM(0x500000, drMarioRAM())

	if err := session.WriteAt(0x0385, []byte{9}); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got, err := session.ReadAt(0x0385, 1)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if got[0] != 9 {
		t.Fatalf("read back %d, want 9", got[0])
	}
}

func TestValidateThresholdBoundary(t *testing.T) {
	// Scenario: five consecutive validation failures with threshold five
	// clear the base on the fifth; four failures and a success retain it
	// and reset the counter.
	session, proc := sessionWithRAM(0x500000, drMarioRAM(), WithValidationThreshold(5))
	if _, err := session.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	base := session.Base()

	// Corrupt a secondary predicate byte so validation fails.
	ram := proc.data[0x500000]
	ram[leftColorOffset] = 9

	for i := 1; i <= 4; i++ {
		if session.Validate() {
			t.Fatalf("validation %d unexpectedly passed", i)
		}
		if session.Base() != base {
			t.Fatalf("base cleared after %d failures, threshold is 5", i)
		}
		if session.ConsecutiveFailures() != i {
			t.Fatalf("failure count = %d, want %d", session.ConsecutiveFailures(), i)
		}
	}

	// Fifth consecutive failure reaches the threshold: base cleared,
	// counter reset.
	if session.Validate() {
		t.Fatal("fifth validation unexpectedly passed")
	}
	if session.Base() != 0 {
		t.Fatal("base retained after reaching the failure threshold")
	}
	if session.ConsecutiveFailures() != 0 {
		t.Fatalf("failure count = %d after clearing, want 0", session.ConsecutiveFailures())
	}

	// Rediscover, fail four times, then succeed: base retained, counter 0.
	ram[leftColorOffset] = 0
	if _, err := session.Discover(); err != nil {
		t.Fatalf("rediscover: %v", err)
	}
	ram[leftColorOffset] = 9
	for i := 1; i <= 4; i++ {
		if session.Validate() {
			t.Fatalf("validation %d unexpectedly passed", i)
		}
	}
	ram[leftColorOffset] = 0
	if !session.Validate() {
		t.Fatal("validation should pass after the byte is restored")
	}
	if session.Base() == 0 {
		t.Fatal("base cleared despite successful validation")
	}
	if session.ConsecutiveFailures() != 0 {
		t.Fatalf("failure count = %d after success, want 0", session.ConsecutiveFailures())
	}
}

func TestValidateDeadProcessInvalidatesImmediately(t *testing.T) {
	session, proc := sessionWithRAM(0x500000, drMarioRAM())
	if _, err := session.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	proc.alive = false

	if session.Validate() {
		t.Fatal("validation passed against a dead process")
	}
	if session.Base() != 0 {
		t.Fatal("base retained after liveness failure")
	}
}

func TestValidateWithoutBase(t *testing.T) {
	session, _ := sessionWithRAM(0x500000, drMarioRAM())
	if session.Validate() {
		t.Fatal("validation passed with no discovered base")
	}
}

func TestSessionConnectViaFinder(t *testing.T) {
	proc := newFakeProcess(99)
	region := make([]byte, 0x4000)
	copy(region, drMarioRAM())
	proc.addRegion(0x600000, "rw-p", region)

	session := NewSession(
		WithFinder(func() (process.ProcessID, error) { return 99, nil }),
		WithOpener(func(pid process.ProcessID) (process.Process, error) {
			if pid != 99 {
				return nil, fmt.Errorf("unexpected pid %d", pid)
			}
			return proc, nil
		}),
	)

	info, err := session.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if info.PID != 99 {
		t.Errorf("PID = %d, want 99", info.PID)
	}
	if !info.Found || info.Base != 0x600000 {
		t.Errorf("info = %+v, want found base 0x600000", info)
	}
}

func TestSessionTransientReadGlitchRetainsBase(t *testing.T) {
	// A single failed read against a live process is treated as a
	// validation failure: the operation errors but the base survives, and
	// the next successful validation resets the streak.
	session, proc := sessionWithRAM(0x500000, drMarioRAM())
	if _, err := session.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	base := session.Base()

	// Remove the region behind the session's back: reads now fail while
	// the process stays alive.
	saved := proc.items
	proc.items = nil

	_, err := session.ReadAt(0, 1)
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("err = %v, want ErrReadFailed", err)
	}
	if session.Base() != base {
		t.Fatal("base discarded after a single transient failure")
	}
	if session.ConsecutiveFailures() != 1 {
		t.Fatalf("failure count = %d, want 1", session.ConsecutiveFailures())
	}

	// Restore the mapping; the next operation validates and succeeds.
	proc.items = saved
	if _, err := session.ReadAt(0x0381, 1); err != nil {
		t.Fatalf("read after glitch: %v", err)
	}
	if session.ConsecutiveFailures() != 0 {
		t.Fatalf("failure count = %d after success, want 0", session.ConsecutiveFailures())
	}
}
