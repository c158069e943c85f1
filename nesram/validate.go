package nesram

import (
	"github.com/struktured-labs/mednafen-mcp/signature"
)

// Validate re-checks that the discovered base still points at NES RAM. It is
// far cheaper than discovery: one bounded read at the known base and only
// the secondary range predicates of the fingerprint, no population scan.
//
// The base moves through three states. A fresh discovery makes it Valid. A
// validation failure leaves it Suspect but retained; one bad read is
// usually a transient, such as the emulator rewriting state on a frame
// boundary. Consecutive failures reaching the threshold clear the base
// entirely, forcing rediscovery on next use. Any success snaps it back to
// Valid and resets the failure count.
//
// A dead process invalidates immediately, regardless of the failure count.
func (s *Session) Validate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() bool {
	if s.proc == nil || s.base == 0 {
		return false
	}

	if !s.proc.IsAlive() {
		s.log.Infoln("Emulator process died, invalidating base")
		s.clearLocked()
		return false
	}

	window, err := s.proc.ReadMemory(s.base, WindowSize)
	ok := err == nil && signature.CheckRanges(window, RAMSignature())
	if !ok {
		s.failures++
		s.log.Debugln("Base validation failure", s.failures, "of", s.threshold)
		if s.failures >= s.threshold {
			s.log.Infoln("Validation failure threshold reached, clearing base")
			s.base = 0
			s.failures = 0
		}
		return false
	}

	s.failures = 0
	return true
}

// ConsecutiveFailures reports the current validation failure streak.
func (s *Session) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
