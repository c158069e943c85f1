// Package process defines the types and the narrow interface through which
// the rest of the system observes a target process's address space. The only
// implementation that talks to a real process lives in process_linux; tests
// substitute in-memory fakes.
package process

import "errors"

var (
	// ErrProcessNotOpen is returned when an operation requiring an open process
	// is attempted before the process has been opened or after it was closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessGone is returned when the target process has exited between
	// handle acquisition and the operation.
	ErrProcessGone = errors.New("process gone")

	// ErrAddressNotMapped is returned when a memory address is not found within
	// any mapped region of the process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrPartialRead is returned when a read obtained fewer bytes than
	// requested. Callers never see short data; the read fails as a whole.
	ErrPartialRead = errors.New("partial read")

	// ErrPartialWrite is returned when a write delivered fewer bytes than
	// requested.
	ErrPartialWrite = errors.New("partial write")
)
