// Package nesram locates the emulated NES work RAM inside the emulator's
// address space and keeps track of it across reads. The emulator exposes no
// symbols and may map the RAM anywhere, so the base address is found by
// fingerprinting: a 2 KiB window whose contents look like an in-progress
// Dr. Mario match. Once found, the base is cheaply re-validated before use
// and rediscovered when it goes stale.
package nesram

import (
	"errors"

	"github.com/struktured-labs/mednafen-mcp/signature"
)

const (
	// RAMSize is the size of NES work RAM; logical addresses are $0000-$07FF.
	RAMSize = 0x800

	// WindowSize is the span of the fingerprint window. It covers the zero
	// page through the player-2 playfield, everything the signature and the
	// state decoder need in one contiguous read.
	WindowSize = 0x600

	// ScanStride is the step between scanned window positions. The emulator
	// allocates console RAM on a coarse boundary, so probing every 16th
	// offset finds it at a fraction of the cost of a byte-by-byte scan.
	ScanStride = 16

	// MinRegionSize and MaxRegionSize bound which mappings are eligible for
	// scanning. Too small cannot hold the RAM; too large is a shared
	// library or an unrelated giant heap and not worth the read cost.
	MinRegionSize = 0x800
	MaxRegionSize = 0x10000000

	// MaxScanBytes caps how much of a single region is read. Large regions
	// are scanned only up to this prefix.
	MaxScanBytes = 0x1000000

	// CandidateCap stops the scan once this many candidates have been
	// found. The first candidate is always the one used; the rest exist
	// only for diagnostics.
	CandidateCap = 3

	// DefaultValidationThreshold is the number of consecutive validation
	// failures at which a base is abandoned. The count reaching the
	// threshold clears the base; below it the base is retained, which
	// tolerates transient glitches such as reading across a frame boundary.
	DefaultValidationThreshold = 5
)

// Dr. Mario fingerprint constants.
const (
	virusYellow = 0xD0
	virusRed    = 0xD1
	virusBlue   = 0xD2

	playfieldOffset = 0x500 // player-2 playfield within RAM
	playfieldSize   = 0x80  // 8 columns x 16 rows

	leftColorOffset  = 0x381 // player-2 capsule colors, values 0-2
	rightColorOffset = 0x382
)

var (
	// ErrProcessUnavailable is returned when there is no live emulator
	// process to operate against.
	ErrProcessUnavailable = errors.New("emulator process unavailable")

	// ErrNotFound is returned when discovery exhausted every eligible
	// region without finding the RAM fingerprint.
	ErrNotFound = errors.New("nes ram not found")

	// ErrAmbiguous is returned by ScanStrict when more than one candidate
	// satisfied the fingerprint.
	ErrAmbiguous = errors.New("multiple nes ram candidates")

	// ErrReadFailed is returned when a read against the discovered base
	// failed.
	ErrReadFailed = errors.New("nes ram read failed")

	// ErrWriteFailed is returned when a write against the discovered base
	// failed.
	ErrWriteFailed = errors.New("nes ram write failed")

	// ErrAddressOutOfRange is returned for logical addresses outside
	// [0, RAMSize); no I/O is attempted for such requests.
	ErrAddressOutOfRange = errors.New("address outside nes ram range")
)

// RAMSignature returns the fingerprint used to recognize NES RAM holding an
// active Dr. Mario match: a playfield with a plausible virus population,
// mostly-empty cells, and valid capsule color bytes at the player-2 state
// offsets. Both 0x00 and 0xFF count as empty cells; freshly initialized RAM
// is zeroed while an in-game playfield uses 0xFF.
func RAMSignature() signature.Signature {
	return signature.Signature{
		WindowSize: WindowSize,
		Stride:     ScanStride,
		Counts: []signature.CountPredicate{
			{
				Name:   "virus_count",
				Offset: playfieldOffset,
				Length: playfieldSize,
				Values: []byte{virusYellow, virusRed, virusBlue},
				Min:    3,
				Max:    84,
			},
			{
				Name:   "empty_count",
				Offset: playfieldOffset,
				Length: playfieldSize,
				Values: []byte{0x00, 0xFF},
				Min:    41,
			},
		},
		Ranges: []signature.RangePredicate{
			{Name: "left_color", Offset: leftColorOffset, Lo: 0, Hi: 2},
			{Name: "right_color", Offset: rightColorOffset, Lo: 0, Hi: 2},
		},
	}
}
