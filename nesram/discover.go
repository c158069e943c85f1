package nesram

import (
	"errors"
	"fmt"

	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process/memory_map"
	"github.com/struktured-labs/mednafen-mcp/signature"
)

// RAMCandidate is a process-space address satisfying the RAM fingerprint,
// with the match metrics observed there.
type RAMCandidate struct {
	Address process.ProcessMemoryAddress
	Region  string // backing label of the containing region
	Metrics map[string]int
}

// DiscoveryReport is the outcome of one discovery scan.
type DiscoveryReport struct {
	Base       process.ProcessMemoryAddress
	Candidates []RAMCandidate
}

// Scan enumerates the process's read-write regions and searches each for the
// RAM fingerprint. The memory map is refreshed first: the emulator may have
// remapped since the last attempt.
//
// Candidates are reported in region order, then ascending in-region offset,
// and the first one found is the base. This is a deliberate first-match
// policy, not an optimality search; existing consumers depend on it.
// Accumulation stops at CandidateCap.
func Scan(proc process.Process) (DiscoveryReport, error) {
	if proc == nil {
		return DiscoveryReport{}, ErrProcessUnavailable
	}

	if err := proc.UpdateMemoryMap(); err != nil {
		if errors.Is(err, process.ErrProcessGone) || errors.Is(err, process.ErrProcessNotOpen) {
			return DiscoveryReport{}, fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
		}
		return DiscoveryReport{}, fmt.Errorf("enumerate regions: %w", err)
	}

	mm, err := proc.GetMemoryMap()
	if err != nil {
		return DiscoveryReport{}, fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}

	sig := RAMSignature()
	report := DiscoveryReport{}

	for _, region := range memory_map.FilterReadWrite(mm) {
		if region.Size < MinRegionSize || region.Size > MaxRegionSize {
			continue
		}

		readLen := uint(region.Size)
		if readLen > MaxScanBytes {
			readLen = MaxScanBytes
		}

		data, err := proc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(readLen))
		if err != nil {
			// Regions can vanish or deny access between the listing and
			// the read; skip them rather than failing the whole scan.
			continue
		}

		budget := CandidateCap - len(report.Candidates)
		for _, c := range signature.MatchN(data, sig, budget) {
			report.Candidates = append(report.Candidates, RAMCandidate{
				Address: process.ProcessMemoryAddress(region.Address + uint64(c.Offset)),
				Region:  region.Pathname,
				Metrics: c.Metrics,
			})
		}

		if len(report.Candidates) >= CandidateCap {
			break
		}
	}

	if len(report.Candidates) == 0 {
		return report, ErrNotFound
	}

	report.Base = report.Candidates[0].Address
	return report, nil
}

// ScanStrict is Scan for callers that insist on an unambiguous result: it
// fails with ErrAmbiguous when more than one candidate matched.
func ScanStrict(proc process.Process) (DiscoveryReport, error) {
	report, err := Scan(proc)
	if err != nil {
		return report, err
	}
	if len(report.Candidates) > 1 {
		return report, fmt.Errorf("%w: %d matches", ErrAmbiguous, len(report.Candidates))
	}
	return report, nil
}
