//go:build linux

// ram-scan is a diagnostic tool: it attaches to the emulator, runs one
// discovery scan, and prints every candidate with its match metrics and a
// hexdump of the surrounding bytes (virus tiles highlighted).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/struktured-labs/mednafen-mcp/hexdump"
	"github.com/struktured-labs/mednafen-mcp/mednafen"
	"github.com/struktured-labs/mednafen-mcp/nesram"
	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process_linux"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to (0 = find by name)")
	nameFlag := flag.String("process", mednafen.DefaultProcessName, "Process name to find")
	dumpFlag := flag.Int("dump", 0x100, "Bytes of context to hexdump per candidate (0 = none)")
	flag.Parse()

	pid := process.ProcessID(*pidFlag)
	if pid == 0 {
		found, err := mednafen.Find(*nameFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		pid = found
	}

	proc, err := process_linux.NewWithPID(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error attaching to process %d: %v\n", pid, err)
		os.Exit(1)
	}
	defer proc.Close()

	mm, err := proc.GetMemoryMap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading memory map: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scanning pid %d (%d mapped regions)\n", pid, len(mm))

	report, err := nesram.Scan(proc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("NES RAM base: %s (%d candidates)\n\n", report.Base.ToString(), len(report.Candidates))

	for i, c := range report.Candidates {
		fmt.Printf("Candidate %d: %s in %s\n", i+1, c.Address.ToString(), c.Region)
		fmt.Printf("  virus_count=%d empty_count=%d left_color=%d right_color=%d\n",
			c.Metrics["virus_count"], c.Metrics["empty_count"],
			c.Metrics["left_color"], c.Metrics["right_color"])

		if *dumpFlag <= 0 {
			continue
		}
		data, err := proc.ReadMemory(c.Address, process.ProcessMemorySize(*dumpFlag))
		if err != nil {
			fmt.Printf("  (context read failed: %v)\n", err)
			continue
		}
		options := hexdump.DefaultOptions()
		options.StartOffset = uint64(c.Address)
		options.Highlight = []byte{0xD0, 0xD1, 0xD2}
		fmt.Println(hexdump.Dump(data, options))
	}
}
