//go:build linux

// The mednafen-mcp server exposes a running Mednafen NES session to MCP
// clients over stdio: it discovers the emulated console RAM inside the
// emulator's process memory and serves reads, writes and decoded Dr. Mario
// game state.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/struktured-labs/mednafen-mcp/mcp"
	"github.com/struktured-labs/mednafen-mcp/mednafen"
	"github.com/struktured-labs/mednafen-mcp/nesram"
	"github.com/struktured-labs/mednafen-mcp/process"
	"github.com/struktured-labs/mednafen-mcp/process_linux"
)

func main() {
	processName := flag.String("process", mednafen.DefaultProcessName, "Emulator process name to attach to")
	launchROM := flag.String("launch", "", "Launch the emulator with this ROM instead of attaching")
	flag.Parse()

	var launched process.ProcessID
	if *launchROM != "" {
		pid, err := mednafen.Launch(mednafen.LaunchOptions{ROM: *launchROM})
		if err != nil {
			// Launch reports the pid even when the readiness wait failed;
			// don't leave that process orphaned.
			if pid != 0 {
				if termErr := mednafen.Terminate(pid); termErr != nil {
					fmt.Fprintf(os.Stderr, "Error stopping emulator: %v\n", termErr)
				}
			}
			fmt.Fprintf(os.Stderr, "Error launching emulator: %v\n", err)
			os.Exit(1)
		}
		launched = pid
	}

	session := nesram.NewSession(
		nesram.WithFinder(func() (process.ProcessID, error) {
			return mednafen.Find(*processName)
		}),
		nesram.WithOpener(process_linux.NewWithPID),
	)
	defer session.Close()

	server := mcp.NewServer(session)
	err := server.Run(os.Stdin, os.Stdout)

	if launched != 0 {
		if termErr := mednafen.Terminate(launched); termErr != nil {
			fmt.Fprintf(os.Stderr, "Error stopping emulator: %v\n", termErr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
