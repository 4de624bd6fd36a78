// Command loopforge renders ambient loops, stacked shorts and audio-led
// videos from folders of clips, keeping each output under a size cap.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errItemsFailed), errors.Is(err, errReported):
		// Already logged in full.
		return 1
	case errors.Is(err, context.Canceled):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "loopforge: %v\n", err)
		return 1
	}
}
