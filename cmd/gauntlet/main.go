package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed and all thresholds passed
	ExitGateFailed = 1 // Run completed but one or more thresholds failed
	ExitError      = 2 // Configuration or runtime error
)

// GateFailureError indicates the experiment ran to completion but the
// threshold gate rejected it.
type GateFailureError struct {
	Message string
}

func (e *GateFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var gateErr *GateFailureError
		if errors.As(err, &gateErr) {
			os.Exit(ExitGateFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
