//go:build !windows

package main

import (
	"os"
	"syscall"
)

// interruptSignals stop a run batch between overlays.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
