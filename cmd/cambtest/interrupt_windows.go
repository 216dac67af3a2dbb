//go:build windows

package main

import "os"

// interruptSignals stop a run batch between overlays. Windows has no SIGTERM.
var interruptSignals = []os.Signal{os.Interrupt}
