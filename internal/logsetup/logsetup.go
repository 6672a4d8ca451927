// Package logsetup configures the standard logger. Programs import it for
// its side effect.
package logsetup

import (
	"log"
	"os"
)

func init() {
	Configure()
}

// Configure sets logger flags for the current environment. Under systemd the
// journal already timestamps every line, so timestamps are dropped.
func Configure() {
	if os.Getenv("JOURNAL_STREAM") != "" || os.Getenv("DEVICESIM_LOG_NOTIME") != "" {
		log.SetFlags(0)
		return
	}
	log.SetFlags(log.LstdFlags)
}
