// Package version reports build information.
package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/larsks/devicesim/internal/version.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// String returns a one-line version description
func String() string {
	return fmt.Sprintf("devicesim %s (built %s, %s)", Version, BuildDate, runtime.Version())
}

// WriteVersion writes the version description to w
func WriteVersion(w io.Writer) {
	fmt.Fprintln(w, String())
}

// ShowVersion prints the version description to stdout
func ShowVersion() {
	WriteVersion(os.Stdout)
}
