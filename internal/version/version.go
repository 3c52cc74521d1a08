// ABOUTME: Build identity for the playout binaries
// ABOUTME: Reported in startup logs, the probe output and metric resource attributes
package version

import "fmt"

const (
	Version      = "0.1.0"
	Product      = "playout"
	Manufacturer = "Resonate"
)

// String returns "playout 0.1.0 (Resonate)"
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
