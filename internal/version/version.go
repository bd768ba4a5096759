// ABOUTME: Version and product constants
// ABOUTME: Reported in hello messages, mDNS records and the version command
package version

const (
	Version      = "0.1.1"
	Product      = "Resonate Decode"
	Manufacturer = "Resonate"
)
