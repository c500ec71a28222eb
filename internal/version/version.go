// ABOUTME: Version constants for the Tempo tools
// ABOUTME: Shared by the CLI, server and probe binaries
package version

const (
	// Version is the software version reported to peers
	Version = "0.1.0"

	// Product is the product name sent in device info
	Product = "Tempo Converter"

	// Manufacturer identifies the project
	Manufacturer = "Tempo Audio"
)
