package deckcontent

import "fmt"

// Version information for the deck content library.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// Version is the full version string of the library.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

// FormatVersion identifies the persisted document format.
const FormatVersion = "1.0"
