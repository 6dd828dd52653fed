// Package buildinfo carries the identifiers stamped in at build time via
// -ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
)

// Short returns a compact build identifier for the window title and logs.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	default:
		return "dev"
	}
}
