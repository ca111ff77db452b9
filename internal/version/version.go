// ===== internal/version/version.go =====
package version

// These values are intended to be set at build time using -ldflags.
var (
	Version   = "v0.1.0"
	Commit    = "none"
	BuildDate = "unknown"
)
