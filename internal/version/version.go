package version

import "runtime"

// These variables are populated at build time using -ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"

	// BuildTime is the time the binary was built
	BuildTime = "unknown"
)

// GetVersion returns the current version of the application
func GetVersion() string {
	return Version
}

// GetBuildTime returns the build time of the binary
func GetBuildTime() string {
	return BuildTime
}

// UserAgent identifies vidbridge to license servers and the media catalog
func UserAgent() string {
	return "vidbridge/" + Version + " (" + runtime.GOOS + "; " + runtime.GOARCH + ")"
}
