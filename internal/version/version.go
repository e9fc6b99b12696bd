// Package version holds the build version, set with -ldflags at release time.
package version

var (
	// Version is the semantic version of the build.
	Version = "0.1.0"

	// GitCommit is the commit the build was made from.
	GitCommit = "dev"
)

// FullVersion returns the version and commit.
func FullVersion() string {
	return Version + " (" + GitCommit + ")"
}
