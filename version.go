// Package perspective provides version information and metadata for the
// perspective-client library.
//
// The version follows semantic versioning and is sent as part of the
// User-Agent header on every request made to the comment analyzer service.
package perspective

// Version represents the current semantic version of the perspective-client library.
const Version = "0.3.0"

// Name is the canonical library name used in logs and the User-Agent header.
const Name = "perspective-client"

// VersionInfo encapsulates version metadata for the perspective-client library.
type VersionInfo struct {
	// Version contains the semantic version string following semver format
	Version string

	// Name contains the canonical library name for identification purposes
	Name string
}

// GetVersion returns structured version information for the library.
//
// Usage:
//
//	info := GetVersion()
//	log.Printf("Using %s version %s", info.Name, info.Version)
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		Name:    Name,
	}
}

// UserAgent returns the User-Agent value sent to the remote service.
func UserAgent() string {
	return Name + "/" + Version
}
