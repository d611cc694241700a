// Package version carries build metadata injected with -ldflags -X.
package version

// Set at build time, e.g. -X surveyapp/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)

// ServiceName identifies the backend in telemetry and on the version endpoint
const ServiceName = "survey-backend"

// BuildInfo is the payload of GET /v1/version
type BuildInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Info returns the metadata of the running binary
func Info() BuildInfo {
	return BuildInfo{
		Service:   ServiceName,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
}

// IsRelease reports whether the binary was built with a real version instead of the dev default
func IsRelease() bool {
	return Version != "dev" && Version != ""
}
