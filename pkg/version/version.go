package version

// Version is the service version, overridden at build time via
// -ldflags "-X .../pkg/version.Version=v1.2.3".
var Version = "dev"

// GitCommit is the git commit hash the binary was built from.
var GitCommit = "unknown"
