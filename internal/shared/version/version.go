package version

// Version is overridden at build time with -ldflags "-X pipelinedag/internal/shared/version.Version=...".
var Version = "1.0.0"
