package espalier

// Version is the library release. Overridden at build time via -ldflags.
var Version = "0.1.0-dev"
