package gangway

// Version is the library release version, stamped at build time via
// -ldflags for tagged builds.
var Version = "0.1.0-dev"
