package dfxml

// Version is the release of this package, reported in provenance blocks
// written by the dfxml command.
const Version = "0.4.0"
