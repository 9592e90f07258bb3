// Package openvr holds the pure-Go contracts a driver implements to be
// exposed to an OpenVR-compatible runtime, together with the data model
// (poses, device classes, error codes, interface version strings) shared by
// both call directions.
//
// Nothing in this package knows about the binary ABI. Driver authors depend
// on this package alone; the internal/abi package turns implementations of
// these interfaces into the dispatch tables the host dereferences.
package openvr
