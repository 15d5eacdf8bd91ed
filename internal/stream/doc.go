// Package stream holds the registry of live streaming endpoints and
// the logic that re-propagates timing and scaling parameters into them
// when a motherboard's clock or DSP configuration changes.
//
// Endpoints are created and owned by client-facing stream-acquisition
// code; the registry only keeps weak handles to them. Resolving a
// handle after its owner released the endpoint yields a plain absence,
// never an error: that is the normal lifecycle of a reconfigured
// stream and every consumer here skips such entries silently.
package stream
