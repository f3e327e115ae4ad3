// Package resource bounds the work an index build may put on the host.
//
// A Controller limits three things:
//
//   - concurrent object transfers issued by the chunk manager
//   - transfer throughput in bytes per second
//   - bytes of raw field data held in memory by a single build
//
// A nil *Controller imposes no limits, so callers never need to nil-check.
package resource
