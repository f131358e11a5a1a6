// Package synch defines the synchronization description consumed by the
// trigger/gate engine.
//
// A Description is an ordered list of groups. Each group describes Repeats
// cycles of one Active period followed by one Passive period, with the
// extents expressed in one or both synchronization domains (Time and
// Position). The timeline package expands a Description into timestamped
// events; the tgaction and orchestrator packages hand it to hardware
// controllers unchanged.
//
// Descriptions can be written in Go, or loaded from YAML, JSON or CUE files
// (see LoadFile). CUE input is validated against an embedded schema before it
// is decoded.
//
// Errors raised anywhere in the engine use the single Error type defined
// here, classified by Code:
//   - CONFIGURATION: malformed or incomplete description
//   - PROGRAMMING: a controller rejected an axis (carries controller + axis)
//   - HARDWARE_FAULT: a controller call failed
package synch
