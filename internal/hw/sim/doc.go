// Package sim provides in-memory hardware for tests, the simulation
// harness and the CLI: a trigger/gate controller that records every call
// and a moveable that streams position samples.
package sim
