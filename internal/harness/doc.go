// Package harness runs synchronization scenarios against simulated
// hardware and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: hardware_and_software
//	description: "One hardware channel and one software listener"
//	active_domain: time
//	synchronization:
//	  - initial: {time: 0}
//	    delay: {time: 0.1}
//	    active: {time: 0.1}
//	    total: {time: 0.2}
//	    repeats: 3
//	controllers:
//	  - name: tgctrl01
//	    moving_reads: 2
//	    channels:
//	      - {element: tg01, axis: 1, type: gate}
//	listeners: [acq01]
//	assertions:
//	  - type: event_count
//	    event: active
//	    count: 3
//	  - type: call_count
//	    controller: tgctrl01
//	    call: StartOne
//	    count: 1
//
// # Assertion Types
//
//   - event_count: the run fired exactly count events of one type
//   - event_order: the indices of one event type, in firing order
//   - call_order: a controller received exactly these calls, in order
//   - call_count: a controller received a call exactly count times
//   - final_state: an element ended in the given state
//   - listener_count: a software listener received exactly count events
//
// # Deterministic Execution
//
// The harness uses:
//   - a fake clock for the generator, so Time-domain playback is instant
//   - sequential run identifiers (testutil.SequenceIDs)
//   - an in-memory SQLite store, isolated per scenario, which records
//     every event through store.Recorder
//   - controllers that stay moving for a fixed number of reads
//
// Controller calls are listed per controller, then events in firing order,
// so the trace is byte-identical across executions and can be compared
// against golden files.
package harness
