// Package store provides SQLite-backed storage for synchronization runs.
//
// Every run records the description it played back and every event its
// generator fired, so timing quality can be inspected after the fact:
//   - runs: one row per orchestrated run (domains, description, outcome)
//   - events: fired Active/Passive events with elapsed time and lateness
//
// # Ordering
//
// Events are keyed by (run_id, seq) where seq is the notification order
// within the run. All event queries ORDER BY seq ASC so results are
// identical across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
