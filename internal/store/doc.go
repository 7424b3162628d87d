// Package store provides SQLite-backed storage for report templates and
// run history.
//
// Tables:
//   - templates: named configurations, stored as canonical JSON with
//     their configuration hash
//   - report_runs: one row per run or preview, ordered by a logical seq
//
// # Ordering
//
// History queries order by seq DESC, id ASC. Wall-clock timestamps are
// recorded for display only and never drive ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
