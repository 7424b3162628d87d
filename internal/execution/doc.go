// Package execution runs assembled query configurations.
//
// An Executor answers Run and Preview requests. Three implementations
// exist:
//   - MockExecutor synthesizes rows from field names for offline use
//   - HTTPExecutor posts requests to a remote report service
//   - SQLExecutor compiles the configuration and queries a *sql.DB
//
// Runner is the calling layer between a builder.Selection and an
// Executor. It gates on readiness, drives the loading and error state,
// writes results back and records history.
package execution
