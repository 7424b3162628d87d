// Package catalog holds the tables a report can be built from and the
// column names each table exposes.
//
// A Catalog is an immutable snapshot. It can be built in memory (Builtin),
// from CUE declarations (LoadCUE), by introspecting a SQLite database
// (FromSQLite), or fetched from any remote Source (Fetch).
package catalog
