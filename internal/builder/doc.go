// Package builder holds the user's report selections and derives the
// QueryConfiguration handed to an executor.
//
// A Selection keeps referential integrity between its collections: every
// field, filter and join references a selected table alias, and removing a
// table removes everything that depended on it. Configuration returns a
// snapshot that later edits never touch.
//
// A Selection is not safe for concurrent use. Mutations are total: they
// never fail, and out-of-range or unknown targets are ignored.
package builder
