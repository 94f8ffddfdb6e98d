// Package registry records finished export jobs in SQLite.
//
// Each terminal job (done, failed, or cancelled) is appended once with its
// output metadata so `montage exports list` can show history. The store uses
// WAL mode and retries briefly when another process holds the write lock.
package registry
