// Package timeentries stores the worker's time entries in the local cache.
//
// The cache is the read path for the UI. Rows created or finished while the
// backend was unreachable carry synced=0 until a reconciliation pass uploads
// them. At most one entry per user may be active (finish_time NULL); the
// schema backs this with a partial unique index, and Insert maps a violation
// to common.ErrActiveEntryExists.
package timeentries
