// Package actionlog implements the Action Log Sink: an append-only,
// newline-delimited JSON record of every ActionRecord produced by the
// Device Manager and Monitor. Writers serialize through a single
// producer; readers may tail the file without locking. Rotation is by
// calendar date (UTC), one file per day.
package actionlog
