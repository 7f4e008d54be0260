// Package reportstore implements the Report Store: a durable,
// per-calendar-day summary file holding ExecutionReports, monitor
// samples, and alert events. Each write reads the day's existing
// records, appends the new one, and replaces the file by writing a
// temporary file and renaming it into place, so a crash never leaves
// readers looking at a half-written file. Readers additionally
// tolerate a torn trailing record from a crash predating this scheme
// or from an external writer.
package reportstore
