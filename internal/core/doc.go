// Package core provides the business logic of the permit submission export.
//
// It is independent of any transport: the HTTP server, the CLI and the cron
// scheduler all drive the same [Service].
//
// # Pipeline
//
// A submission becomes one feed row in four steps:
//
//  1. [Flattener.Flatten] turns the nested payload into a flat record, or
//     an [Exclusion] for invalid, resubmitted or side-channel-failed
//     submissions.
//  2. [PrepareForImport] substitutes new-construction values, unifies the
//     site-permit flags and drops fields the permit system does not accept.
//  3. [Formatter.Format] converts timestamps, value-mapped codes, phone and
//     application numbers, then applies the relabels.
//  4. [Reorder] lays the record out in the import column order.
//
// [Pipeline.Transform] runs the steps over a batch; [Batch] serializes it
// as a delimited feed or a workbook.
//
// # Runs
//
// [Service.Export] fetches a window of submissions, writes the hand-off
// files and delivers the feed over SFTP and/or email.
// [Service.ProcessResults] downloads the result file for the last upload,
// reconciles it and emails the tracker summary. Runs never overlap; a
// second caller gets [ErrRunInProgress].
//
// # Error Handling
//
// Per-record problems never abort a batch: they blank the affected field
// and go to the anomaly reporter. Run-level failures wrap one of the
// sentinel errors, which [MapError] turns into a support code:
//
//   - AUTH001: bad or missing token
//   - RUN001: another run in progress
//   - RESULT001: result file not available yet
//   - FETCH001: forms API failure
//   - HANDOFF001: hand-off files unreadable or unwritable
//   - DELIVERY001: SFTP or email failure
//   - REQ001: invalid run parameters
package core
