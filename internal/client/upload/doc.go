// Package upload sequences the per-file work of a batch: optional thumbnail
// and compression, authorization, transfer and finalization.
//
// Jobs run strictly one after another on a single worker goroutine. A job
// that fails is recorded as Failed and the batch moves on; only invalid
// input is reported synchronously by SubmitBatch. Pause is cooperative: it
// takes effect before the next file starts and never interrupts the file in
// progress.
//
// Every change of a job is published as an immutable models.Snapshot on the
// channel returned by SubmitBatch. The last value is the batch summary, after
// which the channel is closed. Consumers must drain the channel.
package upload
