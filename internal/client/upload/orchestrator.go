package upload

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/media"
	"github.com/dmitrijs2005/mediadrop/internal/netx"
)

// Preprocessor derives optional artifacts from a source video.
type Preprocessor interface {
	ExtractThumbnail(ctx context.Context, src *blob.Blob) (*blob.Blob, error)
	Compress(ctx context.Context, src *blob.Blob, quality float64) (*blob.Blob, error)
}

// Coordinator talks to the metadata server.
type Coordinator interface {
	Authorize(ctx context.Context, filename, contentType string, size int64) (*models.Authorization, error)
	Finalize(ctx context.Context, req models.FinalizeRequest) (*models.RecordRef, error)
}

// Sender moves bytes to a presigned destination.
type Sender interface {
	Send(ctx context.Context, b *blob.Blob, url string, onProgress netx.ProgressFunc) error
	Cancel() bool
}

// Options are per-batch processing switches.
type Options struct {
	Compress bool
	Quality  float64
}

type Orchestrator struct {
	pre   Preprocessor
	coord Coordinator
	tr    Sender
	log   logging.Logger

	isVideo func(*blob.Blob) bool
	newID   func() string

	mu    sync.Mutex
	batch *BatchState
}

type Option func(*Orchestrator)

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithVideoDetector overrides how sources are recognised as videos.
func WithVideoDetector(fn func(*blob.Blob) bool) Option {
	return func(o *Orchestrator) { o.isVideo = fn }
}

// WithIDGenerator overrides placeholder job ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

func NewOrchestrator(pre Preprocessor, coord Coordinator, tr Sender, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pre:     pre,
		coord:   coord,
		tr:      tr,
		log:     logging.Nop,
		isVideo: media.IsVideo,
		newID:   func() string { return "tmp-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitBatch validates the input, creates one Queued job per file and
// starts processing them in order. Cancelling ctx aborts the file in
// progress and fails every job that has not finished; the stream still ends
// with a summary.
func (o *Orchestrator) SubmitBatch(ctx context.Context, files []*blob.Blob, meta models.BatchMetadata, opts Options) (<-chan models.Snapshot, error) {
	if len(files) == 0 {
		return nil, &BatchInputError{Err: ErrEmptyBatch}
	}
	if math.IsNaN(opts.Quality) || opts.Quality < 0 || opts.Quality > 1 {
		return nil, &BatchInputError{Err: ErrInvalidQuality}
	}
	for _, f := range files {
		if f == nil {
			return nil, &BatchInputError{Err: ErrNilFile}
		}
	}

	o.mu.Lock()
	if o.batch != nil {
		o.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	jobs := make([]*models.Job, len(files))
	for i, f := range files {
		jobs[i] = models.NewJob(o.newID(), f)
	}
	b := newBatchState(jobs, 2*len(jobs)+16)
	o.batch = b
	o.mu.Unlock()

	for _, j := range jobs {
		b.apply(j, nil)
	}

	o.log.Info(ctx, "batch submitted", "files", len(jobs), "compress", opts.Compress, "quality", opts.Quality)

	go o.run(ctx, b, meta, opts)
	return b.out, nil
}

// Pause asks the worker to stop before the next file.
func (o *Orchestrator) Pause() error {
	b := o.current()
	if b == nil {
		return ErrNoActiveBatch
	}
	b.gate.pause()
	return nil
}

// Resume lets a paused batch continue. It is a no-op when not paused.
func (o *Orchestrator) Resume() bool {
	b := o.current()
	if b == nil {
		return false
	}
	return b.gate.release()
}

// Paused reports whether a pause is requested and whether the worker is
// already waiting on it.
func (o *Orchestrator) Paused() (requested, waiting bool) {
	b := o.current()
	if b == nil {
		return false, false
	}
	return b.gate.state()
}

// Progress returns the aggregate progress of the running batch, 0 when idle.
func (o *Orchestrator) Progress() int {
	b := o.current()
	if b == nil {
		return 0
	}
	return b.progress()
}

// Jobs returns the latest snapshot of every job of the running batch.
func (o *Orchestrator) Jobs() []models.Snapshot {
	b := o.current()
	if b == nil {
		return nil
	}
	return b.snapshots()
}

// SkipCurrent aborts the transfer in flight; that job fails and the batch
// moves on.
func (o *Orchestrator) SkipCurrent() bool {
	if o.current() == nil {
		return false
	}
	return o.tr.Cancel()
}

func (o *Orchestrator) current() *BatchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.batch
}

func (o *Orchestrator) run(ctx context.Context, b *BatchState, meta models.BatchMetadata, opts Options) {
	for i, job := range b.jobs {
		if err := b.gate.wait(ctx); err != nil {
			o.failRemaining(ctx, b, i, err)
			break
		}
		o.process(ctx, b, job, meta, opts)
		b.finish()
	}

	sum, agg := b.summary()
	o.log.Info(ctx, "batch finished", "succeeded", sum.Succeeded, "failed", sum.Failed, "total", sum.Total)

	o.mu.Lock()
	o.batch = nil
	o.mu.Unlock()

	b.out <- models.SummarySnapshot(sum, agg)
	close(b.out)
}

func (o *Orchestrator) failRemaining(ctx context.Context, b *BatchState, from int, cause error) {
	reason := "batch cancelled: " + cause.Error()
	for _, job := range b.jobs[from:] {
		b.apply(job, func(j *models.Job) bool { return j.Fail(reason) == nil })
		b.finish()
	}
	o.log.Warn(ctx, "batch cancelled", "remaining", len(b.jobs)-from, "error", cause)
}

// process runs every stage of one job. Failures are recorded on the job.
func (o *Orchestrator) process(ctx context.Context, b *BatchState, job *models.Job, meta models.BatchMetadata, opts Options) {
	log := o.log.With("job_id", job.ID, "file", job.Source.Name())
	defer o.releaseDerived(ctx, log, job)

	advance := func(s models.Status) {
		b.apply(job, func(j *models.Job) bool { return j.Advance(s) == nil })
	}
	fail := func(err error) {
		reason := failureReason(err)
		b.apply(job, func(j *models.Job) bool { return j.Fail(reason) == nil })
		log.Warn(ctx, "upload failed", "status", models.StatusFailed, "error", err)
	}

	video := o.isVideo(job.Source)

	if video {
		advance(models.StatusGeneratingThumbnail)
		thumb, err := o.pre.ExtractThumbnail(ctx, job.Source)
		if err != nil {
			log.Warn(ctx, "thumbnail skipped", "error", err)
		} else {
			b.apply(job, func(j *models.Job) bool { j.Thumbnail = thumb; return false })
		}
	}

	if video && opts.Compress {
		advance(models.StatusCompressing)
		out, err := o.pre.Compress(ctx, job.Source, opts.Quality)
		if err != nil {
			log.Warn(ctx, "compression failed, uploading original", "error", err)
		} else {
			b.apply(job, func(j *models.Job) bool { j.Candidate = out; return false })
		}
	}

	cand := job.Candidate
	advance(models.StatusAwaitingAuthorization)
	auth, err := o.coord.Authorize(ctx, cand.Name(), cand.ContentType(), cand.Size())
	if err != nil {
		fail(err)
		return
	}
	b.apply(job, func(j *models.Job) bool { j.StorageKey = auth.StorageKey; return true })

	if job.Thumbnail != nil {
		if key, err := o.sendThumbnail(ctx, job.Thumbnail); err != nil {
			log.Warn(ctx, "thumbnail upload skipped", "error", err)
		} else {
			b.apply(job, func(j *models.Job) bool { j.ThumbnailKey = key; return false })
		}
	}

	advance(models.StatusUploading)
	err = o.tr.Send(ctx, cand, auth.DestinationURL, func(p int) {
		b.apply(job, func(j *models.Job) bool { return j.SetProgress(p) })
	})
	if err != nil {
		fail(err)
		return
	}
	b.apply(job, func(j *models.Job) bool { return j.SetProgress(100) })

	advance(models.StatusFinalizing)
	ref, err := o.coord.Finalize(ctx, finalizeRequest(job, meta))
	if err != nil {
		fail(err)
		return
	}
	done := b.apply(job, func(j *models.Job) bool { return j.Complete(*ref) == nil })

	_, sent, compressed := done.Sizes()
	log.Info(ctx, "upload completed", "record_id", ref.ID, "storage_key", job.StorageKey, "bytes", sent, "compressed", compressed)
}

func (o *Orchestrator) sendThumbnail(ctx context.Context, thumb *blob.Blob) (string, error) {
	auth, err := o.coord.Authorize(ctx, thumb.Name(), thumb.ContentType(), thumb.Size())
	if err != nil {
		return "", err
	}
	if err := o.tr.Send(ctx, thumb, auth.DestinationURL, nil); err != nil {
		return "", err
	}
	return auth.StorageKey, nil
}

func (o *Orchestrator) releaseDerived(ctx context.Context, log logging.Logger, job *models.Job) {
	if job.Compressed() {
		if err := job.Candidate.Release(); err != nil {
			log.Warn(ctx, "failed to remove compressed copy", "error", err)
		}
	}
	if job.Thumbnail != nil {
		_ = job.Thumbnail.Release()
	}
}

func finalizeRequest(job *models.Job, meta models.BatchMetadata) models.FinalizeRequest {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		name := job.Source.Name()
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}

	req := models.FinalizeRequest{
		StorageKey:  job.StorageKey,
		Title:       title,
		Description: meta.Description,
		Project:     meta.Project,
		Tags:        append([]string{}, meta.Tags...),
		SizeBytes:   job.Candidate.Size(),
	}
	if meta.CompanyID != "" {
		id := meta.CompanyID
		req.CompanyID = &id
	}
	if job.ThumbnailKey != "" {
		key := job.ThumbnailKey
		req.ThumbnailKey = &key
	}
	if job.Compressed() {
		orig := job.Source.Size()
		req.OriginalSizeBytes = &orig
		req.IsCompressed = true
		req.CompressionRatioPercent = compressionRatio(orig, job.Candidate.Size())
	}
	return req
}

// compressionRatio is the size reduction in percent; negative when the
// re-encode came out larger.
func compressionRatio(original, compressed int64) int {
	if original <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(compressed)/float64(original)) * 100))
}

func failureReason(err error) string {
	var te *netx.TransportError
	if errors.As(err, &te) {
		if hint := te.Hint(); hint != "" && !strings.Contains(te.Error(), hint) {
			return te.Error() + " (" + hint + ")"
		}
		if te.Kind == netx.KindAborted {
			return "upload aborted: " + te.Detail
		}
	}
	return err.Error()
}
