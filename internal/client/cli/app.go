package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
	"github.com/dmitrijs2005/mediadrop/internal/client/client"
	"github.com/dmitrijs2005/mediadrop/internal/client/config"
	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/dmitrijs2005/mediadrop/internal/client/repositories/history"
	"github.com/dmitrijs2005/mediadrop/internal/client/upload"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/media"
	"github.com/dmitrijs2005/mediadrop/internal/netx"
	"github.com/dustin/go-humanize"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	onlineCheckInterval = 15 * time.Second
	pingTimeout         = 3 * time.Second
	historyWriteTimeout = 5 * time.Second
	defaultHistoryLimit = 20
)

// batchRunner is the part of upload.Orchestrator the CLI drives.
type batchRunner interface {
	SubmitBatch(ctx context.Context, files []*blob.Blob, meta models.BatchMetadata, opts upload.Options) (<-chan models.Snapshot, error)
	Pause() error
	Resume() bool
	Paused() (requested, waiting bool)
	Progress() int
	Jobs() []models.Snapshot
	SkipCurrent() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	log     logging.Logger
	api     pinger
	orch    batchRunner
	history history.Repository
	closeFn func() error
	out     io.Writer
	scanner *bufio.Scanner
	render  func() renderer

	modeMu sync.Mutex
	mode   Mode

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp opens the history database and wires the upload pipeline.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, log)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	tr := netx.New(&http.Client{}, c.TransferTimeout, c.FallbackTimeout, netx.WithLogger(log))
	pre := media.NewPreprocessor(media.Config{
		ThumbnailWait:   c.ThumbnailWait,
		CompressTimeout: c.CompressTimeout,
		VideoCodec:      c.VideoCodec,
		Container:       c.Container,
		KeepAudio:       c.KeepAudio,
	}, log)
	orch := upload.NewOrchestrator(pre, api, tr, upload.WithLogger(log))

	a := newApp(c, log, orch, repos.History, os.Stdin, os.Stdout)
	a.api = api
	a.closeFn = repos.Close
	return a, nil
}

func newApp(c *config.Config, log logging.Logger, orch batchRunner, hist history.Repository, in io.Reader, out io.Writer) *App {
	fd := -1
	if f, ok := out.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &App{
		config:  c,
		log:     log,
		orch:    orch,
		history: hist,
		out:     out,
		scanner: bufio.NewScanner(in),
		render:  func() renderer { return newRenderer(out, fd) },
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
// A running batch is cancelled on the way out.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to mediadrop (type 'help' for commands)")
	if a.api != nil {
		go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, a.scanner)
	a.stopBatch()
}

func (a *App) Close() {
	if a.closeFn == nil {
		return
	}
	if err := a.closeFn(); err != nil {
		a.log.Error(context.Background(), "close history", "error", err)
	}
}

func (a *App) getStatus() string {
	s := ""
	if m := a.getMode(); m != "" {
		s = string(m) + " "
	}
	if a.orch.Jobs() == nil {
		return s + "idle"
	}
	if requested, waiting := a.orch.Paused(); waiting {
		s += "paused"
	} else if requested {
		s += "pausing"
	} else {
		s += "uploading"
	}
	return fmt.Sprintf("%s %d%%", s, a.orch.Progress())
}

func (a *App) getMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

// StartOnlineStatusWatcher pings the metadata server on every tick and
// tracks whether it is reachable. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := a.api.Ping(pctx); err != nil {
			a.setMode(ModeOffline)
			return
		}
		a.setMode(ModeOnline)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

// Upload submits a batch and returns once it is queued; progress is drawn
// in the background.
func (a *App) Upload(ctx context.Context, args []string) error {
	req, err := parseUploadArgs(args, a.config.Compress, a.config.Quality, a.out)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if req.meta.Description == "-" {
		desc, err := GetMultiline(a.scanner, "Description:", a.out)
		if err != nil {
			return err
		}
		req.meta.Description = desc
	}

	files := make([]*blob.Blob, 0, len(req.files))
	for _, p := range req.files {
		b, err := blob.FromFile(p)
		if err != nil {
			return err
		}
		files = append(files, b)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		select {
		case <-a.done:
		default:
			return upload.ErrBatchInProgress
		}
	}

	bctx, cancel := context.WithCancel(ctx)
	ch, err := a.orch.SubmitBatch(bctx, files, req.meta, req.opts)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	a.cancel, a.done = cancel, done
	printlnFn(fmt.Sprintf("Queued %d file(s)", len(files)))
	go a.consume(ch, cancel, done)
	return nil
}

func (a *App) consume(ch <-chan models.Snapshot, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	r := a.render()
	for s := range ch {
		if sum, ok := s.Summary(); ok {
			r.Done(sum)
			continue
		}
		r.Update(s)
		a.record(s)
	}
}

func (a *App) record(s models.Snapshot) {
	e, ok := models.HistoryEntryFromSnapshot(s, time.Now())
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := a.history.Add(ctx, &e); err != nil {
		a.log.Error(ctx, "history write failed", "job", s.JobID, "error", err)
	}
}

// waitBatch blocks until the current batch, if any, has been drained.
func (a *App) waitBatch() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (a *App) stopBatch() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *App) Pause() error {
	if err := a.orch.Pause(); err != nil {
		return err
	}
	printlnFn("Pausing after the current file")
	return nil
}

func (a *App) Resume() error {
	if !a.orch.Resume() {
		printlnFn("Nothing to resume")
		return nil
	}
	printlnFn("Resumed")
	return nil
}

func (a *App) Skip() error {
	if !a.orch.SkipCurrent() {
		printlnFn("No transfer in progress")
		return nil
	}
	printlnFn("Skipping the current transfer")
	return nil
}

func (a *App) Status() error {
	jobs := a.orch.Jobs()
	if jobs == nil {
		printlnFn("No active batch")
		return nil
	}
	printlnFn(fmt.Sprintf("Batch %d%% (%s)", a.orch.Progress(), a.getStatus()))
	for _, s := range jobs {
		original, sent, compressed := s.Sizes()
		size := humanize.Bytes(uint64(original))
		if compressed {
			size = fmt.Sprintf("%s -> %s", size, humanize.Bytes(uint64(sent)))
		}
		printlnFn(fmt.Sprintf("  %-32s %-22s %s", s.FileName, describe(s), size))
	}
	return nil
}

// History lists finished uploads. "history clear" wipes them after a
// confirmation, "history N" limits the listing.
func (a *App) History(ctx context.Context, args []string) error {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		if args[0] == "clear" {
			if !confirm(a.scanner, "Clear upload history?", a.out) {
				return nil
			}
			n, err := a.history.Clear(ctx)
			if err != nil {
				return err
			}
			printlnFn(fmt.Sprintf("Removed %d entries", n))
			return nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("history: bad limit %q", args[0])
		}
		limit = n
	}

	entries, err := a.history.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printlnFn("No uploads yet")
		return nil
	}
	for _, e := range entries {
		printlnFn(historyLine(e))
	}
	return nil
}

func historyLine(e *models.HistoryEntry) string {
	when := humanize.Time(e.FinishedAt)
	if e.Status == models.StatusFailed {
		return fmt.Sprintf("%-16s %-32s failed: %s", when, e.FileName, e.Failure)
	}
	size := humanize.Bytes(uint64(e.SizeBytes))
	if e.Compressed {
		size = fmt.Sprintf("%s (from %s)", size, humanize.Bytes(uint64(e.OriginalSizeBytes)))
	}
	return fmt.Sprintf("%-16s %-32s %s record=%s key=%s", when, e.FileName, size, e.RecordID, e.StorageKey)
}
