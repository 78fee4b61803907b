package cli

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/mediadrop/internal/client/models"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// renderer draws batch snapshots as they arrive. Update is called for
// every job snapshot, Done once with the batch summary.
type renderer interface {
	Update(s models.Snapshot)
	Done(sum models.Summary)
}

// newRenderer picks progress bars for a terminal and plain lines otherwise.
func newRenderer(w io.Writer, fd int) renderer {
	if isTerminal(fd) {
		return newBarRenderer(w)
	}
	return newLineRenderer()
}

func describe(s models.Snapshot) string {
	if reason, ok := s.Failure(); ok {
		return "failed: " + reason
	}
	if s.Status == models.StatusUploading {
		return fmt.Sprintf("%s %d%%", s.Status.Label(), s.Progress)
	}
	return s.Status.Label()
}

// lineRenderer prints a line on every status change and at each quarter
// of the upload.
type lineRenderer struct {
	mu   sync.Mutex
	last map[string]string
}

func newLineRenderer() *lineRenderer {
	return &lineRenderer{last: map[string]string{}}
}

func (r *lineRenderer) Update(s models.Snapshot) {
	key := string(s.Status)
	if s.Status == models.StatusUploading {
		key = fmt.Sprintf("%s/%d", s.Status, s.Progress/25)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last[s.JobID] == key {
		return
	}
	r.last[s.JobID] = key
	printlnFn(fmt.Sprintf("[%3d%%] %s: %s", s.Aggregate, s.FileName, describe(s)))
}

func (r *lineRenderer) Done(sum models.Summary) {
	printlnFn("Batch finished:", sum.String())
}

type jobBar struct {
	bar    *mpb.Bar
	name   string
	label  atomic.Value
	reason string
}

// barRenderer draws one mpb bar per job. The bar is held below 100 until
// the record is finalized so a finished transfer is not shown as done.
type barRenderer struct {
	p     *mpb.Progress
	mu    sync.Mutex
	bars  map[string]*jobBar
	order []*jobBar
}

func newBarRenderer(w io.Writer) *barRenderer {
	return &barRenderer{
		p:    mpb.New(mpb.WithOutput(w), mpb.WithWidth(40)),
		bars: map[string]*jobBar{},
	}
}

func (r *barRenderer) Update(s models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	jb, ok := r.bars[s.JobID]
	if !ok {
		jb = &jobBar{name: s.FileName}
		jb.label.Store(s.Status.Label())
		jb.bar = r.p.AddBar(100,
			mpb.PrependDecorators(
				decor.Name(s.FileName, decor.WCSyncSpaceR),
				decor.Any(func(decor.Statistics) string {
					return jb.label.Load().(string)
				}, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
		)
		r.bars[s.JobID] = jb
		r.order = append(r.order, jb)
	}
	if jb.bar.Completed() || jb.bar.Aborted() {
		return
	}

	jb.label.Store(s.Status.Label())
	switch s.Status {
	case models.StatusCompleted:
		jb.bar.SetCurrent(100)
	case models.StatusFailed:
		jb.reason, _ = s.Failure()
		jb.bar.Abort(false)
	default:
		cur := s.Progress
		if cur > 99 {
			cur = 99
		}
		jb.bar.SetCurrent(int64(cur))
	}
}

func (r *barRenderer) Done(sum models.Summary) {
	r.p.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, jb := range r.order {
		if jb.reason != "" {
			printlnFn(fmt.Sprintf("%s: %s", jb.name, jb.reason))
		}
	}
	printlnFn("Batch finished:", sum.String())
}
