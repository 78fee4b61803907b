package netx

import (
	"io"
	"sync"
)

// ProgressFunc receives whole-number completion percentages.
type ProgressFunc func(percent int)

// progressReader reports how much of the body the HTTP transport has
// consumed. Reported values never decrease and are never repeated. Read
// runs on the transport's write goroutine while done runs on the caller's.
type progressReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc

	mu   sync.Mutex
	read int64
	last int
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, last: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		p.report(p.percent())
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) percent() int {
	if p.total <= 0 {
		return 0
	}
	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// report must be called with p.mu held.
func (p *progressReader) report(pct int) {
	if p.fn == nil || pct <= p.last {
		return
	}
	p.last = pct
	p.fn(pct)
}

// done is called once the server acknowledged the whole body.
func (p *progressReader) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(100)
}

// progressGate forwards progress until it is closed. Once close returns no
// forwarded call is running or will start.
type progressGate struct {
	mu     sync.Mutex
	closed bool
	fn     ProgressFunc
}

func (g *progressGate) forward(pct int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.fn(pct)
	}
}

func (g *progressGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
