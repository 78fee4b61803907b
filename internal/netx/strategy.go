package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
)

// Strategy performs one PUT attempt. Implementations must classify every
// failure into a *TransportError and must honour ctx.
type Strategy interface {
	Name() string
	Put(ctx context.Context, b *blob.Blob, url string, onProgress ProgressFunc) *TransportError
}

// ProgressPut streams the payload and reports upload progress as the HTTP
// transport consumes the body.
type ProgressPut struct {
	Client  *http.Client
	Timeout time.Duration
}

func (s *ProgressPut) Name() string { return "progress-put" }

func (s *ProgressPut) Put(ctx context.Context, b *blob.Blob, url string, onProgress ProgressFunc) *TransportError {
	return put(ctx, s.Client, s.Timeout, b, url, onProgress)
}

// SimplePut is a plain request/response PUT without progress reporting.
type SimplePut struct {
	Client  *http.Client
	Timeout time.Duration
}

func (s *SimplePut) Name() string { return "simple-put" }

func (s *SimplePut) Put(ctx context.Context, b *blob.Blob, url string, _ ProgressFunc) *TransportError {
	return put(ctx, s.Client, s.Timeout, b, url, nil)
}

const maxResponseBody = 4 << 10

var errAttemptTimeout = errors.New("attempt deadline exceeded")

func put(ctx context.Context, client *http.Client, timeout time.Duration, b *blob.Blob, url string, onProgress ProgressFunc) *TransportError {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, errAttemptTimeout)
		defer cancel()
	}

	body, err := b.Open()
	if err != nil {
		return &TransportError{Kind: KindNetwork, Detail: fmt.Sprintf("open %s: %v", b.Name(), err), Err: err}
	}
	defer body.Close()

	var pr *progressReader
	var r io.Reader = body
	if onProgress != nil {
		pr = newProgressReader(body, b.Size(), onProgress)
		r = pr
	}

	var connected atomic.Bool
	trace := &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) { connected.Store(true) },
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodPut, url, io.NopCloser(r))
	if err != nil {
		return &TransportError{Kind: KindNetwork, Detail: "invalid destination: " + err.Error(), Err: err}
	}
	req.ContentLength = b.Size()
	if b.Size() == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("Content-Type", b.ContentType())

	resp, err := client.Do(req)
	if err != nil {
		return classify(ctx, err, connected.Load(), timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		detail := strings.TrimSpace(string(msg))
		if detail == "" {
			detail = resp.Status
		}
		return &TransportError{Kind: KindServerRejected, Status: resp.StatusCode, Detail: detail}
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	if pr != nil {
		pr.done()
	}
	return nil
}

// classify maps a failed round trip without an HTTP status onto a Kind.
func classify(ctx context.Context, err error, connected bool, timeout time.Duration) *TransportError {
	cause := context.Cause(ctx)
	var ne net.Error

	switch {
	case errors.Is(cause, errAttemptTimeout):
		return &TransportError{Kind: KindTimeout, Detail: fmt.Sprintf("no response within %s", timeout), Err: err}
	case cause != nil:
		return &TransportError{Kind: KindAborted, Detail: cause.Error(), Err: cause}
	case errors.As(err, &ne) && ne.Timeout():
		return &TransportError{Kind: KindTimeout, Detail: err.Error(), Err: err}
	case connected:
		return &TransportError{Kind: KindCorsBlocked, Detail: corsHint, Err: err}
	default:
		return &TransportError{Kind: KindNetwork, Detail: err.Error(), Err: err}
	}
}
