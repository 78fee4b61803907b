// Package netx moves payloads to presigned object-store URLs.
//
// Transport tries an ordered list of strategies: a streaming PUT that
// reports progress, then a plain PUT. A rejection by the server is final;
// timeouts and connection failures fall through to the next strategy.
package netx

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
)

const DefaultTimeout = 5 * time.Minute

var (
	ErrBusy    = errors.New("transport is already sending")
	ErrNilBlob = errors.New("nothing to send")
)

type Transport struct {
	strategies []Strategy
	log        logging.Logger

	mu       sync.Mutex
	inflight context.CancelCauseFunc
}

type Option func(*Transport)

func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithStrategies replaces the default strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(t *Transport) { t.strategies = s }
}

// New returns a Transport using client for both default strategies.
// Zero timeouts fall back to DefaultTimeout.
func New(client *http.Client, primaryTimeout, fallbackTimeout time.Duration, opts ...Option) *Transport {
	if primaryTimeout <= 0 {
		primaryTimeout = DefaultTimeout
	}
	if fallbackTimeout <= 0 {
		fallbackTimeout = DefaultTimeout
	}

	t := &Transport{
		strategies: []Strategy{
			&ProgressPut{Client: client, Timeout: primaryTimeout},
			&SimplePut{Client: client, Timeout: fallbackTimeout},
		},
		log: logging.Nop,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Send uploads b to url. onProgress may be nil; no call to it is running
// or starts after Send returns. The returned error is always a *TransportError unless the
// transport is misused (ErrBusy, ErrNilBlob).
func (t *Transport) Send(ctx context.Context, b *blob.Blob, url string, onProgress ProgressFunc) error {
	if b == nil {
		return ErrNilBlob
	}
	if len(t.strategies) == 0 {
		return &TransportError{Kind: KindNetwork, Detail: "no transfer strategy configured"}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	t.mu.Lock()
	if t.inflight != nil {
		t.mu.Unlock()
		cancel(nil)
		return ErrBusy
	}
	t.inflight = cancel
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inflight = nil
		t.mu.Unlock()
		cancel(nil)
	}()

	log := t.log.With("file", b.Name(), "size", b.Size())
	attempts := make([]attempt, 0, len(t.strategies))

	for _, s := range t.strategies {
		var fn ProgressFunc
		gate := &progressGate{fn: onProgress}
		if onProgress != nil {
			fn = gate.forward
		}

		terr := s.Put(ctx, b, url, fn)
		gate.close()

		if terr == nil {
			log.Debug(ctx, "upload sent", "strategy", s.Name())
			return nil
		}
		if terr.Kind == KindAborted || ctx.Err() != nil {
			log.Info(ctx, "upload aborted", "strategy", s.Name())
			if terr.Kind != KindAborted {
				terr = &TransportError{Kind: KindAborted, Detail: context.Cause(ctx).Error(), Err: context.Cause(ctx)}
			}
			return terr
		}

		attempts = append(attempts, attempt{strategy: s.Name(), err: terr})
		if terr.Kind == KindServerRejected {
			break
		}
		log.Warn(ctx, "upload strategy failed", "strategy", s.Name(), "kind", terr.Kind.String(), "error", terr.Detail)
	}

	return merge(attempts)
}

// Cancel aborts the send in flight, if any. The pending Send returns a
// KindAborted error and no fallback is attempted.
func (t *Transport) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == nil {
		return false
	}
	t.inflight(ErrCancelled)
	return true
}

// Sending reports whether a send is in flight.
func (t *Transport) Sending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight != nil
}
