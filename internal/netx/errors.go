package netx

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed transfer.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindCorsBlocked
	KindServerRejected
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "Network"
	case KindTimeout:
		return "Timeout"
	case KindCorsBlocked:
		return "CorsBlocked"
	case KindServerRejected:
		return "ServerRejected"
	case KindAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrCancelled is the cause recorded when Transport.Cancel aborts a send.
var ErrCancelled = errors.New("transfer cancelled")

const corsHint = "the storage endpoint accepted the connection but returned no response; " +
	"check the bucket's cross-origin and access policy allows PUT from this client"

// TransportError is returned by Send. Detail is human-readable; Err is the
// underlying cause when there is one.
type TransportError struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Hint returns remediation advice for the failure kind, if any.
func (e *TransportError) Hint() string {
	if e.Kind == KindCorsBlocked {
		return corsHint
	}
	return ""
}

// IsKind reports whether err is a *TransportError of kind k.
func IsKind(err error, k Kind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == k
}

// merge folds the failures of every attempted strategy into one error.
// A CorsBlocked primary stays CorsBlocked so its hint survives the fallback.
func merge(attempts []attempt) *TransportError {
	if len(attempts) == 1 {
		return attempts[0].err
	}

	kind := attempts[len(attempts)-1].err.Kind
	if attempts[0].err.Kind == KindCorsBlocked {
		kind = KindCorsBlocked
	}

	parts := make([]string, 0, len(attempts))
	errs := make([]error, 0, len(attempts))
	status := 0
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.strategy, a.err.Error()))
		errs = append(errs, a.err)
		if a.err.Status != 0 {
			status = a.err.Status
		}
	}

	return &TransportError{
		Kind:   kind,
		Status: status,
		Detail: strings.Join(parts, "; "),
		Err:    errors.Join(errs...),
	}
}

type attempt struct {
	strategy string
	err      *TransportError
}
