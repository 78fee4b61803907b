// Package models defines the client-side upload pipeline types: job status,
// per-job state, immutable snapshots and the wire shapes exchanged with the
// metadata server.
package models

import "fmt"

type Status string

const (
	StatusQueued                Status = "queued"
	StatusGeneratingThumbnail   Status = "generating_thumbnail"
	StatusCompressing           Status = "compressing"
	StatusAwaitingAuthorization Status = "awaiting_authorization"
	StatusUploading             Status = "uploading"
	StatusFinalizing            Status = "finalizing"
	StatusCompleted             Status = "completed"
	StatusFailed                Status = "failed"
)

var statusRank = map[Status]int{
	StatusQueued:                0,
	StatusGeneratingThumbnail:   1,
	StatusCompressing:           2,
	StatusAwaitingAuthorization: 3,
	StatusUploading:             4,
	StatusFinalizing:            5,
	StatusCompleted:             6,
	StatusFailed:                6,
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Label is the human-readable form used by the CLI.
func (s Status) Label() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusGeneratingThumbnail:
		return "thumbnail"
	case StatusCompressing:
		return "compressing"
	case StatusAwaitingAuthorization:
		return "authorizing"
	case StatusUploading:
		return "uploading"
	case StatusFinalizing:
		return "finalizing"
	case StatusCompleted:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%s)", string(s))
	}
}
