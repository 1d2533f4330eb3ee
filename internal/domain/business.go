package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment is the cached classification on a Client, derived from review
// outcomes. Stored as a pointer: nil means "never classified".
type Sentiment string

const (
	SentimentGood       Sentiment = "good"
	SentimentBad        Sentiment = "bad"
	SentimentUnreviewed Sentiment = "unreviewed"
)

// Reconciliation may overwrite the sentiment only while it is still in one of
// these states; an explicit good/bad set by a human is never clobbered.
func (s *Sentiment) Overwritable() bool {
	return s == nil || *s == SentimentUnreviewed
}

type Business struct {
	ID   uuid.UUID
	Name string

	// Platform connection; empty PlatformRemoteID means "not connected".
	PlatformSource   *string
	PlatformRemoteID *string
	PlatformToken    *string

	CreatedAt time.Time
}

type Client struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	DisplayName string
	Sentiment   *Sentiment
	Deleted     bool
	CreatedAt   time.Time
}

// Identity is the caller identity resolved by the authentication
// collaborator. Every tenant-scoped operation requires one.
type Identity struct {
	AccountID  uuid.UUID `json:"account_id"`
	BusinessID uuid.UUID `json:"business_id"`
}
