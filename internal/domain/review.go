package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExternalReview is a review ingested from a third-party platform. Linked is
// monotonic: once true it never reverts, and the review is terminal for
// matching purposes.
type ExternalReview struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	Source      *string
	SourceID    *string
	Author      *string
	Text        *string
	Rating      *float64
	PublishedAt *time.Time
	Linked      bool
	RawJSON     []byte
}

// InternalReview is the system's own canonical review record. Append-only;
// never updated after creation.
type InternalReview struct {
	ID               uuid.UUID
	BusinessID       uuid.UUID
	ClientID         uuid.UUID
	Creator          *uuid.UUID
	Text             *string
	Rating           *float64
	Happy            *bool
	ExternalReviewID *uuid.UUID
	CreatedAt        time.Time
}

const ActionReviewSubmitted = "review_submitted"

// ClientAction is an append-only audit event. Actor is nil for
// system-originated events.
type ClientAction struct {
	ID         int64
	BusinessID uuid.UUID
	ClientID   uuid.UUID
	Actor      *uuid.UUID
	Action     string
	MetaJSON   []byte
	CreatedAt  time.Time
}
