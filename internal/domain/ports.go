package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store is the storage engine. WithTenant is the only way to touch
// tenant-owned rows: it opens one transaction, binds it to the given business
// and hands the callback a TenantTx. fn returning nil commits; an error (or a
// panic) rolls the whole transaction back.
type Store interface {
	WithTenant(ctx context.Context, businessID uuid.UUID, fn func(TenantTx) error) error

	// ConnectedBusinesses enumerates tenants with a platform connection. Used
	// by the ingestion collaborator only; returns no tenant-owned rows.
	ConnectedBusinesses(ctx context.Context) ([]Business, error)
}

// TenantTx is a transaction bound to exactly one business. Every statement it
// issues is filtered by the bound business id; there is no way to construct
// one without a tenant, and the binding dies with the transaction.
type TenantTx interface {
	// Read paths
	UnlinkedExternalReviews(ctx context.Context) ([]ExternalReview, error)
	ActiveClients(ctx context.Context) ([]Client, error)
	ExternalReviewsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ExternalReview, error)
	ClientsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Client, error)

	// Write paths
	InsertInternalReview(ctx context.Context, r InternalReview) error
	FillClientSentiment(ctx context.Context, clientID uuid.UUID, s Sentiment) (bool, error)
	AppendClientAction(ctx context.Context, a ClientAction) error
	MarkReviewLinked(ctx context.Context, id uuid.UUID) error
	UpsertExternalReviews(ctx context.Context, rs []ExternalReview) error
}

// PlatformClient fetches reviews from the external review platform.
type PlatformClient interface {
	GetReviews(ctx context.Context, remoteID string, count int) ([]map[string]any, error)
}

// SessionResolver is the authentication collaborator: opaque token in,
// caller identity out. ErrNotFound when the token resolves to nothing.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
