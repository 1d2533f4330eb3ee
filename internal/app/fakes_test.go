package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/google/uuid"

	"reviewhub/internal/domain"
)

// ---- fakes ----

// fakeStore keeps rows in insertion order (discovery's "first candidate"
// tie-break depends on load order) and snapshots state around WithTenant so
// an error from fn rolls everything back like a real transaction.
type fakeStore struct {
	reviews  []domain.ExternalReview
	clients  []domain.Client
	internal []domain.InternalReview
	actions  []domain.ClientAction

	txCount int
	failOn  string // method name that should return an error
}

var errInjected = errors.New("injected storage failure")

func (f *fakeStore) WithTenant(ctx context.Context, businessID uuid.UUID, fn func(domain.TenantTx) error) error {
	f.txCount++
	snapReviews := slices.Clone(f.reviews)
	snapClients := slices.Clone(f.clients)
	snapInternal := slices.Clone(f.internal)
	snapActions := slices.Clone(f.actions)

	if err := fn(&fakeTx{s: f, businessID: businessID}); err != nil {
		f.reviews, f.clients, f.internal, f.actions = snapReviews, snapClients, snapInternal, snapActions
		return err
	}
	return nil
}

func (f *fakeStore) ConnectedBusinesses(ctx context.Context) ([]domain.Business, error) {
	return nil, nil
}

type fakeTx struct {
	s          *fakeStore
	businessID uuid.UUID
}

func (t *fakeTx) UnlinkedExternalReviews(ctx context.Context) ([]domain.ExternalReview, error) {
	var out []domain.ExternalReview
	for _, rv := range t.s.reviews {
		if rv.BusinessID == t.businessID && !rv.Linked {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (t *fakeTx) ActiveClients(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range t.s.clients {
		if c.BusinessID == t.businessID && !c.Deleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *fakeTx) ExternalReviewsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.ExternalReview, error) {
	out := make(map[uuid.UUID]domain.ExternalReview)
	for _, rv := range t.s.reviews {
		if rv.BusinessID == t.businessID && slices.Contains(ids, rv.ID) {
			out[rv.ID] = rv
		}
	}
	return out, nil
}

func (t *fakeTx) ClientsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Client, error) {
	out := make(map[uuid.UUID]domain.Client)
	for _, c := range t.s.clients {
		if c.BusinessID == t.businessID && !c.Deleted && slices.Contains(ids, c.ID) {
			out[c.ID] = c
		}
	}
	return out, nil
}

func (t *fakeTx) InsertInternalReview(ctx context.Context, r domain.InternalReview) error {
	if t.s.failOn == "InsertInternalReview" {
		return errInjected
	}
	t.s.internal = append(t.s.internal, r)
	return nil
}

func (t *fakeTx) FillClientSentiment(ctx context.Context, clientID uuid.UUID, s domain.Sentiment) (bool, error) {
	if t.s.failOn == "FillClientSentiment" {
		return false, errInjected
	}
	for i := range t.s.clients {
		c := &t.s.clients[i]
		if c.BusinessID != t.businessID || c.ID != clientID {
			continue
		}
		if c.Sentiment.Overwritable() {
			v := s
			c.Sentiment = &v
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (t *fakeTx) AppendClientAction(ctx context.Context, a domain.ClientAction) error {
	if t.s.failOn == "AppendClientAction" {
		return errInjected
	}
	a.BusinessID = t.businessID
	t.s.actions = append(t.s.actions, a)
	return nil
}

func (t *fakeTx) MarkReviewLinked(ctx context.Context, id uuid.UUID) error {
	if t.s.failOn == "MarkReviewLinked" {
		return errInjected
	}
	for i := range t.s.reviews {
		rv := &t.s.reviews[i]
		if rv.BusinessID == t.businessID && rv.ID == id {
			rv.Linked = true
		}
	}
	return nil
}

func (t *fakeTx) UpsertExternalReviews(ctx context.Context, rs []domain.ExternalReview) error {
	for _, rv := range rs {
		rv.BusinessID = t.businessID
		t.s.reviews = append(t.s.reviews, rv)
	}
	return nil
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

// ---- tiny helpers ----

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
