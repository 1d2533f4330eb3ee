package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"reviewhub/internal/app"
	"reviewhub/internal/domain"
)

func newReview(business uuid.UUID, author string, rating float64) domain.ExternalReview {
	return domain.ExternalReview{
		ID:         uuid.New(),
		BusinessID: business,
		Author:     ptr(author),
		Text:       ptr("great service"),
		Rating:     ptr(rating),
	}
}

func newClient(business uuid.UUID, name string) domain.Client {
	return domain.Client{ID: uuid.New(), BusinessID: business, DisplayName: name}
}

func TestDiscover_MatchesNormalizedNames(t *testing.T) {
	business := uuid.New()
	rv := newReview(business, "Maria Lopez", 4)
	cl := newClient(business, "maria lopez")
	store := &fakeStore{reviews: []domain.ExternalReview{rv}, clients: []domain.Client{cl}}
	svc := app.NewMatchService(store, &fakeCache{}, time.Minute)

	page, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if page.MatchCount != 1 || len(page.Matches) != 1 {
		t.Fatalf("expected 1 match, got %+v", page)
	}
	m := page.Matches[0]
	if m.ExternalReviewID != rv.ID || m.ClientID != cl.ID {
		t.Fatalf("wrong pair: %+v", m)
	}
	if deref(m.AuthorName) != "Maria Lopez" || m.ClientDisplayName != "maria lopez" {
		t.Fatalf("wrong echo fields: %+v", m)
	}
}

func TestDiscover_AmbiguousNameFirstCandidateWins(t *testing.T) {
	business := uuid.New()
	first := newClient(business, "Jane O'Brien")
	second := newClient(business, "jane obrien")
	rv := newReview(business, "JANE OBRIEN", 5)
	store := &fakeStore{reviews: []domain.ExternalReview{rv}, clients: []domain.Client{first, second}}
	svc := app.NewMatchService(store, &fakeCache{}, time.Minute)

	page, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(page.Matches) != 1 {
		t.Fatalf("expected exactly one proposal, got %d", len(page.Matches))
	}
	if page.Matches[0].ClientID != first.ID {
		t.Fatalf("expected first client by load order, got %s", page.Matches[0].ClientID)
	}
}

func TestDiscover_OmitsUnmatchable(t *testing.T) {
	business := uuid.New()
	noAuthor := domain.ExternalReview{ID: uuid.New(), BusinessID: business}
	symbolAuthor := newReview(business, "!!!", 2)
	noCandidate := newReview(business, "Nobody Known", 3)
	store := &fakeStore{
		reviews: []domain.ExternalReview{noAuthor, symbolAuthor, noCandidate},
		clients: []domain.Client{newClient(business, "someone else")},
	}
	svc := app.NewMatchService(store, &fakeCache{}, time.Minute)

	page, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if page.MatchCount != 0 {
		t.Fatalf("expected no matches, got %+v", page)
	}
}

func TestDiscover_ExcludesLinkedAndDeleted(t *testing.T) {
	business := uuid.New()
	linked := newReview(business, "Maria Lopez", 4)
	linked.Linked = true
	open := newReview(business, "John Smith", 2)
	gone := newClient(business, "john smith")
	gone.Deleted = true
	store := &fakeStore{
		reviews: []domain.ExternalReview{linked, open},
		clients: []domain.Client{newClient(business, "maria lopez"), gone},
	}
	svc := app.NewMatchService(store, &fakeCache{}, time.Minute)

	page, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	// linked review is terminal, deleted client is invisible
	if page.MatchCount != 0 {
		t.Fatalf("expected no matches, got %+v", page)
	}
}

func TestDiscover_TenantScoped(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &fakeStore{
		reviews: []domain.ExternalReview{newReview(a, "Maria Lopez", 4)},
		clients: []domain.Client{newClient(b, "maria lopez")},
	}
	svc := app.NewMatchService(store, &fakeCache{}, time.Minute)

	page, err := svc.Discover(context.Background(), a)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if page.MatchCount != 0 {
		t.Fatalf("cross-tenant match proposed: %+v", page)
	}
}

func TestDiscover_CacheHit(t *testing.T) {
	business := uuid.New()
	store := &fakeStore{
		reviews: []domain.ExternalReview{newReview(business, "Maria Lopez", 4)},
		clients: []domain.Client{newClient(business, "maria lopez")},
	}
	cache := &fakeCache{}
	svc := app.NewMatchService(store, cache, time.Minute)

	first, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	// new rows appear in storage, but the cached page is served until invalidated
	store.reviews = append(store.reviews, newReview(business, "maria lopez", 1))
	second, err := svc.Discover(context.Background(), business)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if second.MatchCount != first.MatchCount {
		t.Fatalf("expected cached result, got %+v", second)
	}
	if store.txCount != 1 {
		t.Fatalf("expected one storage round trip, got %d", store.txCount)
	}
}
