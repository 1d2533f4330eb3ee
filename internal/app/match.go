package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/domain"
)

type MatchService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewMatchService(s domain.Store, c domain.Cache, ttl time.Duration) *MatchService {
	return &MatchService{store: s, cache: c, cacheTTL: ttl}
}

func matchCacheKey(businessID uuid.UUID) string {
	return fmt.Sprintf("matches:%s", businessID)
}

// Discover proposes (external review, client) pairs for one tenant by exact
// match on normalized names. Read-only; mutates nothing. When several clients
// share one normalized name the first by load order is proposed and the rest
// are ignored.
func (s *MatchService) Discover(ctx context.Context, businessID uuid.UUID) (domain.MatchPage, error) {
	key := matchCacheKey(businessID)
	var page domain.MatchPage
	if ok, _ := s.cache.Get(ctx, key, &page); ok {
		return page, nil
	}

	page = domain.MatchPage{Matches: []domain.Match{}}
	err := s.store.WithTenant(ctx, businessID, func(tx domain.TenantTx) error {
		reviews, err := tx.UnlinkedExternalReviews(ctx)
		if err != nil {
			return err
		}
		clients, err := tx.ActiveClients(ctx)
		if err != nil {
			return err
		}

		byKey := make(map[string][]domain.Client, len(clients))
		for _, c := range clients {
			name := c.DisplayName
			k := NameKey(&name)
			if k == nil {
				continue
			}
			byKey[*k] = append(byKey[*k], c)
		}

		for _, rv := range reviews {
			k := NameKey(rv.Author)
			if k == nil {
				continue
			}
			cands := byKey[*k]
			if len(cands) == 0 {
				continue
			}
			first := cands[0]
			page.Matches = append(page.Matches, domain.Match{
				ExternalReviewID:  rv.ID,
				ClientID:          first.ID,
				AuthorName:        rv.Author,
				ClientDisplayName: first.DisplayName,
			})
		}
		return nil
	})
	if err != nil {
		return domain.MatchPage{}, err
	}
	page.MatchCount = len(page.Matches)

	observability.ObserveProposals(page.MatchCount)
	_ = s.cache.Set(ctx, key, page, int(s.cacheTTL.Seconds()))
	return page, nil
}
