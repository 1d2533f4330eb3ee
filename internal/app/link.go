package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/domain"
)

// happyThreshold drives the derived sentiment only. Display-facing rating
// thresholds elsewhere in the product are a separate knob; do not unify.
const happyThreshold = 3.0

func happyFromRating(r *float64) *bool {
	if r == nil {
		return nil
	}
	h := *r >= happyThreshold
	return &h
}

type LinkService struct {
	store domain.Store
	cache domain.Cache
}

func NewLinkService(s domain.Store, c domain.Cache) *LinkService {
	return &LinkService{store: s, cache: c}
}

type parsedPair struct {
	reviewID uuid.UUID
	clientID uuid.UUID
	src      domain.MatchPair
}

// Commit turns confirmed pairs into durable state: one transaction per call
// that mirrors each eligible external review into an internal review, fills
// derived client sentiment where it is still unset, appends an audit action
// and marks the source linked. Ineligible pairs are skipped, not errored, so
// a batch makes maximum forward progress; retrying a whole call converges.
func (s *LinkService) Commit(ctx context.Context, businessID uuid.UUID, pairs []domain.MatchPair) (domain.LinkReport, error) {
	parsed := make([]parsedPair, 0, len(pairs))
	reviewIDs := make([]uuid.UUID, 0, len(pairs))
	clientIDs := make([]uuid.UUID, 0, len(pairs))
	for _, p := range pairs {
		rid, errR := uuid.Parse(p.ExternalReviewID)
		cid, errC := uuid.Parse(p.ClientID)
		if errR != nil || errC != nil {
			observability.ObserveSkip("invalid_id")
			continue
		}
		parsed = append(parsed, parsedPair{reviewID: rid, clientID: cid, src: p})
		reviewIDs = append(reviewIDs, rid)
		clientIDs = append(clientIDs, cid)
	}
	if len(parsed) == 0 {
		return domain.LinkReport{}, domain.ErrNoPairs
	}

	report := domain.LinkReport{Results: []domain.LinkResult{}}
	err := s.store.WithTenant(ctx, businessID, func(tx domain.TenantTx) error {
		// FOR UPDATE: a concurrent commit for the same reviews blocks here
		// instead of double-mirroring; the unique back-reference constraint
		// is the hard stop either way.
		reviews, err := tx.ExternalReviewsForUpdate(ctx, reviewIDs)
		if err != nil {
			return fmt.Errorf("load external reviews: %w", err)
		}
		clients, err := tx.ClientsByID(ctx, clientIDs)
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}

		for _, p := range parsed {
			rv, ok := reviews[p.reviewID]
			if !ok {
				observability.ObserveSkip("review_missing")
				continue
			}
			if rv.Linked {
				observability.ObserveSkip("already_linked")
				continue
			}
			cl, ok := clients[p.clientID]
			if !ok {
				observability.ObserveSkip("client_missing")
				continue
			}

			happy := happyFromRating(rv.Rating)
			rec := domain.InternalReview{
				ID:         uuid.New(),
				BusinessID: businessID,
				ClientID:   cl.ID,
				Text:       rv.Text,
				Rating:     rv.Rating,
				Happy:      happy,
			}
			srcID := rv.ID
			rec.ExternalReviewID = &srcID
			if rv.PublishedAt != nil {
				rec.CreatedAt = *rv.PublishedAt
			}
			if err := tx.InsertInternalReview(ctx, rec); err != nil {
				return fmt.Errorf("insert internal review for %s: %w", rv.ID, err)
			}

			if happy != nil {
				sent := domain.SentimentBad
				if *happy {
					sent = domain.SentimentGood
				}
				if _, err := tx.FillClientSentiment(ctx, cl.ID, sent); err != nil {
					return fmt.Errorf("fill sentiment for client %s: %w", cl.ID, err)
				}
			}

			meta, _ := json.Marshal(map[string]any{
				"source":             rv.Source,
				"external_review_id": rv.ID,
				"internal_review_id": rec.ID,
				"rating":             rv.Rating,
			})
			if err := tx.AppendClientAction(ctx, domain.ClientAction{
				BusinessID: businessID,
				ClientID:   cl.ID,
				Actor:      nil,
				Action:     domain.ActionReviewSubmitted,
				MetaJSON:   meta,
			}); err != nil {
				return fmt.Errorf("append client action: %w", err)
			}

			if err := tx.MarkReviewLinked(ctx, rv.ID); err != nil {
				return fmt.Errorf("mark review %s linked: %w", rv.ID, err)
			}
			// a duplicate pair later in this call sees the flag and skips
			rv.Linked = true
			reviews[p.reviewID] = rv

			author := p.src.AuthorName
			if author == nil {
				author = rv.Author
			}
			display := p.src.ClientDisplayName
			if display == nil {
				d := cl.DisplayName
				display = &d
			}
			report.Results = append(report.Results, domain.LinkResult{
				ExternalReviewID:  rv.ID,
				ClientID:          cl.ID,
				InternalReviewID:  rec.ID,
				AuthorName:        author,
				ClientDisplayName: display,
			})
		}
		return nil
	})
	if err != nil {
		return domain.LinkReport{}, err
	}
	report.LinkedCount = len(report.Results)

	observability.ObserveLinks(report.LinkedCount)
	log.Info().
		Str("business", businessID.String()).
		Int("submitted", len(pairs)).
		Int("linked", report.LinkedCount).
		Msg("review links committed")

	// discovery results for this tenant are stale now
	_ = s.cache.Del(ctx, matchCacheKey(businessID))
	return report, nil
}
