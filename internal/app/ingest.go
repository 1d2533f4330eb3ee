package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"reviewhub/internal/domain"
)

type IngestService struct {
	platform domain.PlatformClient
	store    domain.Store
	cache    domain.Cache
}

func NewIngestService(p domain.PlatformClient, s domain.Store, cache domain.Cache) *IngestService {
	return &IngestService{platform: p, store: s, cache: cache}
}

// IngestBusiness pulls the latest platform reviews for one connected tenant
// and upserts them as external reviews. 404/401/403 from the platform mean
// the connection is gone or revoked; those are logged and skipped so one bad
// tenant doesn't stall the run. Anything else bubbles up.
func (s *IngestService) IngestBusiness(ctx context.Context, b domain.Business, count int) error {
	if b.PlatformRemoteID == nil || *b.PlatformRemoteID == "" {
		return nil
	}

	raws, err := s.platform.GetReviews(ctx, *b.PlatformRemoteID, count)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Warn().Str("business", b.ID.String()).Msg("platform profile not found")
			return nil
		case errors.Is(err, domain.ErrUnauthorized):
			log.Warn().Str("business", b.ID.String()).Msg("platform connection revoked")
			return nil
		default:
			return err
		}
	}

	mapped := mapExternalReviews(b, raws)
	if len(mapped) == 0 {
		return nil
	}

	err = s.store.WithTenant(ctx, b.ID, func(tx domain.TenantTx) error {
		return tx.UpsertExternalReviews(ctx, mapped)
	})
	if err != nil {
		return fmt.Errorf("upsert external reviews for %s: %w", b.ID, err)
	}

	// new unlinked rows may change discovery output
	if s.cache != nil {
		_ = s.cache.Del(ctx, matchCacheKey(b.ID))
	}
	return nil
}
