package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reviewhub/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Platform payloads are free-form; these aliases cover the field spellings
// observed across connected sources.
var reviewAliases = map[string][]string{
	"author":    {"author", "name", "userName", "reviewer", "reviewer.name"},
	"text":      {"text", "review_text", "review", "comment", "content", "body", "message"},
	"rating":    {"rating", "rate", "score", "stars", "star_rating", "rating.value"},
	"source_id": {"id", "review_id", "reviewId"},
	"source":    {"source", "platform", "provider", "site", "origin"},
	"published": {"published_at", "publishedAt", "created_at", "createdAt", "date", "time", "timestamp"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func firstStr(m map[string]any, field string) *string {
	for _, path := range reviewAliases[field] {
		switch v := lookupAny(m, path).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return &s
			}
		case float64:
			s := strconv.FormatFloat(v, 'f', -1, 64)
			return &s
		}
	}
	return nil
}

func firstF64(m map[string]any, field string) *float64 {
	for _, path := range reviewAliases[field] {
		switch v := lookupAny(m, path).(type) {
		case float64:
			f := v
			return &f
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstTime(m map[string]any, field string) *time.Time {
	for _, path := range reviewAliases[field] {
		s, ok := lookupAny(m, path).(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return &t
			}
		}
	}
	return nil
}

/********** payload -> domain **********/

// mapExternalReviews converts raw platform payloads into ExternalReview rows
// for one business. Rows without a usable source id are dropped: the upsert
// key is (business, source, source id) and an unkeyed row would duplicate on
// every ingest run.
func mapExternalReviews(b domain.Business, raws []map[string]any) []domain.ExternalReview {
	out := make([]domain.ExternalReview, 0, len(raws))
	for _, raw := range raws {
		sourceID := firstStr(raw, "source_id")
		if sourceID == nil {
			continue
		}
		source := firstStr(raw, "source")
		if source == nil {
			source = b.PlatformSource
		}
		rawJSON, _ := json.Marshal(raw)
		out = append(out, domain.ExternalReview{
			ID:          uuid.New(),
			BusinessID:  b.ID,
			Source:      source,
			SourceID:    sourceID,
			Author:      firstStr(raw, "author"),
			Text:        firstStr(raw, "text"),
			Rating:      firstF64(raw, "rating"),
			PublishedAt: firstTime(raw, "published"),
			RawJSON:     rawJSON,
		})
	}
	return out
}
