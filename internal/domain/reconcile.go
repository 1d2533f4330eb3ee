package domain

import "github.com/google/uuid"

// Match is one proposed (external review, client) pair from discovery.
type Match struct {
	ExternalReviewID  uuid.UUID `json:"externalReviewId"`
	ClientID          uuid.UUID `json:"clientId"`
	AuthorName        *string   `json:"authorName"`
	ClientDisplayName string    `json:"clientDisplayName"`
}

type MatchPage struct {
	MatchCount int     `json:"matchCount"`
	Matches    []Match `json:"matches"`
}

// MatchPair is a caller-confirmed pair submitted to the committer. IDs arrive
// as strings; syntactic validity is part of per-pair eligibility.
type MatchPair struct {
	ExternalReviewID  string  `json:"externalReviewId"`
	ClientID          string  `json:"clientId"`
	AuthorName        *string `json:"authorName,omitempty"`
	ClientDisplayName *string `json:"clientDisplayName,omitempty"`
}

// LinkResult reports one successfully linked pair.
type LinkResult struct {
	ExternalReviewID  uuid.UUID `json:"externalReviewId"`
	ClientID          uuid.UUID `json:"clientId"`
	InternalReviewID  uuid.UUID `json:"internalReviewId"`
	AuthorName        *string   `json:"authorName"`
	ClientDisplayName *string   `json:"clientDisplayName"`
}

type LinkReport struct {
	LinkedCount int          `json:"linkedCount"`
	Results     []LinkResult `json:"results"`
}
