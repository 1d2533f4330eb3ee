package mysql

// Note: `text` is reserved; keep it quoted everywhere.

const selectUnlinkedReviewsSQL = `
SELECT id, source, source_id, author, ` + "`text`" + `, rating, published_at, linked
FROM external_reviews
WHERE business_id = ? AND linked = 0
ORDER BY created_at, id
`

const selectActiveClientsSQL = `
SELECT id, display_name, sentiment, deleted, created_at
FROM clients
WHERE business_id = ? AND deleted = 0
ORDER BY created_at, id
`

// FOR UPDATE: the committer locks the rows it is about to mutate so two
// concurrent commits serialize on the same external reviews.
const selectReviewsForUpdatePrefix = `
SELECT id, source, source_id, author, ` + "`text`" + `, rating, published_at, linked
FROM external_reviews
WHERE business_id = ? AND id IN (`

const selectReviewsForUpdateSuffix = `) FOR UPDATE`

const selectClientsByIDPrefix = `
SELECT id, display_name, sentiment, deleted, created_at
FROM clients
WHERE business_id = ? AND deleted = 0 AND id IN (`

const selectClientsByIDSuffix = `)`

// created_at is COALESCE(?, CURRENT_TIMESTAMP) so an unknown publish time
// falls back to "now".
const insertInternalReviewSQL = `
INSERT INTO internal_reviews
  (id, business_id, client_id, creator, ` + "`text`" + `, rating, happy, external_review_id, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
`

// Only fills a still-unset sentiment; an explicit good/bad survives.
const fillClientSentimentSQL = `
UPDATE clients
SET sentiment = ?
WHERE business_id = ? AND id = ?
  AND (sentiment IS NULL OR sentiment = 'unreviewed')
`

const insertClientActionSQL = `
INSERT INTO client_actions (business_id, client_id, actor, action, meta)
VALUES (?, ?, ?, ?, ?)
`

const markReviewLinkedSQL = `
UPDATE external_reviews
SET linked = 1
WHERE business_id = ? AND id = ? AND linked = 0
`

// Upsert keyed on UNIQUE (business_id, source, source_id). COALESCE keeps the
// old value when the new one is NULL; linked is deliberately absent from the
// update list so a re-ingest never reverts it.
const upsertExternalReviewsPrefix = "INSERT INTO external_reviews\n" +
	"  (id, business_id, source, source_id, author, `text`, rating, published_at, raw)\nVALUES "

const upsertExternalReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author       = COALESCE(VALUES(author), external_reviews.author),\n" +
	"  `text`       = COALESCE(VALUES(`text`), external_reviews.`text`),\n" +
	"  rating       = COALESCE(VALUES(rating), external_reviews.rating),\n" +
	"  published_at = COALESCE(VALUES(published_at), external_reviews.published_at),\n" +
	"  raw          = COALESCE(VALUES(raw), external_reviews.raw)\n"

const selectConnectedBusinessesSQL = `
SELECT id, name, platform_source, platform_remote_id, platform_token, created_at
FROM businesses
WHERE platform_remote_id IS NOT NULL
ORDER BY id
`
