package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"reviewhub/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
func valUUID(p *uuid.UUID) any {
	if p == nil {
		return nil
	}
	return p.String()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// placeholders returns "?,?,...,?" for n ids.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

// WithTenant opens one transaction bound to businessID and runs fn against
// it. This is the only constructor for TenantTx: every statement the callback
// can issue carries the bound business id, and the binding ends with the
// transaction, so pooled connections never leak a tenant across calls.
func (s *Store) WithTenant(ctx context.Context, businessID uuid.UUID, fn func(domain.TenantTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback() // fn panicked
		}
	}()

	t := &tenantTx{tx: tx, businessID: businessID.String()}
	if err := fn(t); err != nil {
		done = true
		_ = tx.Rollback()
		return err
	}
	done = true
	return tx.Commit()
}

func (s *Store) ConnectedBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := s.db.QueryContext(ctx, selectConnectedBusinessesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Business
	for rows.Next() {
		var b domain.Business
		var id string
		var source, remoteID, token sql.NullString
		if err := rows.Scan(&id, &b.Name, &source, &remoteID, &token, &b.CreatedAt); err != nil {
			return nil, err
		}
		if b.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if source.Valid {
			v := source.String
			b.PlatformSource = &v
		}
		if remoteID.Valid {
			v := remoteID.String
			b.PlatformRemoteID = &v
		}
		if token.Valid {
			v := token.String
			b.PlatformToken = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// tenantTx implements domain.TenantTx. Unexported so the only way to obtain
// one is Store.WithTenant.
type tenantTx struct {
	tx         *sql.Tx
	businessID string
}

func (t *tenantTx) scanExternalReview(scan func(...any) error) (domain.ExternalReview, error) {
	var rv domain.ExternalReview
	var id string
	var source, sourceID, author, text sql.NullString
	var rating sql.NullFloat64
	var published sql.NullTime
	var linked bool
	if err := scan(&id, &source, &sourceID, &author, &text, &rating, &published, &linked); err != nil {
		return domain.ExternalReview{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.ExternalReview{}, err
	}
	rv.ID = parsed
	rv.Linked = linked
	if source.Valid {
		s := source.String
		rv.Source = &s
	}
	if sourceID.Valid {
		s := sourceID.String
		rv.SourceID = &s
	}
	if author.Valid {
		s := author.String
		rv.Author = &s
	}
	if text.Valid {
		s := text.String
		rv.Text = &s
	}
	if rating.Valid {
		f := rating.Float64
		rv.Rating = &f
	}
	if published.Valid {
		ts := published.Time
		rv.PublishedAt = &ts
	}
	return rv, nil
}

func (t *tenantTx) scanClient(scan func(...any) error) (domain.Client, error) {
	var c domain.Client
	var id string
	var sentiment sql.NullString
	if err := scan(&id, &c.DisplayName, &sentiment, &c.Deleted, &c.CreatedAt); err != nil {
		return domain.Client{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Client{}, err
	}
	c.ID = parsed
	if sentiment.Valid {
		s := domain.Sentiment(sentiment.String)
		c.Sentiment = &s
	}
	return c, nil
}

func (t *tenantTx) UnlinkedExternalReviews(ctx context.Context) ([]domain.ExternalReview, error) {
	rows, err := t.tx.QueryContext(ctx, selectUnlinkedReviewsSQL, t.businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExternalReview
	for rows.Next() {
		rv, err := t.scanExternalReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (t *tenantTx) ActiveClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := t.tx.QueryContext(ctx, selectActiveClientsSQL, t.businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := t.scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tenantTx) ExternalReviewsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.ExternalReview, error) {
	out := make(map[uuid.UUID]domain.ExternalReview, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, t.businessID)
	for _, id := range ids {
		args = append(args, id.String())
	}
	q := selectReviewsForUpdatePrefix + placeholders(len(ids)) + selectReviewsForUpdateSuffix
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := t.scanExternalReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[rv.ID] = rv
	}
	return out, rows.Err()
}

func (t *tenantTx) ClientsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Client, error) {
	out := make(map[uuid.UUID]domain.Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, t.businessID)
	for _, id := range ids {
		args = append(args, id.String())
	}
	q := selectClientsByIDPrefix + placeholders(len(ids)) + selectClientsByIDSuffix
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := t.scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (t *tenantTx) InsertInternalReview(ctx context.Context, r domain.InternalReview) error {
	var createdAt any
	if !r.CreatedAt.IsZero() {
		createdAt = r.CreatedAt
	}
	_, err := t.tx.ExecContext(ctx, insertInternalReviewSQL,
		r.ID.String(),
		t.businessID,
		r.ClientID.String(),
		valUUID(r.Creator),
		valStr(r.Text),
		valF64(r.Rating),
		valBool(r.Happy),
		valUUID(r.ExternalReviewID),
		createdAt,
	)
	return err
}

func (t *tenantTx) FillClientSentiment(ctx context.Context, clientID uuid.UUID, s domain.Sentiment) (bool, error) {
	res, err := t.tx.ExecContext(ctx, fillClientSentimentSQL, string(s), t.businessID, clientID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *tenantTx) AppendClientAction(ctx context.Context, a domain.ClientAction) error {
	_, err := t.tx.ExecContext(ctx, insertClientActionSQL,
		t.businessID,
		a.ClientID.String(),
		valUUID(a.Actor),
		a.Action,
		valJSON(a.MetaJSON),
	)
	return err
}

func (t *tenantTx) MarkReviewLinked(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, markReviewLinkedSQL, t.businessID, id.String())
	return err
}

func (t *tenantTx) UpsertExternalReviews(ctx context.Context, rs []domain.ExternalReview) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*9)
	for _, rv := range rs {
		// Columns (from upsertExternalReviewsPrefix):
		// (id, business_id, source, source_id, author, `text`, rating, published_at, raw)
		values = append(values, "(?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.ID.String(),
			t.businessID,
			valStr(rv.Source),
			valStr(rv.SourceID),
			valStr(rv.Author),
			valStr(rv.Text),
			valF64(rv.Rating),
			valTime(rv.PublishedAt),
			valJSON(rv.RawJSON),
		)
	}
	sqlStr := upsertExternalReviewsPrefix + strings.Join(values, ",") + upsertExternalReviewsOnDup
	_, err := t.tx.ExecContext(ctx, sqlStr, args...)
	return err
}
