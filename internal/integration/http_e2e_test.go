//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"reviewhub/internal/adapters/auth"
	server "reviewhub/internal/adapters/http_server"
	redisad "reviewhub/internal/adapters/redis"
	"reviewhub/internal/app"
	"reviewhub/internal/domain"
	mysqlstore "reviewhub/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return res.StatusCode
}

// ---------- the test ----------
func TestHTTP_EndToEnd_Reconcile(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviewhub",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/reviewhub?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC", hostPort)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// redis for cache + sessions
	mr := miniredis.RunT(t)

	store := mysqlstore.New(db)
	cache := redisad.New(mr.Addr(), "", 0)
	sessions := auth.New(mr.Addr(), "", 0)
	matches := app.NewMatchService(store, cache, time.Minute)
	links := app.NewLinkService(store, cache)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{Matches: matches, Links: links, Sessions: sessions})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	ctx := context.Background()

	// Seed tenant B with E1/C1 and an authenticated session
	businessB := uuid.New()
	clientC1 := uuid.New()
	reviewE1 := uuid.New()
	if _, err := db.Exec(`INSERT INTO businesses (id, name) VALUES (?, 'Acme Plumbing')`, businessB.String()); err != nil {
		t.Fatalf("seed business: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO clients (id, business_id, display_name) VALUES (?, ?, 'maria lopez')`,
		clientC1.String(), businessB.String()); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO external_reviews (id, business_id, source, source_id, author, `text`, rating) VALUES (?, ?, 'gplaces', 'r-1', 'Maria Lopez', 'great service', 4)",
		reviewE1.String(), businessB.String()); err != nil {
		t.Fatalf("seed external review: %v", err)
	}

	token := "e2e-token"
	if err := sessions.Put(ctx, token, domain.Identity{AccountID: uuid.New(), BusinessID: businessB}, time.Hour); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	base := fmt.Sprintf("%s/v1/tenants/%s/review-matches", ts.URL, businessB)

	// unauthenticated and malformed requests are rejected before any query
	if code := doJSON(t, http.MethodGet, base, "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	badTenant := fmt.Sprintf("%s/v1/tenants/not-a-uuid/review-matches", ts.URL)
	if code := doJSON(t, http.MethodGet, badTenant, token, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed tenant id, got %d", code)
	}
	foreign := fmt.Sprintf("%s/v1/tenants/%s/review-matches", ts.URL, uuid.New())
	if code := doJSON(t, http.MethodGet, foreign, token, nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign tenant, got %d", code)
	}

	// discovery proposes {E1, C1}
	var page domain.MatchPage
	if code := doJSON(t, http.MethodGet, base, token, nil, &page); code != http.StatusOK {
		t.Fatalf("discover status %d", code)
	}
	if page.MatchCount != 1 || page.Matches[0].ExternalReviewID != reviewE1 || page.Matches[0].ClientID != clientC1 {
		t.Fatalf("unexpected discovery output: %+v", page)
	}

	// commit the confirmed pair
	var report domain.LinkReport
	body := map[string]any{"matches": []domain.MatchPair{{
		ExternalReviewID: reviewE1.String(),
		ClientID:         clientC1.String(),
	}}}
	if code := doJSON(t, http.MethodPost, base, token, body, &report); code != http.StatusOK {
		t.Fatalf("commit status %d", code)
	}
	if report.LinkedCount != 1 || report.Results[0].InternalReviewID == uuid.Nil {
		t.Fatalf("unexpected commit output: %+v", report)
	}

	// durable effects
	var sentiment sql.NullString
	var linked bool
	if err := db.QueryRow(`SELECT sentiment FROM clients WHERE id = ?`, clientC1.String()).Scan(&sentiment); err != nil {
		t.Fatalf("read sentiment: %v", err)
	}
	if err := db.QueryRow(`SELECT linked FROM external_reviews WHERE id = ?`, reviewE1.String()).Scan(&linked); err != nil {
		t.Fatalf("read linked: %v", err)
	}
	if !sentiment.Valid || sentiment.String != "good" || !linked {
		t.Fatalf("expected sentiment good and linked, got %v/%v", sentiment, linked)
	}

	// cache was invalidated by the commit; fresh discovery is empty
	if code := doJSON(t, http.MethodGet, base, token, nil, &page); code != http.StatusOK {
		t.Fatalf("second discover status %d", code)
	}
	if page.MatchCount != 0 {
		t.Fatalf("linked review reappeared in discovery: %+v", page)
	}

	// retrying the identical commit is safe and links nothing
	if code := doJSON(t, http.MethodPost, base, token, body, &report); code != http.StatusOK {
		t.Fatalf("retry status %d", code)
	}
	if report.LinkedCount != 0 {
		t.Fatalf("retry must link nothing: %+v", report)
	}

	// an all-garbage pair list is a validation error
	bad := map[string]any{"matches": []domain.MatchPair{{ExternalReviewID: "x", ClientID: "y"}}}
	if code := doJSON(t, http.MethodPost, base, token, bad, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid pairs, got %d", code)
	}
}
