package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recipehub/recipehub/internal/config"
	"github.com/recipehub/recipehub/internal/db"
	apphttp "github.com/recipehub/recipehub/internal/http"
	"github.com/recipehub/recipehub/internal/media"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		MediaDir:            t.TempDir(),
		CacheTTL:            time.Second,
		TokenRateLimit:      1000,
		TokenRateWindow:     time.Minute,
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping integration test")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	if err := db.Bootstrap(ctx, pool); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	resetDB(t, pool)

	// Basic logger that discards outputs during tests

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := testConfig(t)

	images, err := media.NewStore(cfg.MediaDir)

	if err != nil {
		t.Fatalf("media store: %v", err)
	}

	router := apphttp.NewRouter(cfg, logger, pool, nil, nil, images)

	return router, pool
}

// reset db after every test; association tables cascade off recipes

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE recipes, tags, ingredients, users RESTART IDENTITY CASCADE`)

	if err != nil {
		t.Fatalf("reset db: %v", err)
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func signUpAndToken(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email": %q, "password": "secret", "name": "Chef"}`, email)

	if w := doJSON(t, r, http.MethodPost, "/users", "", body); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	creds := fmt.Sprintf(`{"email": %q, "password": "secret"}`, email)

	w := doJSON(t, r, http.MethodPost, "/users/token", "", creds)

	if w.Code != http.StatusOK {
		t.Fatalf("token: %d %s", w.Code, w.Body.String())
	}

	var got map[string]string

	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("token body: %v", err)
	}

	return got["token"]
}

func TestRecipeLifecycle(t *testing.T) {
	r, _ := setupTestRouter(t)

	token := signUpAndToken(t, r, "chef@example.com")

	// create with embedded tags

	w := doJSON(t, r, http.MethodPost, "/recipes", token,
		`{"title": "Pongal", "times_in_minutes": 60, "price": "4.50", "tags": [{"name": "Indian"}, {"name": "Breakfast"}]}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	var created struct {
		ID    int64  `json:"id"`
		Price string `json:"price"`
		Tags  []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"tags"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("create body: %v", err)
	}

	if created.Price != "4.50" {
		t.Fatalf("price round trip: %q", created.Price)
	}

	if len(created.Tags) != 2 {
		t.Fatalf("want 2 tags, got %+v", created.Tags)
	}

	// a second recipe reusing one tag name must not duplicate the entity

	w = doJSON(t, r, http.MethodPost, "/recipes", token,
		`{"title": "Dosa", "times_in_minutes": 30, "price": "3.00", "tags": [{"name": "Indian"}]}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("create second: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/tags", token, "")

	if w.Code != http.StatusOK {
		t.Fatalf("list tags: %d %s", w.Code, w.Body.String())
	}

	var tags []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("tags body: %v", err)
	}

	if len(tags) != 2 {
		t.Fatalf("tag entities duplicated: %+v", tags)
	}

	// names come back in descending order
	if tags[0].Name != "Indian" || tags[1].Name != "Breakfast" {
		t.Fatalf("unexpected tag order: %+v", tags)
	}

	// filter the listing down to one tag id

	var indianID int64

	for _, tag := range tags {
		if tag.Name == "Indian" {
			indianID = tag.ID
		}
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/recipes?tags=%d", indianID), token, "")

	if w.Code != http.StatusOK {
		t.Fatalf("filtered list: %d %s", w.Code, w.Body.String())
	}

	var summaries []struct {
		ID int64 `json:"id"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("list body: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("want both recipes for shared tag, got %+v", summaries)
	}

	// newest id first
	if summaries[0].ID < summaries[1].ID {
		t.Fatalf("listing not newest-first: %+v", summaries)
	}

	// clearing the tag list detaches but keeps the entities

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/recipes/%d", created.ID), token, `{"tags": []}`)

	if w.Code != http.StatusOK {
		t.Fatalf("clear tags: %d %s", w.Code, w.Body.String())
	}

	var updated struct {
		Tags []struct{} `json:"tags"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("update body: %v", err)
	}

	if len(updated.Tags) != 0 {
		t.Fatalf("tags not cleared: %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/tags", token, "")

	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("tags body: %v", err)
	}

	if len(tags) != 2 {
		t.Fatalf("detach deleted tag entities: %+v", tags)
	}

	// delete and verify the 404 afterwards

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/recipes/%d", created.ID), token, "")

	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/recipes/%d", created.ID), token, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted recipe still served: %d", w.Code)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	r, _ := setupTestRouter(t)

	alice := signUpAndToken(t, r, "alice@example.com")
	bob := signUpAndToken(t, r, "bob@example.com")

	w := doJSON(t, r, http.MethodPost, "/recipes", alice,
		`{"title": "Secret Sauce", "times_in_minutes": 10, "price": "2.00"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	var created struct {
		ID int64 `json:"id"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("create body: %v", err)
	}

	// bob sees neither the detail nor the listing entry

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/recipes/%d", created.ID), bob, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign detail leaked: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/recipes", bob, "")

	if w.Code != http.StatusOK {
		t.Fatalf("bob list: %d", w.Code)
	}

	var summaries []struct{}

	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("list body: %v", err)
	}

	if len(summaries) != 0 {
		t.Fatalf("foreign recipes in listing: %s", w.Body.String())
	}

	// bob cannot modify or delete it either

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/recipes/%d", created.ID), bob, `{"title": "Stolen"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign patch: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/recipes/%d", created.ID), bob, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: %d", w.Code)
	}

	// same tag name under two owners stays two entities

	if w := doJSON(t, r, http.MethodPost, "/recipes", alice,
		`{"title": "A", "times_in_minutes": 5, "price": "1.00", "tags": [{"name": "Dinner"}]}`); w.Code != http.StatusCreated {
		t.Fatalf("alice tagged create: %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/recipes", bob,
		`{"title": "B", "times_in_minutes": 5, "price": "1.00", "tags": [{"name": "Dinner"}]}`); w.Code != http.StatusCreated {
		t.Fatalf("bob tagged create: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/tags", bob, "")

	var tags []struct {
		Name string `json:"name"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &tags); err != nil {
		t.Fatalf("tags body: %v", err)
	}

	if len(tags) != 1 || tags[0].Name != "Dinner" {
		t.Fatalf("bob's tags wrong: %+v", tags)
	}
}

func TestMeEndpointMethodNotAllowed(t *testing.T) {
	r, _ := setupTestRouter(t)

	token := signUpAndToken(t, r, "chef@example.com")

	w := doJSON(t, r, http.MethodPost, "/users/me", token, `{}`)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /users/me: got %d, want 405", w.Code)
	}
}
