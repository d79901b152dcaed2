package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recipehub/recipehub/internal/auth"
	"github.com/recipehub/recipehub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedEngine(m *middlewares.AuthMiddleware) *gin.Engine {
	r := gin.New()

	r.GET("/private", m.RequireAuth(), func(c *gin.Context) {
		id, ok := middlewares.UserIDFromContext(c)

		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Minute)

	token, err := manager.GenerateAccessToken(42, "chef@example.com", "user")

	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := authedEngine(middlewares.NewAuthMiddleware(manager))

	tests := []struct {
		name           string
		header         string
		wantStatusCode int
	}{
		{name: "valid_token", header: "Bearer " + token, wantStatusCode: http.StatusOK},
		{name: "missing_header", header: "", wantStatusCode: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Basic abc", wantStatusCode: http.StatusUnauthorized},
		{name: "empty_bearer", header: "Bearer ", wantStatusCode: http.StatusUnauthorized},
		{name: "mangled_token", header: "Bearer " + token + "x", wantStatusCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
