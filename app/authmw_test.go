package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

const secret = "s3cret"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func Test_parseBearer(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	cases := []struct {
		name    string
		header  string
		wantSub string
	}{
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "exp": future}, secret), "u-1"},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "exp": past}, secret), ""},
		{"wrong key", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}, "other"), ""},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS384, jwt.MapClaims{"sub": "u-1"}, secret), ""},
		{"no subject", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": future}, secret), ""},
		{"not bearer", "Basic dXNlcjpwYXNz", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := parseBearer(tc.header, secret)

			if tc.wantSub == "" {
				assert.ErrorIs(t, err, errInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSub, sub)
		})
	}
}

func Test_parseBearer_NoSecretConfigured(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}, secret)

	_, err := parseBearer("Bearer "+tok, "")

	assert.ErrorIs(t, err, errInvalidToken)
}

func withUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set(ctxUser, u)
		}
		c.Next()
	}
}

func Test_Authorize_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := &models.User{ID: "a", Roles: []models.Role{{Name: models.RoleAdministrators}}}
	member := &models.User{ID: "m", Roles: []models.Role{{Name: models.RoleMembers}}}

	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", member, http.StatusForbidden},
		{"admin", admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/books", withUser(tc.user), Authorize(policy.ActionCreate, policy.KindBook), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := httptest.NewRecorder()

			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", nil))

			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func Test_AuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) { c.String(http.StatusOK, CurrentUser(c).ID) })
	r.GET("/me-as-member", withUser(&models.User{ID: "m"}), AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).ID)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me-as-member", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m", w.Body.String())
}

func Test_Middleware_HeadersAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), SecurityHeaders())
	r.GET("/api/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}
