package routes

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/events"
	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const testSecret = "test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BorrowingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.BorrowingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// memSessions 内存版会话存储，记录续期与撤销
type memSessions struct {
	mu      sync.Mutex
	byID    map[string]session.AppSession
	touched map[string]int
	revoked []string
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]session.AppSession{}, touched: map[string]int{}}
}

// put 模拟外部登录流程写入会话
func (m *memSessions) put(id, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.byID[id] = session.AppSession{UserID: userID, IssuedAt: now.Unix(), ExpiresAt: now.Add(time.Hour).Unix()}
}

func (m *memSessions) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

func (m *memSessions) touches(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touched[id]
}

func (m *memSessions) Get(_ context.Context, id string) (*session.AppSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.byID[id]
	if !ok {
		return nil, session.ErrNoSession
	}
	return &as, nil
}

func (m *memSessions) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id]++
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, as := range m.byID {
		if as.UserID == userID {
			delete(m.byID, id)
		}
	}
	m.revoked = append(m.revoked, userID)
	return nil
}

type harness struct {
	t        *testing.T
	app      *app.App
	pub      *recordingPublisher
	sessions *memSessions
}

// newHarness SQLite + 无 Redis，完整路由
func newHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, nil)
}

// newSessionHarness 同上，另挂内存会话存储
func newSessionHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, newMemSessions())
}

func buildHarness(t *testing.T, sessions *memSessions) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "catalog.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, db.Migrate(ctx, gdb, log))

	cfg := config.Config{
		WebOrigin:        "http://localhost:3000",
		JWTSecret:        testSecret,
		LastSeenThrottle: time.Minute,
		SearchThreshold:  0.3,
		LoanPeriod:       14 * 24 * time.Hour,
	}
	pub := &recordingPublisher{}
	a, err := app.New(ctx, cfg, gdb, nil, pub, log)
	require.NoError(t, err)
	if sessions != nil {
		a.Sessions = sessions
	}
	RegisterRoutes(a.Router, a)

	return &harness{t: t, app: a, pub: pub, sessions: sessions}
}

// user 建用户并签发 Bearer token
func (h *harness) user(email string, roles ...string) (*models.User, string) {
	h.t.Helper()
	ctx := context.Background()
	u := &models.User{ID: uuid.NewString(), Email: email, Username: email}
	require.NoError(h.t, h.app.Repo.CreateUser(ctx, u))
	for _, name := range roles {
		var role models.Role
		require.NoError(h.t, h.app.DB.Where("name = ?", name).First(&role).Error)
		require.NoError(h.t, h.app.DB.Model(u).Association("Roles").Append(&role))
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(h.t, err)
	return u, tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.send(method, path, token, "", body)
}

// doCookie 携带 app_session Cookie 发请求
func (h *harness) doCookie(method, path, sid string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.send(method, path, "", sid, body)
}

func (h *harness) send(method, path, token, sid string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: app.AppSessionCookie, Value: sid})
	}
	w := httptest.NewRecorder()
	h.app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createBook 以管理员身份建书，返回 id
func (h *harness) createBook(adminToken, title, isbn string) float64 {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/books", adminToken, map[string]any{
		"title":  title,
		"author": "Author of " + title,
		"isbn":   isbn,
		"genre":  "Software",
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(h.t, w)["id"].(float64)
}
