package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"puceats-api/logging"
	"puceats-api/metrics"
	"puceats-api/models"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(auth *Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	handlers := append([]gin.HandlerFunc{auth.AuthRequired()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		resp.OK(c, p)
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	auth := NewAuthenticator("test-secret", time.Hour)
	user := &models.User{ID: 7, Username: "carla", Role: models.RoleOwner}
	token, expires, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) > time.Hour || time.Until(expires) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}

	r := newRouter(auth)
	w := get(r, "/me", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var body struct {
		Data models.Principal `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.UserID != 7 || body.Data.Username != "carla" || body.Data.Role != models.RoleOwner {
		t.Fatalf("principal = %+v", body.Data)
	}

	other := NewAuthenticator("other-secret", time.Hour)
	forged, _, _ := other.GenerateToken(user)

	expired := NewAuthenticator("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.GenerateToken(user)

	for name, tok := range map[string]string{
		"missing": "",
		"garbage": "not.a.jwt",
		"forged":  forged,
		"expired": stale,
	} {
		if w := get(r, "/me", tok); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, w.Code)
		}
	}
}

func TestRoleRequired(t *testing.T) {
	auth := NewAuthenticator("test-secret", time.Hour)
	r := newRouter(auth, RoleRequired(models.RoleAdmin))

	ownerTok, _, _ := auth.GenerateToken(&models.User{ID: 1, Username: "o", Role: models.RoleOwner})
	adminTok, _, _ := auth.GenerateToken(&models.User{ID: 2, Username: "a", Role: models.RoleAdmin})

	if w := get(r, "/me", ownerTok); w.Code != http.StatusForbidden {
		t.Errorf("owner: status = %d, want 403", w.Code)
	}
	if w := get(r, "/me", adminTok); w.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", w.Code)
	}
}

func TestRateLimiterRegistry(t *testing.T) {
	reg := NewRateLimiterRegistry(1, 2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	if !reg.Allow("a") || !reg.Allow("a") {
		t.Fatal("burst of 2 must be allowed")
	}
	if reg.Allow("a") {
		t.Fatal("third request within the same instant must be limited")
	}
	if !reg.Allow("b") {
		t.Fatal("clients are limited independently")
	}

	now = now.Add(time.Second)
	if !reg.Allow("a") {
		t.Fatal("a token is refilled after one second")
	}

	now = now.Add(2 * time.Minute)
	reg.Allow("c")
	if reg.Len() != 1 {
		t.Fatalf("idle clients must be evicted, tracking %d", reg.Len())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiterRegistry(0.001, 1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { resp.OK(c, "pong") })

	if w := get(r, "/ping", ""); w.Code != http.StatusOK {
		t.Fatalf("first: status = %d", w.Code)
	}
	if w := get(r, "/ping", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status = %d, want 429", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := get(r, "/", "")
	if id := w.Header().Get(RequestIDHeader); id == "" || id != w.Body.String() {
		t.Fatalf("generated id %q, body %q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" {
		t.Fatalf("caller id not reused: %q", w.Body.String())
	}
}

func TestLoggerRecordsMetrics(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Logger(logging.Discard(), m), Recovery(logging.Discard()))
	r.GET("/items/:id", func(c *gin.Context) { resp.OK(c, nil) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	get(r, "/items/1", "")
	get(r, "/items/2", "")
	if w := get(r, "/boom", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("panic: status = %d", w.Code)
	}

	count := testutil.CollectAndCount(m.Registry(), "puceats_http_requests_total")
	if count != 2 {
		t.Fatalf("expected two label sets, got %d", count)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://eats.example.edu"}))
	r.GET("/", func(c *gin.Context) { resp.OK(c, nil) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://eats.example.edu")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://eats.example.edu" {
		t.Fatalf("allow origin = %q", got)
	}
}
