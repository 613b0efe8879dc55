package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header map[string]string, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := okRouter(rl.RateLimit())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", nil, "10.0.0.1:1000").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/ping", nil, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", nil, "10.0.0.2:1000").Code, "other IPs have their own bucket")
}

func TestRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
	now = now.Add(visitorIdle + time.Second)
	assert.True(t, rl.allow("b"))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestCORSMiddlewares(t *testing.T) {
	t.Run("listed origin", func(t *testing.T) {
		r := okRouter(CORSMiddlewares("http://pos.local, http://kitchen.local"))
		w := serve(r, http.MethodGet, "/ping", map[string]string{"Origin": "http://kitchen.local"}, "")
		assert.Equal(t, "http://kitchen.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		r := okRouter(CORSMiddlewares("http://pos.local"))
		w := serve(r, http.MethodGet, "/ping", map[string]string{"Origin": "http://evil.local"}, "")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard preflight", func(t *testing.T) {
		r := okRouter(CORSMiddlewares("*"))
		w := serve(r, http.MethodOptions, "/ping", map[string]string{"Origin": "http://any.local"}, "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeadersAndLogger(t *testing.T) {
	r := okRouter(LoggerMiddleware(), SecurityHeaders())
	w := serve(r, http.MethodGet, "/ping?x=1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain HTTP gets no HSTS")
}
