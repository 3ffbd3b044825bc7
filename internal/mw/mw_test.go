package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	return w
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.GET("/trucks", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.Header("ETag", `"abc"`)
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	first := get(r, "/trucks")
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := get(r, "/trucks")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, `"abc"`, second.Header().Get("ETag"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, 1, calls)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/trucks", nil)
	req.Header.Set("If-None-Match", `"abc"`)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, 1, calls)
}

func TestCache_SkipsErrorsAndNoStore(t *testing.T) {
	calls := 0
	store := cache.New(time.Minute, time.Minute)
	r := gin.New()
	r.GET("/missing", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.GET("/private", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.Header("Cache-Control", "no-store")
		c.String(http.StatusOK, "fresh")
	})

	get(r, "/missing")
	get(r, "/missing")
	get(r, "/private")
	w := get(r, "/private")

	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.Equal(t, 4, calls)
	assert.Zero(t, store.ItemCount())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2, time.Minute)
	r := gin.New()
	r.GET("/ping", RateLimiter(limiter), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping").Code)
	assert.Equal(t, 1, limiter.Len())
}

func TestIPRateLimiter_SeparateClients(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)

	assert.True(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.False(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.True(t, limiter.GetLimiter("10.0.0.2").Allow())
	assert.Equal(t, 2, limiter.Len())
}
