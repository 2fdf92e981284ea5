package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noblepay-ledger/internal/platform/metrics"
)

func TestOwnerIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(captured *uuid.UUID) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID())
		router.Use(OwnerID())
		router.GET("/accounts", func(c *gin.Context) {
			*captured = GetOwnerID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("AcceptsValidOwner", func(t *testing.T) {
		var captured uuid.UUID
		owner := uuid.New()
		req, _ := http.NewRequest(http.MethodGet, "/accounts", nil)
		req.Header.Set(OwnerIDHeader, owner.String())
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, owner, captured)
	})

	for name, header := range map[string]string{
		"MissingHeader": "",
		"Malformed":     "not-a-uuid",
		"NilUUID":       uuid.Nil.String(),
	} {
		t.Run(name, func(t *testing.T) {
			var captured uuid.UUID
			req, _ := http.NewRequest(http.MethodGet, "/accounts", nil)
			if header != "" {
				req.Header.Set(OwnerIDHeader, header)
			}
			rr := httptest.NewRecorder()
			newRouter(&captured).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, uuid.Nil, captured, "handler must not run")

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]interface{})["code"])
			assert.NotEmpty(t, body["correlation_id"])
		})
	}

	t.Run("GetOwnerIDOutsideMiddleware", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Equal(t, uuid.Nil, GetOwnerID(c))
	})
}

type stubLimiter struct {
	allow bool
	keys  []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string) bool {
	s.keys = append(s.keys, key)
	return s.allow
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("KeysOnOwner", func(t *testing.T) {
		limiter := &stubLimiter{allow: true}
		router := gin.New()
		router.Use(OwnerID(), RateLimit(limiter))
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		owner := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(OwnerIDHeader, owner)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{owner}, limiter.keys)
	})

	t.Run("FallsBackToClientIP", func(t *testing.T) {
		limiter := &stubLimiter{allow: true}
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		req, _ := http.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, []string{"ip:10.0.0.7"}, limiter.keys)
	})

	t.Run("RejectsWith429", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(&stubLimiter{allow: false}))
		called := false
		router.GET("/x", func(c *gin.Context) { called = true })

		req, _ := http.NewRequest(http.MethodGet, "/x", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "1", rr.Header().Get("Retry-After"))
		assert.False(t, called)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Metrics())
	router.GET("/accounts/:id/balance", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/accounts/:id/balance", "200")
	before := testutil.ToFloat64(counter)

	req, _ := http.NewRequest(http.MethodGet, "/accounts/"+uuid.New().String()+"/balance", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(counter), "labels use the route template, not the raw path")

	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before = testutil.ToFloat64(unmatched)
	req, _ = http.NewRequest(http.MethodGet, "/nowhere", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, before+1, testutil.ToFloat64(unmatched))
}
