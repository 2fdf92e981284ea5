package api_gateway

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one backing store is reachable
type HealthCheck func(ctx context.Context) error

const checkTimeout = 2 * time.Second

// healthHandler runs every check concurrently. Any failure turns the answer
// into a 503 so the load balancer stops routing movements here.
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]string, len(names))
		)
		for _, name := range names {
			wg.Add(1)
			go func(name string, check HealthCheck) {
				defer wg.Done()
				result := "ok"
				if err := check(ctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(name, checks[name])
		}
		wg.Wait()

		status, code := "ok", http.StatusOK
		for _, result := range results {
			if result != "ok" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(code, gin.H{"status": status, "checks": results, "timestamp": time.Now().UTC()})
	}
}
