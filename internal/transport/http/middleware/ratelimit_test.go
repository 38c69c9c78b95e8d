package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func limitedRequest(remoteAddr, forwardedFor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return req
}

func TestClientIP_RemoteAddrHost(t *testing.T) {
	assert.Equal(t, "192.168.1.1", clientIP(limitedRequest("192.168.1.1:54321", "")))
}

func TestClientIP_IgnoresForwardedHeaders(t *testing.T) {
	req := limitedRequest("192.168.1.1:54321", "1.2.3.4")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "192.168.1.1", clientIP(req))
}

func TestClientIP_NoPort(t *testing.T) {
	// chi's RealIP rewrites RemoteAddr without a port.
	assert.Equal(t, "1.2.3.4", clientIP(limitedRequest("1.2.3.4", "")))
}

func TestLimit_RejectsPastBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, limitedRequest("7.7.7.7:1000", ""))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other clients keep their own bucket.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, limitedRequest("8.8.8.8:1000", ""))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLimit_ForwardedHeaderDoesNotResetBucket(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 1)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	allowed := 0
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, limitedRequest("7.7.7.7:1000", fmt.Sprintf("10.0.0.%d", i)))
		if rr.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}
