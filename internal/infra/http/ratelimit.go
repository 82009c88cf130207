package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"warehouse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ratePolicy struct {
	name    string
	limit   int
	message string
	// refundSuccess gives back hits for responses below 400 so only failed
	// attempts count.
	refundSuccess bool
}

func (s *Server) generalRate() ratePolicy {
	return ratePolicy{name: "general", limit: s.cfg.RateLimitGeneral, message: "too many requests, please try again later"}
}

func (s *Server) authRate() ratePolicy {
	return ratePolicy{name: "auth", limit: s.cfg.RateLimitAuth, message: "too many authentication attempts, please try again later", refundSuccess: true}
}

func (s *Server) adminRate() ratePolicy {
	return ratePolicy{name: "admin", limit: s.cfg.RateLimitAdmin, message: "too many admin requests, please try again later"}
}

func (s *Server) productRate() ratePolicy {
	return ratePolicy{name: "product", limit: s.cfg.RateLimitProduct, message: "too many product requests, please try again later"}
}

func (s *Server) rateLimit(p ratePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || p.limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := fmt.Sprintf("ip:%s:policy:%s", c.ClientIP(), p.name)
		decision, err := s.rateLimiter.Allow(ctx, key, p.limit, s.rateLimitWindow)
		if err != nil {
			s.logger.Warn("rate limiter error", zap.String("policy", p.name), zap.Error(err))
			if s.cfg.RateLimitFailClosed {
				writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
				return
			}
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			s.metrics.RateLimited(p.name)
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", p.message)
			return
		}
		c.Next()
		if !p.refundSuccess || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if refunder, ok := s.rateLimiter.(domain.RateLimitRefunder); ok {
			if err := refunder.Refund(ctx, key); err != nil {
				s.logger.Warn("rate limit refund failed", zap.String("policy", p.name), zap.Error(err))
			}
		}
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		resetIn := int64(time.Until(decision.ResetAt).Round(time.Second).Seconds())
		if resetIn < 0 {
			resetIn = 0
		}
		c.Header("RateLimit-Reset", strconv.FormatInt(resetIn, 10))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.FormatInt(resetIn, 10))
		}
	}
}
