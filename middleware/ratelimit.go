package middleware

import (
	"fmt"
	"math"
	"strconv"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/services/ratelimit"
	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgRateLimited  = "تعداد درخواست‌ها بیش از حد مجاز است. لطفاً کمی بعد تلاش کنید"
	CodeRateLimited = "RATE_LIMITED"
)

// RateLimit admits at most rule.Limit requests per client IP within rule.Window.
// A failing counter store lets the request through.
func RateLimit(limiter *ratelimit.Limiter, rule ratelimit.Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := limiter.Check(c.UserContext(), rule, c.IP())
		if err != nil {
			logger.Error("Rate limit check failed for "+rule.Name+", allowing request", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			logger.Info(fmt.Sprintf("Rate limit %s exceeded by %s, retry in %ds", rule.Name, c.IP(), secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(types.ErrorResponse{
				Error:      MsgRateLimited,
				ErrorCode:  CodeRateLimited,
				RetryAfter: secs,
			})
		}
		return c.Next()
	}
}
