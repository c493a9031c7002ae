package middlewares

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

// RequestContextMiddleware copies the identity the auth gateway resolved
// (forwarded as headers) into the request context, and tags the request with
// a correlation id. Authentication itself lives in the gateway, not here.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if v := c.GetHeader("X-User-Id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.GetHeader("X-User-Name"); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}
		if v := c.GetHeader("X-User-Role"); v != "" {
			ctx = utils.SetUserRoleInContext(ctx, v)
		}

		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
