package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultkit/handler"
	"github.com/kbukum/faultkit/logger"
)

// Recovery recovers from panics and renders them through the chain. The
// stack is logged at debug level.
func Recovery(chain *HTTPChain, log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("recovery")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithContext(c.Request.Context()).Debug("Panic recovered", map[string]interface{}{
					"stack":          string(debug.Stack()),
					logger.FieldPath: c.Request.URL.Path,
					"method":         c.Request.Method,
				})
				abortWith(c, chain, &handler.PanicError{Value: r})
			}
		}()
		c.Next()
	}
}
