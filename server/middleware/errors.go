package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultkit/handler"
)

// HTTPChain is the chain the gin middleware render failures with.
type HTTPChain = handler.Chain[handler.HTTPResponse]

// Errors renders the last error a handler attached with c.Error. Nothing is
// written when the handler already wrote a response.
func Errors(chain *HTTPChain) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		abortWith(c, chain, c.Errors.Last().Err)
	}
}

// abortWith dispatches err and aborts the request with the rendered payload.
func abortWith(c *gin.Context, chain *HTTPChain, err error) {
	resp := chain.Dispatch(c.Request.Context(), err, c.Request.URL.Path)
	c.AbortWithStatusJSON(resp.Status, resp.Payload)
}
