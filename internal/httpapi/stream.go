package httpapi

import (
	"github.com/gin-gonic/gin"
)

// GET /v1/next/stream pushes the next-prayer view as a server-sent "next"
// event every interval until the client goes away.
func (c *controller) streamNext(ctx *gin.Context) {
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	clock := c.svc.Clock()
	ticker := clock.NewTicker(c.interval)
	defer ticker.Stop()

	reqCtx := ctx.Request.Context()
	for {
		sel, err := c.svc.NextPrayer(reqCtx, clock.Now())
		if err != nil {
			if reqCtx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("next prayer stream")
			ctx.SSEvent("error", gin.H{"error": err.Error()})
		} else {
			ctx.SSEvent("next", sel.View())
		}
		ctx.Writer.Flush()

		select {
		case <-reqCtx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
