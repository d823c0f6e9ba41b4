package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/log"
)

// fail is the single place errors become responses: kind -> status plus a
// client-safe message. Internal causes go to the log, never to the client,
// except in dev mode where the detail is echoed for debugging.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"success": false, "error": apperr.Message(err)}

	if status >= 500 {
		log.WithDD(c.Request.Context(), log.L).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		if h.Dev {
			body["detail"] = err.Error()
		}
	}

	c.AbortWithStatusJSON(status, body)
}
