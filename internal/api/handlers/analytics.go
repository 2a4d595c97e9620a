package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tribe-notify.io/notify/internal/pkg/errors"
)

// GetAnalytics handles GET /groups/:groupID/analytics?days=30.
func (s *Server) GetAnalytics(c *gin.Context) {
	groupID := c.Param("groupID")
	parentID := parentFromCtx(c)

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			_ = c.Error(apperrors.ErrInvalidRequestFieldf("days"))
			return
		}
		days = parsed
	}

	group, err := s.store.GroupByID(c.Request.Context(), groupID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if group.ParentID != parentID {
		_ = c.Error(apperrors.ErrGroupNotFoundf(groupID))
		return
	}

	summary, err := s.engine.NotificationAnalytics(c.Request.Context(), groupID, days)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
