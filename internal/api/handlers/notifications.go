package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/notification"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
	"tribe-notify.io/notify/internal/pkg/logger"
)

// CreateNotificationsRequest is the body of the job creation endpoint.
type CreateNotificationsRequest struct {
	Content              notification.UpdateContent `json:"content"`
	Type                 string                     `json:"type,omitempty"`
	Urgency              string                     `json:"urgency,omitempty"`
	ScheduleDelayMinutes int                        `json:"schedule_delay_minutes,omitempty"`
}

// CreateNotifications handles
// POST /groups/:groupID/updates/:updateID/notifications.
// It materializes delivery jobs for the group's eligible recipients.
func (s *Server) CreateNotifications(c *gin.Context) {
	groupID := c.Param("groupID")
	updateID := c.Param("updateID")
	parentID := parentFromCtx(c)

	var req CreateNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	notifType := domain.TypeImmediate
	if req.Type != "" {
		notifType = domain.NotificationType(req.Type)
		switch notifType {
		case domain.TypeImmediate, domain.TypeDigest, domain.TypeMilestone:
		default:
			_ = c.Error(apperrors.ErrInvalidRequestFieldf("type"))
			return
		}
	}

	urgency := domain.UrgencyNormal
	if req.Urgency != "" {
		urgency = domain.Urgency(req.Urgency)
		switch urgency {
		case domain.UrgencyNormal, domain.UrgencyUrgent, domain.UrgencyLow:
		default:
			_ = c.Error(apperrors.ErrInvalidRequestFieldf("urgency"))
			return
		}
	}

	// Ownership check: the group must belong to the authenticated parent.
	group, err := s.store.GroupByID(c.Request.Context(), groupID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if group.ParentID != parentID {
		_ = c.Error(apperrors.ErrGroupNotFoundf(groupID))
		return
	}

	jobs, err := s.engine.CreateNotificationJobs(c.Request.Context(), notification.CreateRequest{
		UpdateID:      updateID,
		GroupID:       groupID,
		ParentID:      parentID,
		Content:       req.Content,
		Type:          notifType,
		Urgency:       urgency,
		ScheduleDelay: time.Duration(req.ScheduleDelayMinutes) * time.Minute,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"jobs_created": len(jobs),
		"jobs":         jobs,
	})
}

// ProcessNotificationsRequest is the body of the manual processing
// endpoint. Detach runs the batch in the background and answers 202.
type ProcessNotificationsRequest struct {
	BatchSize int  `json:"batch_size,omitempty"`
	Detach    bool `json:"detach,omitempty"`
}

// ProcessNotifications handles POST /notifications/process. The
// periodic sweep normally drains jobs; this endpoint exists for
// operational runs and tests.
func (s *Server) ProcessNotifications(c *gin.Context) {
	var req ProcessNotificationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
			return
		}
	}

	if req.Detach && s.pools != nil {
		err := s.pools.SubmitDetached("general", func(ctx context.Context) {
			if _, err := s.engine.ProcessPendingJobs(ctx, req.BatchSize); err != nil {
				logger.Error("detached notification processing failed", zap.Error(err))
			}
		})
		if err != nil {
			_ = c.Error(apperrors.Wrap(err, apperrors.CodeProcessingFailed, "submit background processing", http.StatusServiceUnavailable))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	results, err := s.engine.ProcessPendingJobs(c.Request.Context(), req.BatchSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": len(results),
		"results":   results,
	})
}
