package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tribe-notify.io/notify/internal/domain"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
	"tribe-notify.io/notify/internal/repository"
	"tribe-notify.io/notify/internal/service"
)

// IssuePreferenceLinkRequest is the body for minting a preference link.
type IssuePreferenceLinkRequest struct {
	GroupID string `json:"group_id" binding:"required"`
}

// IssuePreferenceLink handles POST /recipients/:recipientID/preference-links.
// Issuing rotates the recipient's stored token hash, which revokes all
// previously issued links.
func (s *Server) IssuePreferenceLink(c *gin.Context) {
	recipientID := c.Param("recipientID")
	parentID := parentFromCtx(c)

	var req IssuePreferenceLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "group_id is required"))
		return
	}

	recipient, err := s.store.RecipientByID(c.Request.Context(), recipientID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if recipient.ParentID != parentID {
		_ = c.Error(apperrors.ErrRecipientNotFoundf(recipientID))
		return
	}

	token, err := s.prefTokens.Issue(c.Request.Context(), recipientID, req.GroupID)
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodePrefTokenInvalid, "issue preference link", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// GetPreferences handles GET /preferences/:token. The token is a
// signed preference link; no session is required.
func (s *Server) GetPreferences(c *gin.Context) {
	claims, ok := s.validatePreferenceToken(c)
	if !ok {
		return
	}

	settings := s.engine.EffectiveSettings(c.Request.Context(), claims.RecipientID, claims.GroupID)
	membership, err := s.store.Membership(c.Request.Context(), claims.RecipientID, claims.GroupID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipient_id": claims.RecipientID,
		"group_id":     claims.GroupID,
		"settings":     settings,
		"membership":   membership,
	})
}

// UpdatePreferencesRequest carries the preference fields a recipient
// may change through a link. Omitted fields clear the override.
type UpdatePreferencesRequest struct {
	Frequency    *string              `json:"frequency,omitempty"`
	Channels     []string             `json:"channels,omitempty"`
	ContentTypes []string             `json:"content_types,omitempty"`
	MuteUntil    *time.Time           `json:"mute_until,omitempty"`
	MuteSettings *domain.MuteSettings `json:"mute_settings,omitempty"`
}

// UpdatePreferences handles PUT /preferences/:token.
func (s *Server) UpdatePreferences(c *gin.Context) {
	claims, ok := s.validatePreferenceToken(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	upd, err := buildMembershipUpdate(req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.store.UpdateMembershipSettings(c.Request.Context(), claims.RecipientID, claims.GroupID, upd); err != nil {
		_ = c.Error(err)
		return
	}

	settings := s.engine.EffectiveSettings(c.Request.Context(), claims.RecipientID, claims.GroupID)
	c.JSON(http.StatusOK, gin.H{
		"recipient_id": claims.RecipientID,
		"group_id":     claims.GroupID,
		"settings":     settings,
	})
}

func buildMembershipUpdate(req UpdatePreferencesRequest) (upd repository.MembershipUpdate, err error) {
	if req.Frequency != nil {
		f := domain.Frequency(*req.Frequency)
		switch f {
		case domain.FrequencyEveryUpdate, domain.FrequencyDailyDigest,
			domain.FrequencyWeeklyDigest, domain.FrequencyMilestonesOnly:
		default:
			return upd, apperrors.BadRequest(apperrors.CodeInvalidFrequency, "unknown frequency: "+*req.Frequency)
		}
		upd.Frequency = &f
	}
	for _, raw := range req.Channels {
		ch := domain.Channel(raw)
		if !ch.Valid() {
			return upd, apperrors.BadRequest(apperrors.CodeInvalidChannel, "unknown channel: "+raw)
		}
		upd.Channels = append(upd.Channels, ch)
	}
	upd.ContentTypes = req.ContentTypes
	upd.MuteUntil = req.MuteUntil
	upd.MuteSettings = req.MuteSettings
	return upd, nil
}

// validatePreferenceToken parses the :token path parameter and maps
// validation failures to API error codes. It reports false after
// recording the error on the context.
func (s *Server) validatePreferenceToken(c *gin.Context) (*service.PreferenceClaims, bool) {
	claims, err := s.prefTokens.Validate(c.Request.Context(), c.Param("token"))
	if err == nil {
		return claims, true
	}

	switch {
	case errors.Is(err, service.ErrPreferenceTokenRevoked):
		_ = c.Error(apperrors.Unauthorized(apperrors.CodePrefTokenRevoked, "preference link has been revoked"))
	case errors.Is(err, jwt.ErrTokenExpired):
		_ = c.Error(apperrors.Unauthorized(apperrors.CodePrefTokenExpired, "preference link has expired"))
	default:
		_ = c.Error(apperrors.Unauthorized(apperrors.CodePrefTokenInvalid, "preference link is invalid"))
	}
	return nil, false
}
