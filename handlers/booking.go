package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slotwise/config"
	"slotwise/database/repository/accounts"
	"slotwise/database/repository/rules"
	"slotwise/models"
	"slotwise/services/availability"
	"slotwise/services/calendar"
	"slotwise/workers"
)

// BookingHandler drives the display-then-commit booking flow: a session holds
// the advisory slot list for a short time, and confirmation re-validates the
// chosen slot against freshly fetched busy data inside the same operation.
type BookingHandler struct {
	Engine    *availability.Engine
	Validator *availability.Validator
	Rules     rules.RuleRepository
	Accounts  accounts.AccountRepository
	Cache     *redis.Client
	Tasks     *asynq.Client
	Logger    *zap.Logger
}

func NewBookingHandler(engine *availability.Engine, validator *availability.Validator, ruleRepo rules.RuleRepository, accountRepo accounts.AccountRepository, cache *redis.Client, tasks *asynq.Client, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		Engine:    engine,
		Validator: validator,
		Rules:     ruleRepo,
		Accounts:  accountRepo,
		Cache:     cache,
		Tasks:     tasks,
		Logger:    logger,
	}
}

// StartSession computes availability and caches the query parameters under a
// session id so the confirm step can re-run the same policy.
func (h *BookingHandler) StartSession(c *gin.Context) {
	var input availabilityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	availabilityHandler := &AvailabilityHandler{Engine: h.Engine, Rules: h.Rules, Accounts: h.Accounts}
	params, err := availabilityHandler.buildComputeParams(c, input)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	result, err := h.Engine.Compute(c.Request.Context(), *params)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": fmt.Sprintf("failed to compute availability: %v", err)})
		return
	}

	session := models.BookingSession{
		OwnerID:             input.OwnerID,
		Zone:                input.Zone,
		DurationMinutes:     params.DurationMinutes,
		MinNoticeHours:      input.MinNoticeHours,
		BufferBeforeMinutes: input.BufferBeforeMinutes,
		BufferAfterMinutes:  input.BufferAfterMinutes,
		Slots:               result.Slots,
		CreatedAt:           time.Now(),
	}
	sessionID := uuid.New().String()
	sessionData, err := json.Marshal(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to marshal booking session", "details": err.Error()})
		return
	}

	ttl := time.Duration(config.AppConfig.BookingSessionTTLMinutes) * time.Minute
	if err := h.Cache.Set(c.Request.Context(), sessionKey(sessionID), sessionData, ttl).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache booking session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID":        sessionID,
		"slots":            result.Slots,
		"degradedAccounts": result.Degraded,
	})
}

type confirmRequest struct {
	SessionID string `json:"sessionID" binding:"required"`
	SlotStart string `json:"slotStart" binding:"required"` // RFC3339
	SlotEnd   string `json:"slotEnd" binding:"required"`   // RFC3339
}

// ConfirmBooking authoritatively re-validates the chosen slot and, on success,
// issues a booking id. The cached session supplies only the query parameters;
// busy data is always fetched fresh here.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	var input confirmRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	sessionData, err := h.Cache.Get(ctx, sessionKey(input.SessionID)).Result()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking session not found or expired"})
		return
	}
	var session models.BookingSession
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse booking session", "details": err.Error()})
		return
	}

	slotStart, err := time.Parse(time.RFC3339, input.SlotStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slotStart, expected RFC3339"})
		return
	}
	slotEnd, err := time.Parse(time.RFC3339, input.SlotEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slotEnd, expected RFC3339"})
		return
	}
	if slotEnd.Sub(slotStart) != time.Duration(session.DurationMinutes)*time.Minute {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot length does not match the session's duration"})
		return
	}

	// Rules and accounts are re-read at commit time, never carried over from
	// the session.
	ruleSet, err := h.Rules.ActiveRulesFor(ctx, session.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load availability rules: %v", err)})
		return
	}
	accountList, err := h.Accounts.IncludedForOwner(ctx, session.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load calendar accounts: %v", err)})
		return
	}

	verdict, err := h.Validator.Validate(ctx, availability.ValidateParams{
		SlotStart:      slotStart,
		SlotEnd:        slotEnd,
		Rules:          ruleSet,
		Accounts:       accountList,
		Zone:           session.Zone,
		MinNoticeHours: session.MinNoticeHours,
	})
	if err != nil {
		h.handleValidationFailure(ctx, err)
		c.JSON(statusForError(err), gin.H{"error": fmt.Sprintf("could not validate slot: %v", err)})
		return
	}
	if !verdict.Valid {
		c.JSON(http.StatusConflict, verdict)
		return
	}

	bookingID := uuid.New().String()
	h.Logger.Info("booking slot validated",
		zap.String("bookingID", bookingID),
		zap.String("ownerID", session.OwnerID),
		zap.Time("slotStart", slotStart))

	// The session is single-use once a slot passes validation.
	if err := h.Cache.Del(ctx, sessionKey(input.SessionID)).Err(); err != nil {
		h.Logger.Warn("failed to drop booking session", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"bookingID": bookingID,
		"slotStart": slotStart,
		"slotEnd":   slotEnd,
	})
}

// handleValidationFailure schedules a background token refresh when the
// upstream rejected our credentials, so the account recovers without waiting
// for the next interactive call.
func (h *BookingHandler) handleValidationFailure(ctx context.Context, err error) {
	var fetchErr *calendar.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Code != calendar.AuthExpired {
		return
	}
	if h.Tasks == nil {
		return
	}
	if enqueueErr := workers.EnqueueTokenRefresh(h.Tasks, fetchErr.AccountID); enqueueErr != nil {
		h.Logger.Warn("failed to enqueue token refresh",
			zap.String("accountID", fetchErr.AccountID), zap.Error(enqueueErr))
	}
}

func sessionKey(sessionID string) string {
	return "booking_session:" + sessionID
}
