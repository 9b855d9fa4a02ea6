package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotwise/config"
	"slotwise/database/repository/accounts"
	"slotwise/database/repository/rules"
	"slotwise/services/availability"
	"slotwise/services/calendar"
)

// AvailabilityHandler serves bulk, advisory slot computation.
type AvailabilityHandler struct {
	Engine   *availability.Engine
	Rules    rules.RuleRepository
	Accounts accounts.AccountRepository
}

func NewAvailabilityHandler(engine *availability.Engine, ruleRepo rules.RuleRepository, accountRepo accounts.AccountRepository) *AvailabilityHandler {
	return &AvailabilityHandler{Engine: engine, Rules: ruleRepo, Accounts: accountRepo}
}

type availabilityRequest struct {
	OwnerID             string `json:"ownerId" binding:"required"`
	Zone                string `json:"zone" binding:"required"`
	RangeStart          string `json:"rangeStart" binding:"required"` // YYYY-MM-DD
	RangeEnd            string `json:"rangeEnd" binding:"required"`   // YYYY-MM-DD
	DurationMinutes     int    `json:"durationMinutes"`
	MinNoticeHours      int    `json:"minNoticeHours"`
	BufferBeforeMinutes int    `json:"bufferBeforeMinutes"`
	BufferAfterMinutes  int    `json:"bufferAfterMinutes"`
}

// ComputeAvailability returns the tagged candidate slot list for an owner over
// an inclusive day range. Unavailable slots are included; filtering is the
// client's concern.
func (h *AvailabilityHandler) ComputeAvailability(c *gin.Context) {
	var input availabilityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	params, err := h.buildComputeParams(c, input)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	result, err := h.Engine.Compute(c.Request.Context(), *params)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": fmt.Sprintf("failed to compute availability: %v", err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AvailabilityHandler) buildComputeParams(c *gin.Context, input availabilityRequest) (*availability.ComputeParams, error) {
	rangeStart, err := time.Parse("2006-01-02", input.RangeStart)
	if err != nil {
		return nil, availability.NewInputError("rangeStart", "expected YYYY-MM-DD")
	}
	rangeEnd, err := time.Parse("2006-01-02", input.RangeEnd)
	if err != nil {
		return nil, availability.NewInputError("rangeEnd", "expected YYYY-MM-DD")
	}
	duration := input.DurationMinutes
	if duration == 0 {
		duration = config.AppConfig.DefaultSlotDurationMinutes
	}

	ctx := c.Request.Context()
	ruleSet, err := h.Rules.ActiveRulesFor(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}
	accountList, err := h.Accounts.IncludedForOwner(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	return &availability.ComputeParams{
		Rules:               ruleSet,
		Accounts:            accountList,
		Zone:                input.Zone,
		RangeStart:          rangeStart,
		RangeEnd:            rangeEnd,
		DurationMinutes:     duration,
		MinNoticeHours:      input.MinNoticeHours,
		BufferBeforeMinutes: input.BufferBeforeMinutes,
		BufferAfterMinutes:  input.BufferAfterMinutes,
	}, nil
}

func statusForError(err error) int {
	var inputErr *availability.InputError
	if errors.As(err, &inputErr) {
		return http.StatusBadRequest
	}
	var fetchErr *calendar.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
