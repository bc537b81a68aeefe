package httpapi

import (
	"net/http"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/ledger"
	"banking-platform/internal/store"

	"github.com/gin-gonic/gin"
)

type movementHandlers struct {
	engine    *ledger.Engine
	movements store.MovementStore
}

func (h *movementHandlers) post(c *gin.Context) {
	var req postMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	movement, err := h.engine.Post(c.Request.Context(), ledger.PostMovementCommand{
		AccountNumber:      req.AccountNumber,
		MovementType:       req.MovementType,
		Amount:             req.Amount,
		Description:        req.Description,
		Reference:          req.Reference,
		TransactionId:      req.TransactionId,
		IdempotencyKey:     c.GetHeader(headerIdempotencyKey),
		ReversedMovementId: req.ReversedMovementId,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/movements/"+movement.Id)
	c.JSON(http.StatusCreated, movement)
}

func (h *movementHandlers) get(c *gin.Context) {
	movement, err := h.movements.GetById(c.Request.Context(), c.Param("movementId"))
	if err != nil {
		RespondError(c, translateMovementLookup(err))
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *movementHandlers) list(c *gin.Context) {
	start, err := timeQuery(c, "startDate", false)
	if err != nil {
		RespondError(c, err)
		return
	}
	end, err := timeQuery(c, "endDate", true)
	if err != nil {
		RespondError(c, err)
		return
	}

	filter := store.MovementFilter{
		MovementType: c.Query("movementType"),
		StartDate:    start,
		EndDate:      end,
		Page:         intQuery(c, "page", 0),
		Size:         intQuery(c, "size", 20),
	}
	if n := intQuery(c, "accountNumber", 0); n > 0 {
		filter.AccountNumber = int64(n)
	}
	if filter.AccountNumber == 0 {
		RespondError(c, apperr.New(apperr.KindValidation, "accountNumber query parameter is required"))
		return
	}

	page, err := h.movements.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *movementHandlers) reverse(c *gin.Context) {
	movement, err := h.engine.Reverse(c.Request.Context(), c.Param("movementId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/movements/"+movement.Id)
	c.JSON(http.StatusCreated, movement)
}

func translateMovementLookup(err error) error {
	if err == store.ErrMovementNotFound {
		return apperr.New(apperr.KindMovementNotFound, "movement not found")
	}
	return err
}

// timeQuery accepts either a date or a full RFC 3339 timestamp. A bare date
// names a whole day, so when the parameter is an upper bound it widens to the
// last instant of that day. Malformed values are a validation error, not an
// unfiltered query.
func timeQuery(c *gin.Context, name string, upperBound bool) (*time.Time, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Newf(apperr.KindValidation,
			"%s must be a date (2006-01-02) or an RFC 3339 timestamp", name)
	}
	if upperBound {
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
	}
	return &t, nil
}
