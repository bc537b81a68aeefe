package httpapi

import (
	"net/http"

	"banking-platform/internal/apperr"
	"banking-platform/internal/statement"
	"banking-platform/internal/store"

	"github.com/gin-gonic/gin"
)

type reportHandlers struct {
	statements *statement.Service
}

func (h *reportHandlers) accountStatement(c *gin.Context) {
	customerId := c.Param("customerId")
	start, err := timeQuery(c, "startDate", false)
	if err != nil {
		RespondError(c, err)
		return
	}
	end, err := timeQuery(c, "endDate", false)
	if err != nil {
		RespondError(c, err)
		return
	}
	if start == nil || end == nil {
		RespondError(c, apperr.New(apperr.KindValidation,
			"startDate and endDate query parameters are required"))
		return
	}

	report, err := h.statements.Statement(c.Request.Context(), customerId, *start, *end)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *reportHandlers) movementsSummary(c *gin.Context) {
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
		CustomerId:   c.Query("customerId"),
		MovementType: c.Query("movementType"),
		StartDate:    start,
		EndDate:      end,
	}
	if n := intQuery(c, "accountNumber", 0); n > 0 {
		filter.AccountNumber = int64(n)
	}

	summary, err := h.statements.Summary(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
