package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"banking-platform/internal/account"
	"banking-platform/internal/apperr"
	"banking-platform/internal/store"

	"github.com/gin-gonic/gin"
)

type accountHandlers struct {
	accounts *account.Service
}

func (h *accountHandlers) create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	acct, err := h.accounts.Create(c.Request.Context(), account.CreateAccountCommand{
		CustomerId:     req.CustomerId,
		AccountType:    req.AccountType,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/accounts/"+strconv.FormatInt(acct.AccountNumber, 10))
	c.JSON(http.StatusCreated, acct)
}

func (h *accountHandlers) get(c *gin.Context) {
	number, err := accountNumberParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	acct, err := h.accounts.Get(c.Request.Context(), number)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *accountHandlers) list(c *gin.Context) {
	filter := store.AccountFilter{
		CustomerId:  c.Query("customerId"),
		AccountType: c.Query("accountType"),
		Active:      boolQuery(c, "state"),
		Page:        intQuery(c, "page", 0),
		Size:        intQuery(c, "size", 20),
	}

	page, err := h.accounts.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *accountHandlers) update(c *gin.Context) {
	number, err := accountNumberParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	acct, err := h.accounts.Update(c.Request.Context(), account.UpdateAccountCommand{
		AccountNumber:   number,
		AccountType:     req.AccountType,
		Active:          req.Active,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *accountHandlers) patchState(c *gin.Context) {
	number, err := accountNumberParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var req patchStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	acct, err := h.accounts.PatchState(c.Request.Context(), number, *req.Active)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *accountHandlers) delete(c *gin.Context) {
	number, err := accountNumberParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), number); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandlers) balance(c *gin.Context) {
	number, err := accountNumberParam(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	acct, err := h.accounts.Get(c.Request.Context(), number)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{
		AccountNumber:  acct.AccountNumber,
		CurrentBalance: acct.CurrentBalance,
		Active:         acct.Active,
		AsOf:           time.Now().UTC(),
	})
}

func accountNumberParam(c *gin.Context) (int64, error) {
	number, err := strconv.ParseInt(c.Param("accountNumber"), 10, 64)
	if err != nil || number <= 0 {
		return 0, apperr.Newf(apperr.KindValidation, "invalid account number %q", c.Param("accountNumber"))
	}
	return number, nil
}

func boolQuery(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw, ok := c.GetQuery(name)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
