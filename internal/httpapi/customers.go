package httpapi

import (
	"net/http"

	"banking-platform/internal/customer"
	"banking-platform/internal/models"
	"banking-platform/internal/store"

	"github.com/gin-gonic/gin"
)

type customerHandlers struct {
	customers *customer.Service
}

func (h *customerHandlers) create(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	cust, err := h.customers.Create(c.Request.Context(), customer.CreateCustomerCommand{
		Name:           req.Name,
		Identification: req.Identification,
		Gender:         req.Gender,
		BirthDate:      req.BirthDate,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		Password:       req.Password,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/customers/"+cust.Id)
	c.JSON(http.StatusCreated, cust)
}

func (h *customerHandlers) get(c *gin.Context) {
	cust, err := h.customers.Get(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *customerHandlers) list(c *gin.Context) {
	filter := store.CustomerFilter{
		Identification: c.Query("identification"),
		Active:         boolQuery(c, "active"),
		Page:           intQuery(c, "page", 0),
		Size:           intQuery(c, "size", 20),
	}

	page, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// validate is the peer endpoint the Account service calls before account
// creation and statements. It returns the reduced projection, never the
// full aggregate.
func (h *customerHandlers) validate(c *gin.Context) {
	cust, err := h.customers.Validate(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PeerCustomer{
		Id:             cust.Id,
		Name:           cust.Name,
		Identification: cust.Identification,
		Active:         cust.Active,
	})
}

func (h *customerHandlers) update(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	cust, err := h.customers.Update(c.Request.Context(), customer.UpdateCustomerCommand{
		Id:              c.Param("customerId"),
		Name:            req.Name,
		Gender:          req.Gender,
		BirthDate:       req.BirthDate,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *customerHandlers) patchState(c *gin.Context) {
	var req patchCustomerStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	cust, err := h.customers.PatchState(c.Request.Context(), c.Param("customerId"), *req.Active, req.Version)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *customerHandlers) updatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, bindError(err))
		return
	}

	cust, err := h.customers.UpdatePassword(c.Request.Context(), c.Param("customerId"), req.Password, req.Version)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *customerHandlers) delete(c *gin.Context) {
	if err := h.customers.Delete(c.Request.Context(), c.Param("customerId")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
