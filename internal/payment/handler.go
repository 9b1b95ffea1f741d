package payment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
	"tutorbook/internal/gateway"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateIntent godoc
// @Summary      Start paying for a booking
// @Description  Prices the lesson (10% tax, 2.9% fee for cards) and returns the hosted checkout link.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateIntentRequest  true  "Booking and method"
// @Success      201      {object}  IntentResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments [post]
func (h *Handler) CreateIntent(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err)
		return
	}

	res, err := h.service.CreateIntent(c.Request.Context(), actor, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// Verify godoc
// @Summary      Verify payment with the gateway
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Payment ID"
// @Success      200  {object}  Payment
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Failure      502  {object}  api.ErrorResponse
// @Router       /payments/{id}/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	p, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Notification godoc
// @Summary      Gateway payment notification
// @Description  Called by the payment provider. Authenticated by the notification signature.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request  body      gateway.Notification  true  "Provider notification"
// @Success      200      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Router       /payments/notification [post]
func (h *Handler) Notification(c *gin.Context) {
	var n gateway.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		api.BadRequest(c, err)
		return
	}

	if _, err := h.service.HandleNotification(c.Request.Context(), n); err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}

// Get godoc
// @Summary      Get payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Payment ID"
// @Success      200  {object}  Payment
// @Failure      404  {object}  api.ErrorResponse
// @Router       /payments/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// List godoc
// @Summary      List my payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {array}   Payment
// @Router       /payments [get]
func (h *Handler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequest(c, err)
		return
	}

	payments, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// RequestRefund godoc
// @Summary      Request a refund
// @Description  Full refund with 48h notice before the lesson, half with 24h, none otherwise.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int            true   "Payment ID"
// @Param        request  body      RefundRequest  false  "Reason"
// @Success      200      {object}  Payment
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /payments/{id}/refund [post]
func (h *Handler) RequestRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, err)
			return
		}
	}

	p, err := h.service.RequestRefund(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// ProcessRefund godoc
// @Summary      Approve or reject a refund
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                   true  "Payment ID"
// @Param        request  body      ProcessRefundRequest  true  "Decision"
// @Success      200      {object}  Payment
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /admin/payments/{id}/refund [post]
func (h *Handler) ProcessRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req ProcessRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "approve is required"})
		return
	}

	p, err := h.service.ProcessRefund(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func requireActor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
	}
	return actor, ok
}

func actorAndID(c *gin.Context) (auth.Actor, int, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return auth.Actor{}, 0, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return auth.Actor{}, 0, false
	}
	return actor, id, true
}
