package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Book a lesson
// @Description  Students only. Recurring requests book every matching weekday left in the month and skip days that clash.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Lesson details"
// @Success      201      {object}  CreateResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {array}   Booking
// @Failure      400     {object}  api.ErrorResponse
// @Router       /bookings [get]
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

	bookings, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// Get godoc
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Booking ID"
// @Success      200  {object}  Booking
// @Failure      404  {object}  api.ErrorResponse
// @Router       /bookings/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Confirm godoc
// @Summary      Confirm booking
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int             true   "Booking ID"
// @Param        request  body      ConfirmRequest  false  "Meeting details"
// @Success      200      {object}  Booking
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings/{id}/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if !bindOptional(c, &req) {
		return
	}

	b, err := h.service.Confirm(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Reject godoc
// @Summary      Reject booking
// @Description  Rejecting one lesson of a recurring series rejects the series.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int            true  "Booking ID"
// @Param        request  body      RejectRequest  true  "Reason"
// @Success      200      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "reason is required"})
		return
	}

	b, err := h.service.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Cancel godoc
// @Summary      Cancel booking
// @Description  Refused when the lesson ends in less than 24 hours.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int            true   "Booking ID"
// @Param        request  body      CancelRequest  false  "Reason"
// @Success      200      {object}  Booking
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings/{id}/cancel [post]
// @Router       /admin/bookings/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if !bindOptional(c, &req) {
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Complete godoc
// @Summary      Mark lesson completed
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int              true   "Booking ID"
// @Param        request  body      CompleteRequest  false  "Teacher notes"
// @Success      200      {object}  Booking
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req CompleteRequest
	if !bindOptional(c, &req) {
		return
	}

	b, err := h.service.Complete(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Rate godoc
// @Summary      Rate a completed lesson
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int          true  "Booking ID"
// @Param        request  body      RateRequest  true  "Rating 1-5"
// @Success      200      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings/{id}/rate [post]
func (h *Handler) Rate(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "rating must be between 1 and 5"})
		return
	}

	b, err := h.service.Rate(c.Request.Context(), actor, id, req)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
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
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid booking id"})
		return auth.Actor{}, 0, false
	}
	return actor, id, true
}

// bindOptional binds a JSON body when one was sent.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		api.BadRequest(c, err)
		return false
	}
	return true
}
