package notify

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorbook/internal/api"
	"tutorbook/internal/auth"
)

type Inbox interface {
	List(ctx context.Context, recipientID int, q ListQuery) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID int) error
}

type Handler struct {
	inbox Inbox
}

func NewHandler(inbox Inbox) *Handler {
	return &Handler{inbox: inbox}
}

// List godoc
// @Summary      List my notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread  query     bool  false  "Only unread"
// @Param        limit   query     int   false  "Page size (max 100)"
// @Param        offset  query     int   false  "Offset"
// @Success      200     {array}   Notification
// @Failure      400     {object}  api.ErrorResponse
// @Router       /notifications [get]
func (h *Handler) List(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequest(c, err)
		return
	}

	items, err := h.inbox.List(c.Request.Context(), actor.ID, q)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// MarkRead godoc
// @Summary      Mark notification read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  api.MessageResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid notification id"})
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), id, actor.ID); err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "notification marked as read"})
}
