package teacher

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorbook/internal/api"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetProfile godoc
// @Summary      Get teacher profile
// @Tags         teachers
// @Produce      json
// @Param        id   path      int  true  "Teacher ID"
// @Success      200  {object}  Teacher
// @Failure      404  {object}  api.ErrorResponse
// @Router       /teachers/{id} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.service.GetProfile(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// Approve godoc
// @Summary      Approve teacher
// @Description  Admin only. Makes the teacher bookable.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Teacher ID"
// @Success      200  {object}  Teacher
// @Failure      404  {object}  api.ErrorResponse
// @Router       /admin/teachers/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid teacher id"})
		return 0, false
	}
	return id, true
}
