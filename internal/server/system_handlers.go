package server

import (
	"net/http"

	"tutorbook/internal/api"
	"tutorbook/internal/email"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

type testEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary      Queue a test email
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body testEmailRequest true "Recipient"
// @Success      202 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/test-email [post]
func TestEmail(mailer email.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req testEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.BadRequest(c, err)
			return
		}

		if err := mailer.Send(c.Request.Context(), req.Email, "Tutorbook test email", "<p>Email delivery is working.</p>"); err != nil {
			api.Fail(c, err)
			return
		}

		c.JSON(http.StatusAccepted, api.MessageResponse{Message: "email queued"})
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
