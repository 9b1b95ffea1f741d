package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rateRequest struct {
	Rating          int    `json:"rating" binding:"required,min=1,max=5"`
	HourlyRateCents int64  `json:"hourly_rate_cents" binding:"omitempty,min=0"`
	Email           string `json:"email" binding:"omitempty,email"`
}

func TestFieldErrors(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")

	err := v.Struct(rateRequest{Rating: 9, Email: "nope"})
	require.Error(t, err)

	details := FieldErrors(err)
	require.Len(t, details, 2)
	assert.Equal(t, "max", details[0].Tag)
	assert.Equal(t, "rating must be at most 5", details[0].Message)
	assert.Equal(t, "email must be a valid email address", details[1].Message)

	assert.Nil(t, FieldErrors(errors.New("unexpected EOF")))
}

func TestBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rate", func(c *gin.Context) {
		var req rateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	t.Run("validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rate", strings.NewReader(`{"hourly_rate_cents":-1}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body ValidationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "rating is required; hourly_rate_cents must be at least 0", body.Error)
		assert.Len(t, body.Details, 2)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rate", strings.NewReader(`{`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotContains(t, w.Body.String(), "details")
	})
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "hourly_rate_cents", toSnake("HourlyRateCents"))
	assert.Equal(t, "teacher_id", toSnake("TeacherID"))
	assert.Equal(t, "rating", toSnake("Rating"))
}
