// Package resp writes the {success, data, error} envelope every endpoint
// returns.
package resp

import (
	"errors"
	"net/http"

	"puceats-api/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

const genericFailure = "internal error, please try again later"

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func NoContent(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{Success: true})
}

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Error: msg, Reason: string(apperr.KindValidation)})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Error: msg, Reason: string(apperr.KindUnauthorized)})
}

func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Envelope{Error: msg, Reason: "forbidden"})
}

func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{Error: "too many requests", Reason: "rate_limited"})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindAlreadyUsed:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err. Storage faults, and anything unclassified, are reported
// with a generic message; the detail only goes to the log via c.Error.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	msg := genericFailure
	var e *apperr.Error
	if kind != apperr.KindStorage && errors.As(err, &e) {
		msg = e.Message
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusOf(kind), Envelope{Error: msg, Reason: string(kind)})
}
