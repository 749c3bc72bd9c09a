package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/availability"
	"hotel-booking/database"
)

// HTTPError is a failure with the status and message shown to the client.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// NewError builds an HTTPError.
func NewError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

// BadRequest is shorthand for a 400 HTTPError.
func BadRequest(message string) *HTTPError {
	return NewError(http.StatusBadRequest, message)
}

// Fail records err for ErrorHandler and stops the handler chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ErrorHandler renders the last error attached to the context.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, message := Classify(c.Errors.Last().Err)
		if status >= http.StatusInternalServerError {
			logrus.WithError(c.Errors.Last().Err).
				WithField("path", c.Request.URL.Path).
				Error("request failed")
		}
		c.JSON(status, ErrorBody{Success: false, Status: status, Message: message})
	}
}

// Classify maps an error to its HTTP status and client message.
func Classify(err error) (int, string) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status, httpErr.Message
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, database.ErrUsernameTaken):
		return http.StatusConflict, database.ErrUsernameTaken.Error()
	case errors.Is(err, database.ErrEmailTaken):
		return http.StatusConflict, database.ErrEmailTaken.Error()
	case errors.Is(err, database.ErrConflict):
		return http.StatusConflict, database.ErrConflict.Error()
	case errors.Is(err, availability.ErrLocked):
		return http.StatusConflict, availability.ErrLocked.Error()
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return http.StatusBadRequest, "password must be at most 72 bytes"
	case errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, availability.ErrStayTooLong):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}
