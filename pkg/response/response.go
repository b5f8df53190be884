package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageBody is the informational response shape: {"message": "..."}.
type MessageBody struct {
	Message string `json:"message"`
}

// FailureBody is the structured failure shape: {"message": "...", "error": "..."}.
type FailureBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ErrorBody is the bare failure shape: {"error": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
}

// OK sends data with a 200 status.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message sends {"message": msg} with the given status.
func Message(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, MessageBody{Message: msg})
}

// Failure sends {"message": msg, "error": err} with the given status and
// records err on the gin context so the request logger picks it up.
func Failure(c *gin.Context, statusCode int, msg string, err error) {
	body := FailureBody{Message: msg}
	if err != nil {
		body.Error = err.Error()
		_ = c.Error(err)
	}
	c.JSON(statusCode, body)
}

// Error sends {"error": err} with the given status.
func Error(c *gin.Context, statusCode int, err error) {
	_ = c.Error(err)
	c.JSON(statusCode, ErrorBody{Error: err.Error()})
}

// BadRequest sends a 400 {"message": msg}.
func BadRequest(c *gin.Context, msg string) {
	Message(c, http.StatusBadRequest, msg)
}
