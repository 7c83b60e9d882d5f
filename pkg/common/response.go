package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Meta holds pagination metadata
type Meta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// Response is the standard API response envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody holds error details in the response envelope
type ErrorBody struct {
	Message string `json:"message"`
}

// SuccessResponse sends a successful response with data
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessResponseWithMeta sends a successful response with data and pagination metadata
func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// ErrorResponse sends an error response with the given status code
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   &ErrorBody{Message: message},
	})
}

// AppErrorResponse sends an error response from an AppError
func AppErrorResponse(c *gin.Context, err *AppError) {
	ErrorResponse(c, err.StatusCode, err.Message)
}
