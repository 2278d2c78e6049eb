package response

import "github.com/gin-gonic/gin"

// Error codes shared by every handler.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInsufficient   = "INSUFFICIENT_BALANCE"
	CodeBadGateway     = "BAD_GATEWAY"
	CodeUnprocessable  = "UNPROCESSABLE"
	CodeInvalidRequest = "INVALID_REQUEST"
)

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes the error envelope. The message is repeated at the top level
// so REST clients that only read "message" still get it.
func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func Abort(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}
