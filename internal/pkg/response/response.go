package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tapbook/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// lifecycle rejections are reported as unprocessable rather than as conflicts
var unprocessable = map[string]bool{
	"INVALID_TRANSITION": true,
	"NOTE_REQUIRED":      true,
	"NOT_DUE":            true,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	ae, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case apperr.KindInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPolicy:
		if unprocessable[ae.Code] {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err in the error envelope. Rejections that carry a reason also get
// {"status":"rejected","reason":...} details. Unclassified errors never leak their text.
func Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	ae, ok := apperr.As(err)
	if !ok {
		_ = c.Error(err)
		Error(c, status, "INTERNAL_ERROR", "internal server error")
		return
	}
	if ae.Kind == apperr.KindStorage {
		_ = c.Error(err)
		c.Header("Retry-After", "1")
	}
	if ae.Reason != "" {
		ErrorWithDetails(c, status, ae.Code, ae.Message, gin.H{
			"status": "rejected",
			"reason": ae.Reason,
		})
		return
	}
	Error(c, status, ae.Code, ae.Message)
}
