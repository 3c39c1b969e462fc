package response

import (
	"github.com/gin-gonic/gin"

	"qrattend/internal/apperror"
)

type ApiEnvelope struct {
	Ok    bool `json:"ok"`
	Data  any  `json:"data,omitempty"`
	Error any  `json:"error,omitempty"`
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, ApiEnvelope{Ok: true, Data: data})
}

func Error(c *gin.Context, status int, errorCode string, message string) {
	c.JSON(status, ApiEnvelope{
		Ok: false,
		Error: map[string]any{
			"code":    errorCode,
			"message": message,
		},
	})
}

// AppError writes err using its code, message and status.
func AppError(c *gin.Context, err *apperror.AppError) {
	Error(c, err.HTTPStatus, err.Code, err.Message)
}
