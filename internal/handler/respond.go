package handler

import (
	"errors"
	"net/http"

	"github.com/fleet-health/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// respondServiceError - 서비스 에러 분류를 HTTP 상태 코드로 매핑
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		// ErrConflict는 내부 재시도 후에도 남은 경우라 내부 오류로 노출
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
