// 관측 수집 및 현재 상태 조회 핸들러
//
// 요청 흐름:
//  1. 프로브/에이전트가 POST /api/observations 로 관측 배치 전송
//  2. 빈 recordId/타임스탬프를 보정한 뒤 히스토리 빌더에 전달
//  3. 형식이 잘못된 관측은 개별 거부, 나머지는 계속 처리

package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/fleet-health/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Observation 핸들러 구조체 정의
type ObservationHandler struct {
	builder *service.HistoryBuilder
	history *service.HistoryService
}

// Observation 핸들러 객체 생성
func NewObservationHandler(builder *service.HistoryBuilder, history *service.HistoryService) *ObservationHandler {
	return &ObservationHandler{
		builder: builder,
		history: history,
	}
}

func (h *ObservationHandler) Ingest(c *gin.Context) {
	var batch []model.Observation
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty payload"})
		return
	}

	batch = service.Normalize(batch, time.Now().UTC(), uuid.NewString)

	result, err := h.builder.ProcessBatch(c.Request.Context(), batch)
	if err != nil {
		log.Printf("[Ingest] Batch failed: %v", err)
		respondServiceError(c, err)
		return
	}

	log.Printf("[Ingest] Batch processed: accepted=%d, rejected=%d", result.Accepted, len(result.Rejected))
	c.JSON(http.StatusAccepted, model.IngestResponse{
		Status:   "accepted",
		Accepted: result.Accepted,
		Rejected: len(result.Rejected),
		Errors:   result.Rejected,
	})
}

func (h *ObservationHandler) CurrentStates(c *gin.Context) {
	environmentName := c.Param("env")

	states, err := h.history.CurrentStates(c.Request.Context(), environmentName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, states)
}
