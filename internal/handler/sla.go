// SLA 조회 핸들러

package handler

import (
	"net/http"

	"github.com/fleet-health/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// SLA 핸들러 구조체 정의
type SlaHandler struct {
	sla               *service.SlaService
	snapshots         *service.SnapshotService
	defaultWindowDays int
}

// SLA 핸들러 객체 생성
func NewSlaHandler(sla *service.SlaService, snapshots *service.SnapshotService, defaultWindowDays int) *SlaHandler {
	return &SlaHandler{
		sla:               sla,
		snapshots:         snapshots,
		defaultWindowDays: defaultWindowDays,
	}
}

func (h *SlaHandler) Sla(c *gin.Context) {
	environmentSubscriptionID := c.Param("env")

	start, end, ok := parseDateRange(c, h.defaultWindowDays)
	if !ok {
		return
	}

	report, err := h.sla.ComputeSla(c.Request.Context(), environmentSubscriptionID, c.Query("elementId"), start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Snapshots - 배치 잡이 적재한 일별 스냅샷 조회 (실시간 집계 없이 과거 수치 제공)
func (h *SlaHandler) Snapshots(c *gin.Context) {
	environmentSubscriptionID := c.Param("env")

	start, end, ok := parseDateRange(c, h.defaultWindowDays)
	if !ok {
		return
	}

	snapshots, err := h.snapshots.Snapshots(c.Request.Context(), environmentSubscriptionID, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshots)
}
