// 히스토리 조회 핸들러
//
// 날짜 파라미터가 없거나 파싱에 실패하면 최근 N일(기본 3일)로 보정,
// startDate >= endDate는 잘못된 요청으로 거부 (재구성 컴포넌트에 들어가기 전에)

package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/fleet-health/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// History 핸들러 구조체 정의
type HistoryHandler struct {
	history           *service.HistoryService
	defaultWindowDays int
}

// History 핸들러 객체 생성
func NewHistoryHandler(history *service.HistoryService, defaultWindowDays int) *HistoryHandler {
	return &HistoryHandler{
		history:           history,
		defaultWindowDays: defaultWindowDays,
	}
}

func (h *HistoryHandler) History(c *gin.Context) {
	environmentName := c.Param("env")

	start, end, ok := parseDateRange(c, h.defaultWindowDays)
	if !ok {
		return
	}

	// elementId가 지정되면 check/alert 통합 단일 요소 히스토리
	if elementID := c.Query("elementId"); elementID != "" {
		entries, err := h.history.HistoryForElement(c.Request.Context(), environmentName, elementID, start, end)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
		return
	}

	includeChecks, _ := strconv.ParseBool(c.DefaultQuery("includeChecks", "false"))

	result, err := h.history.History(c.Request.Context(), environmentName, start, end, includeChecks)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, groupedHistory(result))
}

// groupedHistory - 맵을 키 정렬된 리스트로 변환 (응답 순서 고정)
func groupedHistory(result map[model.SignalKey][]model.HistoryEntry) []model.HistoryGroup {
	groups := make([]model.HistoryGroup, 0, len(result))
	for key, entries := range result {
		groups = append(groups, model.HistoryGroup{Key: key, Entries: entries})
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Key, groups[j].Key
		if a.ElementID != b.ElementID {
			return a.ElementID < b.ElementID
		}
		if a.CheckID != b.CheckID {
			return a.CheckID < b.CheckID
		}
		return a.AlertName < b.AlertName
	})
	return groups
}

// parseDateRange - startDate/endDate 쿼리 파싱
// 없거나 잘못된 값은 기본 구간으로 보정, start >= end는 400으로 거부
func parseDateRange(c *gin.Context, defaultWindowDays int) (time.Time, time.Time, bool) {
	now := time.Now().UTC()

	end := now
	if raw := c.Query("endDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			end = parsed
		}
	}

	start := end.AddDate(0, 0, -defaultWindowDays)
	if raw := c.Query("startDate"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			start = parsed
		}
	}

	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be before endDate"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
