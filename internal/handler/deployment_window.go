// 배포 윈도우 관리 핸들러

package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/fleet-health/backend/internal/model"
	"github.com/fleet-health/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// DeploymentWindow 핸들러 구조체 정의
type WindowHandler struct {
	windows           *service.WindowService
	defaultWindowDays int
}

// DeploymentWindow 핸들러 객체 생성
func NewWindowHandler(windows *service.WindowService, defaultWindowDays int) *WindowHandler {
	return &WindowHandler{
		windows:           windows,
		defaultWindowDays: defaultWindowDays,
	}
}

func (h *WindowHandler) Create(c *gin.Context) {
	var window model.DeploymentWindow
	if err := c.ShouldBindJSON(&window); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	id, children, err := h.windows.Create(c.Request.Context(), window)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	log.Printf("[DeploymentWindow] Created window %d (children=%d) by %q", id, children, AuthSubject(c))
	c.JSON(http.StatusCreated, model.WindowMutationResponse{
		Status:   "created",
		WindowID: id,
		Children: children,
	})
}

func (h *WindowHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window id"})
		return
	}

	var window model.DeploymentWindow
	if err := c.ShouldBindJSON(&window); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	window.ID = id

	children, err := h.windows.Update(c.Request.Context(), window)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	log.Printf("[DeploymentWindow] Updated window %d (children=%d) by %q", id, children, AuthSubject(c))
	c.JSON(http.StatusOK, model.WindowMutationResponse{
		Status:   "updated",
		WindowID: id,
		Children: children,
	})
}

func (h *WindowHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window id"})
		return
	}

	if err := h.windows.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	log.Printf("[DeploymentWindow] Deleted window %d by %q", id, AuthSubject(c))
	c.JSON(http.StatusOK, model.StatusResponse{Status: "deleted"})
}

func (h *WindowHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window id"})
		return
	}

	window, err := h.windows.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, window)
}

func (h *WindowHandler) List(c *gin.Context) {
	environmentSubscriptionID := c.Param("env")

	start, end, ok := parseDateRange(c, h.defaultWindowDays)
	if !ok {
		return
	}

	windows, err := h.windows.List(c.Request.Context(), environmentSubscriptionID, start, end)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, windows)
}
