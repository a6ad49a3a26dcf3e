package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func rangeContext(t *testing.T, query string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/environments/prod/history"+query, nil)
	return c, recorder
}

func TestParseDateRangeDefaultsToRecentDays(t *testing.T) {
	c, _ := rangeContext(t, "")

	start, end, ok := parseDateRange(c, 3)
	if !ok {
		t.Fatalf("expected default range to be accepted")
	}
	if got := end.Sub(start); got != 72*time.Hour {
		t.Fatalf("expected 3-day default window, got %v", got)
	}
	if time.Until(end) > time.Minute {
		t.Fatalf("expected end to default to now, got %v", end)
	}
}

func TestParseDateRangeParsesRFC3339(t *testing.T) {
	startRaw := "2026-05-01T00:00:00Z"
	endRaw := "2026-05-02T12:00:00Z"
	c, _ := rangeContext(t, fmt.Sprintf("?startDate=%s&endDate=%s", startRaw, endRaw))

	start, end, ok := parseDateRange(c, 3)
	if !ok {
		t.Fatalf("expected explicit range to be accepted")
	}
	if !start.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestParseDateRangeFallsBackOnGarbage(t *testing.T) {
	c, _ := rangeContext(t, "?startDate=yesterday&endDate=tomorrow")

	start, end, ok := parseDateRange(c, 3)
	if !ok {
		t.Fatalf("expected garbage dates to fall back to the default window")
	}
	if got := end.Sub(start); got != 72*time.Hour {
		t.Fatalf("expected default window on unparsable dates, got %v", got)
	}
}

func TestParseDateRangeRejectsReversedRange(t *testing.T) {
	c, recorder := rangeContext(t, "?startDate=2026-05-02T00:00:00Z&endDate=2026-05-01T00:00:00Z")

	if _, _, ok := parseDateRange(c, 3); ok {
		t.Fatalf("expected reversed range to be rejected")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestParseDateRangeRejectsEqualBounds(t *testing.T) {
	ts := "2026-05-01T00:00:00Z"
	c, recorder := rangeContext(t, fmt.Sprintf("?startDate=%s&endDate=%s", ts, ts))

	if _, _, ok := parseDateRange(c, 3); ok {
		t.Fatalf("expected zero-length range to be rejected")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
