package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fleet-health/backend/internal/metrics"
	"github.com/fleet-health/backend/internal/model"
)

type fakeWindowReader struct {
	windows []model.DeploymentWindow
}

func (f *fakeWindowReader) WindowsForEnvironment(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error) {
	return f.windows, nil
}

func newSlaService(intervals *fakeIntervalReader, windows *fakeWindowReader, now time.Time) *SlaService {
	intervals.now = now
	svc := NewSlaService(intervals, windows,
		prodMasterdata(model.ElementRef{ElementID: "E1", Type: model.ComponentTypeService}),
		metrics.NewNopSink())
	svc.now = func() time.Time { return now }
	return svc
}

func closedInterval(element string, state model.ElementState, start, end time.Time) model.StateInterval {
	return model.StateInterval{
		ElementID:     element,
		EnvironmentID: "sub-prod",
		ComponentType: model.ComponentTypeService,
		State:         state,
		StartDate:     start,
		EndDate:       &end,
	}
}

func TestComputeSlaCountsClosedIntervalAsDowntime(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	intervals := &fakeIntervalReader{intervals: []model.StateInterval{
		closedInterval("E1", model.StateError, start.Add(6*time.Hour), start.Add(6*time.Hour+30*time.Minute)),
	}}
	svc := newSlaService(intervals, &fakeWindowReader{}, end)

	report, err := svc.ComputeSla(context.Background(), "sub-prod", "", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sla, ok := report.Elements["E1"]
	if !ok {
		t.Fatalf("missing element in report: %+v", report.Elements)
	}
	if sla.DowntimeSeconds != 1800 {
		t.Fatalf("expected 1800s downtime, got %v", sla.DowntimeSeconds)
	}
	if sla.UptimeSeconds != 86400-1800 {
		t.Fatalf("expected remaining time as uptime, got %v", sla.UptimeSeconds)
	}
	// 가용률은 부동소수점 연산 결과라 ULP 차이를 허용
	want := (86400.0 - 1800.0) / 86400.0 * 100.0
	if math.Abs(sla.Availability-want) > 1e-9 {
		t.Fatalf("expected availability %v, got %v", want, sla.Availability)
	}
	if len(sla.Days) != 1 || sla.Days[0].ErrorSeconds != 1800 {
		t.Fatalf("expected single day with error breakdown, got %+v", sla.Days)
	}
}

func TestComputeSlaExcludesMaintenanceFromDowntime(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	outageEnd := start.Add(7 * time.Hour)
	intervals := &fakeIntervalReader{intervals: []model.StateInterval{
		closedInterval("E1", model.StateError, start.Add(6*time.Hour), start.Add(6*time.Hour+30*time.Minute)),
	}}
	// 장애 전체를 덮는 배포 윈도우 (ElementIDs 비어 있음 = 환경 전체 적용)
	windows := &fakeWindowReader{windows: []model.DeploymentWindow{{
		ID:                        1,
		EnvironmentSubscriptionID: "sub-prod",
		StartDate:                 start.Add(6 * time.Hour),
		EndDate:                   &outageEnd,
	}}}
	svc := newSlaService(intervals, windows, end)

	report, err := svc.ComputeSla(context.Background(), "sub-prod", "E1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sla := report.Elements["E1"]
	if sla.DowntimeSeconds != 0 {
		t.Fatalf("maintenance-covered outage must not count as downtime, got %v", sla.DowntimeSeconds)
	}
	if sla.MaintenanceSeconds != 3600 {
		t.Fatalf("expected 3600s maintenance, got %v", sla.MaintenanceSeconds)
	}
	if sla.Availability != 100.0 {
		t.Fatalf("expected 100%% availability, got %v", sla.Availability)
	}
	// 업타임 + 다운타임 + 점검 = 전체 구간
	if total := sla.UptimeSeconds + sla.DowntimeSeconds + sla.MaintenanceSeconds; total != 86400 {
		t.Fatalf("expected accounting to cover the full window, got %v", total)
	}
}

func TestComputeSlaSplitsAcrossUTCMidnight(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	// 자정을 가로지르는 장애: 5/1 23:00 ~ 5/2 01:00
	intervals := &fakeIntervalReader{intervals: []model.StateInterval{
		closedInterval("E1", model.StateError, start.Add(23*time.Hour), start.Add(25*time.Hour)),
	}}
	svc := newSlaService(intervals, &fakeWindowReader{}, end)

	report, err := svc.ComputeSla(context.Background(), "sub-prod", "E1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sla := report.Elements["E1"]
	if len(sla.Days) != 2 {
		t.Fatalf("expected 2 daily buckets, got %d", len(sla.Days))
	}
	if sla.Days[0].DowntimeSeconds != 3600 || sla.Days[1].DowntimeSeconds != 3600 {
		t.Fatalf("expected downtime split 3600/3600, got %v/%v",
			sla.Days[0].DowntimeSeconds, sla.Days[1].DowntimeSeconds)
	}
	if sla.DowntimeSeconds != 7200 {
		t.Fatalf("expected 7200s total downtime, got %v", sla.DowntimeSeconds)
	}
}

func TestComputeSlaOpenIntervalRunsUntilNow(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	now := start.Add(18 * time.Hour)

	intervals := &fakeIntervalReader{intervals: []model.StateInterval{{
		ElementID:     "E1",
		EnvironmentID: "sub-prod",
		ComponentType: model.ComponentTypeService,
		State:         model.StateWarning,
		StartDate:     start.Add(12 * time.Hour),
	}}}
	svc := newSlaService(intervals, &fakeWindowReader{}, now)

	report, err := svc.ComputeSla(context.Background(), "sub-prod", "E1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sla := report.Elements["E1"]
	if sla.DowntimeSeconds != 6*3600 {
		t.Fatalf("expected open interval clipped at now (6h), got %v", sla.DowntimeSeconds)
	}
	if sla.Days[0].WarningSeconds != 6*3600 {
		t.Fatalf("expected warning breakdown, got %+v", sla.Days[0])
	}
}

func TestComputeSlaUnknownElementIsNotFound(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newSlaService(&fakeIntervalReader{}, &fakeWindowReader{}, start)

	_, err := svc.ComputeSla(context.Background(), "sub-prod", "ghost", start, start.Add(24*time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown element, got %v", err)
	}
}

func TestComputeSlaNoIntervalsIsFullyAvailable(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	svc := newSlaService(&fakeIntervalReader{}, &fakeWindowReader{}, end)

	report, err := svc.ComputeSla(context.Background(), "sub-prod", "E1", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sla := report.Elements["E1"]
	if sla.Availability != 100.0 || sla.UptimeSeconds != 86400 {
		t.Fatalf("expected full availability, got %+v", sla)
	}
}
