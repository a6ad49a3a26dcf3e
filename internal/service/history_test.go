package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

type fakeObservationReader struct {
	observations []model.Observation
	states       map[string][]model.Observation
}

func (f *fakeObservationReader) ObservationsInRange(ctx context.Context, environmentName, elementID string, start, end time.Time, includeChecks bool) ([]model.Observation, error) {
	var out []model.Observation
	for _, o := range f.observations {
		if o.EnvironmentName != environmentName {
			continue
		}
		if elementID != "" && o.ElementID != elementID {
			continue
		}
		if o.SourceTimestamp.Before(start) || o.SourceTimestamp.After(end) {
			continue
		}
		if !includeChecks && o.IsCheck() {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeObservationReader) CurrentStates(ctx context.Context, environmentName string) (map[string][]model.Observation, error) {
	return f.states, nil
}

type fakeIntervalReader struct {
	intervals []model.StateInterval
	now       time.Time
}

func (f *fakeIntervalReader) StateAt(ctx context.Context, environmentID, elementID string, t time.Time) (*model.StateInterval, error) {
	for i := range f.intervals {
		iv := f.intervals[i]
		if iv.EnvironmentID != environmentID || iv.ElementID != elementID {
			continue
		}
		if iv.StartDate.After(t) {
			continue
		}
		if iv.EndDate == nil || iv.EndDate.After(t) {
			return &iv, nil
		}
	}
	return nil, nil
}

func (f *fakeIntervalReader) OverlappingIntervals(ctx context.Context, environmentID, elementID string, start, end time.Time) ([]model.StateInterval, error) {
	var out []model.StateInterval
	for _, iv := range f.intervals {
		if iv.EnvironmentID != environmentID {
			continue
		}
		if elementID != "" && iv.ElementID != elementID {
			continue
		}
		if iv.Overlaps(start, end, f.now) {
			out = append(out, iv)
		}
	}
	return out, nil
}

type fakeMasterdata struct {
	environments map[string]model.EnvironmentRef
	elements     []model.ElementRef
}

func (f *fakeMasterdata) ResolveEnvironment(ctx context.Context, nameOrSubscriptionID string) (*model.EnvironmentRef, error) {
	for _, env := range f.environments {
		if env.Name == nameOrSubscriptionID || env.SubscriptionID == nameOrSubscriptionID {
			copied := env
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMasterdata) ListElements(ctx context.Context, environmentID int64) ([]model.ElementRef, error) {
	return f.elements, nil
}

func prodMasterdata(elements ...model.ElementRef) *fakeMasterdata {
	return &fakeMasterdata{
		environments: map[string]model.EnvironmentRef{
			"prod": {ID: 1, ElementID: "env-el", Name: "prod", SubscriptionID: "sub-prod"},
		},
		elements: elements,
	}
}

func TestHistoryForElementCollapsesSharedRecordID(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	// 같은 RecordID 두 건: 하나는 alertName 없음, 하나는 있음 - 후자만 남아야 함
	observations := []model.Observation{
		{
			ElementID: "E1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateError, SourceTimestamp: t0, RecordID: "rec-1",
		},
		{
			ElementID: "E1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateError, SourceTimestamp: t0.Add(time.Minute), RecordID: "rec-1",
			AlertName: "HighLatency",
		},
	}

	svc := NewHistoryService(
		&fakeObservationReader{observations: observations},
		&fakeIntervalReader{},
		prodMasterdata(model.ElementRef{ElementID: "E1", Type: model.ComponentTypeService}),
	)

	entries, err := svc.HistoryForElement(context.Background(), "prod", "E1", t0.Add(-time.Hour), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 collapsed entry, got %d", len(entries))
	}
	if entries[0].AlertName != "HighLatency" {
		t.Fatalf("expected alertName entry to win, got %+v", entries[0])
	}
}

func TestHistoryForElementPrefersCheckIDOverLatest(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	observations := []model.Observation{
		{
			ElementID: "E1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateError, SourceTimestamp: t0.Add(time.Minute), RecordID: "rec-1",
		},
		{
			ElementID: "E1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateError, SourceTimestamp: t0, RecordID: "rec-1", CheckID: "chk-7",
		},
	}

	svc := NewHistoryService(
		&fakeObservationReader{observations: observations},
		&fakeIntervalReader{},
		prodMasterdata(model.ElementRef{ElementID: "E1", Type: model.ComponentTypeService}),
	)

	entries, err := svc.HistoryForElement(context.Background(), "prod", "E1", t0.Add(-time.Hour), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].CheckID != "chk-7" {
		t.Fatalf("expected checkId entry to win, got %+v", entries)
	}
}

func TestHistoryIncludesInitialStateFromOpenInterval(t *testing.T) {
	// 질의 시작 전에 열린 인터벌만 있고 구간 내 관측은 없는 요소
	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	intervalStart := start.Add(-6 * time.Hour)

	svc := NewHistoryService(
		&fakeObservationReader{},
		&fakeIntervalReader{intervals: []model.StateInterval{{
			ID: 1, ElementID: "E1", EnvironmentID: "sub-prod",
			ComponentType: model.ComponentTypeService,
			State:         model.StateError, StartDate: intervalStart,
		}}},
		prodMasterdata(model.ElementRef{ElementID: "E1", Type: model.ComponentTypeService}),
	)

	result, err := svc.History(context.Background(), "prod", start, start.Add(24*time.Hour), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := model.SignalKey{ElementID: "E1"}
	entries := result[key]
	if len(entries) != 1 {
		t.Fatalf("expected initial-state entry, got %+v", result)
	}
	if entries[0].State != model.StateError || !entries[0].SourceTimestamp.Equal(start) {
		t.Fatalf("expected Error state pinned at window start, got %+v", entries[0])
	}
}

func TestHistoryGroupsBySignalKeyAndSorts(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	observations := []model.Observation{
		{ElementID: "E1", CheckID: "c1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateError, SourceTimestamp: t0.Add(2 * time.Minute), RecordID: "r2"},
		{ElementID: "E1", CheckID: "c1", EnvironmentName: "prod", ComponentType: model.ComponentTypeService,
			State: model.StateWarning, SourceTimestamp: t0, RecordID: "r1"},
		{ElementID: "E2", EnvironmentName: "prod", ComponentType: model.ComponentTypeAction,
			State: model.StateError, SourceTimestamp: t0, RecordID: "r3"},
	}

	svc := NewHistoryService(
		&fakeObservationReader{observations: observations},
		&fakeIntervalReader{},
		prodMasterdata(),
	)

	result, err := svc.History(context.Background(), "prod", t0.Add(-time.Hour), t0.Add(time.Hour), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 signal groups, got %d", len(result))
	}

	entries := result[model.SignalKey{ElementID: "E1", CheckID: "c1"}]
	if len(entries) != 2 || !entries[0].SourceTimestamp.Before(entries[1].SourceTimestamp) {
		t.Fatalf("expected ascending order within group, got %+v", entries)
	}
}

func TestHistoryUnknownEnvironmentIsNotFound(t *testing.T) {
	svc := NewHistoryService(&fakeObservationReader{}, &fakeIntervalReader{}, prodMasterdata())

	_, err := svc.History(context.Background(), "missing",
		time.Now().Add(-time.Hour), time.Now(), false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown environment, got %v", err)
	}
}

func TestHistoryForElementUnknownElementIsNotFound(t *testing.T) {
	svc := NewHistoryService(&fakeObservationReader{}, &fakeIntervalReader{}, prodMasterdata())

	_, err := svc.HistoryForElement(context.Background(), "prod", "ghost",
		time.Now().Add(-time.Hour), time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown element, got %v", err)
	}
}
