package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleet-health/backend/internal/db"
	"github.com/fleet-health/backend/internal/model"
)

type fakeWindowStore struct {
	parents  map[int64]model.DeploymentWindow
	children map[int64][]model.DeploymentWindow
	nextID   int64
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{
		parents:  map[int64]model.DeploymentWindow{},
		children: map[int64][]model.DeploymentWindow{},
	}
}

func (f *fakeWindowStore) CreateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) (int64, error) {
	f.nextID++
	parent.ID = f.nextID
	f.parents[parent.ID] = parent
	f.children[parent.ID] = children
	return parent.ID, nil
}

func (f *fakeWindowStore) UpdateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) error {
	if _, ok := f.parents[parent.ID]; !ok {
		return db.ErrWindowNotFound
	}
	f.parents[parent.ID] = parent
	f.children[parent.ID] = children
	return nil
}

func (f *fakeWindowStore) DeleteWindowTree(ctx context.Context, id int64) error {
	if _, ok := f.parents[id]; !ok {
		return db.ErrWindowNotFound
	}
	delete(f.parents, id)
	delete(f.children, id)
	return nil
}

func (f *fakeWindowStore) GetWindow(ctx context.Context, id int64) (*model.DeploymentWindow, error) {
	if w, ok := f.parents[id]; ok {
		return &w, nil
	}
	return nil, db.ErrWindowNotFound
}

func (f *fakeWindowStore) WindowsForEnvironment(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error) {
	var out []model.DeploymentWindow
	for id, p := range f.parents {
		if p.EnvironmentSubscriptionID != environmentSubscriptionID {
			continue
		}
		out = append(out, p)
		out = append(out, f.children[id]...)
	}
	return out, nil
}

func window(start time.Time, durationHours int) model.DeploymentWindow {
	end := start.Add(time.Duration(durationHours) * time.Hour)
	return model.DeploymentWindow{
		EnvironmentSubscriptionID: "sub-prod",
		ElementIDs:                []string{"E1", "E2"},
		Description:               "패치 작업",
		StartDate:                 start,
		EndDate:                   &end,
	}
}

func TestExpandRecurringDaily(t *testing.T) {
	start := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)

	w := window(start, 2)
	w.Repeat = &model.RepeatInformation{
		Frequency: model.RepeatDaily,
		// 6/4 22:00 시작분까지 포함 - 자식 3개
		RepeatUntil: start.AddDate(0, 0, 3),
	}

	children := ExpandRecurring(w)
	if len(children) != 3 {
		t.Fatalf("expected 3 daily children, got %d", len(children))
	}
	for i, c := range children {
		wantStart := start.AddDate(0, 0, i+1)
		if !c.StartDate.Equal(wantStart) {
			t.Fatalf("child %d: expected start %v, got %v", i, wantStart, c.StartDate)
		}
		if c.EndDate == nil || c.EndDate.Sub(c.StartDate) != 2*time.Hour {
			t.Fatalf("child %d: expected parent duration carried over", i)
		}
		if len(c.ElementIDs) != 2 {
			t.Fatalf("child %d: expected parent element ids shared", i)
		}
	}
}

func TestExpandRecurringIncludesRepeatUntilBoundary(t *testing.T) {
	start := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)

	w := window(start, 1)
	w.Repeat = &model.RepeatInformation{
		Frequency:   model.RepeatWeekly,
		RepeatUntil: start.AddDate(0, 0, 7), // 정확히 한 주기 뒤
	}

	children := ExpandRecurring(w)
	if len(children) != 1 {
		t.Fatalf("expected boundary occurrence included, got %d children", len(children))
	}
	if !children[0].StartDate.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("unexpected child start: %v", children[0].StartDate)
	}
}

func TestExpandRecurringMonthlyFollowsCalendar(t *testing.T) {
	// 1/31 시작 - 월 이동은 달력 기준이라 2월에는 3/2~3로 넘어감
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	w := window(start, 1)
	w.Repeat = &model.RepeatInformation{
		Frequency:   model.RepeatMonthly,
		RepeatUntil: time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
	}

	// 1/31 + 1개월 = 3/3(정규화), + 2개월 = 3/31, + 3개월 = 5/1이라 repeatUntil 초과
	children := ExpandRecurring(w)
	if len(children) != 2 {
		t.Fatalf("expected 2 monthly children, got %d", len(children))
	}
	if !children[0].StartDate.Equal(time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first monthly shift: %v", children[0].StartDate)
	}
	if !children[1].StartDate.Equal(time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected second monthly shift: %v", children[1].StartDate)
	}
}

func TestExpandRecurringWithoutRepeatIsEmpty(t *testing.T) {
	if children := ExpandRecurring(window(time.Now(), 1)); len(children) != 0 {
		t.Fatalf("expected no children without repeat, got %d", len(children))
	}
}

func TestCreateWindowValidation(t *testing.T) {
	svc := NewWindowService(newFakeWindowStore())
	start := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*model.DeploymentWindow)
	}{
		{"missing environment", func(w *model.DeploymentWindow) { w.EnvironmentSubscriptionID = "" }},
		{"missing startDate", func(w *model.DeploymentWindow) { w.StartDate = time.Time{} }},
		{"endDate before startDate", func(w *model.DeploymentWindow) { bad := w.StartDate.Add(-time.Hour); w.EndDate = &bad }},
		{"unknown frequency", func(w *model.DeploymentWindow) {
			w.Repeat = &model.RepeatInformation{Frequency: "Hourly", RepeatUntil: w.StartDate.AddDate(0, 0, 1)}
		}},
		{"repeatUntil before startDate", func(w *model.DeploymentWindow) {
			w.Repeat = &model.RepeatInformation{Frequency: model.RepeatDaily, RepeatUntil: w.StartDate.AddDate(0, 0, -1)}
		}},
	}

	for _, tc := range cases {
		w := window(start, 2)
		tc.mutate(&w)
		if _, _, err := svc.Create(context.Background(), w); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestUpdateMissingWindowIsNotFound(t *testing.T) {
	svc := NewWindowService(newFakeWindowStore())

	w := window(time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC), 2)
	w.ID = 42
	if _, err := svc.Update(context.Background(), w); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
}

func TestCreateRecurringStoresChildren(t *testing.T) {
	store := newFakeWindowStore()
	svc := NewWindowService(store)

	start := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)
	w := window(start, 2)
	w.Repeat = &model.RepeatInformation{Frequency: model.RepeatDaily, RepeatUntil: start.AddDate(0, 0, 2)}

	id, childCount, err := svc.Create(context.Background(), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if childCount != 2 || len(store.children[id]) != 2 {
		t.Fatalf("expected 2 children stored, got %d", len(store.children[id]))
	}

	got, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != id || !got.StartDate.Equal(start) {
		t.Fatalf("unexpected window from get: %+v", got)
	}
}

func TestIsSuppressed(t *testing.T) {
	store := newFakeWindowStore()
	svc := NewWindowService(store)

	start := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)
	if _, _, err := svc.Create(context.Background(), window(start, 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	suppressed, err := svc.IsSuppressed(context.Background(), "sub-prod", "E1", start.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !suppressed {
		t.Fatalf("expected element inside window to be suppressed")
	}

	suppressed, err = svc.IsSuppressed(context.Background(), "sub-prod", "E9", start.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suppressed {
		t.Fatalf("element outside the window list must not be suppressed")
	}
}
