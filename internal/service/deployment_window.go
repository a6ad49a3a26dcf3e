// 배포 윈도우 인덱스: 점검 윈도우 관리와 반복 확장
//
// 반복 설정이 있는 부모 윈도우는 주기마다 자식 윈도우로 확장되며
// 부모 수정/삭제 시 자식 전체를 트랜잭션으로 삭제 후 재생성

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleet-health/backend/internal/db"
	"github.com/fleet-health/backend/internal/model"
)

// windowStore - 윈도우 저장소 연산 (db.Postgres가 구현)
type windowStore interface {
	CreateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) (int64, error)
	UpdateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) error
	DeleteWindowTree(ctx context.Context, id int64) error
	GetWindow(ctx context.Context, id int64) (*model.DeploymentWindow, error)
	WindowsForEnvironment(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error)
}

// WindowService 구조체 정의
type WindowService struct {
	store windowStore
}

// WindowService 객체 생성
func NewWindowService(store windowStore) *WindowService {
	return &WindowService{store: store}
}

// Create - 윈도우 생성; 반복 설정이 있으면 자식 윈도우까지 한 트랜잭션으로 삽입
// 반환값: 생성된 부모 id, 자식 개수
func (s *WindowService) Create(ctx context.Context, w model.DeploymentWindow) (int64, int, error) {
	if err := validateWindow(w); err != nil {
		return 0, 0, err
	}

	children := ExpandRecurring(w)
	id, err := s.store.CreateWindowTree(ctx, w, children)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return id, len(children), nil
}

// Update - 부모 윈도우 수정; 기존 자식을 지우고 새 반복 설정으로 재생성 (all-or-nothing)
func (s *WindowService) Update(ctx context.Context, w model.DeploymentWindow) (int, error) {
	if err := validateWindow(w); err != nil {
		return 0, err
	}

	children := ExpandRecurring(w)
	if err := s.store.UpdateWindowTree(ctx, w, children); err != nil {
		if errors.Is(err, db.ErrWindowNotFound) {
			return 0, fmt.Errorf("%w: deployment window %d", ErrNotFound, w.ID)
		}
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return len(children), nil
}

// Delete - 부모와 자식 윈도우 삭제
func (s *WindowService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteWindowTree(ctx, id); err != nil {
		if errors.Is(err, db.ErrWindowNotFound) {
			return fmt.Errorf("%w: deployment window %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Get - 윈도우 단건 조회
func (s *WindowService) Get(ctx context.Context, id int64) (*model.DeploymentWindow, error) {
	w, err := s.store.GetWindow(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrWindowNotFound) {
			return nil, fmt.Errorf("%w: deployment window %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return w, nil
}

// List - 환경의 구간 내 윈도우 조회
func (s *WindowService) List(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error) {
	windows, err := s.store.WindowsForEnvironment(ctx, environmentSubscriptionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return windows, nil
}

// IsSuppressed - 시각 t에 요소가 활성 윈도우에 덮여 있는지 확인
func (s *WindowService) IsSuppressed(ctx context.Context, environmentSubscriptionID, elementID string, t time.Time) (bool, error) {
	windows, err := s.store.WindowsForEnvironment(ctx, environmentSubscriptionID, t, t)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, w := range windows {
		if w.AppliesTo(elementID) && w.Contains(t) {
			return true, nil
		}
	}
	return false, nil
}

// ExpandRecurring - 반복 설정을 자식 윈도우 목록으로 확장
//
// repeatUntil까지(포함) 주기마다 자식 하나씩 생성; 자식은 부모의 ElementIDs를 공유.
// 반복 설정이 없으면 빈 목록
func ExpandRecurring(parent model.DeploymentWindow) []model.DeploymentWindow {
	if parent.Repeat == nil {
		return nil
	}

	var duration time.Duration
	if parent.EndDate != nil {
		duration = parent.EndDate.Sub(parent.StartDate)
	}

	var children []model.DeploymentWindow
	for n := 1; ; n++ {
		start := shiftByFrequency(parent.StartDate, parent.Repeat.Frequency, n)
		if start.After(parent.Repeat.RepeatUntil) {
			break
		}

		child := model.DeploymentWindow{
			EnvironmentSubscriptionID: parent.EnvironmentSubscriptionID,
			ElementIDs:                parent.ElementIDs,
			Description:               parent.Description,
			ShortDescription:          parent.ShortDescription,
			StartDate:                 start,
		}
		if parent.EndDate != nil {
			end := start.Add(duration)
			child.EndDate = &end
		}
		children = append(children, child)
	}
	return children
}

// shiftByFrequency - 주기 n회만큼 이동한 시작 시각
// 월 단위는 달력 기준으로 이동 (달 길이 차이 반영)
func shiftByFrequency(start time.Time, frequency model.RepeatFrequency, n int) time.Time {
	switch frequency {
	case model.RepeatDaily:
		return start.AddDate(0, 0, n)
	case model.RepeatWeekly:
		return start.AddDate(0, 0, 7*n)
	case model.RepeatMonthly:
		return start.AddDate(0, n, 0)
	}
	return start
}

func validateWindow(w model.DeploymentWindow) error {
	if w.EnvironmentSubscriptionID == "" {
		return fmt.Errorf("%w: missing environmentSubscriptionId", ErrValidation)
	}
	if w.StartDate.IsZero() {
		return fmt.Errorf("%w: missing startDate", ErrValidation)
	}
	if w.EndDate != nil && !w.EndDate.After(w.StartDate) {
		return fmt.Errorf("%w: endDate must be after startDate", ErrValidation)
	}
	if w.Repeat != nil {
		if !w.Repeat.Frequency.Valid() {
			return fmt.Errorf("%w: unknown repeat frequency %q", ErrValidation, w.Repeat.Frequency)
		}
		if w.Repeat.RepeatUntil.Before(w.StartDate) {
			return fmt.Errorf("%w: repeatUntil before startDate", ErrValidation)
		}
	}
	return nil
}
