// 보존 정책 잡: cutoff 이전의 관측과 완전히 닫힌 인터벌 삭제
//
// 삭제 순서가 중간에 끊겨도 불변식이 깨지지 않도록
// 닫힌 인터벌만, 관측 로그와 독립적으로 지움.
// 열린 인터벌은 어떤 요소의 것이든 절대 삭제하지 않음

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fleet-health/backend/internal/metrics"
)

// retentionStore - 보존 잡이 쓰는 삭제 연산 (db.Postgres가 구현)
type retentionStore interface {
	DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteClosedIntervalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService 구조체 정의
type RetentionService struct {
	store         retentionStore
	retentionDays int
	metrics       *metrics.Sink
	now           func() time.Time
}

// RetentionService 객체 생성
func NewRetentionService(store retentionStore, retentionDays int, sink *metrics.Sink) *RetentionService {
	return &RetentionService{
		store:         store,
		retentionDays: retentionDays,
		metrics:       sink,
		now:           time.Now,
	}
}

// RunOnce - 보존 잡 1회 실행
func (s *RetentionService) RunOnce(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)

	observations, err := s.store.DeleteObservationsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%w: deleting observations: %v", ErrStorage, err)
	}

	intervals, err := s.store.DeleteClosedIntervalsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%w: deleting intervals: %v", ErrStorage, err)
	}

	if s.metrics != nil {
		s.metrics.RetentionDeleted.Add(float64(observations + intervals))
	}
	log.Printf("[Retention] Deleted %d observations, %d closed intervals (cutoff=%s)",
		observations, intervals, cutoff.Format(time.RFC3339))
	return nil
}
