// SLA 스냅샷 잡: 전날 하루치 요소별 집계를 불변 스냅샷으로 적재
//
// 집계 자체는 읽기 전용이므로 취소되면 부분 결과는 그냥 버려짐.
// 같은 날짜 재실행은 동일 입력 → 동일 결과라 upsert로 멱등

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fleet-health/backend/internal/model"
)

// environmentLister - 스냅샷 대상 환경 열거
type environmentLister interface {
	ListEnvironments(ctx context.Context) ([]model.EnvironmentRef, error)
}

// snapshotStore - 스냅샷 저장/조회 (db.Postgres가 구현)
type snapshotStore interface {
	UpsertSlaSnapshot(ctx context.Context, s model.SlaSnapshot) error
	SlaSnapshotsInRange(ctx context.Context, environmentID string, start, end time.Time) ([]model.SlaSnapshot, error)
}

// SnapshotService 구조체 정의
type SnapshotService struct {
	sla          *SlaService
	environments environmentLister
	masterdata   masterdataReader
	store        snapshotStore
	now          func() time.Time
}

// SnapshotService 객체 생성
func NewSnapshotService(sla *SlaService, environments environmentLister, masterdata masterdataReader, store snapshotStore) *SnapshotService {
	return &SnapshotService{
		sla:          sla,
		environments: environments,
		masterdata:   masterdata,
		store:        store,
		now:          time.Now,
	}
}

// RunOnce - 전날(UTC) 하루치 스냅샷 계산 및 적재
func (s *SnapshotService) RunOnce(ctx context.Context) error {
	now := s.now().UTC()
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayStart := dayEnd.Add(-24 * time.Hour)
	return s.RunForDay(ctx, dayStart)
}

// RunForDay - 특정 날짜(UTC 자정 기준) 하루치 스냅샷 계산 및 적재
func (s *SnapshotService) RunForDay(ctx context.Context, dayStart time.Time) error {
	dayEnd := dayStart.Add(24 * time.Hour)

	environments, err := s.environments.ListEnvironments(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing environments: %v", ErrStorage, err)
	}

	var written int
	for _, env := range environments {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := s.sla.ComputeSla(ctx, env.SubscriptionID, "", dayStart, dayEnd)
		if err != nil {
			return err
		}

		for elementID, elementSla := range report.Elements {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, day := range elementSla.Days {
				snapshot := model.SlaSnapshot{
					ElementID:          elementID,
					EnvironmentID:      env.SubscriptionID,
					Date:               day.Date,
					UptimeSeconds:      day.UptimeSeconds,
					DowntimeSeconds:    day.DowntimeSeconds,
					MaintenanceSeconds: day.MaintenanceSeconds,
					WarningSeconds:     day.WarningSeconds,
					ErrorSeconds:       day.ErrorSeconds,
				}
				if err := s.store.UpsertSlaSnapshot(ctx, snapshot); err != nil {
					return fmt.Errorf("%w: writing snapshot: %v", ErrStorage, err)
				}
				written++
			}
		}
	}

	log.Printf("[SlaSnapshot] Wrote %d snapshots for %s", written, dayStart.Format("2006-01-02"))
	return nil
}

// Snapshots - 적재된 스냅샷 조회 (실시간 집계 대신 미리 계산된 일별 수치)
func (s *SnapshotService) Snapshots(ctx context.Context, environmentNameOrSubscriptionID string, start, end time.Time) ([]model.SlaSnapshot, error) {
	env, err := resolveEnvironment(ctx, s.masterdata, environmentNameOrSubscriptionID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.store.SlaSnapshotsInRange(ctx, env.SubscriptionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return snapshots, nil
}
