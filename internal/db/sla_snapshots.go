package db

import (
	"context"
	"time"

	"github.com/fleet-health/backend/internal/model"
)

// UpsertSlaSnapshot - 요소별/일별 스냅샷 저장
// 동일 입력 재계산은 동일 결과를 내므로 upsert는 멱등
func (db *Postgres) UpsertSlaSnapshot(ctx context.Context, s model.SlaSnapshot) error {
	query := `
		INSERT INTO sla_snapshots (
			element_id, environment_id, snapshot_date,
			uptime_seconds, downtime_seconds, maintenance_seconds,
			warning_seconds, error_seconds, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (environment_id, element_id, snapshot_date) DO UPDATE SET
			uptime_seconds = EXCLUDED.uptime_seconds,
			downtime_seconds = EXCLUDED.downtime_seconds,
			maintenance_seconds = EXCLUDED.maintenance_seconds,
			warning_seconds = EXCLUDED.warning_seconds,
			error_seconds = EXCLUDED.error_seconds,
			computed_at = NOW()`

	_, err := db.Pool.Exec(ctx, query,
		s.ElementID, s.EnvironmentID, s.Date,
		s.UptimeSeconds, s.DowntimeSeconds, s.MaintenanceSeconds,
		s.WarningSeconds, s.ErrorSeconds,
	)
	return err
}

// SlaSnapshotsInRange - 환경의 [start, end] 날짜 구간 스냅샷 조회
func (db *Postgres) SlaSnapshotsInRange(ctx context.Context, environmentID string, start, end time.Time) ([]model.SlaSnapshot, error) {
	query := `
		SELECT id, element_id, environment_id, snapshot_date,
			uptime_seconds, downtime_seconds, maintenance_seconds,
			warning_seconds, error_seconds, computed_at
		FROM sla_snapshots
		WHERE environment_id = $1 AND snapshot_date >= $2 AND snapshot_date <= $3
		ORDER BY element_id, snapshot_date ASC`

	rows, err := db.Pool.Query(ctx, query, environmentID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.SlaSnapshot
	for rows.Next() {
		var s model.SlaSnapshot
		if err := rows.Scan(&s.ID, &s.ElementID, &s.EnvironmentID, &s.Date,
			&s.UptimeSeconds, &s.DowntimeSeconds, &s.MaintenanceSeconds,
			&s.WarningSeconds, &s.ErrorSeconds, &s.ComputedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if list == nil {
		list = []model.SlaSnapshot{}
	}
	return list, rows.Err()
}
