package db

import (
	"context"
	"errors"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

const intervalColumns = `id, element_id, environment_id, component_type, state, start_date, end_date`

func scanInterval(row interface{ Scan(dest ...any) error }) (model.StateInterval, error) {
	var iv model.StateInterval
	err := row.Scan(&iv.ID, &iv.ElementID, &iv.EnvironmentID, &iv.ComponentType,
		&iv.State, &iv.StartDate, &iv.EndDate)
	return iv, err
}

// OverlappingIntervals - 질의 구간 [start, end]와 겹치는 인터벌 조회 (3방향 겹침 판정)
// 열린 인터벌(end_date IS NULL)은 항상 "현재까지 진행 중"으로 보고 겹침에 포함
func (db *Postgres) OverlappingIntervals(ctx context.Context, environmentID, elementID string, start, end time.Time) ([]model.StateInterval, error) {
	query := `
		SELECT ` + intervalColumns + `
		FROM state_intervals
		WHERE environment_id = $1
		  AND ($2 = '' OR element_id = $2)
		  AND (
			(start_date >= $3 AND start_date <= $4)
			OR (end_date IS NOT NULL AND end_date >= $3 AND end_date <= $4)
			OR (start_date <= $3 AND (end_date IS NULL OR end_date >= $4))
			OR (end_date IS NULL AND start_date <= $4)
		  )
		ORDER BY element_id, start_date ASC`

	rows, err := db.Pool.Query(ctx, query, environmentID, elementID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.StateInterval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, iv)
	}
	if list == nil {
		list = []model.StateInterval{}
	}
	return list, rows.Err()
}

// StateAt - 시각 t 직전에 유효했던 인터벌 조회 (히스토리 초기 상태용)
// 해당 시각에 덮는 인터벌이 없으면 nil (암묵적 Ok)
func (db *Postgres) StateAt(ctx context.Context, environmentID, elementID string, t time.Time) (*model.StateInterval, error) {
	query := `
		SELECT ` + intervalColumns + `
		FROM state_intervals
		WHERE environment_id = $1 AND element_id = $2
		  AND start_date <= $3
		  AND (end_date IS NULL OR end_date > $3)
		ORDER BY start_date DESC
		LIMIT 1`

	iv, err := scanInterval(db.Pool.QueryRow(ctx, query, environmentID, elementID, t))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &iv, nil
}

// DeleteClosedIntervalsBefore - cutoff 이전에 완전히 닫힌 인터벌만 삭제
// 열린 인터벌은 어떤 경우에도 건드리지 않음 (불변식 유지)
func (db *Postgres) DeleteClosedIntervalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM state_intervals WHERE end_date IS NOT NULL AND end_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
