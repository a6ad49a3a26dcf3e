package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

var ErrWindowNotFound = errors.New("deployment window not found")

const windowColumns = `
	id, environment_subscription_id, element_ids, description, short_description,
	close_reason, start_date, end_date, parent_id, repeat_frequency, repeat_until`

func scanWindow(row interface{ Scan(dest ...any) error }) (model.DeploymentWindow, error) {
	var w model.DeploymentWindow
	var elementIDs []byte
	var frequency string
	var repeatUntil *time.Time

	err := row.Scan(
		&w.ID, &w.EnvironmentSubscriptionID, &elementIDs, &w.Description, &w.ShortDescription,
		&w.CloseReason, &w.StartDate, &w.EndDate, &w.ParentID, &frequency, &repeatUntil,
	)
	if err != nil {
		return model.DeploymentWindow{}, err
	}

	if len(elementIDs) > 0 {
		if err := json.Unmarshal(elementIDs, &w.ElementIDs); err != nil {
			return model.DeploymentWindow{}, err
		}
	}
	if frequency != "" && repeatUntil != nil {
		w.Repeat = &model.RepeatInformation{
			Frequency:   model.RepeatFrequency(frequency),
			RepeatUntil: *repeatUntil,
		}
	}
	return w, nil
}

func insertWindow(ctx context.Context, tx pgx.Tx, w model.DeploymentWindow) (int64, error) {
	elementIDs, err := json.Marshal(w.ElementIDs)
	if err != nil {
		return 0, err
	}
	if w.ElementIDs == nil {
		elementIDs = []byte("[]")
	}

	var frequency string
	var repeatUntil *time.Time
	if w.Repeat != nil {
		frequency = string(w.Repeat.Frequency)
		repeatUntil = &w.Repeat.RepeatUntil
	}

	query := `
		INSERT INTO deployment_windows (
			environment_subscription_id, element_ids, description, short_description,
			close_reason, start_date, end_date, parent_id, repeat_frequency, repeat_until
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err = tx.QueryRow(ctx, query,
		w.EnvironmentSubscriptionID, elementIDs, w.Description, w.ShortDescription,
		w.CloseReason, w.StartDate, w.EndDate, w.ParentID, frequency, repeatUntil,
	).Scan(&id)
	return id, err
}

// CreateWindowTree - 부모 윈도우와 확장된 자식 윈도우들을 단일 트랜잭션으로 삽입
// 중간 실패 시 전체 롤백 (부모만 남는 상태 없음)
func (db *Postgres) CreateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	parentID, err := insertWindow(ctx, tx, parent)
	if err != nil {
		return 0, err
	}

	for _, child := range children {
		child.ParentID = &parentID
		if _, err := insertWindow(ctx, tx, child); err != nil {
			return 0, err
		}
	}

	return parentID, tx.Commit(ctx)
}

// UpdateWindowTree - 반복 부모 수정: 기존 자식을 모두 지우고 새 자식으로 재생성
// 이 저장소에서 명시적 다단계 트랜잭션+롤백이 필요한 유일한 지점
func (db *Postgres) UpdateWindowTree(ctx context.Context, parent model.DeploymentWindow, children []model.DeploymentWindow) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	elementIDs, err := json.Marshal(parent.ElementIDs)
	if err != nil {
		return err
	}
	if parent.ElementIDs == nil {
		elementIDs = []byte("[]")
	}

	var frequency string
	var repeatUntil *time.Time
	if parent.Repeat != nil {
		frequency = string(parent.Repeat.Frequency)
		repeatUntil = &parent.Repeat.RepeatUntil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE deployment_windows
		SET environment_subscription_id = $2, element_ids = $3, description = $4,
			short_description = $5, close_reason = $6, start_date = $7, end_date = $8,
			repeat_frequency = $9, repeat_until = $10, updated_at = NOW()
		WHERE id = $1 AND parent_id IS NULL`,
		parent.ID, parent.EnvironmentSubscriptionID, elementIDs, parent.Description,
		parent.ShortDescription, parent.CloseReason, parent.StartDate, parent.EndDate,
		frequency, repeatUntil,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM deployment_windows WHERE parent_id = $1`, parent.ID); err != nil {
		return err
	}

	for _, child := range children {
		child.ParentID = &parent.ID
		if _, err := insertWindow(ctx, tx, child); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteWindowTree - 부모와 자식 윈도우를 함께 삭제
func (db *Postgres) DeleteWindowTree(ctx context.Context, id int64) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM deployment_windows WHERE parent_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM deployment_windows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}

	return tx.Commit(ctx)
}

// GetWindow - 윈도우 단건 조회, 미존재 시 ErrWindowNotFound
func (db *Postgres) GetWindow(ctx context.Context, id int64) (*model.DeploymentWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM deployment_windows WHERE id = $1`
	w, err := scanWindow(db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}
	return &w, nil
}

// WindowsForEnvironment - 환경의 [start, end] 구간과 겹치는 윈도우 조회 (자식 포함)
func (db *Postgres) WindowsForEnvironment(ctx context.Context, environmentSubscriptionID string, start, end time.Time) ([]model.DeploymentWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM deployment_windows
		WHERE environment_subscription_id = $1
		  AND start_date <= $3
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date ASC`

	rows, err := db.Pool.Query(ctx, query, environmentSubscriptionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.DeploymentWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	if list == nil {
		list = []model.DeploymentWindow{}
	}
	return list, rows.Err()
}
