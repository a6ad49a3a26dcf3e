// 히스토리 빌더가 사용하는 배치 트랜잭션 연산 정의
//
// 원본 설계의 ORM change-tracking(암묵적 dirty-entity 저장)을
// "현재 인터벌 읽기 → 새 상태 계산 → 쓰기"의 명시적 트랜잭션 함수로 대체.
// 낙관적 동시성 충돌(동시 인터벌 open 경쟁)은 에러로 드러나며
// 호출자가 배치 전체를 재시도함.

package db

import (
	"context"
	"errors"
	"time"

	"github.com/fleet-health/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// BatchOps - 하나의 수집 배치 트랜잭션 안에서 허용되는 연산
type BatchOps interface {
	// AppendObservation - 원시 관측 로그에 1행 추가 (append-only)
	AppendObservation(ctx context.Context, o model.Observation) error

	// EnsureElement - 요소 마스터데이터 등록 (이미 있으면 무시)
	EnsureElement(ctx context.Context, environmentID int64, elementID string, componentType model.ComponentType) error

	// LatestInterval - 요소의 가장 최근 인터벌을 행 잠금과 함께 조회
	// 인터벌이 없으면 (nil, nil)
	LatestInterval(ctx context.Context, environmentID, elementID string) (*model.StateInterval, error)

	// OpenInterval - 새 인터벌 삽입 (end_date NULL), 생성된 행 id 반환
	OpenInterval(ctx context.Context, iv model.StateInterval) (int64, error)

	// CloseInterval - 열린 인터벌 닫기
	CloseInterval(ctx context.Context, intervalID int64, end time.Time) error
}

type batchTx struct {
	tx pgx.Tx
}

// WithinBatch - fn 전체를 단일 트랜잭션으로 실행 (all-or-nothing)
// fn이 에러를 반환하면 롤백되어 부분 쓰기가 남지 않음
func (db *Postgres) WithinBatch(ctx context.Context, fn func(ops BatchOps) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&batchTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (b *batchTx) AppendObservation(ctx context.Context, o model.Observation) error {
	var tbElement, tbCheck, tbAlert string
	if o.TriggeredBy != nil {
		tbElement = o.TriggeredBy.ElementID
		tbCheck = o.TriggeredBy.CheckID
		tbAlert = o.TriggeredBy.AlertName
	}

	query := `
		INSERT INTO state_observations (
			element_id, check_id, alert_name, environment_name, component_type,
			state, description, source_timestamp, generated_timestamp, record_id,
			custom_field_1, custom_field_2, custom_field_3, custom_field_4, custom_field_5,
			triggered_by_element_id, triggered_by_check_id, triggered_by_alert_name
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := b.tx.Exec(ctx, query,
		o.ElementID, o.CheckID, o.AlertName, o.EnvironmentName, o.ComponentType,
		o.State, o.Description, o.SourceTimestamp, o.GeneratedTimestamp, o.RecordID,
		o.CustomField1, o.CustomField2, o.CustomField3, o.CustomField4, o.CustomField5,
		tbElement, tbCheck, tbAlert,
	)
	return err
}

func (b *batchTx) EnsureElement(ctx context.Context, environmentID int64, elementID string, componentType model.ComponentType) error {
	query := `
		INSERT INTO elements (environment_id, element_id, component_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (environment_id, element_id) DO NOTHING`

	_, err := b.tx.Exec(ctx, query, environmentID, elementID, componentType)
	return err
}

func (b *batchTx) LatestInterval(ctx context.Context, environmentID, elementID string) (*model.StateInterval, error) {
	// FOR UPDATE: 같은 요소를 만지는 동시 배치를 행 잠금으로 직렬화
	query := `
		SELECT ` + intervalColumns + `
		FROM state_intervals
		WHERE environment_id = $1 AND element_id = $2
		ORDER BY start_date DESC
		LIMIT 1
		FOR UPDATE`

	iv, err := scanInterval(b.tx.QueryRow(ctx, query, environmentID, elementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &iv, nil
}

func (b *batchTx) OpenInterval(ctx context.Context, iv model.StateInterval) (int64, error) {
	query := `
		INSERT INTO state_intervals (element_id, environment_id, component_type, state, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, NULL)
		RETURNING id`

	var id int64
	err := b.tx.QueryRow(ctx, query,
		iv.ElementID, iv.EnvironmentID, iv.ComponentType, iv.State, iv.StartDate).Scan(&id)
	return id, err
}

func (b *batchTx) CloseInterval(ctx context.Context, intervalID int64, end time.Time) error {
	query := `
		UPDATE state_intervals
		SET end_date = $2, updated_at = NOW()
		WHERE id = $1 AND end_date IS NULL`

	tag, err := b.tx.Exec(ctx, query, intervalID, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// 그 사이 다른 트랜잭션이 이미 닫았음 - 충돌로 취급
		return &pgconn.PgError{Code: "40001", Message: "interval already closed"}
	}
	return nil
}

// IsConflict - 동시성 충돌로 재시도 가능한 에러인지 판별
// 40001: serialization_failure, 23505: 열린 인터벌 partial unique index 위반
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "23505"
	}
	return false
}
