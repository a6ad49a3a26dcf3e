// 마스터데이터 협력자 조회 (environments / elements)
// 엔티티 CRUD 표면 자체는 범위 밖 - 여기서는 좁은 조회만 제공

package db

import (
	"context"

	"github.com/fleet-health/backend/internal/model"
)

// ResolveEnvironment - 이름 또는 subscription ID로 환경 해석
// 미존재 시 pgx.ErrNoRows를 그대로 반환 (service에서 NotFound로 매핑)
func (db *Postgres) ResolveEnvironment(ctx context.Context, nameOrSubscriptionID string) (*model.EnvironmentRef, error) {
	query := `
		SELECT id, element_id, name, subscription_id
		FROM environments
		WHERE name = $1 OR subscription_id = $1`

	var ref model.EnvironmentRef
	err := db.Pool.QueryRow(ctx, query, nameOrSubscriptionID).Scan(
		&ref.ID, &ref.ElementID, &ref.Name, &ref.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListEnvironments - 등록된 환경 전체 조회 (스냅샷 잡 전용)
func (db *Postgres) ListEnvironments(ctx context.Context) ([]model.EnvironmentRef, error) {
	query := `SELECT id, element_id, name, subscription_id FROM environments ORDER BY name`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.EnvironmentRef
	for rows.Next() {
		var ref model.EnvironmentRef
		if err := rows.Scan(&ref.ID, &ref.ElementID, &ref.Name, &ref.SubscriptionID); err != nil {
			return nil, err
		}
		list = append(list, ref)
	}
	if list == nil {
		list = []model.EnvironmentRef{}
	}
	return list, rows.Err()
}

// ListElements - 환경에 속한 요소 목록 조회
func (db *Postgres) ListElements(ctx context.Context, environmentID int64) ([]model.ElementRef, error) {
	query := `
		SELECT element_id, component_type
		FROM elements
		WHERE environment_id = $1
		ORDER BY element_id`

	rows, err := db.Pool.Query(ctx, query, environmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ElementRef
	for rows.Next() {
		var e model.ElementRef
		if err := rows.Scan(&e.ElementID, &e.Type); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if list == nil {
		list = []model.ElementRef{}
	}
	return list, rows.Err()
}
