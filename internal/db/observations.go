package db

import (
	"context"
	"time"

	"github.com/fleet-health/backend/internal/model"
)

const observationColumns = `
	id, element_id, check_id, alert_name, environment_name, component_type,
	state, description, source_timestamp, generated_timestamp, record_id,
	custom_field_1, custom_field_2, custom_field_3, custom_field_4, custom_field_5,
	triggered_by_element_id, triggered_by_check_id, triggered_by_alert_name`

func scanObservation(row interface{ Scan(dest ...any) error }) (model.Observation, error) {
	var o model.Observation
	var tbElement, tbCheck, tbAlert string
	err := row.Scan(
		&o.ID, &o.ElementID, &o.CheckID, &o.AlertName, &o.EnvironmentName, &o.ComponentType,
		&o.State, &o.Description, &o.SourceTimestamp, &o.GeneratedTimestamp, &o.RecordID,
		&o.CustomField1, &o.CustomField2, &o.CustomField3, &o.CustomField4, &o.CustomField5,
		&tbElement, &tbCheck, &tbAlert,
	)
	if err != nil {
		return model.Observation{}, err
	}
	if tbElement != "" || tbCheck != "" || tbAlert != "" {
		o.TriggeredBy = &model.TriggeredBy{ElementID: tbElement, CheckID: tbCheck, AlertName: tbAlert}
	}
	return o, nil
}

// ObservationsInRange - 환경의 [start, end] 구간 원시 관측 조회
// elementID가 비어 있지 않으면 해당 요소로 한정
func (db *Postgres) ObservationsInRange(ctx context.Context, environmentName, elementID string, start, end time.Time, includeChecks bool) ([]model.Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM state_observations
		WHERE environment_name = $1
		  AND source_timestamp >= $2 AND source_timestamp <= $3
		  AND ($4 = '' OR element_id = $4)
		  AND ($5 OR component_type != 'Check')
		ORDER BY source_timestamp ASC, id ASC`

	rows, err := db.Pool.Query(ctx, query, environmentName, start, end, elementID, includeChecks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	if list == nil {
		list = []model.Observation{}
	}
	return list, rows.Err()
}

// CurrentStates - 환경의 요소별 최신 관측 조회
//
// (element_id, check_id, alert_name) 신호 단위로 가장 최근 관측 한 건씩을 뽑아
// element_id로 묶어서 반환
func (db *Postgres) CurrentStates(ctx context.Context, environmentName string) (map[string][]model.Observation, error) {
	query := `
		SELECT DISTINCT ON (element_id, check_id, alert_name) ` + observationColumns + `
		FROM state_observations
		WHERE environment_name = $1
		ORDER BY element_id, check_id, alert_name, source_timestamp DESC, id DESC`

	rows, err := db.Pool.Query(ctx, query, environmentName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := map[string][]model.Observation{}
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		states[o.ElementID] = append(states[o.ElementID], o)
	}
	return states, rows.Err()
}

// DeleteObservationsBefore - 보존 기간이 지난 관측 삭제 (retention 잡 전용)
func (db *Postgres) DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM state_observations WHERE source_timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
