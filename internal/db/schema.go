package db

import "context"

// EnsureSchema - 서비스 기동 시 필요한 테이블/인덱스 생성
//
// 관측(state_observations)은 append-only 원시 로그,
// 인터벌(state_intervals)은 히스토리 빌더가 파생하는 구간 테이블.
// 요소별 열린 인터벌이 최대 1개라는 불변식은 partial unique index로 보강.
func (db *Postgres) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS environments (
			id BIGSERIAL PRIMARY KEY,
			element_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL UNIQUE,
			subscription_id TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS elements (
			id BIGSERIAL PRIMARY KEY,
			environment_id BIGINT NOT NULL REFERENCES environments(id),
			element_id TEXT NOT NULL,
			component_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (environment_id, element_id)
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS state_observations (
			id BIGSERIAL PRIMARY KEY,
			element_id TEXT NOT NULL,
			check_id TEXT NOT NULL DEFAULT '',
			alert_name TEXT NOT NULL DEFAULT '',
			environment_name TEXT NOT NULL,
			component_type TEXT NOT NULL,
			state TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			source_timestamp TIMESTAMPTZ NOT NULL,
			generated_timestamp TIMESTAMPTZ NOT NULL,
			record_id TEXT NOT NULL DEFAULT '',
			custom_field_1 TEXT NOT NULL DEFAULT '',
			custom_field_2 TEXT NOT NULL DEFAULT '',
			custom_field_3 TEXT NOT NULL DEFAULT '',
			custom_field_4 TEXT NOT NULL DEFAULT '',
			custom_field_5 TEXT NOT NULL DEFAULT '',
			triggered_by_element_id TEXT NOT NULL DEFAULT '',
			triggered_by_check_id TEXT NOT NULL DEFAULT '',
			triggered_by_alert_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS state_observations_env_ts_idx ON state_observations(environment_name, source_timestamp)`,
		`CREATE INDEX IF NOT EXISTS state_observations_element_ts_idx ON state_observations(element_id, source_timestamp)`,
		`CREATE INDEX IF NOT EXISTS state_observations_record_id_idx ON state_observations(record_id) WHERE record_id != ''`,
		`
		CREATE TABLE IF NOT EXISTS state_intervals (
			id BIGSERIAL PRIMARY KEY,
			element_id TEXT NOT NULL,
			environment_id TEXT NOT NULL,
			component_type TEXT NOT NULL,
			state TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS state_intervals_element_start_idx ON state_intervals(environment_id, element_id, start_date DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS state_intervals_single_open_idx ON state_intervals(environment_id, element_id) WHERE end_date IS NULL`,
		`
		CREATE TABLE IF NOT EXISTS deployment_windows (
			id BIGSERIAL PRIMARY KEY,
			environment_subscription_id TEXT NOT NULL,
			element_ids JSONB NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			short_description TEXT NOT NULL DEFAULT '',
			close_reason TEXT NOT NULL DEFAULT '',
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			parent_id BIGINT REFERENCES deployment_windows(id) ON DELETE CASCADE,
			repeat_frequency TEXT NOT NULL DEFAULT '',
			repeat_until TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS deployment_windows_env_idx ON deployment_windows(environment_subscription_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS deployment_windows_parent_idx ON deployment_windows(parent_id) WHERE parent_id IS NOT NULL`,
		`
		CREATE TABLE IF NOT EXISTS sla_snapshots (
			id BIGSERIAL PRIMARY KEY,
			element_id TEXT NOT NULL,
			environment_id TEXT NOT NULL,
			snapshot_date DATE NOT NULL,
			uptime_seconds DOUBLE PRECISION NOT NULL,
			downtime_seconds DOUBLE PRECISION NOT NULL,
			maintenance_seconds DOUBLE PRECISION NOT NULL,
			warning_seconds DOUBLE PRECISION NOT NULL,
			error_seconds DOUBLE PRECISION NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (environment_id, element_id, snapshot_date)
		)
		`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
