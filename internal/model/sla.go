// SLA 집계 결과 및 스냅샷 모델 정의

package model

import "time"

// DailySla - 요소별 하루 단위 SLA 집계
//
// WindowSeconds = UptimeSeconds + DowntimeSeconds + MaintenanceSeconds
// (질의 구간에 걸친 부분만 계산하므로 첫날/마지막날은 86400초보다 작을 수 있음)
type DailySla struct {
	Date               time.Time `json:"date"`
	WindowSeconds      float64   `json:"windowSeconds"`
	UptimeSeconds      float64   `json:"uptimeSeconds"`
	DowntimeSeconds    float64   `json:"downtimeSeconds"`
	MaintenanceSeconds float64   `json:"maintenanceSeconds"`

	// 상태별 다운타임 분해 (Warning/Error)
	WarningSeconds float64 `json:"warningSeconds"`
	ErrorSeconds   float64 `json:"errorSeconds"`
}

// Availability - 점검 시간을 제외한 분모 기준 가용률 (0..100)
// 하루 전체가 점검 시간이면 100으로 간주
func (d DailySla) Availability() float64 {
	denominator := d.WindowSeconds - d.MaintenanceSeconds
	if denominator <= 0 {
		return 100.0
	}
	return d.UptimeSeconds / denominator * 100.0
}

// ElementSla - 한 요소의 구간 전체 SLA 집계
type ElementSla struct {
	ElementID          string     `json:"elementId"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            time.Time  `json:"endDate"`
	UptimeSeconds      float64    `json:"uptimeSeconds"`
	DowntimeSeconds    float64    `json:"downtimeSeconds"`
	MaintenanceSeconds float64    `json:"maintenanceSeconds"`
	Availability       float64    `json:"availability"`
	Days               []DailySla `json:"days"`
}

// SlaReport - 환경 단위 SLA 응답
type SlaReport struct {
	EnvironmentSubscriptionID string                `json:"environmentSubscriptionId"`
	StartDate                 time.Time             `json:"startDate"`
	EndDate                   time.Time             `json:"endDate"`
	Elements                  map[string]ElementSla `json:"elements"`
}

// SlaSnapshot - 백그라운드 잡이 적재하는 요소별/일별 불변 스냅샷
// 동일 입력에 대한 재계산은 동일 결과를 내므로 upsert는 멱등
type SlaSnapshot struct {
	ID                 int64     `json:"id"`
	ElementID          string    `json:"elementId"`
	EnvironmentID      string    `json:"environmentId"`
	Date               time.Time `json:"date"`
	UptimeSeconds      float64   `json:"uptimeSeconds"`
	DowntimeSeconds    float64   `json:"downtimeSeconds"`
	MaintenanceSeconds float64   `json:"maintenanceSeconds"`
	WarningSeconds     float64   `json:"warningSeconds"`
	ErrorSeconds       float64   `json:"errorSeconds"`
	ComputedAt         time.Time `json:"computedAt"`
}
