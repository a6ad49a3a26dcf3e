// 상태 인터벌(StateInterval) 모델 정의
//
// 인터벌은 하나의 요소가 특정 비정상 상태(Warning/Error)에 머문 구간을 나타냄
// Ok 구간은 기록하지 않음 - 기록된 인터벌의 여집합이 암묵적인 Ok 구간

package model

import "time"

// StateInterval - 요소별 상태 점유 구간 (파생 데이터)
//
// 불변식:
//   - 같은 (ElementID, EnvironmentID)의 인터벌은 서로 겹치지 않고 StartDate 기준 전순서
//   - EndDate == nil 인 열린 인터벌은 요소당 최대 1개
//   - 연속한 두 인터벌이 있으면 앞 인터벌의 EndDate == 뒤 인터벌의 StartDate (무간격)
type StateInterval struct {
	ID            int64         `json:"id"`
	ElementID     string        `json:"elementId"`
	EnvironmentID string        `json:"environmentId"`
	ComponentType ComponentType `json:"componentType"`
	State         ElementState  `json:"state"`
	StartDate     time.Time     `json:"startDate"`

	// EndDate: nil이면 현재 열려 있는 구간
	EndDate *time.Time `json:"endDate"`
}

// Open - 아직 닫히지 않은 구간인지 확인
func (iv StateInterval) Open() bool {
	return iv.EndDate == nil
}

// EffectiveEnd - SLA 계산용 종료 시각 (열린 구간은 now로 간주)
func (iv StateInterval) EffectiveEnd(now time.Time) time.Time {
	if iv.EndDate != nil {
		return *iv.EndDate
	}
	return now
}

// Overlaps - 구간 [start, end]와 겹치는지 확인 (3방향 겹침 판정)
func (iv StateInterval) Overlaps(start, end, now time.Time) bool {
	ivEnd := iv.EffectiveEnd(now)
	if !iv.StartDate.Before(start) && !iv.StartDate.After(end) {
		return true
	}
	if !ivEnd.Before(start) && !ivEnd.After(end) {
		return true
	}
	return !iv.StartDate.After(start) && !end.After(ivEnd)
}
