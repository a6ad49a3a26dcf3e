// 배포(점검) 윈도우 모델 정의
// 윈도우에 포함된 시간은 SLA 분모에서 제외됨 (업타임도 다운타임도 아님)

package model

import "time"

// RepeatFrequency - 반복 윈도우의 주기
type RepeatFrequency string

const (
	RepeatDaily   RepeatFrequency = "Daily"
	RepeatWeekly  RepeatFrequency = "Weekly"
	RepeatMonthly RepeatFrequency = "Monthly"
)

// Valid - 알려진 반복 주기인지 확인
func (f RepeatFrequency) Valid() bool {
	switch f {
	case RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// RepeatInformation - 반복 윈도우 설정
type RepeatInformation struct {
	Frequency   RepeatFrequency `json:"frequency"`
	RepeatUntil time.Time       `json:"repeatUntil"`
}

// DeploymentWindow - 예정된 점검 윈도우
//
// ElementIDs가 비어 있으면 환경 전체에 적용
// 반복 설정이 있으면 부모 윈도우 기준으로 자식 윈도우들이 ParentID를 공유하며 확장됨
type DeploymentWindow struct {
	ID                        int64              `json:"id"`
	EnvironmentSubscriptionID string             `json:"environmentSubscriptionId"`
	ElementIDs                []string           `json:"elementIds"`
	Description               string             `json:"description,omitempty"`
	ShortDescription          string             `json:"shortDescription,omitempty"`
	CloseReason               string             `json:"closeReason,omitempty"`
	StartDate                 time.Time          `json:"startDate"`
	EndDate                   *time.Time         `json:"endDate"`
	ParentID                  *int64             `json:"parentId,omitempty"`
	Repeat                    *RepeatInformation `json:"repeatInformation,omitempty"`
}

// AppliesTo - 해당 요소에 이 윈도우가 적용되는지 확인
func (w DeploymentWindow) AppliesTo(elementID string) bool {
	if len(w.ElementIDs) == 0 {
		return true
	}
	for _, id := range w.ElementIDs {
		if id == elementID {
			return true
		}
	}
	return false
}

// Contains - 시각 t가 윈도우 구간 안에 있는지 확인 (EndDate nil이면 무기한)
func (w DeploymentWindow) Contains(t time.Time) bool {
	if t.Before(w.StartDate) {
		return false
	}
	return w.EndDate == nil || !t.After(*w.EndDate)
}
