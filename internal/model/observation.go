// 상태 관측(Observation) 및 관련 enum 정의
// handler, service, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// ElementState - 모니터링 대상 요소의 상태
type ElementState string

const (
	StateOk      ElementState = "Ok"
	StateWarning ElementState = "Warning"
	StateError   ElementState = "Error"
)

// Valid - 알려진 상태 값인지 확인
func (s ElementState) Valid() bool {
	switch s {
	case StateOk, StateWarning, StateError:
		return true
	}
	return false
}

// ComponentType - 모니터링 대상 요소의 종류
type ComponentType string

const (
	ComponentTypeEnvironment ComponentType = "Environment"
	ComponentTypeService     ComponentType = "Service"
	ComponentTypeAction      ComponentType = "Action"
	ComponentTypeComponent   ComponentType = "Component"
	ComponentTypeCheck       ComponentType = "Check"
)

// Valid - 알려진 컴포넌트 타입인지 확인
func (t ComponentType) Valid() bool {
	switch t {
	case ComponentTypeEnvironment, ComponentTypeService, ComponentTypeAction,
		ComponentTypeComponent, ComponentTypeCheck:
		return true
	}
	return false
}

// TriggeredBy - 이 관측을 유발한 상위 알람 식별 정보
type TriggeredBy struct {
	ElementID string `json:"elementId"`
	CheckID   string `json:"checkId"`
	AlertName string `json:"alertName"`
}

// Observation - 개별 상태 관측 (원시 로그, 불변)
//
// RecordID는 하나의 논리적 알람 발생 단위를 식별
// 같은 알람이 진행되면서 (발생 → 확인 → 해제) 여러 관측이 동일한 RecordID를 공유 가능
type Observation struct {
	ID                 int64         `json:"id,omitempty"`
	ElementID          string        `json:"elementId"`
	CheckID            string        `json:"checkId,omitempty"`
	AlertName          string        `json:"alertName,omitempty"`
	EnvironmentName    string        `json:"environmentName"`
	ComponentType      ComponentType `json:"componentType"`
	State              ElementState  `json:"state"`
	Description        string        `json:"description,omitempty"`
	SourceTimestamp    time.Time     `json:"sourceTimestamp"`
	GeneratedTimestamp time.Time     `json:"generatedTimestamp"`

	// RecordID: UUID 문자열, PK가 아닌 상관관계 식별용
	RecordID string `json:"recordId"`

	// CustomFields: 프로브가 붙여 보내는 부가 필드 (최대 5개 슬롯)
	CustomField1 string `json:"customField1,omitempty"`
	CustomField2 string `json:"customField2,omitempty"`
	CustomField3 string `json:"customField3,omitempty"`
	CustomField4 string `json:"customField4,omitempty"`
	CustomField5 string `json:"customField5,omitempty"`

	TriggeredBy *TriggeredBy `json:"triggeredBy,omitempty"`
}

// IsCheck - Check 타입 관측 여부 (인터벌 히스토리에서 제외되는 타입)
func (o Observation) IsCheck() bool {
	return o.ComponentType == ComponentTypeCheck
}
