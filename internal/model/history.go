// 히스토리 재구성 결과 모델 정의

package model

import "time"

// SignalKey - 하나의 논리적 모니터링 신호 식별 키
//
// 문자열 연결("###" 구분자) 방식 대신 구조체 키를 사용하여
// 구분자 충돌 버그를 원천 차단
type SignalKey struct {
	ElementID string `json:"elementId"`
	CheckID   string `json:"checkId"`
	AlertName string `json:"alertName"`
}

// HistoryEntry - 재구성된 히스토리의 한 행
type HistoryEntry struct {
	ElementID       string        `json:"elementId"`
	CheckID         string        `json:"checkId,omitempty"`
	AlertName       string        `json:"alertName,omitempty"`
	ComponentType   ComponentType `json:"componentType"`
	State           ElementState  `json:"state"`
	Description     string        `json:"description,omitempty"`
	SourceTimestamp time.Time     `json:"sourceTimestamp"`
	RecordID        string        `json:"recordId,omitempty"`
}

// Key - 이 엔트리가 속한 신호 키
func (e HistoryEntry) Key() SignalKey {
	return SignalKey{ElementID: e.ElementID, CheckID: e.CheckID, AlertName: e.AlertName}
}

// HistoryGroup - 신호 키별 히스토리 응답 단위 (맵 키 직렬화 문제를 피해 리스트로 반환)
type HistoryGroup struct {
	Key     SignalKey      `json:"key"`
	Entries []HistoryEntry `json:"entries"`
}
