// 마스터데이터 협력자(환경/요소) 참조 모델
// 환경/서비스/액션 등 엔티티의 CRUD 자체는 이 저장소 범위 밖이며
// 좁은 조회 인터페이스를 통해 타입된 레코드로만 소비함

package model

// EnvironmentRef - 환경 참조 (이름 또는 SubscriptionID로 해석됨)
type EnvironmentRef struct {
	ID             int64  `json:"id"`
	ElementID      string `json:"elementId"`
	Name           string `json:"name"`
	SubscriptionID string `json:"subscriptionId"`
}

// ElementRef - 환경에 속한 모니터링 대상 요소 참조
type ElementRef struct {
	ElementID string        `json:"elementId"`
	Type      ComponentType `json:"type"`
}
