// 서비스 레이어 공통 에러 분류
//
//   - ErrValidation: 필수 필드 누락/잘못된 날짜 범위 - 재시도 대상 아님
//   - ErrNotFound: 알 수 없는 환경/요소 - 호출자에 그대로 전달
//   - ErrConflict: 동시 인터벌 open 경쟁 - 내부에서 1회 재시도 후에도 남으면 노출
//   - ErrStorage: 일시적 I/O 실패 - 호출자가 배치 전체를 재시도

package service

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)
