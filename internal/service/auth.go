// 변경 API 보호용 액세스 토큰 검증
// 사용자 계정/로그인 정책은 이 저장소 범위 밖 - HMAC 서명 토큰 파싱만 담당

package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthService 구조체 정의
type AuthService struct {
	jwtSecret []byte
}

// AuthService 객체 생성; secret이 비어 있으면 nil 반환 (미들웨어 비활성)
func NewAuthService(jwtSecret string) *AuthService {
	if jwtSecret == "" {
		return nil
	}
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// ParseAccessToken - Bearer 토큰 검증, subject 반환
func (s *AuthService) ParseAccessToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrUnauthorized
	}
	return subject, nil
}
