package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateSessionToken подписывает сессионный токен и возвращает его вместе со сроком истечения.
func (j *MakerImpl) GenerateSessionToken(botID, userID string) (string, time.Time, error) {
	const op = "jwt.GenerateSessionToken"
	now := time.Now()
	expiresAt := now.Add(j.sessionTTL)
	claims := SessionClaims{
		BotID:  botID,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := j.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return signed, expiresAt, nil
}

// GenerateUserToken выпускает платформенный токен. В рабочем контуре токены
// выпускает сервис входа, здесь метод нужен для локальной отладки и тестов.
func (j *MakerImpl) GenerateUserToken(userID, role string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.sessionTTL)),
		},
	}
	return j.sign(claims)
}

// ParseUserToken проверяет платформенный токен и возвращает его claims.
func (j *MakerImpl) ParseUserToken(tokenStr string) (*UserClaims, error) {
	const op = "jwt.ParseUserToken"
	claims := &UserClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: missing subject", op)
	}
	return claims, nil
}

func (j *MakerImpl) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *MakerImpl) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
