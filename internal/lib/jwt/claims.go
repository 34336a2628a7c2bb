// Package jwt реализует выпуск и проверку HS256 токенов.
//
// Используются два вида токенов: сессионный токен встраиваемого бота
// (botId, userId, срок жизни sessionTTL) и платформенный bearer-токен
// пользователя, выпущенный внешним сервисом входа тем же секретом.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims описывает данные сессионного токена встраиваемого бота.
type SessionClaims struct {
	BotID  string `json:"botId"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// UserClaims описывает данные платформенного токена. Идентификатор пользователя в sub.
type UserClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// MakerImpl выпускает и проверяет токены на общем секретном ключе.
type MakerImpl struct {
	secretKey  string        // Секретный ключ для подписи токенов.
	sessionTTL time.Duration // Время жизни сессионного токена.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL сессии.
func NewJWTMaker(secretKey string, sessionTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:  secretKey,
		sessionTTL: sessionTTL,
	}
}
