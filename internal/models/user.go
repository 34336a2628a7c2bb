// Package models содержит доменные структуры сервиса: пользователей, планы,
// подписки, ботов, файлы базы знаний, сессии и записи расхода минут.
package models

import "time"

// User представляет владельца ботов и плательщика.
type User struct {
	ID               string    // Уникальный идентификатор пользователя
	Email            string    // Электронная почта
	Name             string    // Отображаемое имя
	Role             string    // Роль пользователя, admin или user
	CreditsMinutes   int       // Остаток минут, никогда не меньше нуля
	StripeCustomerID *string   // Идентификатор клиента в Stripe, если уже создан
	CreatedAt        time.Time // Дата регистрации
}
