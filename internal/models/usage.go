package models

import "time"

// BotSession один разговор посетителя с ботом.
type BotSession struct {
	ID           string
	BotID        string
	UserID       string // Владелец бота, с него списываются минуты
	SessionToken string
	StartedAt    time.Time
	EndedAt      *time.Time // nil пока сессия открыта
	MinutesUsed  int
	UserIP       string
	UserAgent    string
	Referrer     string
}

// UsageRecord неизменяемая запись о списании минут за сессию.
type UsageRecord struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	SessionID          string    `json:"sessionId"`
	MinutesUsed        int       `json:"minutesUsed"`
	BillingPeriodStart time.Time `json:"billingPeriodStart"`
	BillingPeriodEnd   time.Time `json:"billingPeriodEnd"`
	CreatedAt          time.Time `json:"createdAt"`
}

// UsageSummary сводка расхода за расчётный период.
type UsageSummary struct {
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	MinutesUsed    int       `json:"minutesUsed"`
	Sessions       int       `json:"sessions"`
	CreditsMinutes int       `json:"creditsMinutes"`
}
