package models

// Plan описывает тарифный план каталога.
type Plan struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	MinutesIncluded int      `json:"minutesIncluded"` // 0 означает индивидуальные условия
	MaxBots         *int     `json:"maxBots"`         // nil означает без ограничений
	PriceEUR        int      `json:"priceEur"`
	Features        []string `json:"features"`
	ExternalPriceID *string  `json:"externalPriceId,omitempty"` // Идентификатор цены в Stripe
	IsActive        bool     `json:"isActive"`
}
