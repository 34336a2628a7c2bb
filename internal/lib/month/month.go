// Package month считает границы расчётного периода.
package month

import (
	"time"
)

// BillingPeriod возвращает первый и последний день календарного месяца (UTC),
// в который попадает t. Обе границы усечены до полуночи.
func BillingPeriod(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	// нулевой день следующего месяца = последний день текущего
	end := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}
