package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

const planColumns = `code, name, description, minutes_included, max_bots, price_eur, features, external_price_id, is_active`

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var p models.Plan
	var maxBots sql.NullInt64
	var features []byte
	var priceID sql.NullString
	if err := row.Scan(&p.Code, &p.Name, &p.Description, &p.MinutesIncluded, &maxBots,
		&p.PriceEUR, &features, &priceID, &p.IsActive); err != nil {
		return nil, err
	}
	if maxBots.Valid {
		v := int(maxBots.Int64)
		p.MaxBots = &v
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	p.ExternalPriceID = stringPtr(priceID)
	return &p, nil
}

// ListActivePlans возвращает активные планы, упорядоченные по цене.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"
	query := `SELECT ` + planColumns + ` FROM plans WHERE is_active ORDER BY price_eur, minutes_included`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPlanByCode возвращает план по коду.
func (s *Storage) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	const op = "storage.GetPlanByCode"
	query := `SELECT ` + planColumns + ` FROM plans WHERE code = $1`
	p, err := scanPlan(s.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return p, nil
}

// GetPlanByExternalPriceID возвращает план по идентификатору цены Stripe.
func (s *Storage) GetPlanByExternalPriceID(ctx context.Context, priceID string) (*models.Plan, error) {
	const op = "storage.GetPlanByExternalPriceID"
	query := `SELECT ` + planColumns + ` FROM plans WHERE external_price_id = $1`
	p, err := scanPlan(s.DB.QueryRowContext(ctx, query, priceID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return p, nil
}
