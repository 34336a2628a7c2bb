package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// GetBotBySlug возвращает бота по публичному slug.
func (s *Storage) GetBotBySlug(ctx context.Context, slug string) (*models.Bot, error) {
	const op = "storage.GetBotBySlug"
	query := `SELECT id, user_id, name, slug, system_prompt, voice_config, theme_config,
			is_active, is_public, allowed_domains
		FROM bots WHERE slug = $1`

	var b models.Bot
	var voice, theme, domains []byte
	err := s.DB.QueryRowContext(ctx, query, slug).Scan(&b.ID, &b.UserID, &b.Name, &b.Slug,
		&b.SystemPrompt, &voice, &theme, &b.IsActive, &b.IsPublic, &domains)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	b.VoiceConfig = json.RawMessage(voice)
	b.ThemeConfig = json.RawMessage(theme)
	if len(domains) > 0 {
		if err := json.Unmarshal(domains, &b.AllowedDomains); err != nil {
			return nil, fmt.Errorf("%s: allowed_domains: %w", op, err)
		}
	}
	return &b, nil
}

// ListFilesByStatus возвращает файлы базы знаний бота в заданном статусе.
func (s *Storage) ListFilesByStatus(ctx context.Context, botID string, status models.FileStatus) ([]*models.File, error) {
	const op = "storage.ListFilesByStatus"
	query := `SELECT id, bot_id, filename, mime_type, size_bytes, storage_path, status, created_at
		FROM files WHERE bot_id = $1 AND status = $2 ORDER BY created_at, id`
	rows, err := s.DB.QueryContext(ctx, query, botID, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.BotID, &f.Filename, &f.MimeType, &f.SizeBytes,
			&f.StoragePath, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
