// Package embed выдаёт сессии встраиваемого голосового бота сторонним сайтам.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/voicebot-billing/internal/apperr"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

// Store определяет методы хранилища для выдачи сессий.
type Store interface {
	GetBotBySlug(ctx context.Context, slug string) (*models.Bot, error)
	ListFilesByStatus(ctx context.Context, botID string, status models.FileStatus) ([]*models.File, error)
	CreateBotSession(ctx context.Context, session *models.BotSession) error
}

// TokenMaker выпускает сессионные токены.
type TokenMaker interface {
	GenerateSessionToken(botID, userID string) (string, time.Time, error)
}

// IssueRequest параметры запроса сессии.
type IssueRequest struct {
	Slug      string
	Token     string // Принимается, но пока не проверяется
	Origin    string
	UserIP    string
	UserAgent string
	Referrer  string
}

// BotView данные бота, которые получает виджет.
type BotView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SystemPrompt string          `json:"systemPrompt"`
	VoiceConfig  json.RawMessage `json:"voiceConfig"`
	ThemeConfig  json.RawMessage `json:"themeConfig"`
}

// KnowledgeFile файл базы знаний, готовый к использованию.
type KnowledgeFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

// IssueResult ответ на запрос сессии.
type IssueResult struct {
	Bot           BotView         `json:"bot"`
	SessionID     string          `json:"sessionId"`
	SessionToken  string          `json:"sessionToken"`
	KnowledgeBase []KnowledgeFile `json:"knowledgeBase"`
}

// Issuer проверяет политику встраивания и открывает сессии.
type Issuer struct {
	store Store
	maker TokenMaker
	log   *slog.Logger
	now   func() time.Time
}

// NewIssuer создаёт Issuer.
func NewIssuer(store Store, maker TokenMaker, log *slog.Logger) *Issuer {
	return &Issuer{
		store: store,
		maker: maker,
		log:   log,
		now:   time.Now,
	}
}

// Issue открывает сессию бота для посетителя сайта.
//
// Непубличный бот открывается только если Origin запроса точно совпадает
// с одним из разрешённых доменов. Публичный бот принимает любой Origin, в том числе пустой.
// Строка сессии пишется последним шагом, при любой предыдущей ошибке её нет.
func (s *Issuer) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	const op = "embed.Issuer.Issue"
	log := s.log.With(slog.String("op", op), slog.String("slug", req.Slug))

	bot, err := s.store.GetBotBySlug(ctx, req.Slug)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.EmbedSessions.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrBotNotFound)
	}
	if err != nil {
		metrics.EmbedSessions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !bot.IsActive {
		metrics.EmbedSessions.WithLabelValues("inactive").Inc()
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrBotInactive)
	}
	if !originAllowed(bot, req.Origin) {
		metrics.EmbedSessions.WithLabelValues("domain_denied").Inc()
		log.Info("origin rejected", slog.String("origin", req.Origin))
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrDomainNotAllowed)
	}

	files, err := s.store.ListFilesByStatus(ctx, bot.ID, models.FileReady)
	if err != nil {
		metrics.EmbedSessions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	kb := make([]KnowledgeFile, 0, len(files))
	for _, f := range files {
		kb = append(kb, KnowledgeFile{ID: f.ID, Filename: f.Filename, MimeType: f.MimeType})
	}

	token, _, err := s.maker.GenerateSessionToken(bot.ID, bot.UserID)
	if err != nil {
		metrics.EmbedSessions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w: %v", op, apperr.ErrInternal, err)
	}

	session := &models.BotSession{
		ID:           uuid.NewString(),
		BotID:        bot.ID,
		UserID:       bot.UserID,
		SessionToken: token,
		StartedAt:    s.now().UTC(),
		UserIP:       req.UserIP,
		UserAgent:    req.UserAgent,
		Referrer:     req.Referrer,
	}
	if err := s.store.CreateBotSession(ctx, session); err != nil {
		metrics.EmbedSessions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.EmbedSessions.WithLabelValues("issued").Inc()
	log.Info("embed session issued", slog.String("session_id", session.ID), slog.String("bot_id", bot.ID))

	return &IssueResult{
		Bot: BotView{
			ID:           bot.ID,
			Name:         bot.Name,
			SystemPrompt: bot.SystemPrompt,
			VoiceConfig:  bot.VoiceConfig,
			ThemeConfig:  bot.ThemeConfig,
		},
		SessionID:     session.ID,
		SessionToken:  token,
		KnowledgeBase: kb,
	}, nil
}

func originAllowed(bot *models.Bot, origin string) bool {
	if bot.IsPublic {
		return true
	}
	if origin == "" {
		return false
	}
	return slices.Contains(bot.AllowedDomains, origin)
}
