// Package summary реализует HTTP-обработчик сводки расхода минут за текущий период.
package summary

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// Service описывает построение сводки.
type Service interface {
	Summary(ctx context.Context, userID string, at time.Time) (*models.UsageSummary, error)
}

// Handler обрабатывает GET /usage/summary.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводка расхода
// @Description Минуты и число сессий за текущий календарный месяц и текущий остаток минут.
// @Tags Usage
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UsageSummary
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /usage/summary [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Unauthorized"))
		return
	}

	summary, err := h.service.Summary(r.Context(), userID, time.Now())
	if err != nil {
		log.Error("failed to build usage summary", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, summary)
}
