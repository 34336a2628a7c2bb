// Package list реализует HTTP-обработчик каталога тарифов.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// Service описывает получение каталога.
type Service interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
}

// Handler обрабатывает GET /plans.
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
// @Summary Каталог тарифов
// @Description Активные тарифные планы с квотой минут и ценой.
// @Tags Plans
// @Produce json
// @Success 200 {object} map[string][]models.Plan "plans"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*models.Plan{}
	}

	render.JSON(w, r, map[string]any{"plans": plans})
}
