// Package cancel реализует HTTP-обработчик отмены подписки.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

// Service описывает отмену подписки.
type Service interface {
	CancelSubscription(ctx context.Context, userID string) error
}

// Handler обрабатывает DELETE /billing/subscription.
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
// @Summary Отменить подписку
// @Description Немедленно отменяет действующую подписку в Stripe. Локальный статус меняется после события Stripe.
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]bool "success: true"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Нет действующей подписки"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /billing/subscription [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.cancel"
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

	if err := h.service.CancelSubscription(r.Context(), userID); err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"success": true})
}
