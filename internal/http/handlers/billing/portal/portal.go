// Package portal реализует HTTP-обработчик открытия портала управления подпиской Stripe.
package portal

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

// Service описывает открытие портала.
type Service interface {
	CreatePortal(ctx context.Context, userID string) (string, error)
}

// Handler обрабатывает POST /billing/portal.
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
// @Summary Портал управления подпиской
// @Description Возвращает URL портала Stripe для смены плана, карты или отмены подписки.
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "url"
// @Failure 400 {object} response.ErrorResponse "У пользователя нет платёжного аккаунта"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /billing/portal [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.portal"
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

	url, err := h.service.CreatePortal(r.Context(), userID)
	if err != nil {
		log.Error("failed to create portal session", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"url": url})
}
