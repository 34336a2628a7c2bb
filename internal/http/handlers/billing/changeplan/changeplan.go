// Package changeplan реализует HTTP-обработчик смены плана действующей подписки.
package changeplan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

// Request тело запроса смены плана.
type Request struct {
	PlanCode string `json:"planCode" validate:"required,alphanum"`
}

// Service описывает смену плана.
type Service interface {
	ChangePlan(ctx context.Context, userID, planCode string) error
}

// Handler обрабатывает PUT /billing/subscription.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Сменить план
// @Description Переводит действующую подписку на другой план с пропорциональным перерасчётом. Локальная подписка обновляется после события Stripe.
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Код нового плана"
// @Success 202 {object} map[string]bool "success: true"
// @Failure 400 {object} response.ErrorResponse "План недоступен для покупки"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "План или подписка не найдены"
// @Failure 409 {object} response.ErrorResponse "Подписка уже на этом плане"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /billing/subscription [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.changeplan"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid request"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		render.Status(r, http.StatusBadRequest)
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("Invalid request"))
		return
	}

	if err := h.service.ChangePlan(r.Context(), userID, req.PlanCode); err != nil {
		log.Error("failed to change plan", slog.String("plan", req.PlanCode), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"success": true})
}
