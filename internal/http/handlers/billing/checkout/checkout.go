// Package checkout реализует HTTP-обработчик создания страницы оплаты Stripe Checkout.
package checkout

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

// Request тело запроса оформления подписки.
type Request struct {
	PlanCode string `json:"planCode" validate:"required,alphanum"`
}

// Service описывает оформление подписки.
type Service interface {
	CreateCheckout(ctx context.Context, userID, planCode string) (string, error)
}

// Handler обрабатывает POST /billing/checkout.
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
// @Summary Оформить подписку
// @Description Создаёт сессию Stripe Checkout для выбранного плана и возвращает её URL.
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Код плана"
// @Success 200 {object} map[string]string "url"
// @Failure 400 {object} response.ErrorResponse "План недоступен для покупки"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "План или пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"
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

	url, err := h.service.CreateCheckout(r.Context(), userID, req.PlanCode)
	if err != nil {
		log.Error("failed to create checkout session", slog.String("plan", req.PlanCode), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"url": url})
}
