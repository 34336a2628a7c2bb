// Package track реализует HTTP-обработчик закрытия сессии с учётом израсходованных минут.
package track

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
)

// Request тело запроса учёта минут.
type Request struct {
	SessionID   string `json:"sessionId" validate:"required"`
	MinutesUsed int    `json:"minutesUsed" validate:"gt=0,lte=1440"`
}

// Service описывает учёт расхода.
type Service interface {
	Record(ctx context.Context, sessionID string, minutesUsed int) (*models.UsageRecord, error)
}

// Handler обрабатывает POST /usage/track.
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
// @Summary Учесть минуты сессии
// @Description Закрывает сессию разговора и списывает минуты с владельца бота. Сессию можно закрыть один раз.
// @Tags Usage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Сессия и длительность"
// @Success 200 {object} map[string]bool "success: true"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} response.ErrorResponse "Сессия уже закрыта"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /usage/track [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.track"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	record, err := h.service.Record(r.Context(), req.SessionID, req.MinutesUsed)
	if err != nil {
		log.Error("failed to record usage", slog.String("session_id", req.SessionID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("usage tracked", slog.String("session_id", record.SessionID), slog.Int("minutes_used", record.MinutesUsed))
	render.JSON(w, r, map[string]bool{"success": true})
}
